package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrInvalidPayload     = NewError("INVALID_PAYLOAD", "invalid webhook payload", http.StatusBadRequest)
	ErrValidation         = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal           = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrConflict           = NewError("CONFLICT", "resource conflict", http.StatusConflict)
	ErrServiceUnavailable = NewError("SERVICE_UNAVAILABLE", "service unavailable", http.StatusServiceUnavailable)
)

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) WithMessage(message string) *Error {
	return e.WithDetail("message", message)
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

func IsInvalidPayload(err error) bool {
	return hasCode(err, ErrInvalidPayload.Code)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation.Code) || hasCode(err, ErrInvalidPayload.Code)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrConflict.Code)
}

func IsServiceUnavailable(err error) bool {
	return hasCode(err, ErrServiceUnavailable.Code)
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
