package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered panic value into an error carrying the
// stack trace, so a panic inside event processing surfaces as a per-item
// failure instead of killing the batch.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return ErrInternal.
		WithCause(err).
		WithDetail("panic", true).
		WithDetail("stack_trace", string(debug.Stack()))
}
