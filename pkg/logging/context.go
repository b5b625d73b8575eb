package logging

import (
	"context"
)

const (
	RequestIDKey      = "request_id"
	ConversationIDKey = "conversation_id"
	ExternalIDKey     = "external_id"
	ServiceNameKey    = "service_name"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, conversationID)
}

func WithExternalID(ctx context.Context, externalID string) context.Context {
	return context.WithValue(ctx, ExternalIDKey, externalID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func GetConversationID(ctx context.Context) string {
	if conversationID, ok := ctx.Value(ConversationIDKey).(string); ok {
		return conversationID
	}
	return ""
}

func GetExternalID(ctx context.Context) string {
	if externalID, ok := ctx.Value(ExternalIDKey).(string); ok {
		return externalID
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if conversationID := GetConversationID(ctx); conversationID != "" {
		fields = append(fields, "conversation_id", conversationID)
	}

	if externalID := GetExternalID(ctx); externalID != "" {
		fields = append(fields, "external_id", externalID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
