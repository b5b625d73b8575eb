package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"waweb/internal/config"
	"waweb/internal/constants"
	"waweb/internal/logger"
	"waweb/internal/message"
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestWebhookConfig() config.WebhookConfig {
	return config.WebhookConfig{
		SeenTTLSeconds: 60,
		OnCacheError:   constants.FallbackAllow,
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifyNewMessage(ctx context.Context, msg *message.Message) {}

func (noopNotifier) NotifyStatusChanged(ctx context.Context, externalID string, status message.Status, conversationID string) {
}

func seedMessage(t *testing.T, repo message.Repository, externalID, conversationID string, direction message.Direction, status message.Status, occurredAt time.Time) *message.Message {
	t.Helper()

	stored, err := repo.Insert(context.Background(), &message.Message{
		ExternalID:     externalID,
		ConversationID: conversationID,
		DisplayName:    conversationID,
		Direction:      direction,
		Kind:           message.KindText,
		Body:           fmt.Sprintf("body of %s", externalID),
		Status:         status,
		OccurredAt:     occurredAt,
	})
	if err != nil {
		t.Fatalf("failed to seed message %s: %v", externalID, err)
	}
	return stored
}
