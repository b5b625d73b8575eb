// Package notify publishes chat events to the message broker so downstream
// consumers (websocket fanout, analytics) see new messages and status
// transitions. Publishing is best effort: failures are logged and counted,
// never surfaced to the write path.
package notify

import (
	"context"
	"time"

	"waweb/internal/message"
)

// Event is the broker envelope for both event types. Message is set for
// message.new, Status for message.status.
type Event struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Message   *message.Message `json:"message,omitempty"`
	Status    *StatusChange    `json:"status,omitempty"`
}

type StatusChange struct {
	ExternalID     string         `json:"external_id"`
	ConversationID string         `json:"conversation_id"`
	Status         message.Status `json:"status"`
}

// NoopNotifier is used when no broker is configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (n *NoopNotifier) NotifyNewMessage(ctx context.Context, msg *message.Message) {}

func (n *NoopNotifier) NotifyStatusChanged(ctx context.Context, externalID string, status message.Status, conversationID string) {
}

func (n *NoopNotifier) Close() error { return nil }
