package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"waweb/internal/constants"
	"waweb/internal/logger"
	"waweb/internal/message"
	"waweb/pkg/metrics"
	"waweb/pkg/retry"
)

// KafkaNotifier publishes events keyed by conversation so consumers see a
// conversation's events in order.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger logger.Logger
	policy retry.Policy
}

func NewKafkaNotifier(brokers []string, topic string, log logger.Logger) *KafkaNotifier {
	if topic == "" {
		topic = constants.DefaultEventsTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaNotifier{
		writer: writer,
		logger: log,
		policy: retry.Policy{
			MaxAttempts:     3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     1 * time.Second,
			Multiplier:      2.0,
		},
	}
}

func (n *KafkaNotifier) NotifyNewMessage(ctx context.Context, msg *message.Message) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      constants.EventTypeMessageNew,
		Timestamp: time.Now(),
		Message:   msg,
	}
	n.publish(ctx, msg.ConversationID, event)
}

func (n *KafkaNotifier) NotifyStatusChanged(ctx context.Context, externalID string, status message.Status, conversationID string) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      constants.EventTypeMessageStatus,
		Timestamp: time.Now(),
		Status: &StatusChange{
			ExternalID:     externalID,
			ConversationID: conversationID,
			Status:         status,
		},
	}
	n.publish(ctx, conversationID, event)
}

func (n *KafkaNotifier) publish(ctx context.Context, key string, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		n.logger.ErrorwCtx(ctx, "failed to encode event", "type", event.Type, "error", err)
		metrics.NotificationsTotal.WithLabelValues(event.Type, "error").Inc()
		return
	}

	err = retry.Retry(ctx, n.policy, func() error {
		return n.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: value,
		})
	})
	if err != nil {
		n.logger.ErrorwCtx(ctx, "failed to publish event", "type", event.Type, "error", err)
		metrics.NotificationsTotal.WithLabelValues(event.Type, "error").Inc()
		return
	}

	metrics.NotificationsTotal.WithLabelValues(event.Type, "success").Inc()
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
