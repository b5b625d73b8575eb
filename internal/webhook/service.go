package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"waweb/internal/config"
	"waweb/internal/constants"
	"waweb/internal/logger"
	"waweb/internal/message"
	"waweb/pkg/errors"
	"waweb/pkg/logging"
	"waweb/pkg/metrics"
)

// Store is the slice of the message repository the pipeline needs. The unique
// index on external_id is the correctness backstop for concurrent duplicate
// deliveries; the existence check before insert is only a fast path.
type Store interface {
	FindByExternalID(ctx context.Context, externalID string) (*message.Message, error)
	FindByExternalOrCorrelationID(ctx context.Context, id string) (*message.Message, error)
	Insert(ctx context.Context, msg *message.Message) (*message.Message, error)
	UpdateStatus(ctx context.Context, externalID string, status message.Status, at time.Time) (*message.Message, error)
}

type Service struct {
	store    Store
	cache    SeenCache
	notifier message.Notifier
	cfg      config.WebhookConfig
	logger   logger.Logger
}

func NewService(store Store, cache SeenCache, notifier message.Notifier, cfg config.WebhookConfig, log logger.Logger) *Service {
	if cache == nil {
		cache = NoopSeenCache{}
	}
	if cfg.SeenTTLSeconds <= 0 {
		cfg.SeenTTLSeconds = constants.DefaultSeenTTLSeconds
	}
	return &Service{
		store:    store,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		logger:   log,
	}
}

// ChangeResult aggregates the outcome of one change block.
type ChangeResult struct {
	Field             string   `json:"field,omitempty"`
	MessagesProcessed int      `json:"messages_processed"`
	StatusesProcessed int      `json:"statuses_processed"`
	Errors            []string `json:"errors,omitempty"`
}

// PayloadResult is the structured outcome of one payload. Per-item failures
// live inside the change results; the payload as a whole still succeeds.
type PayloadResult struct {
	Processed    bool           `json:"processed"`
	TotalChanges int            `json:"total_changes"`
	Results      []ChangeResult `json:"results"`
}

type BatchError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchResult reports a bulk run. Failed payloads never stop the run; they
// are recorded here in input order.
type BatchResult struct {
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors,omitempty"`
}

// ProcessRaw decodes, validates and processes a single webhook payload.
func (s *Service) ProcessRaw(ctx context.Context, raw []byte) (*PayloadResult, error) {
	start := time.Now()

	payload, err := DecodePayload(raw)
	if err != nil {
		metrics.WebhookPayloadsTotal.WithLabelValues("invalid").Inc()
		metrics.ObserveWebhookDuration(time.Since(start), "invalid")
		return nil, err
	}

	result, err := s.ProcessPayload(ctx, payload)
	if err != nil {
		metrics.WebhookPayloadsTotal.WithLabelValues("error").Inc()
		metrics.ObserveWebhookDuration(time.Since(start), "error")
		return nil, err
	}

	metrics.WebhookPayloadsTotal.WithLabelValues("success").Inc()
	metrics.ObserveWebhookDuration(time.Since(start), "success")
	return result, nil
}

// ProcessPayload applies every event of a validated payload in order. A
// malformed or failing item is recorded and processing continues; a storage
// outage aborts the payload, since every remaining event would hit the same
// wall.
func (s *Service) ProcessPayload(ctx context.Context, payload *Payload) (*PayloadResult, error) {
	events := Normalize(payload)

	result := &PayloadResult{Processed: true, Results: []ChangeResult{}}
	lastEntry, lastChange := -1, -1
	current := -1

	for i := range events {
		ev := &events[i]

		if ev.EntryIdx != lastEntry || ev.ChangeIdx != lastChange {
			result.Results = append(result.Results, ChangeResult{Field: ev.Field})
			current++
			lastEntry, lastChange = ev.EntryIdx, ev.ChangeIdx
		}
		cr := &result.Results[current]

		switch {
		case ev.Err != nil:
			metrics.WebhookEventsTotal.WithLabelValues(ev.Err.Kind, "invalid").Inc()
			s.logger.WarnwCtx(ctx, "skipping malformed webhook item",
				"item_kind", ev.Err.Kind,
				"item_index", ev.Err.Index,
				"error", ev.Err.Err,
			)
			cr.Errors = append(cr.Errors, fmt.Sprintf("%s[%d]: %v", ev.Err.Kind, ev.Err.Index, ev.Err.Err))

		case ev.Message != nil:
			_, created, err := s.ApplyMessageEvent(ctx, ev.Message)
			if err != nil {
				if errors.IsServiceUnavailable(err) {
					return nil, err
				}
				metrics.WebhookEventsTotal.WithLabelValues("message", "error").Inc()
				cr.Errors = append(cr.Errors, fmt.Sprintf("message %s: %v", ev.Message.ExternalID, err))
				continue
			}
			if created {
				metrics.WebhookEventsTotal.WithLabelValues("message", "created").Inc()
			} else {
				metrics.WebhookEventsTotal.WithLabelValues("message", "duplicate").Inc()
			}
			cr.MessagesProcessed++

		case ev.Status != nil:
			_, placeholder, err := s.ApplyStatusEvent(ctx, ev.Status)
			if err != nil {
				if errors.IsServiceUnavailable(err) {
					return nil, err
				}
				metrics.WebhookEventsTotal.WithLabelValues("status", "error").Inc()
				cr.Errors = append(cr.Errors, fmt.Sprintf("status %s: %v", ev.Status.ID, err))
				continue
			}
			if placeholder {
				metrics.WebhookEventsTotal.WithLabelValues("status", "placeholder").Inc()
			} else {
				metrics.WebhookEventsTotal.WithLabelValues("status", "updated").Inc()
			}
			cr.StatusesProcessed++
		}
	}

	result.TotalChanges = len(result.Results)
	return result, nil
}

// ProcessPayloads runs a batch of raw payloads sequentially. One payload's
// failure never aborts the run: it is counted and recorded under its input
// index, and the next payload is processed.
func (s *Service) ProcessPayloads(ctx context.Context, payloads []json.RawMessage) *BatchResult {
	result := &BatchResult{Total: len(payloads)}

	for i, raw := range payloads {
		if err := s.processOne(ctx, raw); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{Index: i, Error: err.Error()})
			s.logger.WarnwCtx(ctx, "batch payload failed", "index", i, "error", err)
			continue
		}
		result.Processed++
	}

	return result
}

// processOne confines a panic to its payload so the batch keeps going.
func (s *Service) processOne(ctx context.Context, raw json.RawMessage) (err error) {
	defer func() {
		if rerr := errors.RecoverPanic(recover()); rerr != nil {
			err = rerr
		}
	}()

	_, err = s.ProcessRaw(ctx, raw)
	return err
}

// ApplyMessageEvent persists an inbound message at most once. A redelivery
// returns the stored record unchanged; a lost race on insert is recovered by
// re-fetching the winner.
func (s *Service) ApplyMessageEvent(ctx context.Context, ev *MessageEvent) (*message.Message, bool, error) {
	ctx = logging.WithExternalID(logging.WithConversationID(ctx, ev.ConversationID), ev.ExternalID)

	firstSeen, err := s.markSeen(ctx, ev.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if !firstSeen {
		metrics.DuplicateDeliveriesTotal.Inc()
	}

	existing, err := s.store.FindByExternalID(ctx, ev.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.logger.DebugwCtx(ctx, "duplicate message delivery ignored")
		return existing, false, nil
	}

	msg := &message.Message{
		ExternalID:     ev.ExternalID,
		ConversationID: ev.ConversationID,
		DisplayName:    ev.DisplayName,
		Direction:      message.DirectionInbound,
		Kind:           ev.Kind,
		Body:           ev.Body,
		Media:          ev.Media,
		Location:       ev.Location,
		Contacts:       ev.Contacts,
		ReplyTo:        ev.ReplyTo,
		Status:         message.StatusDelivered,
		OccurredAt:     ev.OccurredAt,
		Raw:            ev.Raw,
	}

	stored, err := s.store.Insert(ctx, msg)
	if err != nil {
		if errors.IsConflict(err) {
			winner, ferr := s.store.FindByExternalID(ctx, ev.ExternalID)
			if ferr != nil {
				return nil, false, ferr
			}
			if winner != nil {
				s.logger.DebugwCtx(ctx, "concurrent duplicate insert resolved to existing record")
				return winner, false, nil
			}
		}
		return nil, false, err
	}

	metrics.MessagesStoredTotal.WithLabelValues(string(stored.Kind), string(stored.Direction)).Inc()
	s.logger.InfowCtx(ctx, "inbound message stored", "kind", stored.Kind)
	s.notifier.NotifyNewMessage(ctx, stored)
	return stored, true, nil
}

// ApplyStatusEvent updates the matching record's status, or synthesizes a
// placeholder when the status arrives before its message so the update is not
// lost. Returns true when a placeholder was created.
func (s *Service) ApplyStatusEvent(ctx context.Context, ev *StatusEvent) (*message.Message, bool, error) {
	ctx = logging.WithExternalID(ctx, ev.ID)
	status := message.Status(ev.Status)

	existing, err := s.store.FindByExternalOrCorrelationID(ctx, ev.ID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		updated, err := s.store.UpdateStatus(ctx, existing.ExternalID, status, time.Now())
		if err != nil {
			return nil, false, err
		}
		ctx = logging.WithConversationID(ctx, updated.ConversationID)
		s.logger.InfowCtx(ctx, "message status updated", "status", status)
		s.notifier.NotifyStatusChanged(ctx, updated.ExternalID, status, updated.ConversationID)
		return updated, false, nil
	}

	conversationID := ev.RecipientID
	if conversationID == "" {
		conversationID = constants.UnknownConversation
	}

	placeholder := &message.Message{
		ExternalID:     constants.PlaceholderIDPrefix + ev.ID,
		CorrelationID:  ev.ID,
		ConversationID: conversationID,
		DisplayName:    conversationID,
		Direction:      message.DirectionOutbound,
		Kind:           message.KindText,
		Body:           constants.PlaceholderBody,
		Status:         status,
		OccurredAt:     occurredAt(ev.Timestamp),
		IsPlaceholder:  true,
		Raw:            *ev,
	}

	// Placeholder creation is itself the status transition, so it gets the
	// same stamping as an update would.
	now := time.Now()
	switch status {
	case message.StatusDelivered:
		placeholder.DeliveredAt = &now
	case message.StatusRead:
		placeholder.ReadAt = &now
	}

	stored, err := s.store.Insert(ctx, placeholder)
	if err != nil {
		if errors.IsConflict(err) {
			// Lost a race against a concurrent status event for the same id;
			// apply this status to the winner's placeholder instead.
			winner, ferr := s.store.FindByExternalOrCorrelationID(ctx, ev.ID)
			if ferr != nil {
				return nil, false, ferr
			}
			if winner != nil {
				updated, uerr := s.store.UpdateStatus(ctx, winner.ExternalID, status, time.Now())
				if uerr != nil {
					return nil, false, uerr
				}
				s.notifier.NotifyStatusChanged(ctx, updated.ExternalID, status, updated.ConversationID)
				return updated, false, nil
			}
		}
		return nil, false, err
	}

	metrics.PlaceholderMessagesTotal.Inc()
	ctx = logging.WithConversationID(ctx, stored.ConversationID)
	s.logger.InfowCtx(ctx, "placeholder created for unknown message", "status", status)
	s.notifier.NotifyStatusChanged(ctx, stored.ExternalID, status, stored.ConversationID)
	return stored, true, nil
}

// markSeen consults the duplicate fast path. Under the allow policy a cache
// failure degrades to "unseen" and the store decides; under deny it is
// surfaced as a storage-class outage.
func (s *Service) markSeen(ctx context.Context, id string) (bool, error) {
	firstSeen, err := s.cache.MarkSeen(ctx, id, time.Duration(s.cfg.SeenTTLSeconds)*time.Second)
	if err != nil {
		s.logger.WarnwCtx(ctx, "seen cache unavailable", "error", err)
		if s.cfg.OnCacheError == constants.FallbackDeny {
			return false, errors.ErrServiceUnavailable.WithMessage("duplicate cache unavailable").WithCause(err)
		}
		return true, nil
	}
	return firstSeen, nil
}
