package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	"waweb/internal/constants"
	"waweb/internal/logger"
	"waweb/pkg/errors"
	"waweb/pkg/logging"
	"waweb/pkg/metrics"
)

// Notifier publishes chat events after a write succeeds. Implementations are
// fire-and-forget: a broker outage must never fail the write path.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, msg *Message)
	NotifyStatusChanged(ctx context.Context, externalID string, status Status, conversationID string)
}

type Service interface {
	SendMessage(ctx context.Context, conversationID, body string) (*Message, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) (int, error)
	ListMessages(ctx context.Context, conversationID string, page, limit int) ([]Message, *Pagination, error)
	Conversations(ctx context.Context) ([]ConversationSummary, error)
	Search(ctx context.Context, query, conversationID string, page, limit int) ([]Message, *Pagination, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo     Repository
	notifier Notifier
	logger   logger.Logger
}

func NewService(repo Repository, notifier Notifier, log logger.Logger) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		logger:   log,
	}
}

// SendMessage stores an operator-sent outbound message. The external ID is
// minted locally; the WhatsApp message ID arrives later via a status webhook
// and is matched through correlation_id.
func (s *service) SendMessage(ctx context.Context, conversationID, body string) (*Message, error) {
	if conversationID == "" {
		return nil, errors.ErrValidation.WithMessage("conversation_id is required")
	}
	if body == "" {
		return nil, errors.ErrValidation.WithMessage("body is required")
	}

	now := time.Now()
	externalID := constants.OutboundIDPrefix + uuid.NewString()
	ctx = logging.WithExternalID(logging.WithConversationID(ctx, conversationID), externalID)

	msg := &Message{
		ExternalID:     externalID,
		CorrelationID:  externalID,
		ConversationID: conversationID,
		Direction:      DirectionOutbound,
		Kind:           KindText,
		Body:           body,
		Status:         StatusSent,
		OccurredAt:     now,
	}

	stored, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	metrics.MessagesStoredTotal.WithLabelValues(string(stored.Kind), string(stored.Direction)).Inc()
	s.logger.InfowCtx(ctx, "outbound message stored")
	s.notifier.NotifyNewMessage(ctx, stored)
	return stored, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Message, error) {
	if !ValidStatus(status) {
		return nil, errors.ErrValidation.
			WithMessage("invalid status").
			WithDetail("status", string(status))
	}

	existing, err := s.repo.FindByExternalOrCorrelationID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.ErrNotFound.WithDetail("id", id)
	}

	updated, err := s.repo.UpdateStatus(ctx, existing.ExternalID, status, time.Now())
	if err != nil {
		return nil, err
	}

	ctx = logging.WithExternalID(logging.WithConversationID(ctx, updated.ConversationID), updated.ExternalID)
	s.logger.InfowCtx(ctx, "message status updated", "status", status)
	s.notifier.NotifyStatusChanged(ctx, updated.ExternalID, status, updated.ConversationID)
	return updated, nil
}

func (s *service) MarkConversationRead(ctx context.Context, conversationID string) (int, error) {
	if conversationID == "" {
		return 0, errors.ErrValidation.WithMessage("conversation_id is required")
	}
	ctx = logging.WithConversationID(ctx, conversationID)

	updated, err := s.repo.MarkConversationRead(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	for i := range updated {
		s.notifier.NotifyStatusChanged(ctx, updated[i].ExternalID, StatusRead, conversationID)
	}
	s.logger.InfowCtx(ctx, "conversation marked read", "updated", len(updated))
	return len(updated), nil
}

func (s *service) ListMessages(ctx context.Context, conversationID string, page, limit int) ([]Message, *Pagination, error) {
	if conversationID == "" {
		return nil, nil, errors.ErrValidation.WithMessage("conversation_id is required")
	}
	page, limit = clampPage(page, limit)

	messages, err := s.repo.ListByConversation(ctx, conversationID, page, limit)
	if err != nil {
		return nil, nil, err
	}
	total, err := s.repo.CountByConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return messages, newPagination(page, limit, total), nil
}

func (s *service) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	return s.repo.ConversationSummaries(ctx)
}

func (s *service) Search(ctx context.Context, query, conversationID string, page, limit int) ([]Message, *Pagination, error) {
	if query == "" {
		return nil, nil, errors.ErrValidation.WithMessage("query is required")
	}
	page, limit = clampPage(page, limit)

	messages, total, err := s.repo.Search(ctx, query, conversationID, page, limit)
	if err != nil {
		return nil, nil, err
	}
	return messages, newPagination(page, limit, total), nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	return page, limit
}

func newPagination(page, limit int, total int64) *Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}
}
