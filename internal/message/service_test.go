package message

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waweb/internal/logger"
	"waweb/pkg/errors"
)

type fakeRepository struct {
	records map[string]*Message

	listCalls [][2]int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{records: map[string]*Message{}}
}

func (r *fakeRepository) FindByExternalID(ctx context.Context, externalID string) (*Message, error) {
	if m, ok := r.records[externalID]; ok {
		return m, nil
	}
	return nil, nil
}

func (r *fakeRepository) FindByExternalOrCorrelationID(ctx context.Context, id string) (*Message, error) {
	if m, ok := r.records[id]; ok {
		return m, nil
	}
	for _, m := range r.records {
		if m.CorrelationID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeRepository) Insert(ctx context.Context, msg *Message) (*Message, error) {
	if _, ok := r.records[msg.ExternalID]; ok {
		return nil, errors.ErrConflict
	}
	r.records[msg.ExternalID] = msg
	return msg, nil
}

func (r *fakeRepository) UpdateStatus(ctx context.Context, externalID string, status Status, at time.Time) (*Message, error) {
	m, ok := r.records[externalID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	m.Status = status
	return m, nil
}

func (r *fakeRepository) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]Message, error) {
	r.listCalls = append(r.listCalls, [2]int{page, limit})
	var out []Message
	for _, m := range r.records {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRepository) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	for _, m := range r.records {
		if m.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) ConversationSummaries(ctx context.Context) ([]ConversationSummary, error) {
	return nil, nil
}

func (r *fakeRepository) MarkConversationRead(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	for _, m := range r.records {
		if m.ConversationID == conversationID && m.Direction == DirectionInbound && m.Status != StatusRead {
			m.Status = StatusRead
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeRepository) Search(ctx context.Context, query, conversationID string, page, limit int) ([]Message, int64, error) {
	return nil, 0, nil
}

func (r *fakeRepository) Stats(ctx context.Context) (*Stats, error) {
	return &Stats{}, nil
}

type recordingNotifier struct {
	newCount    int
	statusCount int
}

func (n *recordingNotifier) NotifyNewMessage(ctx context.Context, msg *Message) { n.newCount++ }

func (n *recordingNotifier) NotifyStatusChanged(ctx context.Context, externalID string, status Status, conversationID string) {
	n.statusCount++
}

func TestSendMessage(t *testing.T) {
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, logger.NopLogger())

	msg, err := svc.SendMessage(context.Background(), "919876543210", "hello there")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg.ExternalID, "msg_"))
	assert.Equal(t, msg.ExternalID, msg.CorrelationID)
	assert.Equal(t, DirectionOutbound, msg.Direction)
	assert.Equal(t, StatusSent, msg.Status)
	assert.Equal(t, KindText, msg.Kind)
	assert.Equal(t, "hello there", msg.Body)
	assert.Equal(t, 1, notifier.newCount)
}

func TestSendMessage_Validation(t *testing.T) {
	svc := NewService(newFakeRepository(), &recordingNotifier{}, logger.NopLogger())

	_, err := svc.SendMessage(context.Background(), "", "hi")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.SendMessage(context.Background(), "919876543210", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateStatus_ByCorrelationID(t *testing.T) {
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, logger.NopLogger())

	repo.records["placeholder_w1"] = &Message{
		ExternalID:     "placeholder_w1",
		CorrelationID:  "w1",
		ConversationID: "919876543210",
		Status:         StatusSent,
	}

	updated, err := svc.UpdateStatus(context.Background(), "w1", StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, "placeholder_w1", updated.ExternalID)
	assert.Equal(t, StatusDelivered, updated.Status)
	assert.Equal(t, 1, notifier.statusCount)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc := NewService(newFakeRepository(), &recordingNotifier{}, logger.NopLogger())

	_, err := svc.UpdateStatus(context.Background(), "m1", Status("bogus"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc := NewService(newFakeRepository(), &recordingNotifier{}, logger.NopLogger())

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusRead)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestMarkConversationRead_NotifiesPerMessage(t *testing.T) {
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, logger.NopLogger())

	repo.records["m1"] = &Message{ExternalID: "m1", ConversationID: "c1", Direction: DirectionInbound, Status: StatusDelivered}
	repo.records["m2"] = &Message{ExternalID: "m2", ConversationID: "c1", Direction: DirectionInbound, Status: StatusDelivered}
	repo.records["m3"] = &Message{ExternalID: "m3", ConversationID: "c1", Direction: DirectionOutbound, Status: StatusSent}

	updated, err := svc.MarkConversationRead(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, 2, notifier.statusCount)
}

func TestListMessages_ClampsPagination(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, &recordingNotifier{}, logger.NopLogger())

	_, pagination, err := svc.ListMessages(context.Background(), "c1", 0, 10000)
	require.NoError(t, err)
	require.Len(t, repo.listCalls, 1)
	assert.Equal(t, [2]int{1, 200}, repo.listCalls[0])
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 200, pagination.Limit)
}

func TestSearch_RequiresQuery(t *testing.T) {
	svc := NewService(newFakeRepository(), &recordingNotifier{}, logger.NopLogger())

	_, _, err := svc.Search(context.Background(), "", "", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
