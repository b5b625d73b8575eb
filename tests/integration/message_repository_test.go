package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waweb/internal/message"
	"waweb/pkg/errors"
)

func TestMessageRepository_InsertAndFind(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)

	stored := seedMessage(t, repo, "m1", "919876543210", message.DirectionInbound, message.StatusDelivered, time.UnixMilli(1700000000000))
	assert.Equal(t, "m1", stored.ExternalID)
	assert.False(t, stored.CreatedAt.IsZero())

	found, err := repo.FindByExternalID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "919876543210", found.ConversationID)

	missing, err := repo.FindByExternalID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMessageRepository_DuplicateKeyIsConflict(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)
	seedMessage(t, repo, "m1", "c1", message.DirectionInbound, message.StatusDelivered, time.Now())

	_, err := repo.Insert(ctx, &message.Message{
		ExternalID:     "m1",
		ConversationID: "c1",
		Direction:      message.DirectionInbound,
		Status:         message.StatusDelivered,
		OccurredAt:     time.Now(),
	})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestMessageRepository_FindByCorrelationID(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)

	_, err := repo.Insert(ctx, &message.Message{
		ExternalID:     "placeholder_w1",
		CorrelationID:  "w1",
		ConversationID: "c1",
		Direction:      message.DirectionOutbound,
		Status:         message.StatusSent,
		IsPlaceholder:  true,
		OccurredAt:     time.Now(),
	})
	require.NoError(t, err)

	found, err := repo.FindByExternalOrCorrelationID(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "placeholder_w1", found.ExternalID)

	found, err = repo.FindByExternalOrCorrelationID(ctx, "placeholder_w1")
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestMessageRepository_UpdateStatusStamping(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)
	seedMessage(t, repo, "m1", "c1", message.DirectionInbound, message.StatusDelivered, time.Now())

	updated, err := repo.UpdateStatus(ctx, "m1", message.StatusDelivered, time.Now())
	require.NoError(t, err)
	require.NotNil(t, updated.DeliveredAt)
	assert.Nil(t, updated.ReadAt)

	updated, err = repo.UpdateStatus(ctx, "m1", message.StatusRead, time.Now())
	require.NoError(t, err)
	require.NotNil(t, updated.ReadAt)
	assert.NotNil(t, updated.DeliveredAt)

	_, err = repo.UpdateStatus(ctx, "missing", message.StatusRead, time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestMessageRepository_ListByConversationOrdering(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)
	base := time.UnixMilli(1700000000000)

	seedMessage(t, repo, "m2", "c1", message.DirectionInbound, message.StatusDelivered, base.Add(2*time.Minute))
	seedMessage(t, repo, "m1", "c1", message.DirectionInbound, message.StatusDelivered, base.Add(1*time.Minute))
	seedMessage(t, repo, "x1", "c2", message.DirectionInbound, message.StatusDelivered, base)

	messages, err := repo.ListByConversation(ctx, "c1", 1, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ExternalID)
	assert.Equal(t, "m2", messages[1].ExternalID)

	count, err := repo.CountByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMessageRepository_ConversationSummaries(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)
	base := time.UnixMilli(1700000000000)

	// Conversation c1: two inbound unread, one outbound; c2: one inbound
	// read, one inbound unread and newest overall.
	seedMessage(t, repo, "a1", "c1", message.DirectionInbound, message.StatusDelivered, base.Add(1*time.Minute))
	seedMessage(t, repo, "a2", "c1", message.DirectionInbound, message.StatusDelivered, base.Add(2*time.Minute))
	seedMessage(t, repo, "a3", "c1", message.DirectionOutbound, message.StatusSent, base.Add(3*time.Minute))
	seedMessage(t, repo, "b1", "c2", message.DirectionInbound, message.StatusRead, base.Add(4*time.Minute))
	seedMessage(t, repo, "b2", "c2", message.DirectionInbound, message.StatusDelivered, base.Add(5*time.Minute))

	summaries, err := repo.ConversationSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Groups ordered by their last message, newest first.
	assert.Equal(t, "c2", summaries[0].ConversationID)
	assert.Equal(t, "c1", summaries[1].ConversationID)

	assert.Equal(t, int64(2), summaries[0].TotalMessages)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)
	assert.Equal(t, "body of b2", summaries[0].LastMessage.Body)

	assert.Equal(t, int64(3), summaries[1].TotalMessages)
	assert.Equal(t, int64(2), summaries[1].UnreadCount)
	assert.Equal(t, message.DirectionOutbound, summaries[1].LastMessage.Direction)
}

func TestMessageRepository_MarkConversationRead(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)
	base := time.UnixMilli(1700000000000)

	seedMessage(t, repo, "m1", "c1", message.DirectionInbound, message.StatusDelivered, base)
	seedMessage(t, repo, "m2", "c1", message.DirectionInbound, message.StatusDelivered, base.Add(time.Minute))
	seedMessage(t, repo, "m3", "c1", message.DirectionOutbound, message.StatusSent, base.Add(2*time.Minute))

	updated, err := repo.MarkConversationRead(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	for _, m := range updated {
		assert.Equal(t, message.StatusRead, m.Status)
		assert.NotNil(t, m.ReadAt)
	}

	outbound, err := repo.FindByExternalID(ctx, "m3")
	require.NoError(t, err)
	assert.Equal(t, message.StatusSent, outbound.Status)
}

func TestMessageRepository_Search(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)

	_, err := repo.Insert(ctx, &message.Message{
		ExternalID: "m1", ConversationID: "c1", Direction: message.DirectionInbound,
		Kind: message.KindText, Body: "Hello World", Status: message.StatusDelivered, OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &message.Message{
		ExternalID: "m2", ConversationID: "c2", Direction: message.DirectionInbound,
		Kind: message.KindText, Body: "hello again", Status: message.StatusDelivered, OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	results, total, err := repo.Search(ctx, "hello", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, results, 2)

	results, total, err = repo.Search(ctx, "hello", "c1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "m1", results[0].ExternalID)
}

func TestMessageRepository_Stats(t *testing.T) {
	infra := SetupTestInfra(t)
	ctx := context.Background()

	repo := message.NewRepository(infra.MongoDB)
	base := time.Now()

	seedMessage(t, repo, "m1", "c1", message.DirectionInbound, message.StatusDelivered, base)
	seedMessage(t, repo, "m2", "c1", message.DirectionOutbound, message.StatusSent, base)
	seedMessage(t, repo, "m3", "c2", message.DirectionInbound, message.StatusRead, base)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalMessages)
	assert.Equal(t, int64(2), stats.TotalConversations)
	assert.Equal(t, int64(2), stats.InboundMessages)
	assert.Equal(t, int64(1), stats.OutboundMessages)
	assert.Equal(t, int64(1), stats.UnreadMessages)
}

func TestMessageRepository_StatsEmptyCollection(t *testing.T) {
	infra := SetupTestInfra(t)

	repo := message.NewRepository(infra.MongoDB)
	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalMessages)
}
