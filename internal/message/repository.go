package message

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"waweb/internal/constants"
	pkgerrors "waweb/pkg/errors"
)

type Repository interface {
	FindByExternalID(ctx context.Context, externalID string) (*Message, error)
	FindByExternalOrCorrelationID(ctx context.Context, id string) (*Message, error)
	Insert(ctx context.Context, msg *Message) (*Message, error)
	UpdateStatus(ctx context.Context, externalID string, status Status, at time.Time) (*Message, error)
	ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int64, error)
	ConversationSummaries(ctx context.Context) ([]ConversationSummary, error)
	MarkConversationRead(ctx context.Context, conversationID string) ([]Message, error)
	Search(ctx context.Context, query, conversationID string, page, limit int) ([]Message, int64, error)
	Stats(ctx context.Context) (*Stats, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection(constants.MessagesCollection),
	}
}

// FindByExternalID returns (nil, nil) when no record matches; storage faults
// are reported as SERVICE_UNAVAILABLE so callers can tell absence from outage.
func (r *MongoDBRepository) FindByExternalID(ctx context.Context, externalID string) (*Message, error) {
	return r.findOne(ctx, bson.M{"external_id": externalID})
}

func (r *MongoDBRepository) FindByExternalOrCorrelationID(ctx context.Context, id string) (*Message, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"external_id": id},
		bson.M{"correlation_id": id},
	}})
}

func (r *MongoDBRepository) findOne(ctx context.Context, filter bson.M) (*Message, error) {
	var msg Message
	err := r.collection.FindOne(ctx, filter).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("message lookup failed").WithCause(err)
	}
	return &msg, nil
}

func (r *MongoDBRepository) Insert(ctx context.Context, msg *Message) (*Message, error) {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, pkgerrors.ErrConflict.
				WithDetail("external_id", msg.ExternalID).
				WithCause(err)
		}
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("message insert failed").WithCause(err)
	}
	return msg, nil
}

// UpdateStatus overwrites the status on every update; delivered_at and
// read_at are stamped only when the new status is exactly that transition, so
// a late event never clears an earlier stamp.
func (r *MongoDBRepository) UpdateStatus(ctx context.Context, externalID string, status Status, at time.Time) (*Message, error) {
	set := bson.M{
		"status":     status,
		"updated_at": at,
	}
	switch status {
	case StatusDelivered:
		set["delivered_at"] = at
	case StatusRead:
		set["read_at"] = at
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Message
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"external_id": externalID},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, pkgerrors.ErrNotFound.WithDetail("external_id", externalID)
	}
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("status update failed").WithCause(err)
	}
	return &updated, nil
}

func (r *MongoDBRepository) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]Message, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("message list failed").WithCause(err)
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("message decode failed").WithCause(err)
	}
	return messages, nil
}

func (r *MongoDBRepository) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, pkgerrors.ErrServiceUnavailable.WithMessage("message count failed").WithCause(err)
	}
	return count, nil
}

// ConversationSummaries groups messages by conversation with the newest
// message first inside a group; unread counts inbound messages that have not
// reached "read". Groups come back ordered by their last message, newest
// conversation first.
func (r *MongoDBRepository) ConversationSummaries(ctx context.Context) ([]ConversationSummary, error) {
	unreadCond := bson.M{"$cond": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$direction", DirectionInbound}},
			bson.M{"$ne": bson.A{"$status", StatusRead}},
		}},
		1,
		0,
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "occurred_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$conversation_id",
			"last":           bson.M{"$first": "$$ROOT"},
			"total_messages": bson.M{"$sum": 1},
			"unread_count":   bson.M{"$sum": unreadCond},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":          1,
			"display_name": "$last.display_name",
			"last_message": bson.M{
				"body":        "$last.body",
				"kind":        "$last.kind",
				"direction":   "$last.direction",
				"occurred_at": "$last.occurred_at",
			},
			"total_messages": 1,
			"unread_count":   1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message.occurred_at", Value: -1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("conversation aggregation failed").WithCause(err)
	}
	defer cursor.Close(ctx)

	var summaries []ConversationSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("conversation decode failed").WithCause(err)
	}
	return summaries, nil
}

func (r *MongoDBRepository) MarkConversationRead(ctx context.Context, conversationID string) ([]Message, error) {
	now := time.Now()
	filter := bson.M{
		"conversation_id": conversationID,
		"direction":       DirectionInbound,
		"status":          bson.M{"$ne": StatusRead},
	}

	_, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":     StatusRead,
		"read_at":    now,
		"updated_at": now,
	}})
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("mark read failed").WithCause(err)
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"conversation_id": conversationID,
		"direction":       DirectionInbound,
		"status":          StatusRead,
		"read_at":         bson.M{"$gte": now},
	})
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("mark read lookup failed").WithCause(err)
	}
	defer cursor.Close(ctx)

	var updated []Message
	if err := cursor.All(ctx, &updated); err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("mark read decode failed").WithCause(err)
	}
	return updated, nil
}

func (r *MongoDBRepository) Search(ctx context.Context, query, conversationID string, page, limit int) ([]Message, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}

	filter := bson.M{"body": bson.M{"$regex": query, "$options": "i"}}
	if conversationID != "" {
		filter["conversation_id"] = conversationID
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, pkgerrors.ErrServiceUnavailable.WithMessage("search count failed").WithCause(err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, pkgerrors.ErrServiceUnavailable.WithMessage("search failed").WithCause(err)
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, pkgerrors.ErrServiceUnavailable.WithMessage("search decode failed").WithCause(err)
	}
	return messages, total, nil
}

func (r *MongoDBRepository) Stats(ctx context.Context) (*Stats, error) {
	unreadCond := bson.M{"$cond": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$direction", DirectionInbound}},
			bson.M{"$ne": bson.A{"$status", StatusRead}},
		}},
		1,
		0,
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_messages": bson.M{"$sum": 1},
			"conversations":  bson.M{"$addToSet": "$conversation_id"},
			"inbound_messages": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$direction", DirectionInbound}}, 1, 0,
			}}},
			"outbound_messages": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$direction", DirectionOutbound}}, 1, 0,
			}}},
			"unread_messages": bson.M{"$sum": unreadCond},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":                 0,
			"total_messages":      1,
			"total_conversations": bson.M{"$size": "$conversations"},
			"inbound_messages":    1,
			"outbound_messages":   1,
			"unread_messages":     1,
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("stats aggregation failed").WithCause(err)
	}
	defer cursor.Close(ctx)

	var results []Stats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, pkgerrors.ErrServiceUnavailable.WithMessage("stats decode failed").WithCause(err)
	}
	if len(results) == 0 {
		return &Stats{}, nil
	}
	return &results[0], nil
}
