// Package migrations creates the MongoDB indexes the service relies on.
// Index creation is idempotent, so this runs unconditionally at startup.
package migrations

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"waweb/internal/constants"
)

// EnsureMessageIndexes builds the messages collection indexes. The unique
// index on external_id is load-bearing: it is the correctness backstop for
// concurrent duplicate webhook deliveries, not an optimization.
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.MessagesCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_external_id"),
		},
		{
			Keys:    bson.D{{Key: "correlation_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("ix_correlation_id"),
		},
		{
			Keys: bson.D{
				{Key: "conversation_id", Value: 1},
				{Key: "occurred_at", Value: -1},
			},
			Options: options.Index().SetName("ix_conversation_occurred"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("ix_status"),
		},
		{
			Keys:    bson.D{{Key: "direction", Value: 1}},
			Options: options.Index().SetName("ix_direction"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}
