package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const duplicateKeyCode = 11000

// PartialWriteError reports a batch insert where some documents failed.
type PartialWriteError struct {
	TotalEntries int
	FailedCount  int
	Cause        mongo.BulkWriteException
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial usage insert: %d of %d entries failed: %v",
		e.FailedCount, e.TotalEntries, e.Cause.Error())
}

// MongoDBStore implements Store for MongoDB. Retention is enforced by a TTL
// index on timestamp.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore creates the usage collection indexes.
func NewMongoDBStore(ctx context.Context, database *mongo.Database, retentionDays int) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}

	collection := database.Collection("usage")

	// A field can carry only one index when that index is TTL
	timestampIndex := mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: -1}}}
	if retentionDays > 0 {
		ttl := int32(int64(retentionDays) * 24 * 60 * 60)
		timestampIndex.Options = options.Index().SetExpireAfterSeconds(ttl)
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider", Value: 1}}},
		{Keys: bson.D{{Key: "request_id", Value: 1}}},
		timestampIndex,
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		// Indexes may already exist with other options
		slog.Warn("failed to create some usage indexes", "error", err)
	}

	return &MongoDBStore{collection: collection}, nil
}

// WriteBatch implements Store. The insert is unordered so one bad document
// does not block the rest; duplicates count as written.
func (s *MongoDBStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]any, len(entries))
	for i, e := range entries {
		docs[i] = e
	}

	_, err := s.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		failed := 0
		for _, we := range bulkErr.WriteErrors {
			if we.Code != duplicateKeyCode {
				failed++
			}
		}
		if failed == 0 && bulkErr.WriteConcernError == nil {
			return nil
		}
		return &PartialWriteError{
			TotalEntries: len(entries),
			FailedCount:  failed,
			Cause:        bulkErr,
		}
	}
	return fmt.Errorf("failed to insert usage entries: %w", err)
}

// Summarize implements Store
func (s *MongoDBStore) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	pipeline := mongo.Pipeline{}
	if !since.IsZero() {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
		}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$provider"},
			{Key: "requests", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "prompt_tokens", Value: bson.D{{Key: "$sum", Value: "$prompt_tokens"}}},
			{Key: "completion_tokens", Value: bson.D{{Key: "$sum", Value: "$completion_tokens"}}},
			{Key: "total_tokens", Value: bson.D{{Key: "$sum", Value: "$total_tokens"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer cursor.Close(ctx)

	result := make([]Summary, 0)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode usage summary: %w", err)
	}
	return result, nil
}

// Close implements Store
func (s *MongoDBStore) Close() error {
	return nil
}
