package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"aihub/internal/core"
)

// MongoDBStore implements Store for MongoDB. Provider settings are keyed by
// type in the providers collection, application settings by key in settings.
type MongoDBStore struct {
	providers *mongo.Collection
	settings  *mongo.Collection
}

type valueDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDBStore creates a MongoDB settings store.
func NewMongoDBStore(ctx context.Context, database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}

	providers := database.Collection("providers")

	_, err := providers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "enabled", Value: 1}},
	})
	if err != nil {
		slog.Warn("failed to create MongoDB index", "error", err)
	}

	return &MongoDBStore{
		providers: providers,
		settings:  database.Collection("settings"),
	}, nil
}

// Get implements Store
func (s *MongoDBStore) Get(ctx context.Context, t core.ProviderType) (*Setting, error) {
	var setting Setting
	err := s.providers.FindOne(ctx, bson.D{{Key: "_id", Value: string(t)}}).Decode(&setting)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider setting: %w", err)
	}
	setting.UpdatedAt = setting.UpdatedAt.UTC()
	return &setting, nil
}

// List implements Store
func (s *MongoDBStore) List(ctx context.Context) ([]Setting, error) {
	return s.find(ctx, bson.D{})
}

// ListEnabled implements Store
func (s *MongoDBStore) ListEnabled(ctx context.Context) ([]Setting, error) {
	return s.find(ctx, bson.D{{Key: "enabled", Value: true}})
}

func (s *MongoDBStore) find(ctx context.Context, filter bson.D) ([]Setting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.providers.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider settings: %w", err)
	}

	result := make([]Setting, 0)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode provider settings: %w", err)
	}
	for i := range result {
		result[i].UpdatedAt = result[i].UpdatedAt.UTC()
	}
	return result, nil
}

// Save implements Store
func (s *MongoDBStore) Save(ctx context.Context, setting Setting) error {
	if err := setting.Validate(); err != nil {
		return err
	}
	setting.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := s.providers.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: string(setting.Type)}},
		setting,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save provider setting: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *MongoDBStore) Delete(ctx context.Context, t core.ProviderType) error {
	if _, err := s.providers.DeleteOne(ctx, bson.D{{Key: "_id", Value: string(t)}}); err != nil {
		return fmt.Errorf("failed to delete provider setting: %w", err)
	}
	return nil
}

// GetValue implements Store
func (s *MongoDBStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var doc valueDocument
	err := s.settings.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return doc.Value, true, nil
}

// SetValue implements Store
func (s *MongoDBStore) SetValue(ctx context.Context, key, value string) error {
	doc := valueDocument{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.settings.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
