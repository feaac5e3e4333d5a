package usage

import (
	"context"
	"fmt"
	"time"

	"aihub/config"
	"aihub/internal/storage"
)

// NewStore creates the usage store for the backend behind store. The
// connection is shared and stays owned by the caller.
func NewStore(ctx context.Context, store storage.Storage, retentionDays int) (Store, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(ctx, store.SQLiteDB(), retentionDays)

	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool(), retentionDays)

	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase(), retentionDays)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

// ConfigFrom converts the application usage section, applying defaults.
func ConfigFrom(c config.UsageConfig) Config {
	return Config{
		BufferSize:    c.BufferSize,
		FlushInterval: time.Duration(c.FlushInterval) * time.Second,
		RetentionDays: c.RetentionDays,
	}.withDefaults()
}
