// Package storage opens the database connection shared by the settings and
// usage stores. Exactly one backend is active per process.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"aihub/config"
)

// Backend names accepted in Config.Type.
const (
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
	// TypeNone runs without persistence
	TypeNone = "none"
)

const (
	defaultDatabase   = "aihub"
	defaultSQLitePath = "data/aihub.db"
	defaultMaxConns   = 10
)

type Config struct {
	Type       string
	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

type SQLiteConfig struct {
	// Path of the database file, or ":memory:"
	Path string
}

type PostgreSQLConfig struct {
	URL      string
	MaxConns int
}

type MongoDBConfig struct {
	URL      string
	Database string
}

// ConfigFrom converts the application storage section.
func ConfigFrom(c config.StorageConfig) Config {
	return Config{
		Type:       c.Type,
		SQLite:     SQLiteConfig{Path: c.SQLite.Path},
		PostgreSQL: PostgreSQLConfig{URL: c.PostgreSQL.URL, MaxConns: c.PostgreSQL.MaxConns},
		MongoDB:    MongoDBConfig{URL: c.MongoDB.URL, Database: c.MongoDB.Database},
	}
}

// Storage hands out the native handle of the active backend. Accessors for
// the other backends return nil, so callers switch on Type first.
type Storage interface {
	Type() string
	SQLiteDB() *sql.DB
	PostgreSQLPool() *pgxpool.Pool
	MongoDatabase() *mongo.Database
	Close() error
}

// New connects to the backend selected by cfg.Type.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeSQLite:
		return NewSQLite(cfg.SQLite)
	case TypePostgreSQL:
		return NewPostgreSQL(ctx, cfg.PostgreSQL)
	case TypeMongoDB:
		return NewMongoDB(ctx, cfg.MongoDB)
	}
	return nil, fmt.Errorf("unknown storage type %q (want %s, %s or %s)",
		cfg.Type, TypeSQLite, TypePostgreSQL, TypeMongoDB)
}

// handles is embedded by every backend; each one overrides its own accessor.
type handles struct{}

func (handles) SQLiteDB() *sql.DB              { return nil }
func (handles) PostgreSQLPool() *pgxpool.Pool  { return nil }
func (handles) MongoDatabase() *mongo.Database { return nil }
