// Package settings persists provider configurations and application
// key/value settings in the configured storage backend.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aihub/internal/core"
	"aihub/internal/storage"
)

// ErrNotFound is returned when no row exists for the requested key.
var ErrNotFound = errors.New("setting not found")

// Setting is a stored chat provider configuration. There is at most one per
// provider type.
type Setting struct {
	Type        core.ProviderType `json:"type" bson:"_id"`
	APIKey      string            `json:"api_key" bson:"api_key"`
	BaseURL     string            `json:"base_url,omitempty" bson:"base_url,omitempty"`
	Model       string            `json:"model" bson:"model"`
	MaxTokens   *int              `json:"max_tokens,omitempty" bson:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty" bson:"temperature,omitempty"`
	TopP        *float64          `json:"top_p,omitempty" bson:"top_p,omitempty"`
	Enabled     bool              `json:"enabled" bson:"enabled"`
	UpdatedAt   time.Time         `json:"updated_at" bson:"updated_at"`
}

// ProviderConfig converts the setting into a provider configuration.
func (s Setting) ProviderConfig() core.ProviderConfig {
	return core.ProviderConfig{
		Type:        s.Type,
		APIKey:      s.APIKey,
		BaseURL:     s.BaseURL,
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		TopP:        s.TopP,
	}.Clone()
}

// Validate rejects settings without a type.
func (s Setting) Validate() error {
	if s.Type == "" {
		return core.NewInvalidRequestError("provider type is required", nil)
	}
	return nil
}

// Store is the settings repository. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the setting for t, or ErrNotFound.
	Get(ctx context.Context, t core.ProviderType) (*Setting, error)

	// List returns every stored setting ordered by type.
	List(ctx context.Context) ([]Setting, error)

	// ListEnabled returns the enabled settings ordered by type.
	ListEnabled(ctx context.Context) ([]Setting, error)

	// Save inserts or replaces the setting for s.Type.
	Save(ctx context.Context, s Setting) error

	// Delete removes the setting for t. Deleting a missing setting is not an error.
	Delete(ctx context.Context, t core.ProviderType) error

	// GetValue returns an application setting. ok is false when the key is unset.
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)

	// SetValue inserts or replaces an application setting.
	SetValue(ctx context.Context, key, value string) error
}

// New creates the Store for the given storage backend, creating its schema.
func New(ctx context.Context, store storage.Storage) (Store, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(ctx, store.SQLiteDB())

	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool())

	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase())

	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

// ProviderConfigs converts settings into provider configurations.
func ProviderConfigs(list []Setting) []core.ProviderConfig {
	out := make([]core.ProviderConfig, 0, len(list))
	for _, s := range list {
		out = append(out, s.ProviderConfig())
	}
	return out
}
