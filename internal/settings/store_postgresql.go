package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aihub/internal/core"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates a PostgreSQL settings store.
// It creates the providers and settings tables if they don't exist.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS providers (
			type TEXT PRIMARY KEY,
			api_key TEXT NOT NULL,
			base_url TEXT,
			model TEXT NOT NULL,
			max_tokens INTEGER,
			temperature DOUBLE PRECISION,
			top_p DOUBLE PRECISION,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_providers_enabled ON providers(enabled)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create settings schema: %w", err)
		}
	}

	return &PostgreSQLStore{pool: pool}, nil
}

const pgProviderColumns = `type, api_key, COALESCE(base_url, ''), model, max_tokens, temperature, top_p, enabled, updated_at`

// Get implements Store
func (s *PostgreSQLStore) Get(ctx context.Context, t core.ProviderType) (*Setting, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgProviderColumns+` FROM providers WHERE type = $1`, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to get provider setting: %w", err)
	}
	setting, err := pgx.CollectExactlyOneRow(rows, scanPGSetting)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider setting: %w", err)
	}
	return &setting, nil
}

// List implements Store
func (s *PostgreSQLStore) List(ctx context.Context) ([]Setting, error) {
	return s.query(ctx, `SELECT `+pgProviderColumns+` FROM providers ORDER BY type`)
}

// ListEnabled implements Store
func (s *PostgreSQLStore) ListEnabled(ctx context.Context) ([]Setting, error) {
	return s.query(ctx, `SELECT `+pgProviderColumns+` FROM providers WHERE enabled ORDER BY type`)
}

func (s *PostgreSQLStore) query(ctx context.Context, query string) ([]Setting, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider settings: %w", err)
	}
	result, err := pgx.CollectRows(rows, scanPGSetting)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider settings: %w", err)
	}
	if result == nil {
		result = []Setting{}
	}
	return result, nil
}

// Save implements Store
func (s *PostgreSQLStore) Save(ctx context.Context, setting Setting) error {
	if err := setting.Validate(); err != nil {
		return err
	}

	var baseURL *string
	if setting.BaseURL != "" {
		baseURL = &setting.BaseURL
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO providers (type, api_key, base_url, model, max_tokens, temperature, top_p, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (type) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			base_url = EXCLUDED.base_url,
			model = EXCLUDED.model,
			max_tokens = EXCLUDED.max_tokens,
			temperature = EXCLUDED.temperature,
			top_p = EXCLUDED.top_p,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`,
		string(setting.Type),
		setting.APIKey,
		baseURL,
		setting.Model,
		setting.MaxTokens,
		setting.Temperature,
		setting.TopP,
		setting.Enabled,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save provider setting: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *PostgreSQLStore) Delete(ctx context.Context, t core.ProviderType) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM providers WHERE type = $1`, string(t)); err != nil {
		return fmt.Errorf("failed to delete provider setting: %w", err)
	}
	return nil
}

// GetValue implements Store
func (s *PostgreSQLStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue implements Store
func (s *PostgreSQLStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

func scanPGSetting(row pgx.CollectableRow) (Setting, error) {
	var (
		s           Setting
		providerTyp string
		maxTokens   *int32
	)
	err := row.Scan(&providerTyp, &s.APIKey, &s.BaseURL, &s.Model, &maxTokens, &s.Temperature, &s.TopP, &s.Enabled, &s.UpdatedAt)
	if err != nil {
		return Setting{}, err
	}
	s.Type = core.ProviderType(providerTyp)
	if maxTokens != nil {
		v := int(*maxTokens)
		s.MaxTokens = &v
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
