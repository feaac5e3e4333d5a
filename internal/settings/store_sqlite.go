package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aihub/internal/core"
)

// migration is a named schema change applied at most once.
type migration struct {
	name string
	sql  string
}

var sqliteMigrations = []migration{
	{
		name: "001_initial_schema",
		sql: `
			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
			);

			CREATE TABLE IF NOT EXISTS providers (
				type TEXT PRIMARY KEY,
				api_key TEXT NOT NULL,
				base_url TEXT,
				model TEXT NOT NULL,
				max_tokens INTEGER,
				temperature REAL,
				top_p REAL,
				enabled INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
				updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
			);
		`,
	},
	{
		name: "002_providers_enabled_index",
		sql:  `CREATE INDEX IF NOT EXISTS idx_providers_enabled ON providers(enabled);`,
	},
}

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite settings store, applying pending migrations.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := migrateSQLite(ctx, db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// migrateSQLite records applied migrations in the _migrations ledger.
func migrateSQLite(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create _migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, `SELECT name FROM _migrations`)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan migration: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range sqliteMigrations {
		if applied[m.name] {
			continue
		}
		if err := applySQLiteMigration(ctx, db, m); err != nil {
			return err
		}
		slog.Info("applied settings migration", "name", m.name)
	}
	return nil
}

func applySQLiteMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO _migrations (name, applied_at) VALUES (?, ?)`,
		m.name, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

const sqliteProviderColumns = `type, api_key, base_url, model, max_tokens, temperature, top_p, enabled, updated_at`

// Get implements Store
func (s *SQLiteStore) Get(ctx context.Context, t core.ProviderType) (*Setting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteProviderColumns+` FROM providers WHERE type = ?`, string(t))

	setting, err := scanSQLiteSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider setting: %w", err)
	}
	return setting, nil
}

// List implements Store
func (s *SQLiteStore) List(ctx context.Context) ([]Setting, error) {
	return s.query(ctx, `SELECT `+sqliteProviderColumns+` FROM providers ORDER BY type`)
}

// ListEnabled implements Store
func (s *SQLiteStore) ListEnabled(ctx context.Context) ([]Setting, error) {
	return s.query(ctx, `SELECT `+sqliteProviderColumns+` FROM providers WHERE enabled = 1 ORDER BY type`)
}

func (s *SQLiteStore) query(ctx context.Context, query string) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider settings: %w", err)
	}
	defer rows.Close()

	result := make([]Setting, 0)
	for rows.Next() {
		setting, err := scanSQLiteSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider setting: %w", err)
		}
		result = append(result, *setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list provider settings: %w", err)
	}
	return result, nil
}

// Save implements Store
func (s *SQLiteStore) Save(ctx context.Context, setting Setting) error {
	if err := setting.Validate(); err != nil {
		return err
	}

	enabled := 0
	if setting.Enabled {
		enabled = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (type, api_key, base_url, model, max_tokens, temperature, top_p, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(type) DO UPDATE SET
			api_key = excluded.api_key,
			base_url = excluded.base_url,
			model = excluded.model,
			max_tokens = excluded.max_tokens,
			temperature = excluded.temperature,
			top_p = excluded.top_p,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`,
		string(setting.Type),
		setting.APIKey,
		nullString(setting.BaseURL),
		setting.Model,
		setting.MaxTokens,
		setting.Temperature,
		setting.TopP,
		enabled,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save provider setting: %w", err)
	}
	return nil
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, t core.ProviderType) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM providers WHERE type = ?`, string(t)); err != nil {
		return fmt.Errorf("failed to delete provider setting: %w", err)
	}
	return nil
}

// GetValue implements Store
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue implements Store
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSetting(row rowScanner) (*Setting, error) {
	var (
		s           Setting
		providerTyp string
		baseURL     sql.NullString
		maxTokens   sql.NullInt64
		temperature sql.NullFloat64
		topP        sql.NullFloat64
		enabled     int
		updatedAt   int64
	)
	if err := row.Scan(&providerTyp, &s.APIKey, &baseURL, &s.Model, &maxTokens, &temperature, &topP, &enabled, &updatedAt); err != nil {
		return nil, err
	}

	s.Type = core.ProviderType(providerTyp)
	s.BaseURL = baseURL.String
	if maxTokens.Valid {
		v := int(maxTokens.Int64)
		s.MaxTokens = &v
	}
	if temperature.Valid {
		v := temperature.Float64
		s.Temperature = &v
	}
	if topP.Valid {
		v := topP.Float64
		s.TopP = &v
	}
	s.Enabled = enabled != 0
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
