package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite binds at most 999 parameters per statement.
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 9
	maxEntriesPerChunk = maxSQLiteParams / columnsPerEntry
)

// sqliteTimeLayout is fixed width so that text comparison orders timestamps.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store for SQLite databases.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates the usage table if needed and starts the retention
// loop when retentionDays is positive.
func NewSQLiteStore(ctx context.Context, db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS usage (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			response_id TEXT NOT NULL DEFAULT '',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_provider ON usage(provider)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create usage schema: %w", err)
		}
	}

	s := &SQLiteStore{
		db:            db,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}
	if retentionDays > 0 {
		go runCleanupLoop(s.stopCleanup, CleanupInterval, s.cleanup)
	}
	return s, nil
}

// WriteBatch implements Store. Entries are chunked to stay under the
// parameter limit.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	for start := 0; start < len(entries); start += maxEntriesPerChunk {
		chunk := entries[start:min(start+maxEntriesPerChunk, len(entries))]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerEntry)
		for i, e := range chunk {
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.RequestID,
				e.Timestamp.UTC().Format(sqliteTimeLayout),
				e.Provider,
				e.Model,
				e.ResponseID,
				e.PromptTokens,
				e.CompletionTokens,
				e.TotalTokens,
			)
		}

		query := `INSERT OR IGNORE INTO usage (id, request_id, timestamp, provider, model,
			response_id, prompt_tokens, completion_tokens, total_tokens) VALUES ` +
			strings.Join(placeholders, ",")
		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert usage chunk %d: %w", start/maxEntriesPerChunk, err)
		}
	}
	return nil
}

// Summarize implements Store
func (s *SQLiteStore) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	query := `SELECT provider, COUNT(*), COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0) FROM usage`
	var args []any
	if !since.IsZero() {
		query += ` WHERE timestamp >= ?`
		args = append(args, since.UTC().Format(sqliteTimeLayout))
	}
	query += ` GROUP BY provider ORDER BY provider`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage summary: %w", err)
	}
	defer rows.Close()

	result := make([]Summary, 0)
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.Provider, &sum.Requests, &sum.PromptTokens, &sum.CompletionTokens, &sum.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage summary: %w", err)
	}
	return result, nil
}

// Close stops the retention loop. Safe to call multiple times.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *SQLiteStore) cleanup() {
	cutoff := retentionCutoff(time.Now(), s.retentionDays).Format(sqliteTimeLayout)

	result, err := s.db.Exec(`DELETE FROM usage WHERE timestamp < ?`, cutoff)
	if err != nil {
		slog.Error("failed to clean up usage entries", "error", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("cleaned up usage entries", "deleted", n)
	}
}
