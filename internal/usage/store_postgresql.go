package usage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore implements Store for PostgreSQL databases.
type PostgreSQLStore struct {
	pool          *pgxpool.Pool
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewPostgreSQLStore creates the usage table if needed and starts the
// retention loop when retentionDays is positive.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS usage (
			id UUID PRIMARY KEY,
			request_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
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
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create usage schema: %w", err)
		}
	}

	s := &PostgreSQLStore{
		pool:          pool,
		retentionDays: retentionDays,
		stopCleanup:   make(chan struct{}),
	}
	if retentionDays > 0 {
		go runCleanupLoop(s.stopCleanup, CleanupInterval, s.cleanup)
	}
	return s, nil
}

// WriteBatch implements Store. The batch is sent in one round trip inside a
// transaction.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO usage (id, request_id, timestamp, provider, model,
				response_id, prompt_tokens, completion_tokens, total_tokens)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, e.RequestID, e.Timestamp, e.Provider, e.Model,
			e.ResponseID, e.PromptTokens, e.CompletionTokens, e.TotalTokens)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to insert %d usage entries: %w", len(entries), err)
	}
	return nil
}

// Summarize implements Store
func (s *PostgreSQLStore) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	query := `SELECT provider, COUNT(*), COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0) FROM usage`
	var args []any
	if !since.IsZero() {
		query += ` WHERE timestamp >= $1`
		args = append(args, since.UTC())
	}
	query += ` GROUP BY provider ORDER BY provider`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage summary: %w", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var sum Summary
		err := row.Scan(&sum.Provider, &sum.Requests, &sum.PromptTokens, &sum.CompletionTokens, &sum.TotalTokens)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan usage summary: %w", err)
	}
	if result == nil {
		result = []Summary{}
	}
	return result, nil
}

// Close stops the retention loop. Safe to call multiple times.
func (s *PostgreSQLStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *PostgreSQLStore) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM usage WHERE timestamp < $1`, retentionCutoff(time.Now(), s.retentionDays))
	if err != nil {
		slog.Error("failed to clean up usage entries", "error", err)
		return
	}
	if tag.RowsAffected() > 0 {
		slog.Info("cleaned up usage entries", "deleted", tag.RowsAffected())
	}
}
