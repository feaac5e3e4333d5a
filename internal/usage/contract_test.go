package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behavior every Store backend shares.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptySummary", func(t *testing.T) {
		got, err := store.Summarize(ctx, time.Time{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	old := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Millisecond)
	recent := time.Now().UTC().Add(-time.Minute).Truncate(time.Millisecond)

	entries := []*Entry{
		{ID: "11111111-1111-1111-1111-111111111111", RequestID: "r1", Timestamp: old, Provider: "openai", Model: "gpt-4o", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		{ID: "22222222-2222-2222-2222-222222222222", RequestID: "r2", Timestamp: recent, Provider: "openai", Model: "gpt-4o", PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		{ID: "33333333-3333-3333-3333-333333333333", RequestID: "r3", Timestamp: recent, Provider: "glm", Model: "glm-4", ResponseID: "x", PromptTokens: 7, CompletionTokens: 0, TotalTokens: 7},
	}

	t.Run("WriteAndSummarize", func(t *testing.T) {
		require.NoError(t, store.WriteBatch(ctx, entries))

		got, err := store.Summarize(ctx, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, []Summary{
			{Provider: "glm", Requests: 1, PromptTokens: 7, TotalTokens: 7},
			{Provider: "openai", Requests: 2, PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18},
		}, got)
	})

	t.Run("DuplicateIDsSkipped", func(t *testing.T) {
		require.NoError(t, store.WriteBatch(ctx, entries[:1]))

		got, err := store.Summarize(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[1].Requests)
	})

	t.Run("SummarizeSince", func(t *testing.T) {
		got, err := store.Summarize(ctx, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []Summary{
			{Provider: "glm", Requests: 1, PromptTokens: 7, TotalTokens: 7},
			{Provider: "openai", Requests: 1, PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		}, got)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		assert.NoError(t, store.WriteBatch(ctx, nil))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
