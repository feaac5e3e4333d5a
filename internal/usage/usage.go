// Package usage records token consumption of completed chat requests and
// aggregates it per provider.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aihub/internal/core"
)

// Store persists usage entries. Implementations must be safe for concurrent use.
type Store interface {
	// WriteBatch writes entries. Entries whose ID already exists are skipped.
	WriteBatch(ctx context.Context, entries []*Entry) error

	// Summarize aggregates entries recorded at or after since, one row per
	// provider ordered by provider. A zero since covers all entries.
	Summarize(ctx context.Context, since time.Time) ([]Summary, error)

	// Close stops background work. The underlying connection belongs to the
	// storage layer and stays open.
	Close() error
}

// Entry is one recorded chat completion.
type Entry struct {
	ID        string    `json:"id" bson:"_id"`
	RequestID string    `json:"request_id" bson:"request_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`

	Provider string `json:"provider" bson:"provider"`
	Model    string `json:"model" bson:"model"`
	// ResponseID is the vendor's completion id
	ResponseID string `json:"response_id,omitempty" bson:"response_id,omitempty"`

	PromptTokens     int `json:"prompt_tokens" bson:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" bson:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" bson:"total_tokens"`
}

// NewEntry builds an entry for a completed chat response.
func NewEntry(requestID string, provider core.ProviderType, resp *core.ChatCompletionResponse) *Entry {
	e := &Entry{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Provider:  string(provider),
	}
	if resp != nil {
		e.Model = resp.Model
		e.ResponseID = resp.ID
		e.PromptTokens = resp.Usage.PromptTokens
		e.CompletionTokens = resp.Usage.CompletionTokens
		e.TotalTokens = resp.Usage.TotalTokens
	}
	return e
}

// Summary is the aggregated usage of one provider.
type Summary struct {
	Provider         string `json:"provider" bson:"_id"`
	Requests         int64  `json:"requests" bson:"requests"`
	PromptTokens     int64  `json:"prompt_tokens" bson:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens" bson:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens" bson:"total_tokens"`
}

// Recorder accepts entries without blocking the request path.
type Recorder interface {
	Record(entry *Entry)
	Close() error
}

// Config holds usage tracking configuration
type Config struct {
	// BufferSize is how many entries may wait for a flush
	BufferSize int

	// FlushInterval is how often buffered entries are written
	FlushInterval time.Duration

	// RetentionDays is how long entries are kept (0 = forever)
	RetentionDays int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 90,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	return c
}
