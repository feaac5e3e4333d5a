// Package cache persists the model catalog snapshot between runs.
// Supports a local file backend and Redis for multi-instance deployments.
// Only model lists are stored here, never chat or image responses.
package cache

import (
	"context"
	"slices"
	"time"
)

// SnapshotVersion is the current snapshot layout version. Snapshots with a
// different version are ignored on load.
const SnapshotVersion = 1

// ModelSnapshot is the cached model catalog.
type ModelSnapshot struct {
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
	Fingerprint string    `json:"fingerprint"`
	// Providers maps a provider type tag to its model list
	Providers map[string][]string `json:"providers"`
}

// ModelCount returns the number of models across every provider.
func (s *ModelSnapshot) ModelCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, models := range s.Providers {
		n += len(models)
	}
	return n
}

// ProviderTypes returns the provider tags in the snapshot, sorted.
func (s *ModelSnapshot) ProviderTypes() []string {
	if s == nil {
		return nil
	}
	types := make([]string, 0, len(s.Providers))
	for t := range s.Providers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Cache defines the interface for snapshot storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the snapshot.
	// Returns nil, nil if no cache exists yet.
	Get(ctx context.Context) (*ModelSnapshot, error)

	// Set stores the snapshot.
	Set(ctx context.Context, snapshot *ModelSnapshot) error

	// Close releases any resources held by the cache.
	Close() error
}
