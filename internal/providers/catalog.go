package providers

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"aihub/internal/cache"
	"aihub/internal/core"
	"aihub/internal/registry"
)

// ChatRegistry holds the active chat provider per type tag.
type ChatRegistry = registry.Registry[core.ProviderType, core.ChatProvider]

// NewChatRegistry creates an empty chat provider registry.
func NewChatRegistry() *ChatRegistry {
	return registry.New[core.ProviderType, core.ChatProvider]()
}

const (
	initTimeout    = 60 * time.Second
	refreshTimeout = 30 * time.Second
)

// Catalog tracks the model list of every registered provider. Discovering
// providers are queried live; the rest report their static list. The catalog
// is persisted through a cache.Cache so a restart can serve model lists
// before the first refresh completes.
type Catalog struct {
	providers *ChatRegistry
	cache     cache.Cache

	mu               sync.RWMutex
	models           map[core.ProviderType][]string
	fingerprint      string
	savedFingerprint string
	updatedAt        time.Time

	// true once a refresh has queried the providers
	initialized atomic.Bool
}

// NewCatalog creates a catalog over providers. c may be nil to disable persistence.
func NewCatalog(providers *ChatRegistry, c cache.Cache) *Catalog {
	return &Catalog{
		providers: providers,
		cache:     c,
		models:    make(map[core.ProviderType][]string),
	}
}

// Refresh queries every registered provider and swaps in the new model lists.
// An empty list is kept. It fails only when providers are registered but none
// reported a list at all.
func (c *Catalog) Refresh(ctx context.Context) error {
	providers := c.providers.List()

	newModels := make(map[core.ProviderType][]string, len(providers))
	var totalModels int
	for _, p := range providers {
		models := core.ModelsOf(ctx, p)
		if models == nil {
			slog.Debug("provider reported no models", "provider", p.Type())
			continue
		}
		newModels[p.Type()] = slices.Clone(models)
		totalModels += len(models)
	}

	if len(providers) > 0 && len(newModels) == 0 {
		return fmt.Errorf("no models available: no provider reported a model list")
	}

	c.mu.Lock()
	// A provider replaced while it was being queried is asked again on lookup
	for _, p := range providers {
		if cur, ok := c.providers.Get(p.Type()); !ok || cur != p {
			delete(newModels, p.Type())
		}
	}
	fingerprint := Fingerprint(newModels)
	changed := fingerprint != c.fingerprint
	c.models = newModels
	c.fingerprint = fingerprint
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.initialized.Store(true)

	slog.Info("model catalog refreshed",
		"total_models", totalModels,
		"providers", len(providers),
		"changed", changed,
	)
	return nil
}

// LoadFromCache restores the catalog from the cache. Entries for provider
// types that are not registered are dropped. Returns the number of models loaded.
func (c *Catalog) LoadFromCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}

	snapshot, err := c.cache.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load model catalog: %w", err)
	}
	if snapshot == nil {
		return 0, nil
	}
	if snapshot.Version != cache.SnapshotVersion {
		slog.Info("ignoring model catalog with unknown version", "version", snapshot.Version)
		return 0, nil
	}

	newModels := make(map[core.ProviderType][]string, len(snapshot.Providers))
	var loaded int
	for t, models := range snapshot.Providers {
		pt := core.ProviderType(t)
		if !c.providers.Has(pt) {
			continue
		}
		newModels[pt] = slices.Clone(models)
		loaded += len(models)
	}

	fingerprint := Fingerprint(newModels)

	c.mu.Lock()
	c.models = newModels
	c.fingerprint = fingerprint
	c.savedFingerprint = snapshot.Fingerprint
	c.updatedAt = snapshot.UpdatedAt
	c.mu.Unlock()

	slog.Info("loaded model catalog from cache",
		"models", loaded,
		"cache_updated_at", snapshot.UpdatedAt,
	)
	return loaded, nil
}

// SaveToCache writes the catalog to the cache. The write is skipped when the
// cached fingerprint already matches.
func (c *Catalog) SaveToCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}

	c.mu.RLock()
	snapshot := &cache.ModelSnapshot{
		Version:     cache.SnapshotVersion,
		UpdatedAt:   c.updatedAt,
		Fingerprint: c.fingerprint,
		Providers:   make(map[string][]string, len(c.models)),
	}
	for t, models := range c.models {
		snapshot.Providers[string(t)] = slices.Clone(models)
	}
	unchanged := c.fingerprint == c.savedFingerprint
	c.mu.RUnlock()

	if unchanged {
		slog.Debug("model catalog unchanged, skipping cache write", "fingerprint", snapshot.Fingerprint)
		return nil
	}

	if err := c.cache.Set(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save model catalog: %w", err)
	}

	c.mu.Lock()
	c.savedFingerprint = snapshot.Fingerprint
	c.mu.Unlock()

	slog.Debug("saved model catalog", "models", snapshot.ModelCount(), "fingerprint", snapshot.Fingerprint)
	return nil
}

// InitializeAsync loads the cached catalog, then refreshes from the providers
// in a background goroutine and saves the result for the next startup.
func (c *Catalog) InitializeAsync(ctx context.Context) {
	cached, err := c.LoadFromCache(ctx)
	if err != nil {
		slog.Warn("failed to load model catalog from cache", "error", err)
	} else if cached > 0 {
		slog.Info("serving cached model lists while refreshing", "cached_models", cached)
	}

	go func() {
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
		defer cancel()

		if err := c.Refresh(initCtx); err != nil {
			slog.Warn("background model catalog initialization failed", "error", err)
			return
		}
		if err := c.SaveToCache(initCtx); err != nil {
			slog.Warn("failed to save model catalog", "error", err)
		}
	}()
}

// StartBackgroundRefresh refreshes the catalog every interval.
// Returns a cancel function to stop the refresh loop.
func (c *Catalog) StartBackgroundRefresh(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshCtx, refreshCancel := context.WithTimeout(ctx, refreshTimeout)
				if err := c.Refresh(refreshCtx); err != nil {
					slog.Warn("background model catalog refresh failed", "error", err)
				} else if err := c.SaveToCache(refreshCtx); err != nil {
					slog.Warn("failed to save model catalog after refresh", "error", err)
				}
				refreshCancel()
			}
		}
	}()

	return cancel
}

// Models returns the model list for t. A registered provider the catalog has
// no entry for is asked directly, so a discovering provider queries its backend.
func (c *Catalog) Models(ctx context.Context, t core.ProviderType) ([]string, bool) {
	c.mu.RLock()
	models, ok := c.models[t]
	c.mu.RUnlock()
	if ok {
		return slices.Clone(models), true
	}

	p, ok := c.providers.Get(t)
	if !ok {
		return nil, false
	}
	return core.ModelsOf(ctx, p), true
}

// Forget drops the entry for t. The next lookup asks the provider again.
func (c *Catalog) Forget(t core.ProviderType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.models[t]; !ok {
		return
	}
	delete(c.models, t)
	c.fingerprint = Fingerprint(c.models)
}

// All returns a copy of every cached model list keyed by provider type.
func (c *Catalog) All() map[core.ProviderType][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[core.ProviderType][]string, len(c.models))
	for t, models := range c.models {
		out[t] = slices.Clone(models)
	}
	return out
}

// ModelCount returns the number of models across every provider.
func (c *Catalog) ModelCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, models := range c.models {
		n += len(models)
	}
	return n
}

// Fingerprint returns the fingerprint of the current model lists.
func (c *Catalog) Fingerprint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fingerprint
}

// IsInitialized reports whether a refresh has completed. A catalog served
// only from the cache is not initialized.
func (c *Catalog) IsInitialized() bool {
	return c.initialized.Load()
}

// Fingerprint hashes model lists independent of map order. Model order within
// a provider is significant.
func Fingerprint(models map[core.ProviderType][]string) string {
	h := xxhash.New()
	for _, t := range slices.Sorted(maps.Keys(models)) {
		_, _ = h.WriteString(string(t))
		_, _ = h.Write([]byte{0})
		for _, m := range models[t] {
			_, _ = h.WriteString(m)
			_, _ = h.Write([]byte{'\n'})
		}
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
