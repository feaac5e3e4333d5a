package providers

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"aihub/config"
	"aihub/internal/cache"
	"aihub/internal/core"
)

// InitResult holds the initialized provider infrastructure and cleanup functions.
type InitResult struct {
	Registry *ChatRegistry
	Catalog  *Catalog
	Router   *Router
	Cache    cache.Cache
	Factory  *Factory

	// stopRefresh is called to stop the background refresh goroutine
	stopRefresh func()
}

// Close releases all resources and stops background goroutines.
// Safe to call multiple times.
func (r *InitResult) Close() error {
	if r.stopRefresh != nil {
		r.stopRefresh()
		r.stopRefresh = nil
	}
	if r.Cache != nil {
		err := r.Cache.Close()
		r.Cache = nil
		return err
	}
	return nil
}

// Apply creates a provider from cfg and registers it in place of any provider
// of the same type. Its catalog entry is dropped, so model lookups reach the
// new provider until the next refresh.
func (r *InitResult) Apply(cfg core.ProviderConfig) error {
	p, err := r.Factory.Create(cfg)
	if err != nil {
		return err
	}
	r.Registry.Register(p)
	r.forget(p.Type())
	slog.Info("provider applied", "type", cfg.Type)
	return nil
}

// Remove unregisters the provider for t. It reports whether one was registered.
func (r *InitResult) Remove(t core.ProviderType) bool {
	r.forget(t)
	return r.Registry.Unregister(t)
}

func (r *InitResult) forget(t core.ProviderType) {
	if r.Catalog != nil {
		r.Catalog.Forget(t)
	}
}

// InitConfig holds options for provider initialization.
type InitConfig struct {
	// RefreshInterval overrides cfg.Cache.RefreshInterval when positive
	RefreshInterval time.Duration

	// Factory is the provider factory with registered vendors.
	// Hooks should be set on the factory before passing it here.
	Factory *Factory

	// Overrides are registered after the configured providers, so an entry
	// replaces the configured provider of the same type. Stored settings use this.
	Overrides []core.ProviderConfig
}

// Init builds the chat provider registry, the model catalog and its cache,
// and the router. Model lists are loaded from the cache first and refreshed
// in the background.
//
// The caller must call InitResult.Close() during shutdown.
func Init(ctx context.Context, cfg *config.Config, initCfg InitConfig) (*InitResult, error) {
	if initCfg.Factory == nil {
		return nil, fmt.Errorf("InitConfig.Factory is required")
	}

	modelCache, err := initCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	factory := initCfg.Factory
	registry := NewChatRegistry()

	count := registerProviders(factory, registry, ResolveConfigs(cfg.Providers), initCfg.Overrides)
	if count == 0 {
		slog.Warn("no chat providers configured")
	}

	catalog := NewCatalog(registry, modelCache)
	catalog.InitializeAsync(ctx)

	interval := initCfg.RefreshInterval
	if interval <= 0 {
		interval = time.Duration(cfg.Cache.RefreshInterval) * time.Second
	}
	if interval <= 0 {
		interval = time.Hour
	}
	stopRefresh := catalog.StartBackgroundRefresh(interval)

	router, err := NewRouter(registry, catalog)
	if err != nil {
		stopRefresh()
		_ = modelCache.Close()
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	slog.Info("chat providers initialized",
		"providers", registry.Len(),
		"refresh_interval", interval,
	)

	return &InitResult{
		Registry:    registry,
		Catalog:     catalog,
		Router:      router,
		Cache:       modelCache,
		Factory:     factory,
		stopRefresh: stopRefresh,
	}, nil
}

// initCache opens the snapshot cache selected by cfg.
func initCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL: cfg.Redis.URL,
			Key: cfg.Redis.Key,
			TTL: time.Duration(cfg.Redis.TTL) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using redis cache", "key", cfg.Redis.Key)
		return redisCache, nil

	default: // "local" or any other value defaults to local
		dir := cfg.Dir
		if dir == "" {
			dir = ".cache"
		}
		cacheFile := filepath.Join(dir, "models.json")
		slog.Info("using local file cache", "path", cacheFile)
		return cache.NewLocalCache(cacheFile), nil
	}
}

// registerProviders creates and registers the configured providers in
// name order, then the overrides. Returns the number of registered providers.
func registerProviders(factory *Factory, registry *ChatRegistry, configured map[string]core.ProviderConfig, overrides []core.ProviderConfig) int {
	for _, name := range slices.Sorted(maps.Keys(configured)) {
		pCfg := configured[name]
		if register(factory, registry, pCfg) {
			slog.Info("provider initialized", "name", name, "type", pCfg.Type)
		}
	}
	for _, pCfg := range overrides {
		if register(factory, registry, pCfg) {
			slog.Info("provider initialized from stored settings", "type", pCfg.Type)
		}
	}
	return registry.Len()
}

func register(factory *Factory, registry *ChatRegistry, cfg core.ProviderConfig) bool {
	p, err := factory.Create(cfg)
	if err != nil {
		slog.Error("failed to initialize provider", "type", cfg.Type, "error", err)
		return false
	}
	registry.Register(p)
	return true
}
