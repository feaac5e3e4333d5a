// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the aihub server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"aihub/config"
	"aihub/internal/core"
	"aihub/internal/httpclient"
	"aihub/internal/images"
	"aihub/internal/observability"
	"aihub/internal/providers"
	"aihub/internal/server"
	"aihub/internal/settings"
	"aihub/internal/storage"
	"aihub/internal/usage"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config    *config.Config
	storage   storage.Storage
	settings  settings.Store
	providers *providers.InitResult
	images    *images.Registry
	metrics   *observability.Metrics
	usage     *usage.Logger
	usageDB   usage.Store
	server    *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration.
	AppConfig *config.Config

	// Factory constructs chat providers. Vendor registrations must be added before New.
	Factory *providers.Factory

	// ImageFactory constructs image providers. Optional.
	ImageFactory *images.Factory
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("factory is required")
	}

	appCfg := cfg.AppConfig
	app := &App{config: appCfg}

	// Transport and hooks must be set before any provider is created
	clients := httpclient.New(httpclient.FromSeconds(appCfg.HTTP.Timeout, appCfg.HTTP.ResponseHeaderTimeout))
	cfg.Factory.SetClients(clients)
	if cfg.ImageFactory != nil {
		cfg.ImageFactory.SetClients(clients)
	}

	if appCfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.metrics = observability.NewMetrics(reg)
		cfg.Factory.SetHooks(app.metrics.Hooks())
		if cfg.ImageFactory != nil {
			cfg.ImageFactory.SetHooks(app.metrics.Hooks())
		}
	}

	overrides, err := app.initSettings(ctx)
	if err != nil {
		return nil, err
	}

	if err := app.initUsage(ctx); err != nil {
		return nil, err
	}

	providerResult, err := providers.Init(ctx, appCfg, providers.InitConfig{
		Factory:   cfg.Factory,
		Overrides: overrides,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize providers: %w", err), app.closeUsage(), app.closeStorage())
	}
	app.providers = providerResult

	if cfg.ImageFactory != nil {
		app.images = images.BuildRegistry(cfg.ImageFactory, images.ResolveConfigs(appCfg.ImageProviders))
	} else {
		app.images = images.NewRegistry()
	}

	app.logStartupInfo()

	handler := server.NewHandler(providerResult.Router, app.images)
	if app.settings != nil {
		handler.WithSettings(app.settings, providerResult)
	}
	if app.usage != nil {
		handler.WithUsage(app.usage, app.usageDB)
	}

	serverCfg := &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
	}
	if app.metrics != nil {
		serverCfg.Metrics = app.metrics
	}
	app.server = server.New(handler, serverCfg)

	return app, nil
}

// initSettings opens the configured storage and returns the enabled stored
// provider settings. Storage type "none" disables stored settings.
func (a *App) initSettings(ctx context.Context) ([]core.ProviderConfig, error) {
	storeCfg := storage.ConfigFrom(a.config.Storage)
	if storeCfg.Type == "" || storeCfg.Type == storage.TypeNone {
		slog.Info("settings storage disabled")
		return nil, nil
	}

	store, err := storage.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.storage = store

	settingsStore, err := settings.New(ctx, store)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize settings store: %w", err), a.closeStorage())
	}
	a.settings = settingsStore

	enabled, err := settingsStore.ListEnabled(ctx)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to load stored provider settings: %w", err), a.closeStorage())
	}
	return settings.ProviderConfigs(enabled), nil
}

// initUsage starts the usage recorder on the shared storage connection.
// Recording needs storage, so it is off when storage is disabled.
func (a *App) initUsage(ctx context.Context) error {
	if !a.config.Usage.Enabled {
		slog.Info("usage tracking disabled")
		return nil
	}
	if a.storage == nil {
		slog.Warn("usage tracking needs storage, skipping")
		return nil
	}

	cfg := usage.ConfigFrom(a.config.Usage)
	store, err := usage.NewStore(ctx, a.storage, cfg.RetentionDays)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to initialize usage store: %w", err), a.closeStorage())
	}
	a.usageDB = store
	a.usage = usage.NewLogger(store, cfg)
	slog.Info("usage tracking enabled", "retention_days", cfg.RetentionDays)
	return nil
}

// Router returns the chat provider router.
func (a *App) Router() *providers.Router {
	if a.providers == nil {
		return nil
	}
	return a.providers.Router
}

// Images returns the image provider registry.
func (a *App) Images() *images.Registry {
	return a.images
}

// Settings returns the settings store, or nil when storage is disabled.
func (a *App) Settings() settings.Store {
	return a.settings
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order:
// HTTP server, provider subsystem (refresh loop and model cache), usage
// recorder, then storage.
//
// Shutdown is idempotent. It attempts every step and returns the joined failures.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	if a.providers != nil {
		if err := a.providers.Close(); err != nil {
			slog.Error("providers close error", "error", err)
			errs = append(errs, fmt.Errorf("providers close: %w", err))
		}
	}

	// Flush queued usage before the connection goes away
	if err := a.closeUsage(); err != nil {
		slog.Error("usage close error", "error", err)
		errs = append(errs, fmt.Errorf("usage close: %w", err))
	}

	if err := a.closeStorage(); err != nil {
		slog.Error("storage close error", "error", err)
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

func (a *App) closeUsage() error {
	if a.usage == nil {
		return nil
	}
	err := a.usage.Close()
	a.usage = nil
	return err
}

func (a *App) closeStorage() error {
	if a.storage == nil {
		return nil
	}
	err := a.storage.Close()
	a.storage = nil
	return err
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: AIHUB_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set AIHUB_MASTER_KEY environment variable to secure this server")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	slog.Info("storage configured", "type", cfg.Storage.Type)
	slog.Info("providers ready",
		"chat", a.providers.Registry.Types(),
		"image", a.images.Types(),
	)
}
