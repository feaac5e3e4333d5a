// Package providers builds chat providers from configuration and holds the
// pieces shared by every vendor implementation.
package providers

import (
	"net/http"
	"slices"
	"sync"

	"aihub/internal/core"
	"aihub/internal/httpclient"
	"aihub/internal/llmclient"
)

// Options carries process-wide dependencies into provider constructors.
type Options struct {
	// Hooks observe every outbound vendor request
	Hooks llmclient.Hooks
	// HTTPClient replaces the shared transport when set (tests use this)
	HTTPClient *http.Client
	// Clients replaces the shared transport with configured clients when HTTPClient is nil
	Clients *httpclient.Clients
}

// NewClient creates the llmclient a vendor implementation talks through
func (o Options) NewClient(providerName, baseURL string, headerSetter llmclient.HeaderSetter) *llmclient.Client {
	cfg := llmclient.DefaultConfig(providerName, baseURL)
	cfg.Hooks = o.Hooks

	var client *llmclient.Client
	switch {
	case o.HTTPClient != nil:
		client = llmclient.NewWithHTTPClient(o.HTTPClient, cfg, headerSetter)
	case o.Clients != nil:
		client = llmclient.NewWithClients(*o.Clients, cfg, headerSetter)
	default:
		client = llmclient.New(cfg, headerSetter)
	}
	client.SetBaseURL(baseURL)
	return client
}

// Constructor creates a provider instance. It must not perform I/O.
type Constructor func(cfg core.ProviderConfig, opts Options) core.ChatProvider

// Registration is exported by every vendor package for the factory.
type Registration struct {
	Type core.ProviderType
	New  Constructor
}

// Factory maps type tags to constructors.
type Factory struct {
	mu       sync.RWMutex
	builders map[core.ProviderType]Constructor
	opts     Options
}

// NewFactory creates an empty factory
func NewFactory() *Factory {
	return &Factory{builders: make(map[core.ProviderType]Constructor)}
}

// SetHooks sets the observability hooks passed to every created provider
func (f *Factory) SetHooks(hooks llmclient.Hooks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Hooks = hooks
}

// SetHTTPClient overrides the HTTP client passed to every created provider
func (f *Factory) SetHTTPClient(client *http.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.HTTPClient = client
}

// SetClients sets the transport clients passed to every created provider
func (f *Factory) SetClients(clients httpclient.Clients) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Clients = &clients
}

// Add registers a vendor constructor. A later Add for the same type replaces the earlier one.
func (f *Factory) Add(reg Registration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[reg.Type] = reg.New
}

// Create instantiates a provider for cfg.Type. Unknown tags fail with a
// configuration error and construct nothing. The provider keeps its own copy of cfg.
func (f *Factory) Create(cfg core.ProviderConfig) (core.ChatProvider, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	opts := f.opts
	f.mu.RUnlock()

	if !ok {
		return nil, core.NewUnknownProviderError(string(cfg.Type))
	}
	return builder(cfg.Clone(), opts), nil
}

// ListRegistered returns the registered type tags in sorted order
func (f *Factory) ListRegistered() []core.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]core.ProviderType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
