// Package images builds image generation providers from configuration.
package images

import (
	"slices"
	"sync"

	"aihub/internal/core"
	"aihub/internal/httpclient"
	"aihub/internal/llmclient"
	"aihub/internal/providers"
	"aihub/internal/registry"
)

// Registry holds the active image provider per type tag.
type Registry = registry.Registry[core.ImageProviderType, core.ImageProvider]

// NewRegistry creates an empty image provider registry.
func NewRegistry() *Registry {
	return registry.New[core.ImageProviderType, core.ImageProvider]()
}

// Constructor creates an image provider instance. It must not perform I/O.
type Constructor func(cfg core.ImageProviderOptions, opts providers.Options) core.ImageProvider

// Registration is exported by every image vendor package for the factory.
type Registration struct {
	Type core.ImageProviderType
	New  Constructor
}

// Factory maps image type tags to constructors.
type Factory struct {
	mu       sync.RWMutex
	builders map[core.ImageProviderType]Constructor
	opts     providers.Options
}

// NewFactory creates an empty factory. opts is passed to every constructor.
func NewFactory(opts providers.Options) *Factory {
	return &Factory{
		builders: make(map[core.ImageProviderType]Constructor),
		opts:     opts,
	}
}

// SetHooks sets the observability hooks passed to every created provider
func (f *Factory) SetHooks(hooks llmclient.Hooks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Hooks = hooks
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
// configuration error and construct nothing.
func (f *Factory) Create(cfg core.ImageProviderOptions) (core.ImageProvider, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	opts := f.opts
	f.mu.RUnlock()

	if !ok {
		return nil, core.NewUnknownProviderError(string(cfg.Type))
	}
	return builder(cfg, opts), nil
}

// ListRegistered returns the registered type tags in sorted order
func (f *Factory) ListRegistered() []core.ImageProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]core.ImageProviderType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
