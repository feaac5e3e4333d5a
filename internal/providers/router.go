package providers

import (
	"context"
	"fmt"

	"aihub/internal/core"
)

// Router dispatches requests to the provider registered for a type tag.
// Model lists are served from the catalog when one is attached.
type Router struct {
	registry *ChatRegistry
	catalog  *Catalog
}

// ProviderSummary describes a registered provider for listings.
type ProviderSummary struct {
	Type              core.ProviderType `json:"type"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	DefaultModel      string            `json:"default_model"`
	SupportsStreaming bool              `json:"supports_streaming"`
}

// NewRouter creates a router over registry. catalog may be nil, in which case
// model lists come straight from the providers.
// Returns an error if the registry is nil.
func NewRouter(registry *ChatRegistry, catalog *Catalog) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	return &Router{
		registry: registry,
		catalog:  catalog,
	}, nil
}

// Provider returns the provider registered for t, or a configuration error.
func (r *Router) Provider(t core.ProviderType) (core.ChatProvider, error) {
	p, ok := r.registry.Get(t)
	if !ok {
		return nil, core.NewConfigurationError("provider not configured: " + string(t))
	}
	return p, nil
}

// Chat routes a non-streaming completion.
func (r *Router) Chat(ctx context.Context, t core.ProviderType, req *core.ChatCompletionRequest) (*core.ChatCompletionResponse, error) {
	p, err := r.Provider(t)
	if err != nil {
		return nil, err
	}
	return p.Chat(ctx, req)
}

// Stream routes a streaming completion. Providers without streaming support
// are rejected before any I/O.
func (r *Router) Stream(ctx context.Context, t core.ProviderType, req *core.ChatCompletionRequest) (*core.ChatStream, error) {
	p, err := r.Provider(t)
	if err != nil {
		return nil, err
	}
	sp, ok := core.AsStreaming(p)
	if !ok {
		return nil, core.NewInvalidRequestError("provider does not support streaming: "+string(t), nil)
	}
	return sp.Stream(ctx, req)
}

// Validate checks key against the provider registered for t.
func (r *Router) Validate(ctx context.Context, t core.ProviderType, key string) (bool, error) {
	p, err := r.Provider(t)
	if err != nil {
		return false, err
	}
	return p.ValidateAPIKey(ctx, key), nil
}

// Models returns the model list for t.
func (r *Router) Models(ctx context.Context, t core.ProviderType) ([]string, error) {
	p, err := r.Provider(t)
	if err != nil {
		return nil, err
	}
	if r.catalog != nil {
		if models, ok := r.catalog.Models(ctx, t); ok {
			return models, nil
		}
	}
	return core.ModelsOf(ctx, p), nil
}

// List summarizes the registered providers in registration order.
func (r *Router) List() []ProviderSummary {
	providers := r.registry.List()
	out := make([]ProviderSummary, 0, len(providers))
	for _, p := range providers {
		summary := ProviderSummary{
			Type:              p.Type(),
			Name:              p.Name(),
			DefaultModel:      p.DefaultModel(),
			SupportsStreaming: p.SupportsStreaming(),
		}
		if info, ok := Describe(p.Type()); ok {
			summary.Description = info.Description
		}
		out = append(out, summary)
	}
	return out
}
