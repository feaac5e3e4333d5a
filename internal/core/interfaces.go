// Package core defines the provider contract and the normalized request and response types.
package core

import "context"

// ChatProvider is implemented by every chat backend.
type ChatProvider interface {
	Type() ProviderType
	Name() string
	DefaultModel() string

	// SupportsStreaming reports whether Stream may be called. Use AsStreaming to
	// obtain the streaming operation.
	SupportsStreaming() bool

	// Chat executes a non-streaming completion.
	Chat(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ValidateAPIKey checks key against the backend. It never returns an error;
	// any failure is reported as false.
	ValidateAPIKey(ctx context.Context, key string) bool

	// AvailableModels returns the static model list.
	AvailableModels() []string
}

// StreamingProvider is a ChatProvider that can stream deltas.
type StreamingProvider interface {
	ChatProvider

	// Stream starts a streaming completion. The returned stream owns the
	// response body; it is released when iteration ends or is abandoned.
	Stream(ctx context.Context, req *ChatCompletionRequest) (*ChatStream, error)
}

// ModelDiscoverer is implemented by providers that resolve their model list
// from the backend. DiscoverModels falls back to a static list on failure.
type ModelDiscoverer interface {
	DiscoverModels(ctx context.Context) []string
}

// ImageProvider is implemented by every image generation backend.
type ImageProvider interface {
	Type() ImageProviderType
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, req *ImageGenerationRequest) (*ImageGenerationResponse, error)
	ValidateAPIKey(ctx context.Context, key string) bool
	AvailableModels() []string
}

// AsStreaming returns p as a StreamingProvider when it advertises streaming support.
func AsStreaming(p ChatProvider) (StreamingProvider, bool) {
	if p == nil || !p.SupportsStreaming() {
		return nil, false
	}
	sp, ok := p.(StreamingProvider)
	return sp, ok
}

// ModelsOf returns the provider's model list, querying the backend when the
// provider supports discovery.
func ModelsOf(ctx context.Context, p ChatProvider) []string {
	if d, ok := p.(ModelDiscoverer); ok {
		return d.DiscoverModels(ctx)
	}
	return p.AvailableModels()
}
