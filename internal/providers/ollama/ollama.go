// Package ollama provides the chat provider for a local Ollama daemon, using
// its native /api/chat endpoint with newline-delimited JSON streaming.
package ollama

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"aihub/internal/core"
	"aihub/internal/llmclient"
	"aihub/internal/providers"
	"aihub/internal/streaming"
)

// Registration provides factory registration for the Ollama provider.
var Registration = providers.Registration{
	Type: core.ProviderOllama,
	New:  New,
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama2"

	// probeTimeout bounds liveness checks against the daemon
	probeTimeout = 5 * time.Second
)

// fallbackModels is returned when the daemon cannot be queried
var fallbackModels = []string{defaultModel, "mistral", "codellama", "vicuna"}

// Provider implements core.StreamingProvider and core.ModelDiscoverer for Ollama
type Provider struct {
	cfg        core.ProviderConfig
	model      string
	client     *llmclient.Client
	normalizer streaming.Normalizer
}

// New creates a new Ollama provider. Ollama needs no API key and none is sent.
func New(cfg core.ProviderConfig, opts providers.Options) core.ChatProvider {
	baseURL := defaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	return &Provider{
		cfg:    cfg,
		model:  model,
		client: opts.NewClient(string(core.ProviderOllama), baseURL, nil),
		normalizer: streaming.Normalizer{
			Framing:  streaming.OllamaNDJSON(),
			Provider: string(core.ProviderOllama),
		},
	}
}

// Type implements core.ChatProvider
func (p *Provider) Type() core.ProviderType { return core.ProviderOllama }

// Name implements core.ChatProvider
func (p *Provider) Name() string { return "Ollama (Local)" }

// DefaultModel implements core.ChatProvider
func (p *Provider) DefaultModel() string { return defaultModel }

// SupportsStreaming implements core.ChatProvider
func (p *Provider) SupportsStreaming() bool { return true }

// AvailableModels returns the static list used when discovery fails
func (p *Provider) AvailableModels() []string {
	return append([]string(nil), fallbackModels...)
}

// chatRequest is the native /api/chat body
type chatRequest struct {
	Model    string                  `json:"model"`
	Messages []providers.ChatMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
	Options  *chatOptions            `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

func (p *Provider) buildRequest(req *core.ChatCompletionRequest, stream bool) chatRequest {
	s := providers.ResolveSampling(req, p.cfg)
	body := chatRequest{
		Model:    providers.ResolveModel(req, p.cfg, p.model),
		Messages: providers.Messages(req.Messages),
		Stream:   stream,
	}
	if s.Temperature != nil || s.TopP != nil || s.MaxTokens != nil {
		body.Options = &chatOptions{
			Temperature: s.Temperature,
			TopP:        s.TopP,
			NumPredict:  s.MaxTokens,
		}
	}
	return body
}

// Chat sends a non-streaming chat request
func (p *Provider) Chat(ctx context.Context, req *core.ChatCompletionRequest) (*core.ChatCompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := p.buildRequest(req, false)
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/api/chat",
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	fields := gjson.GetManyBytes(resp.Body, "model", "message.content", "done", "prompt_eval_count", "eval_count")
	model := fields[0].String()
	if model == "" {
		model = body.Model
	}
	finish := core.FinishLength
	if fields[2].Bool() {
		finish = core.FinishStop
	}

	return &core.ChatCompletionResponse{
		ID:    "ollama-" + strconv.FormatInt(core.NowMillis(), 10),
		Model: model,
		Choices: []core.Choice{{
			Message: core.ChatMessage{
				ID:        core.NewMessageID(),
				Role:      core.RoleAssistant,
				Content:   fields[1].String(),
				Timestamp: core.NowMillis(),
				Provider:  core.ProviderOllama,
				Model:     model,
			},
			FinishReason: finish,
		}},
		Usage: core.NewUsage(int(fields[3].Int()), int(fields[4].Int()), 0),
	}, nil
}

// Stream sends a streaming chat request
func (p *Provider) Stream(ctx context.Context, req *core.ChatCompletionRequest) (*core.ChatStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rc, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/api/chat",
		Body:     p.buildRequest(req, true),
	})
	if err != nil {
		return nil, err
	}
	return p.normalizer.Stream(ctx, rc), nil
}

// ValidateAPIKey ignores key and reports whether the daemon answers /api/tags
func (p *Provider) ValidateAPIKey(ctx context.Context, _ string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := p.client.Probe(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/tags",
	})
	return err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// DiscoverModels lists the models installed on the daemon, falling back to
// the static list when the daemon is unreachable or answers without a model
// list. A daemon with nothing installed yields an empty, non-nil list.
func (p *Provider) DiscoverModels(ctx context.Context) []string {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/tags",
	})
	if err != nil {
		return p.AvailableModels()
	}

	list := gjson.GetBytes(resp.Body, "models")
	if !list.IsArray() {
		return p.AvailableModels()
	}

	names := []string{}
	list.ForEach(func(_, m gjson.Result) bool {
		if name := m.Get("name").String(); name != "" {
			names = append(names, name)
		}
		return true
	})
	return names
}
