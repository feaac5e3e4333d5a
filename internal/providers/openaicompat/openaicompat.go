// Package openaicompat implements the chat provider contract for vendors that
// speak the OpenAI chat completions dialect: bearer auth, POST /chat/completions,
// server-sent event streaming and GET /models for key validation.
package openaicompat

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"aihub/internal/core"
	"aihub/internal/llmclient"
	"aihub/internal/providers"
	"aihub/internal/streaming"
)

// Spec describes one vendor
type Spec struct {
	Type         core.ProviderType
	Name         string
	BaseURL      string
	DefaultModel string
	Models       []string
}

// Provider is a chat provider for an OpenAI-compatible vendor
type Provider struct {
	spec       Spec
	cfg        core.ProviderConfig
	model      string
	client     *llmclient.Client
	normalizer streaming.Normalizer
}

// New creates a provider. cfg.BaseURL overrides spec.BaseURL and cfg.Model
// overrides spec.DefaultModel as the instance default.
func New(spec Spec, cfg core.ProviderConfig, opts providers.Options) *Provider {
	baseURL := spec.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	model := spec.DefaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	p := &Provider{
		spec:  spec,
		cfg:   cfg,
		model: model,
		normalizer: streaming.Normalizer{
			Framing:  streaming.OpenAIEventStream(),
			Provider: string(spec.Type),
		},
	}
	p.client = opts.NewClient(string(spec.Type), baseURL, p.setHeaders)
	return p
}

func (p *Provider) setHeaders(req *http.Request) {
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
}

// Type implements core.ChatProvider
func (p *Provider) Type() core.ProviderType { return p.spec.Type }

// Name implements core.ChatProvider
func (p *Provider) Name() string { return p.spec.Name }

// DefaultModel implements core.ChatProvider
func (p *Provider) DefaultModel() string { return p.spec.DefaultModel }

// SupportsStreaming implements core.ChatProvider
func (p *Provider) SupportsStreaming() bool { return true }

// AvailableModels implements core.ChatProvider
func (p *Provider) AvailableModels() []string {
	return append([]string(nil), p.spec.Models...)
}

// BaseURL returns the endpoint the provider talks to
func (p *Provider) BaseURL() string {
	return p.client.BaseURL()
}

// Chat sends a non-streaming chat completion request
func (p *Provider) Chat(ctx context.Context, req *core.ChatCompletionRequest) (*core.ChatCompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := providers.BuildChatBody(req, p.cfg, p.model)
	body.Stream = false

	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	return p.translate(resp.Body, body.Model), nil
}

// Stream sends a streaming chat completion request
func (p *Provider) Stream(ctx context.Context, req *core.ChatCompletionRequest) (*core.ChatStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := providers.BuildChatBody(req, p.cfg, p.model)
	body.Stream = true

	rc, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	return p.normalizer.Stream(ctx, rc), nil
}

// ValidateAPIKey reports whether key is accepted by GET /models
func (p *Provider) ValidateAPIKey(ctx context.Context, key string) bool {
	resp, err := p.client.Probe(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
		Headers:  map[string]string{"Authorization": "Bearer " + key},
	})
	return err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// translate maps a vendor response onto the normalized shape. Missing fields
// keep their zero values.
func (p *Provider) translate(data []byte, requestedModel string) *core.ChatCompletionResponse {
	fields := gjson.GetManyBytes(data,
		"id", "model", "choices",
		"usage.prompt_tokens", "usage.completion_tokens", "usage.total_tokens",
	)

	id := fields[0].String()
	if id == "" {
		id = string(p.spec.Type) + "-" + strconv.FormatInt(core.NowMillis(), 10)
	}
	model := fields[1].String()
	if model == "" {
		model = requestedModel
	}

	var choices []core.Choice
	fields[2].ForEach(func(_, choice gjson.Result) bool {
		choices = append(choices, p.choice(choice, model))
		return true
	})
	if len(choices) == 0 {
		choices = []core.Choice{p.choice(gjson.Result{}, model)}
	}

	return &core.ChatCompletionResponse{
		ID:      id,
		Model:   model,
		Choices: choices,
		Usage:   core.NewUsage(int(fields[3].Int()), int(fields[4].Int()), int(fields[5].Int())),
	}
}

func (p *Provider) choice(c gjson.Result, model string) core.Choice {
	return core.Choice{
		Message: core.ChatMessage{
			ID:        core.NewMessageID(),
			Role:      core.RoleAssistant,
			Content:   c.Get("message.content").String(),
			Timestamp: core.NowMillis(),
			Provider:  p.spec.Type,
			Model:     model,
		},
		FinishReason: core.ParseFinishReason(c.Get("finish_reason").String()),
	}
}
