// Package openaiimage implements image generation against the OpenAI images API.
package openaiimage

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"aihub/internal/core"
	"aihub/internal/images"
	"aihub/internal/llmclient"
	"aihub/internal/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "dall-e-3"
	defaultQuality = "standard"
	defaultSize    = "1024x1024"
)

var models = []string{"dall-e-3", "dall-e-2"}

// Registration provides factory registration for the OpenAI image provider.
var Registration = images.Registration{
	Type: core.ImageProviderOpenAI,
	New:  New,
}

// Provider generates images with DALL-E
type Provider struct {
	cfg    core.ImageProviderOptions
	model  string
	client *llmclient.Client
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Quality        string `json:"quality"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// New creates an OpenAI image provider
func New(cfg core.ImageProviderOptions, opts providers.Options) core.ImageProvider {
	baseURL := defaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}

	p := &Provider{cfg: cfg, model: model}
	p.client = opts.NewClient(string(core.ImageProviderOpenAI), baseURL, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	})
	return p
}

// Type implements core.ImageProvider
func (p *Provider) Type() core.ImageProviderType { return core.ImageProviderOpenAI }

// Name implements core.ImageProvider
func (p *Provider) Name() string { return "OpenAI DALL-E" }

// DefaultModel implements core.ImageProvider
func (p *Provider) DefaultModel() string { return defaultModel }

// AvailableModels implements core.ImageProvider
func (p *Provider) AvailableModels() []string {
	return append([]string(nil), models...)
}

// Generate requests images synchronously. The response always carries final
// image URLs; it is never pending.
func (p *Provider) Generate(ctx context.Context, req *core.ImageGenerationRequest) (*core.ImageGenerationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := generationRequest{
		Model:          p.model,
		Prompt:         req.Prompt,
		N:              req.NumberOrDefault(),
		Quality:        req.Quality,
		Size:           req.Size,
		ResponseFormat: "url",
		NegativePrompt: req.NegativePrompt,
	}
	if body.Quality == "" {
		body.Quality = defaultQuality
	}
	if body.Size == "" {
		body.Size = defaultSize
	}

	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/images/generations",
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	fields := gjson.GetManyBytes(resp.Body, "id", "created", "data")

	id := fields[0].String()
	if id == "" {
		id = "dalle-" + strconv.FormatInt(core.NowMillis(), 10)
	}
	created := fields[1].Int()
	if created == 0 {
		created = time.Now().Unix()
	}

	out := &core.ImageGenerationResponse{
		ID:      id,
		Created: created,
		Model:   p.model,
		Images:  []core.GeneratedImage{},
	}
	fields[2].ForEach(func(_, img gjson.Result) bool {
		revised := img.Get("revised_prompt").String()
		if revised == "" {
			revised = req.Prompt
		}
		out.Images = append(out.Images, core.GeneratedImage{
			URL:           img.Get("url").String(),
			RevisedPrompt: revised,
		})
		return true
	})
	return out, nil
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
