// Package falai implements image generation against the fal.ai queue API.
//
// A submission normally returns a request handle rather than images. The
// response is then marked pending and carries the request id; polling the
// queue is left to the caller.
package falai

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
	defaultBaseURL = "https://queue.fal.run"
	defaultModel   = "stable-diffusion-xl-1024-v1-0"
)

var models = []string{
	"leonardo-Phoenix",
	"stable-diffusion-xl-1024-v1-0",
	"playground-v2-1024px-aesthetic",
	"pix2pix",
	"depth-to-image",
	"img2img",
}

// Registration provides factory registration for fal.ai.
var Registration = images.Registration{
	Type: core.ImageProviderFalAI,
	New:  New,
}

// Provider submits generation jobs to fal.ai
type Provider struct {
	cfg    core.ImageProviderOptions
	model  string
	client *llmclient.Client
}

type submitRequest struct {
	Prompt         string `json:"prompt"`
	NumImages      int    `json:"num_images"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
}

// New creates a fal.ai provider
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
	p.client = opts.NewClient(string(core.ImageProviderFalAI), baseURL, func(req *http.Request) {
		req.Header.Set("Authorization", "Key "+p.cfg.APIKey)
	})
	return p
}

// Type implements core.ImageProvider
func (p *Provider) Type() core.ImageProviderType { return core.ImageProviderFalAI }

// Name implements core.ImageProvider
func (p *Provider) Name() string { return "fal.ai" }

// DefaultModel implements core.ImageProvider
func (p *Provider) DefaultModel() string { return defaultModel }

// AvailableModels implements core.ImageProvider
func (p *Provider) AvailableModels() []string {
	return append([]string(nil), models...)
}

// Generate submits a job for the instance model.
func (p *Provider) Generate(ctx context.Context, req *core.ImageGenerationRequest) (*core.ImageGenerationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/" + p.model,
		Body: submitRequest{
			Prompt:         req.Prompt,
			NumImages:      req.NumberOrDefault(),
			NegativePrompt: req.NegativePrompt,
			Size:           req.Size,
			Quality:        req.Quality,
			Style:          req.Style,
		},
	})
	if err != nil {
		return nil, err
	}

	fields := gjson.GetManyBytes(resp.Body, "request_id", "revised_prompt", "images")

	requestID := fields[0].String()
	revised := fields[1].String()
	if revised == "" {
		revised = req.Prompt
	}

	out := &core.ImageGenerationResponse{
		ID:        requestID,
		Created:   time.Now().Unix(),
		Model:     p.model,
		Images:    []core.GeneratedImage{},
		Pending:   requestID != "",
		RequestID: requestID,
	}
	if out.ID == "" {
		out.ID = "falai-" + strconv.FormatInt(core.NowMillis(), 10)
	}
	fields[2].ForEach(func(_, img gjson.Result) bool {
		out.Images = append(out.Images, core.GeneratedImage{
			URL:           img.Get("url").String(),
			RevisedPrompt: revised,
		})
		return true
	})
	return out, nil
}

// ValidateAPIKey reports whether key is accepted by GET /user/information
func (p *Provider) ValidateAPIKey(ctx context.Context, key string) bool {
	resp, err := p.client.Probe(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/user/information",
		Headers:  map[string]string{"Authorization": "Key " + key},
	})
	return err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}
