// Package openai provides the OpenAI chat provider.
package openai

import (
	"aihub/internal/core"
	"aihub/internal/providers"
	"aihub/internal/providers/openaicompat"
)

// Registration provides factory registration for the OpenAI provider.
var Registration = providers.Registration{
	Type: core.ProviderOpenAI,
	New:  New,
}

const defaultBaseURL = "https://api.openai.com/v1"

var models = []string{
	"gpt-4-turbo-preview",
	"gpt-4",
	"gpt-4-32k",
	"gpt-3.5-turbo",
	"gpt-3.5-turbo-16k",
}

// Spec describes the OpenAI endpoint
var Spec = openaicompat.Spec{
	Type:         core.ProviderOpenAI,
	Name:         "OpenAI",
	BaseURL:      defaultBaseURL,
	DefaultModel: "gpt-4",
	Models:       models,
}

// New creates a new OpenAI provider.
func New(cfg core.ProviderConfig, opts providers.Options) core.ChatProvider {
	return openaicompat.New(Spec, cfg, opts)
}
