// Package kimi provides the Moonshot Kimi chat provider.
package kimi

import (
	"aihub/internal/core"
	"aihub/internal/providers"
	"aihub/internal/providers/openaicompat"
)

// Registration provides factory registration for the Kimi provider.
var Registration = providers.Registration{
	Type: core.ProviderKimi,
	New:  New,
}

// Spec describes the Moonshot endpoint
var Spec = openaicompat.Spec{
	Type:         core.ProviderKimi,
	Name:         "Moonshot Kimi",
	BaseURL:      "https://api.moonshot.cn/v1",
	DefaultModel: "moonshot-v1-8k",
	Models:       []string{"moonshot-v1-8k", "moonshot-v1-32k", "moonshot-v1-128k"},
}

// New creates a new Kimi provider.
func New(cfg core.ProviderConfig, opts providers.Options) core.ChatProvider {
	return openaicompat.New(Spec, cfg, opts)
}
