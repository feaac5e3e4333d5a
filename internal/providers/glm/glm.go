// Package glm provides the Zhipu GLM chat provider.
package glm

import (
	"aihub/internal/core"
	"aihub/internal/providers"
	"aihub/internal/providers/openaicompat"
)

// Registration provides factory registration for the GLM provider.
var Registration = providers.Registration{
	Type: core.ProviderGLM,
	New:  New,
}

// Spec describes the Zhipu open platform endpoint
var Spec = openaicompat.Spec{
	Type:         core.ProviderGLM,
	Name:         "Zhipu GLM",
	BaseURL:      "https://open.bigmodel.cn/api/paas/v4",
	DefaultModel: "glm-4",
	Models:       []string{"glm-4", "glm-4-flash", "glm-4-plus", "glm-3-turbo"},
}

// New creates a new GLM provider.
func New(cfg core.ProviderConfig, opts providers.Options) core.ChatProvider {
	return openaicompat.New(Spec, cfg, opts)
}
