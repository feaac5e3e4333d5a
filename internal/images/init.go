package images

import (
	"log/slog"
	"maps"
	"slices"

	"aihub/internal/core"
)

// BuildRegistry creates a provider for every configured entry in name order,
// then for each override. Entries the factory rejects are logged and skipped.
func BuildRegistry(factory *Factory, configured map[string]core.ImageProviderOptions, overrides ...core.ImageProviderOptions) *Registry {
	reg := NewRegistry()

	add := func(cfg core.ImageProviderOptions) {
		p, err := factory.Create(cfg)
		if err != nil {
			slog.Error("failed to initialize image provider", "type", cfg.Type, "error", err)
			return
		}
		reg.Register(p)
		slog.Info("image provider initialized", "type", cfg.Type)
	}

	for _, name := range slices.Sorted(maps.Keys(configured)) {
		add(configured[name])
	}
	for _, cfg := range overrides {
		add(cfg)
	}
	return reg
}
