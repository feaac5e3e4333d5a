package providers

import (
	"maps"
	"os"
	"strings"

	"aihub/config"
	"aihub/internal/core"
)

type envProvider struct {
	name         string
	providerType core.ProviderType
	apiKeyEnv    string
	baseURLEnv   string
}

func discoverable(t core.ProviderType) envProvider {
	prefix := strings.ToUpper(string(t))
	return envProvider{string(t), t, prefix + "_API_KEY", prefix + "_BASE_URL"}
}

// knownProviderEnvs lists the providers that can be enabled from the
// environment alone. Each entry is named after its type.
var knownProviderEnvs = []envProvider{
	discoverable(core.ProviderOpenAI),
	discoverable(core.ProviderGLM),
	discoverable(core.ProviderKimi),
	discoverable(core.ProviderOllama),
}

// ResolveConfigs overlays environment credentials on the YAML provider map
// and converts every entry that ends up usable, keyed by entry name.
func ResolveConfigs(raw map[string]config.RawProviderConfig) map[string]core.ProviderConfig {
	merged := maps.Clone(raw)
	if merged == nil {
		merged = make(map[string]config.RawProviderConfig)
	}
	for _, p := range knownProviderEnvs {
		p.overlay(merged)
	}

	out := make(map[string]core.ProviderConfig, len(merged))
	for name, r := range merged {
		if enabled(r) {
			out[name] = toProviderConfig(r)
		}
	}
	return out
}

// overlay copies the provider's env values into m, creating the entry when
// YAML did not declare it. Env values win over YAML.
func (p envProvider) overlay(m map[string]config.RawProviderConfig) {
	key, base := os.Getenv(p.apiKeyEnv), os.Getenv(p.baseURLEnv)
	if key == "" && base == "" {
		return
	}
	entry, ok := m[p.name]
	if !ok {
		entry.Type = string(p.providerType)
	}
	if key != "" {
		entry.APIKey = key
	}
	if base != "" {
		entry.BaseURL = base
	}
	m[p.name] = entry
}

// enabled reports whether an entry has credentials. Ollama runs keyless
// once it has a base URL.
func enabled(r config.RawProviderConfig) bool {
	if core.ProviderType(r.Type) == core.ProviderOllama && r.BaseURL != "" {
		return true
	}
	return UsableKey(r.APIKey)
}

// UsableKey rejects empty keys and unexpanded ${VAR} placeholders
func UsableKey(key string) bool {
	return key != "" && !strings.Contains(key, "${")
}

func toProviderConfig(r config.RawProviderConfig) core.ProviderConfig {
	return core.ProviderConfig{
		Type:        core.ProviderType(r.Type),
		APIKey:      r.APIKey,
		BaseURL:     r.BaseURL,
		Model:       r.Model,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
		TopP:        r.TopP,
	}.Clone()
}
