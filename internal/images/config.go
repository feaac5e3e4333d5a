package images

import (
	"os"

	"aihub/config"
	"aihub/internal/core"
	"aihub/internal/providers"
)

// knownImageEnvs maps well-known image provider names to their environment variables.
var knownImageEnvs = []struct {
	name         string
	providerType core.ImageProviderType
	apiKeyEnv    string
	baseURLEnv   string
}{
	{"openai-image", core.ImageProviderOpenAI, "OPENAI_API_KEY", "OPENAI_IMAGE_BASE_URL"},
	{"falai", core.ImageProviderFalAI, "FAL_KEY", "FAL_BASE_URL"},
}

// ResolveConfigs applies env var overrides to the raw YAML image provider map
// and drops entries without a usable API key.
func ResolveConfigs(raw map[string]config.RawImageProviderConfig) map[string]core.ImageProviderOptions {
	merged := make(map[string]config.RawImageProviderConfig, len(raw))
	for k, v := range raw {
		merged[k] = v
	}

	for _, kp := range knownImageEnvs {
		apiKey := os.Getenv(kp.apiKeyEnv)
		baseURL := os.Getenv(kp.baseURLEnv)
		if apiKey == "" && baseURL == "" {
			continue
		}

		existing, exists := merged[kp.name]
		if !exists {
			existing = config.RawImageProviderConfig{Type: string(kp.providerType)}
		}
		if apiKey != "" {
			existing.APIKey = apiKey
		}
		if baseURL != "" {
			existing.BaseURL = baseURL
		}
		merged[kp.name] = existing
	}

	result := make(map[string]core.ImageProviderOptions, len(merged))
	for name, r := range merged {
		if !providers.UsableKey(r.APIKey) {
			continue
		}
		result[name] = core.ImageProviderOptions{
			Type:    core.ImageProviderType(r.Type),
			APIKey:  r.APIKey,
			BaseURL: r.BaseURL,
			Model:   r.Model,
		}
	}
	return result
}
