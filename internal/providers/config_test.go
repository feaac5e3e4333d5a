package providers

import (
	"testing"

	"aihub/config"
	"aihub/internal/core"
)

func intPtr(v int) *int         { return &v }
func f64Ptr(v float64) *float64 { return &v }

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, kp := range knownProviderEnvs {
		t.Setenv(kp.apiKeyEnv, "")
		t.Setenv(kp.baseURLEnv, "")
	}
}

func TestResolveConfigs_YAMLOnly(t *testing.T) {
	clearProviderEnv(t)

	raw := map[string]config.RawProviderConfig{
		"primary": {Type: "openai", APIKey: "sk-test", Model: "gpt-4", MaxTokens: intPtr(256), TopP: f64Ptr(0.9)},
	}
	got := ResolveConfigs(raw)

	cfg, ok := got["primary"]
	if !ok {
		t.Fatal("expected primary provider")
	}
	if cfg.Type != core.ProviderOpenAI || cfg.APIKey != "sk-test" || cfg.Model != "gpt-4" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxTokens == nil || *cfg.MaxTokens != 256 {
		t.Errorf("MaxTokens = %v, want 256", cfg.MaxTokens)
	}
	if cfg.MaxTokens == raw["primary"].MaxTokens {
		t.Error("resolved config must not share pointers with the raw config")
	}
}

func TestResolveConfigs_EnvCreatesProvider(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GLM_API_KEY", "glm-key")

	got := ResolveConfigs(nil)

	cfg, ok := got["glm"]
	if !ok {
		t.Fatal("expected glm provider from env")
	}
	if cfg.Type != core.ProviderGLM || cfg.APIKey != "glm-key" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestResolveConfigs_EnvOverridesYAML(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KIMI_API_KEY", "env-key")
	t.Setenv("KIMI_BASE_URL", "https://proxy.example/v1")

	raw := map[string]config.RawProviderConfig{
		"kimi": {Type: "kimi", APIKey: "yaml-key", Model: "moonshot-v1-32k"},
	}
	cfg := ResolveConfigs(raw)["kimi"]

	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.APIKey)
	}
	if cfg.BaseURL != "https://proxy.example/v1" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Model != "moonshot-v1-32k" {
		t.Errorf("Model = %q, YAML value should survive", cfg.Model)
	}
}

func TestResolveConfigs_FiltersUnusable(t *testing.T) {
	clearProviderEnv(t)

	raw := map[string]config.RawProviderConfig{
		"empty":       {Type: "openai"},
		"placeholder": {Type: "openai", APIKey: "${OPENAI_API_KEY}"},
		"ollama":      {Type: "ollama", BaseURL: "http://localhost:11434"},
		"ollama-bare": {Type: "ollama"},
	}
	got := ResolveConfigs(raw)

	if len(got) != 1 {
		t.Fatalf("expected only ollama to survive, got %v", got)
	}
	if _, ok := got["ollama"]; !ok {
		t.Error("ollama with a base URL should not need an API key")
	}
}
