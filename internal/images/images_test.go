package images

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aihub/config"
	"aihub/internal/core"
	"aihub/internal/llmclient"
	"aihub/internal/providers"
)

type stubProvider struct {
	cfg core.ImageProviderOptions
}

func (s *stubProvider) Type() core.ImageProviderType { return s.cfg.Type }
func (s *stubProvider) Name() string                 { return "stub" }
func (s *stubProvider) DefaultModel() string         { return "stub-model" }
func (s *stubProvider) AvailableModels() []string    { return []string{s.cfg.Model} }

func (s *stubProvider) Generate(context.Context, *core.ImageGenerationRequest) (*core.ImageGenerationResponse, error) {
	return &core.ImageGenerationResponse{}, nil
}

func (s *stubProvider) ValidateAPIKey(context.Context, string) bool { return true }

var stubRegistration = Registration{
	Type: core.ImageProviderFalAI,
	New: func(cfg core.ImageProviderOptions, _ providers.Options) core.ImageProvider {
		return &stubProvider{cfg: cfg}
	},
}

func TestFactory(t *testing.T) {
	factory := NewFactory(providers.Options{})
	factory.Add(stubRegistration)

	p, err := factory.Create(core.ImageProviderOptions{Type: core.ImageProviderFalAI, Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, core.ImageProviderFalAI, p.Type())

	_, err = factory.Create(core.ImageProviderOptions{Type: "unknown-image"})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Equal(t, "configuration_error: unknown provider type: unknown-image", err.Error())

	assert.Equal(t, []core.ImageProviderType{core.ImageProviderFalAI}, factory.ListRegistered())
}

func TestDescribe(t *testing.T) {
	assert.Len(t, Metadata, 5)

	info, ok := Describe(core.ImageProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, "OpenAI DALL-E", info.Name)

	_, ok = Describe("nope")
	assert.False(t, ok)
}

func TestResolveConfigs(t *testing.T) {
	for _, kp := range knownImageEnvs {
		t.Setenv(kp.apiKeyEnv, "")
		t.Setenv(kp.baseURLEnv, "")
	}
	t.Setenv("FAL_KEY", "fal-env")

	raw := map[string]config.RawImageProviderConfig{
		"openai-image": {Type: "openai-image", APIKey: "sk-yaml", Model: "dall-e-2"},
		"falai":        {Type: "falai", APIKey: "fal-yaml", Model: "pix2pix"},
		"custom":       {Type: "custom-image", APIKey: "${MISSING}"},
	}

	got := ResolveConfigs(raw)

	require.Len(t, got, 2)
	assert.Equal(t, "sk-yaml", got["openai-image"].APIKey)
	assert.Equal(t, "fal-env", got["falai"].APIKey, "env var should win over YAML")
	assert.Equal(t, "pix2pix", got["falai"].Model)
	assert.NotContains(t, got, "custom")
}

func TestBuildRegistry(t *testing.T) {
	factory := NewFactory(providers.Options{})
	factory.Add(stubRegistration)

	reg := BuildRegistry(factory,
		map[string]core.ImageProviderOptions{
			"falai":   {Type: core.ImageProviderFalAI, Model: "configured"},
			"unknown": {Type: core.ImageProviderGoogle},
		},
		core.ImageProviderOptions{Type: core.ImageProviderFalAI, Model: "stored"},
	)

	assert.Equal(t, 1, reg.Len())
	p, ok := reg.Get(core.ImageProviderFalAI)
	require.True(t, ok)
	assert.Equal(t, []string{"stored"}, p.AvailableModels())
}

func TestFactory_SetHooks(t *testing.T) {
	var got providers.Options
	factory := NewFactory(providers.Options{})
	factory.Add(Registration{Type: core.ImageProviderFalAI, New: func(cfg core.ImageProviderOptions, opts providers.Options) core.ImageProvider {
		got = opts
		return nil
	}})

	started := false
	factory.SetHooks(llmclient.Hooks{OnRequestStart: func(ctx context.Context, _ llmclient.RequestInfo) context.Context {
		started = true
		return ctx
	}})

	_, err := factory.Create(core.ImageProviderOptions{Type: core.ImageProviderFalAI})
	require.NoError(t, err)
	require.NotNil(t, got.Hooks.OnRequestStart)
	got.Hooks.OnRequestStart(context.Background(), llmclient.RequestInfo{})
	assert.True(t, started)
}
