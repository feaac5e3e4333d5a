package server

import (
	"context"
	"maps"
	"slices"
	"sync"
	"testing"

	"aihub/internal/core"
	"aihub/internal/images"
	"aihub/internal/providers"
	"aihub/internal/settings"
)

type chatMock struct {
	providerType core.ProviderType
	streaming    bool
	response     *core.ChatCompletionResponse
	deltas       []core.StreamDelta
	streamErr    error
	err          error
	validKey     string
	models       []string
	lastRequest  *core.ChatCompletionRequest
}

func (m *chatMock) Type() core.ProviderType   { return m.providerType }
func (m *chatMock) Name() string              { return string(m.providerType) + " mock" }
func (m *chatMock) DefaultModel() string      { return "mock-model" }
func (m *chatMock) SupportsStreaming() bool   { return m.streaming }
func (m *chatMock) AvailableModels() []string { return m.models }

func (m *chatMock) ValidateAPIKey(_ context.Context, key string) bool {
	return key == m.validKey
}

func (m *chatMock) Chat(_ context.Context, req *core.ChatCompletionRequest) (*core.ChatCompletionResponse, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *chatMock) Stream(_ context.Context, req *core.ChatCompletionRequest) (*core.ChatStream, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return core.NewChatStream(func(yield func(core.StreamDelta, error) bool) {
		for _, d := range m.deltas {
			if !yield(d, nil) {
				return
			}
		}
		if m.streamErr != nil {
			yield(core.StreamDelta{}, m.streamErr)
		}
	}), nil
}

type imageMock struct {
	response *core.ImageGenerationResponse
	err      error
	validKey string
	last     *core.ImageGenerationRequest
}

func (m *imageMock) Type() core.ImageProviderType { return core.ImageProviderOpenAI }
func (m *imageMock) Name() string                 { return "OpenAI DALL-E" }
func (m *imageMock) DefaultModel() string         { return "dall-e-3" }
func (m *imageMock) AvailableModels() []string    { return []string{"dall-e-3", "dall-e-2"} }

func (m *imageMock) ValidateAPIKey(_ context.Context, key string) bool {
	return key == m.validKey
}

func (m *imageMock) Generate(_ context.Context, req *core.ImageGenerationRequest) (*core.ImageGenerationResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

// memoryStore is an in-process settings.Store.
type memoryStore struct {
	mu       sync.Mutex
	settings map[core.ProviderType]settings.Setting
	values   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		settings: make(map[core.ProviderType]settings.Setting),
		values:   make(map[string]string),
	}
}

func (s *memoryStore) Get(_ context.Context, t core.ProviderType) (*settings.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[t]
	if !ok {
		return nil, settings.ErrNotFound
	}
	return &setting, nil
}

func (s *memoryStore) List(_ context.Context) ([]settings.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []settings.Setting
	for _, t := range slices.Sorted(maps.Keys(s.settings)) {
		out = append(out, s.settings[t])
	}
	return out, nil
}

func (s *memoryStore) ListEnabled(ctx context.Context) ([]settings.Setting, error) {
	all, _ := s.List(ctx)
	return slices.DeleteFunc(all, func(setting settings.Setting) bool { return !setting.Enabled }), nil
}

func (s *memoryStore) Save(_ context.Context, setting settings.Setting) error {
	if err := setting.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[setting.Type] = setting
	return nil
}

func (s *memoryStore) Delete(_ context.Context, t core.ProviderType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, t)
	return nil
}

func (s *memoryStore) GetValue(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStore) SetValue(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

type recordingApplier struct {
	applied []core.ProviderConfig
	removed []core.ProviderType
	err     error
}

func (a *recordingApplier) Apply(cfg core.ProviderConfig) error {
	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, cfg)
	return nil
}

func (a *recordingApplier) Remove(t core.ProviderType) bool {
	a.removed = append(a.removed, t)
	return true
}

// newTestHandler builds a handler over the given chat providers and an
// optional image provider.
func newTestHandler(t *testing.T, image core.ImageProvider, chat ...core.ChatProvider) *Handler {
	t.Helper()

	registry := providers.NewChatRegistry()
	for _, p := range chat {
		registry.Register(p)
	}
	router, err := providers.NewRouter(registry, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	imgs := images.NewRegistry()
	if image != nil {
		imgs.Register(image)
	}
	return NewHandler(router, imgs)
}
