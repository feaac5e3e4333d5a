package glm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"aihub/internal/core"
	"aihub/internal/providers"
)

func TestNew(t *testing.T) {
	provider := New(core.ProviderConfig{APIKey: "k"}, providers.Options{})

	if provider.Type() != core.ProviderGLM {
		t.Errorf("Type = %q, want glm", provider.Type())
	}
	if provider.DefaultModel() != "glm-4" {
		t.Errorf("DefaultModel = %q, want glm-4", provider.DefaultModel())
	}
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer glm-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"model":"glm-4","choices":[{"message":{"content":"你好"},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,"completion_tokens":3,"total_tokens":5}}`))
	}))
	defer server.Close()

	provider := New(core.ProviderConfig{APIKey: "glm-key", BaseURL: server.URL}, providers.Options{HTTPClient: server.Client()})
	resp, err := provider.Chat(context.Background(), &core.ChatCompletionRequest{
		Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content() != "你好" {
		t.Errorf("Content = %q", resp.Content())
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", resp.Usage.TotalTokens)
	}
}
