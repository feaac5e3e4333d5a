package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"aihub/internal/core"
	"aihub/internal/providers"
)

func newTestProvider(url string, cfg core.ProviderConfig) *Provider {
	cfg.BaseURL = url
	return New(cfg, providers.Options{HTTPClient: http.DefaultClient}).(*Provider)
}

func newChatRequest(content string) *core.ChatCompletionRequest {
	return &core.ChatCompletionRequest{
		Messages: []core.ChatMessage{{Role: core.RoleUser, Content: content}},
	}
}

func f64Ptr(v float64) *float64 { return &v }

func TestNew_WithoutAPIKey(t *testing.T) {
	provider := New(core.ProviderConfig{}, providers.Options{})

	if provider.Type() != core.ProviderOllama {
		t.Errorf("Type = %q", provider.Type())
	}
	if provider.DefaultModel() != "llama2" {
		t.Errorf("DefaultModel = %q", provider.DefaultModel())
	}
	if _, ok := provider.(core.ModelDiscoverer); !ok {
		t.Error("ollama should discover models")
	}
}

func TestChat(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError bool
		checkResponse func(*testing.T, *core.ChatCompletionResponse)
	}{
		{
			name:         "successful request",
			statusCode:   http.StatusOK,
			responseBody: `{"model":"llama3.2","message":{"role":"assistant","content":"Hello!"},"done":true,"prompt_eval_count":10,"eval_count":5}`,
			checkResponse: func(t *testing.T, resp *core.ChatCompletionResponse) {
				if !strings.HasPrefix(resp.ID, "ollama-") {
					t.Errorf("ID = %q, want ollama-<millis>", resp.ID)
				}
				if resp.Model != "llama3.2" {
					t.Errorf("Model = %q", resp.Model)
				}
				if resp.Content() != "Hello!" {
					t.Errorf("Content = %q", resp.Content())
				}
				if resp.Choices[0].FinishReason != core.FinishStop {
					t.Errorf("FinishReason = %q, want stop", resp.Choices[0].FinishReason)
				}
				if resp.Usage != (core.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}) {
					t.Errorf("Usage = %+v", resp.Usage)
				}
			},
		},
		{
			name:         "not done means length",
			statusCode:   http.StatusOK,
			responseBody: `{"message":{"content":"partial"},"done":false}`,
			checkResponse: func(t *testing.T, resp *core.ChatCompletionResponse) {
				if resp.Choices[0].FinishReason != core.FinishLength {
					t.Errorf("FinishReason = %q, want length", resp.Choices[0].FinishReason)
				}
				if resp.Model != "llama2" {
					t.Errorf("Model = %q, want instance default", resp.Model)
				}
				if resp.Usage.TotalTokens != 0 {
					t.Errorf("TotalTokens = %d, want 0", resp.Usage.TotalTokens)
				}
			},
		},
		{
			name:          "server error",
			statusCode:    http.StatusInternalServerError,
			responseBody:  `{"error": "model not loaded"}`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/chat" {
					t.Errorf("Path = %q, want /api/chat", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "" {
					t.Errorf("Authorization should not be sent, got %q", r.Header.Get("Authorization"))
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			provider := newTestProvider(server.URL, core.ProviderConfig{APIKey: "ignored"})
			resp, err := provider.Chat(context.Background(), newChatRequest("hi"))

			if tt.expectedError {
				if !core.IsProviderError(err) {
					t.Errorf("expected provider error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.checkResponse(t, resp)
		})
	}
}

func TestChat_Options(t *testing.T) {
	tests := []struct {
		name    string
		cfg     core.ProviderConfig
		req     *core.ChatCompletionRequest
		options map[string]any
	}{
		{
			name:    "no sampling omits options",
			req:     newChatRequest("hi"),
			options: nil,
		},
		{
			name: "request and instance merge",
			cfg:  core.ProviderConfig{TopP: f64Ptr(0.8)},
			req: func() *core.ChatCompletionRequest {
				r := newChatRequest("hi")
				r.Temperature = f64Ptr(0.4)
				maxTokens := 64
				r.MaxTokens = &maxTokens
				return r
			}(),
			options: map[string]any{"temperature": 0.4, "top_p": 0.8, "num_predict": float64(64)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(data, &body)
				_, _ = w.Write([]byte(`{"done":true}`))
			}))
			defer server.Close()

			provider := newTestProvider(server.URL, tt.cfg)
			if _, err := provider.Chat(context.Background(), tt.req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if body["stream"] != false {
				t.Errorf("stream = %v, want explicit false", body["stream"])
			}
			got, _ := body["options"].(map[string]any)
			if tt.options == nil {
				if _, present := body["options"]; present {
					t.Errorf("options should be omitted, got %v", body["options"])
				}
				return
			}
			if !reflect.DeepEqual(got, tt.options) {
				t.Errorf("options = %v, want %v", got, tt.options)
			}
		})
	}
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(data), `"stream":true`) {
			t.Errorf("stream flag missing in %s", data)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`{"message":{"content":"Hi"},"done":false}` + "\n",
			`{"message":{"content":" there"},"do`,
			`ne":false}` + "\n" + `{"message":{"content":""},"done":true}` + "\n",
		} {
			_, _ = w.Write([]byte(line))
			flusher.Flush()
		}
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, core.ProviderConfig{})
	stream, err := provider.Stream(context.Background(), newChatRequest("hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deltas, text, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	want := []core.StreamDelta{{Delta: "Hi"}, {Delta: " there"}, {Delta: "", Done: true}}
	if !reflect.DeepEqual(deltas, want) {
		t.Errorf("deltas = %+v, want %+v", deltas, want)
	}
	if text != "Hi there" {
		t.Errorf("text = %q", text)
	}
}

func TestStream_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'x' not found"}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, core.ProviderConfig{})
	_, err := provider.Stream(context.Background(), newChatRequest("hi"))
	if !core.IsProviderError(err) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Path = %q, want /api/tags", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))

	provider := newTestProvider(server.URL, core.ProviderConfig{})
	if !provider.ValidateAPIKey(context.Background(), "") {
		t.Error("running daemon should validate with any key")
	}

	server.Close()
	if provider.ValidateAPIKey(context.Background(), "") {
		t.Error("stopped daemon should not validate")
	}
}

func TestDiscoverModels(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		expected   []string
	}{
		{
			name:       "installed models",
			statusCode: http.StatusOK,
			body:       `{"models":[{"name":"llama3.2:latest"},{"name":"qwen2:7b"}]}`,
			expected:   []string{"llama3.2:latest", "qwen2:7b"},
		},
		{
			name:       "nothing installed",
			statusCode: http.StatusOK,
			body:       `{"models":[]}`,
			expected:   []string{},
		},
		{
			name:       "error falls back",
			statusCode: http.StatusInternalServerError,
			body:       `oops`,
			expected:   []string{"llama2", "mistral", "codellama", "vicuna"},
		},
		{
			name:       "missing list falls back",
			statusCode: http.StatusOK,
			body:       `{}`,
			expected:   []string{"llama2", "mistral", "codellama", "vicuna"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := newTestProvider(server.URL, core.ProviderConfig{})
			got := core.ModelsOf(context.Background(), provider)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("models = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppliedProviderDiscoversModels(t *testing.T) {
	tags := `{"models":[{"name":"qwen2:7b"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, tags)
	}))
	defer server.Close()

	factory := providers.NewFactory()
	factory.Add(Registration)
	registry := providers.NewChatRegistry()
	catalog := providers.NewCatalog(registry, nil)
	router, err := providers.NewRouter(registry, catalog)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	result := &providers.InitResult{Registry: registry, Catalog: catalog, Router: router, Factory: factory}
	ctx := context.Background()

	if err := result.Apply(core.ProviderConfig{Type: core.ProviderOllama, BaseURL: "http://127.0.0.1:1"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := catalog.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	models, _ := router.Models(ctx, core.ProviderOllama)
	if !reflect.DeepEqual(models, []string{"llama2", "mistral", "codellama", "vicuna"}) {
		t.Fatalf("unreachable daemon models = %v, want static list", models)
	}

	if err := result.Apply(core.ProviderConfig{Type: core.ProviderOllama, BaseURL: server.URL}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	models, err = router.Models(ctx, core.ProviderOllama)
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if !reflect.DeepEqual(models, []string{"qwen2:7b"}) {
		t.Errorf("models = %v, want the daemon's list", models)
	}
}
