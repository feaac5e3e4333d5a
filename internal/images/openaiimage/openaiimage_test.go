package openaiimage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aihub/internal/core"
	"aihub/internal/providers"
)

func newTestProvider(serverURL string, cfg core.ImageProviderOptions) core.ImageProvider {
	cfg.BaseURL = serverURL
	return New(cfg, providers.Options{HTTPClient: http.DefaultClient})
}

func TestGenerate(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("Path = %q, want /images/generations", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"created": 1700000000,
			"data": [
				{"url": "https://img.example/1.png", "revised_prompt": "a fluffy cat"},
				{"url": "https://img.example/2.png"}
			]
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, core.ImageProviderOptions{APIKey: "sk-test"})
	resp, err := provider.Generate(context.Background(), &core.ImageGenerationRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]interface{}{
		"model":           "dall-e-3",
		"prompt":          "a cat",
		"n":               float64(1),
		"quality":         "standard",
		"size":            "1024x1024",
		"response_format": "url",
	}
	for key, want := range expected {
		if received[key] != want {
			t.Errorf("body[%s] = %v, want %v", key, received[key], want)
		}
	}
	if _, ok := received["negative_prompt"]; ok {
		t.Error("negative_prompt should be omitted when unset")
	}

	if !strings.HasPrefix(resp.ID, "dalle-") {
		t.Errorf("ID = %q, want dalle- fallback", resp.ID)
	}
	if resp.Created != 1700000000 {
		t.Errorf("Created = %d", resp.Created)
	}
	if resp.Model != "dall-e-3" {
		t.Errorf("Model = %q", resp.Model)
	}
	if resp.Pending {
		t.Error("synchronous generation should never be pending")
	}
	if len(resp.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(resp.Images))
	}
	if resp.Images[0].RevisedPrompt != "a fluffy cat" {
		t.Errorf("Images[0].RevisedPrompt = %q", resp.Images[0].RevisedPrompt)
	}
	if resp.Images[1].RevisedPrompt != "a cat" {
		t.Errorf("Images[1].RevisedPrompt = %q, want the request prompt", resp.Images[1].RevisedPrompt)
	}
}

func TestGenerate_RequestOverrides(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		_, _ = w.Write([]byte(`{"id": "img-1"}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, core.ImageProviderOptions{APIKey: "k", Model: "dall-e-2"})
	before := time.Now().Unix()
	resp, err := provider.Generate(context.Background(), &core.ImageGenerationRequest{
		Prompt:         "a dog",
		NegativePrompt: "blurry",
		Number:         3,
		Size:           "512x512",
		Quality:        "hd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received["model"] != "dall-e-2" || received["n"] != float64(3) || received["size"] != "512x512" ||
		received["quality"] != "hd" || received["negative_prompt"] != "blurry" {
		t.Errorf("unexpected body %v", received)
	}
	if resp.ID != "img-1" {
		t.Errorf("ID = %q, want img-1", resp.ID)
	}
	if resp.Created < before {
		t.Errorf("Created = %d, want current unix seconds", resp.Created)
	}
	if resp.Images == nil || len(resp.Images) != 0 {
		t.Errorf("Images = %v, want empty list", resp.Images)
	}
}

func TestGenerate_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content policy"}}`))
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, core.ImageProviderOptions{APIKey: "k"})

	_, err := provider.Generate(context.Background(), &core.ImageGenerationRequest{})
	if !core.IsInvalidRequestError(err) {
		t.Errorf("empty prompt: expected invalid request error, got %v", err)
	}

	_, err = provider.Generate(context.Background(), &core.ImageGenerationRequest{Prompt: "x"})
	if !core.IsProviderError(err) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" || r.Method != http.MethodGet {
			t.Errorf("unexpected probe %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") == "Bearer good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, core.ImageProviderOptions{APIKey: "configured"})
	if !provider.ValidateAPIKey(context.Background(), "good") {
		t.Error("expected good key to validate")
	}
	if provider.ValidateAPIKey(context.Background(), "bad") {
		t.Error("expected bad key to fail")
	}

	server.Close()
	if provider.ValidateAPIKey(context.Background(), "good") {
		t.Error("transport failure should report false")
	}
}

func TestMetadata(t *testing.T) {
	p := New(core.ImageProviderOptions{}, providers.Options{})
	if p.Type() != core.ImageProviderOpenAI || p.DefaultModel() != "dall-e-3" {
		t.Errorf("unexpected identity %s/%s", p.Type(), p.DefaultModel())
	}
	models := p.AvailableModels()
	models[0] = "mutated"
	if p.AvailableModels()[0] != "dall-e-3" {
		t.Error("AvailableModels should return a copy")
	}
}
