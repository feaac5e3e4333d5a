// Package server exposes the provider registries over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"aihub/internal/core"
	"aihub/internal/images"
	"aihub/internal/observability"
	"aihub/internal/providers"
	"aihub/internal/settings"
	"aihub/internal/usage"
)

// ProviderApplier activates stored provider settings without a restart.
type ProviderApplier interface {
	Apply(cfg core.ProviderConfig) error
	Remove(t core.ProviderType) bool
}

// Handler holds the HTTP handlers
type Handler struct {
	router   *providers.Router
	images   *images.Registry
	settings settings.Store
	applier  ProviderApplier
	metrics  *observability.Metrics
	recorder usage.Recorder
	usage    usage.Store
}

// NewHandler creates a handler over the chat router and image registry.
// imgs may be nil when no image provider is configured.
func NewHandler(router *providers.Router, imgs *images.Registry) *Handler {
	if imgs == nil {
		imgs = images.NewRegistry()
	}
	return &Handler{
		router: router,
		images: imgs,
	}
}

// WithSettings enables the settings routes. Saved settings are applied to the
// running registry through applier when it is not nil.
func (h *Handler) WithSettings(store settings.Store, applier ProviderApplier) *Handler {
	h.settings = store
	h.applier = applier
	return h
}

// WithUsage records token usage of successful chat completions through
// recorder. A non-nil store enables the usage summary route.
func (h *Handler) WithUsage(recorder usage.Recorder, store usage.Store) *Handler {
	h.recorder = recorder
	h.usage = store
	return h
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListProviders handles GET /v1/providers
func (h *Handler) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": h.router.List(),
	})
}

// ListModels handles GET /v1/providers/:type/models
func (h *Handler) ListModels(c echo.Context) error {
	t := core.ProviderType(c.Param("type"))
	models, err := h.router.Models(c.Request().Context(), t)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"provider": t,
		"models":   models,
	})
}

type validateRequest struct {
	APIKey string `json:"api_key"`
}

// ValidateKey handles POST /v1/providers/:type/validate
func (h *Handler) ValidateKey(c echo.Context) error {
	key, err := bindAPIKey(c)
	if err != nil {
		return handleError(c, err)
	}

	valid, err := h.router.Validate(c.Request().Context(), core.ProviderType(c.Param("type")), key)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

// Chat handles POST /v1/providers/:type/chat. With "stream": true the
// normalized deltas are sent as server-sent events.
func (h *Handler) Chat(c echo.Context) error {
	var req core.ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := req.Validate(); err != nil {
		return handleError(c, err)
	}

	t := core.ProviderType(c.Param("type"))
	if req.Stream {
		return h.streamChat(c, t, &req)
	}

	ctx := c.Request().Context()
	resp, err := h.router.Chat(ctx, t, &req)
	if err != nil {
		return handleError(c, err)
	}
	if h.recorder != nil {
		h.recorder.Record(usage.NewEntry(core.GetRequestID(ctx), t, resp))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) streamChat(c echo.Context, t core.ProviderType, req *core.ChatCompletionRequest) error {
	stream, err := h.router.Stream(c.Request().Context(), t, req)
	if err != nil {
		return handleError(c, err)
	}
	if h.metrics != nil {
		stream = h.metrics.WrapStream(string(t), stream)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for delta, err := range stream.Iter() {
		if err != nil {
			// Headers are already sent, so the failure travels as an event.
			slog.Warn("stream interrupted", "provider", t, "error", err)
			_ = writeEvent(w, "error", errorBody(err))
			return nil
		}
		if err := writeEvent(w, "", delta); err != nil {
			// Client went away; stopping iteration releases the vendor body.
			return nil
		}
	}
	return nil
}

func writeEvent(w *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

type imageProviderSummary struct {
	Type         core.ImageProviderType `json:"type"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	DefaultModel string                 `json:"default_model"`
	Models       []string               `json:"models"`
}

// ListImageProviders handles GET /v1/image-providers
func (h *Handler) ListImageProviders(c echo.Context) error {
	list := h.images.List()
	out := make([]imageProviderSummary, 0, len(list))
	for _, p := range list {
		summary := imageProviderSummary{
			Type:         p.Type(),
			Name:         p.Name(),
			DefaultModel: p.DefaultModel(),
			Models:       p.AvailableModels(),
		}
		if info, ok := images.Describe(p.Type()); ok {
			summary.Description = info.Description
		}
		out = append(out, summary)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"providers": out})
}

// GenerateImage handles POST /v1/image-providers/:type/generations
func (h *Handler) GenerateImage(c echo.Context) error {
	p, err := h.imageProvider(c)
	if err != nil {
		return handleError(c, err)
	}

	var req core.ImageGenerationRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := req.Validate(); err != nil {
		return handleError(c, err)
	}

	resp, err := p.Generate(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ValidateImageKey handles POST /v1/image-providers/:type/validate
func (h *Handler) ValidateImageKey(c echo.Context) error {
	p, err := h.imageProvider(c)
	if err != nil {
		return handleError(c, err)
	}
	key, err := bindAPIKey(c)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": p.ValidateAPIKey(c.Request().Context(), key)})
}

func (h *Handler) imageProvider(c echo.Context) (core.ImageProvider, error) {
	t := core.ImageProviderType(c.Param("type"))
	p, ok := h.images.Get(t)
	if !ok {
		return nil, core.NewConfigurationError("image provider not configured: " + string(t))
	}
	return p, nil
}

func bindAPIKey(c echo.Context) (string, error) {
	var body validateRequest
	if err := c.Bind(&body); err != nil {
		return "", core.NewInvalidRequestError("invalid request body: "+err.Error(), err)
	}
	if body.APIKey == "" {
		return "", core.NewInvalidRequestError("api_key is required", nil)
	}
	return body.APIKey, nil
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	slog.Error("unexpected handler error", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody(err))
}

func errorBody(err error) map[string]interface{} {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.ToJSON()
	}
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	}
}
