package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"aihub/internal/core"
	"aihub/internal/observability"
)

// DefaultBodySizeLimit applies when Config.BodySizeLimit is empty.
const DefaultBodySizeLimit = "10M"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MasterKey       string                 // Optional: bearer token required on API routes
	Metrics         *observability.Metrics // Optional: exposes the metrics endpoint and counts streamed deltas
	MetricsEndpoint string                 // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit   string                 // echo limit expression (default: 10M)
}

// New creates a new HTTP server
func New(handler *Handler, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	authSkipPaths := []string{"/health"}

	metricsPath := "/metrics"
	if cfg.Metrics != nil {
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean("/" + cfg.MetricsEndpoint)
		}
		// The metrics endpoint must not shadow API routes
		if metricsPath == "/v1" || strings.HasPrefix(metricsPath, "/v1/") || metricsPath == "/health" {
			metricsPath = "/metrics"
		}
		authSkipPaths = append(authSkipPaths, metricsPath)
		handler.metrics = cfg.Metrics
	}

	// Global middleware stack (order matters)
	e.Use(RequestIDMiddleware())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", core.GetRequestID(c.Request().Context()),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	bodySizeLimit := cfg.BodySizeLimit
	if bodySizeLimit == "" {
		bodySizeLimit = DefaultBodySizeLimit
	}
	e.Use(middleware.BodyLimit(bodySizeLimit))

	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths))
	}

	// Public routes
	e.GET("/health", handler.Health)
	if cfg.Metrics != nil {
		e.GET(metricsPath, echo.WrapHandler(cfg.Metrics.Handler()))
	}

	// API routes
	v1 := e.Group("/v1")
	v1.GET("/providers", handler.ListProviders)
	v1.GET("/providers/:type/models", handler.ListModels)
	v1.POST("/providers/:type/validate", handler.ValidateKey)
	v1.POST("/providers/:type/chat", handler.Chat)
	v1.GET("/image-providers", handler.ListImageProviders)
	v1.POST("/image-providers/:type/generations", handler.GenerateImage)
	v1.POST("/image-providers/:type/validate", handler.ValidateImageKey)

	if handler.usage != nil {
		v1.GET("/usage", handler.UsageSummary)
	}

	if handler.settings != nil {
		v1.GET("/settings/providers", handler.ListSettings)
		v1.GET("/settings/providers/:type", handler.GetSetting)
		v1.PUT("/settings/providers/:type", handler.SaveSetting)
		v1.DELETE("/settings/providers/:type", handler.DeleteSetting)
	}

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// RequestIDMiddleware propagates X-Request-ID into the request context,
// generating one when the client did not send it. The ID is echoed back.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id != "" {
				ctx = core.WithRequestID(ctx, id)
			} else {
				ctx, id = core.EnsureRequestID(ctx)
			}

			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
