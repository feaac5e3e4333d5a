// Package observability exports Prometheus metrics for outbound vendor
// requests and streamed completions.
package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aihub/internal/core"
	"aihub/internal/llmclient"
)

// Stream outcomes recorded by WrapStream.
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
	OutcomeAbandoned = "abandoned"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	deltas   *prometheus.CounterVec
	streams  *prometheus.CounterVec
	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors with reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aihub_provider_requests_total",
			Help: "Outbound vendor requests by provider, endpoint and status.",
		}, []string{"provider", "endpoint", "status"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aihub_provider_request_duration_seconds",
			Help:    "Time until the vendor returned response headers.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "endpoint"}),

		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aihub_provider_requests_in_flight",
			Help: "Outbound vendor requests awaiting response headers.",
		}, []string{"provider"}),

		deltas: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aihub_stream_deltas_total",
			Help: "Content deltas delivered to stream consumers.",
		}, []string{"provider"}),

		streams: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aihub_streams_total",
			Help: "Streamed completions by outcome.",
		}, []string{"provider", "outcome"}),

		gatherer: reg,
	}
}

// Hooks returns llmclient hooks that record request counts and latency.
func (m *Metrics) Hooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestStart: func(ctx context.Context, info llmclient.RequestInfo) context.Context {
			m.inFlight.WithLabelValues(info.Provider).Inc()
			return ctx
		},
		OnRequestEnd: func(_ context.Context, info llmclient.ResponseInfo) {
			m.inFlight.WithLabelValues(info.Provider).Dec()
			m.requests.WithLabelValues(info.Provider, info.Endpoint, statusLabel(info)).Inc()
			m.duration.WithLabelValues(info.Provider, info.Endpoint).Observe(info.Duration.Seconds())
		},
	}
}

// WrapStream returns a stream that forwards every element of s and records
// the delta count and outcome under provider.
func (m *Metrics) WrapStream(provider string, s *core.ChatStream) *core.ChatStream {
	return core.NewChatStream(func(yield func(core.StreamDelta, error) bool) {
		outcome := OutcomeAbandoned
		defer func() {
			m.streams.WithLabelValues(provider, outcome).Inc()
		}()

		for delta, err := range s.Iter() {
			switch {
			case err != nil:
				outcome = OutcomeError
			case delta.Done:
				outcome = OutcomeCompleted
			case delta.Delta != "":
				m.deltas.WithLabelValues(provider).Inc()
			}
			if !yield(delta, err) {
				return
			}
		}
	})
}

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func statusLabel(info llmclient.ResponseInfo) string {
	if info.StatusCode == 0 {
		return "error"
	}
	return strconv.Itoa(info.StatusCode)
}
