// Package httpclient builds the pooled HTTP clients shared by all providers.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// ClientConfig holds transport settings for outbound vendor calls
type ClientConfig struct {
	// Timeout bounds a whole non-streaming request. Streaming calls rely on the
	// request context instead, so Timeout is not applied to them.
	Timeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers, streaming included
	ResponseHeaderTimeout time.Duration

	DialTimeout         time.Duration
	KeepAlive           time.Duration
	TLSHandshakeTimeout time.Duration
	IdleConnTimeout     time.Duration
	MaxIdleConnsPerHost int
}

// envDuration reads a duration from an environment variable. Plain integers
// are seconds; Go duration strings ("90s", "2m") are also accepted.
func envDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return fallback
}

// DefaultConfig returns defaults suitable for LLM APIs, where completions can
// take minutes. AIHUB_HTTP_TIMEOUT and AIHUB_HTTP_RESPONSE_HEADER_TIMEOUT override them.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:               envDuration("AIHUB_HTTP_TIMEOUT", 600*time.Second),
		ResponseHeaderTimeout: envDuration("AIHUB_HTTP_RESPONSE_HEADER_TIMEOUT", 600*time.Second),
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   32,
	}
}

// NewTransport creates the shared transport. Compression is negotiated by
// llmclient, so the transport's implicit gzip handling is disabled.
func NewTransport(cfg ClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost * 4,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true,
		ExpectContinueTimeout: time.Second,
	}
}

// Clients pairs a bounded client for unary calls with an unbounded one for streams.
type Clients struct {
	Unary  *http.Client
	Stream *http.Client
}

// New creates both clients over one shared transport.
func New(cfg ClientConfig) Clients {
	transport := NewTransport(cfg)
	return Clients{
		Unary:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
		Stream: &http.Client{Transport: transport},
	}
}

// FromSeconds returns DefaultConfig with the given timeouts, in seconds,
// applied where positive.
func FromSeconds(timeout, responseHeaderTimeout int) ClientConfig {
	cfg := DefaultConfig()
	if timeout > 0 {
		cfg.Timeout = time.Duration(timeout) * time.Second
	}
	if responseHeaderTimeout > 0 {
		cfg.ResponseHeaderTimeout = time.Duration(responseHeaderTimeout) * time.Second
	}
	return cfg
}

// NewDefault creates clients with DefaultConfig.
func NewDefault() Clients {
	return New(DefaultConfig())
}

// Wrap uses a caller-supplied client for both unary and streaming calls.
// A nil client falls back to http.DefaultClient.
func Wrap(c *http.Client) Clients {
	if c == nil {
		c = http.DefaultClient
	}
	return Clients{Unary: c, Stream: c}
}
