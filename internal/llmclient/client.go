// Package llmclient provides the HTTP client every vendor provider builds on:
// JSON request marshaling, provider header injection, status classification
// into core errors, response decompression and metrics hooks.
//
// It performs exactly one attempt per call. Retry policy belongs to callers.
package llmclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"aihub/internal/core"
	"aihub/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider in errors and metrics
	ProviderName string

	// BaseURL is the API base URL, without trailing slash
	BaseURL string

	// Hooks observe every outbound request
	Hooks Hooks
}

// DefaultConfig returns a Config with no hooks
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
	}
}

// HeaderSetter sets provider-specific headers (usually auth) on a request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	clients      httpclient.Clients
	config       Config
	headerSetter HeaderSetter
}

// New creates a client over the shared default transport
func New(config Config, headerSetter HeaderSetter) *Client {
	return &Client{
		clients:      defaultClients(),
		config:       config,
		headerSetter: headerSetter,
	}
}

// NewWithHTTPClient creates a client that uses httpClient for every call
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	return &Client{
		clients:      httpclient.Wrap(httpClient),
		config:       config,
		headerSetter: headerSetter,
	}
}

// NewWithClients creates a client over caller-built unary and streaming clients
func NewWithClients(clients httpclient.Clients, config Config, headerSetter HeaderSetter) *Client {
	return &Client{
		clients:      clients,
		config:       config,
		headerSetter: headerSetter,
	}
}

// SetBaseURL updates the base URL
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = strings.TrimRight(url, "/")
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// ProviderName returns the provider name used in errors
func (c *Client) ProviderName() string {
	return c.config.ProviderName
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     interface{} // JSON marshaled when not nil
	// Headers are applied after the HeaderSetter and override it
	Headers map[string]string
}

// Response represents a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes a request and unmarshals a 2xx JSON body into result
func (c *Client) Do(ctx context.Context, req Request, result interface{}) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewMalformedResponseError(c.config.ProviderName, resp.StatusCode, resp.Body, err)
		}
	}
	return nil
}

// DoRaw executes a request and returns the raw body of a 2xx response.
// Non-2xx statuses become provider errors carrying the raw body; network
// failures become transport errors.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.Probe(ctx, req)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, core.NewProviderError(c.config.ProviderName, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// Probe executes a request and returns the response whatever its status.
// Only transport failures are reported as errors.
func (c *Client) Probe(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, finish := c.observe(ctx, req, false)
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		finish(status, err)
	}()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.clients.Unary.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError(c.config.ProviderName, err)
	}

	body, err := decodeBody(httpResp)
	if err != nil {
		_ = httpResp.Body.Close()
		return nil, core.NewTransportError(c.config.ProviderName, err)
	}
	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, core.NewTransportError(c.config.ProviderName, fmt.Errorf("failed to read response: %w", err))
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// DoStream executes a streaming request and returns the decoded body of a
// 2xx response. The caller must close it.
func (c *Client) DoStream(ctx context.Context, req Request) (_ io.ReadCloser, err error) {
	ctx, finish := c.observe(ctx, req, true)
	status := 0
	defer func() {
		finish(status, err)
	}()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.clients.Stream.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError(c.config.ProviderName, err)
	}
	status = httpResp.StatusCode

	body, err := decodeBody(httpResp)
	if err != nil {
		_ = httpResp.Body.Close()
		return nil, core.NewTransportError(c.config.ProviderName, err)
	}

	if !isSuccess(httpResp.StatusCode) {
		respBody, readErr := io.ReadAll(body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = body.Close()
		return nil, core.NewProviderError(c.config.ProviderName, httpResp.StatusCode, respBody)
	}

	return body, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept-Encoding", "br, gzip")

	if requestID := core.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// observe runs the start hook and returns a function that runs the end hook
func (c *Client) observe(ctx context.Context, req Request, stream bool) (context.Context, func(int, error)) {
	info := RequestInfo{
		Provider: c.config.ProviderName,
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Stream:   stream,
	}
	if c.config.Hooks.OnRequestStart != nil {
		ctx = c.config.Hooks.OnRequestStart(ctx, info)
	}
	start := time.Now()
	return ctx, func(status int, err error) {
		if c.config.Hooks.OnRequestEnd == nil {
			return
		}
		c.config.Hooks.OnRequestEnd(ctx, ResponseInfo{
			RequestInfo: info,
			StatusCode:  status,
			Duration:    time.Since(start),
			Err:         err,
		})
	}
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// decodeBody undoes the Content-Encoding negotiated in buildRequest
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "br":
		return &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		return &decodedBody{Reader: zr, raw: resp.Body, decoder: zr}, nil
	default:
		return resp.Body, nil
	}
}

type decodedBody struct {
	io.Reader
	raw     io.Closer
	decoder io.Closer
}

func (b *decodedBody) Close() error {
	if b.decoder != nil {
		_ = b.decoder.Close()
	}
	return b.raw.Close()
}
