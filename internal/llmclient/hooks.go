package llmclient

import (
	"context"
	"sync"
	"time"

	"aihub/internal/httpclient"
)

// RequestInfo describes an outbound vendor request
type RequestInfo struct {
	Provider string
	Method   string
	Endpoint string
	Stream   bool
}

// ResponseInfo describes how an outbound request ended. For streams it covers
// the request up to the response headers, not the body.
type ResponseInfo struct {
	RequestInfo
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hooks observe outbound requests. Both fields are optional.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}

// defaultClients shares one transport across every provider in the process
var defaultClients = sync.OnceValue(httpclient.NewDefault)
