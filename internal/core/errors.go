package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the class of error that occurred
type ErrorType string

const (
	// ErrorTypeTransport indicates the network call never reached the vendor
	ErrorTypeTransport ErrorType = "transport_error"
	// ErrorTypeProvider indicates the vendor answered with a non-2xx status
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeConfiguration indicates a programming or configuration mistake, such as an unknown provider type
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// ErrorTypeInvalidRequest indicates the caller's request was rejected before any I/O
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
)

// GatewayError is the error type returned by every provider operation
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	// Body is the raw vendor response body for provider errors
	Body []byte `json:"-"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	msg := e.Message
	if e.Type == ErrorTypeProvider && e.StatusCode != 0 {
		msg = fmt.Sprintf("%d - %s", e.StatusCode, e.Message)
	}
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, msg)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the status code a server should answer with for this error
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeProvider:
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case ErrorTypeTransport:
		return http.StatusBadGateway
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeConfiguration:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *GatewayError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewTransportError creates an error for a network call that could not complete
func NewTransportError(provider string, err error) *GatewayError {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &GatewayError{
		Type:     ErrorTypeTransport,
		Message:  msg,
		Provider: provider,
		Err:      err,
	}
}

// NewProviderError creates an error for a non-2xx vendor response.
// The raw body is kept verbatim; the message prefers the vendor's JSON error message when present.
func NewProviderError(provider string, statusCode int, body []byte) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    providerMessage(body),
		StatusCode: statusCode,
		Provider:   provider,
		Body:       body,
	}
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewUnknownProviderError is returned by factories for unrecognized type tags
func NewUnknownProviderError(providerType string) *GatewayError {
	return NewConfigurationError("unknown provider type: " + providerType)
}

// NewInvalidRequestError creates a new invalid request error
func NewInvalidRequestError(message string, err error) *GatewayError {
	return &GatewayError{
		Type:    ErrorTypeInvalidRequest,
		Message: message,
		Err:     err,
	}
}

// NewMalformedResponseError is a provider error for a 2xx response whose body could not be decoded
func NewMalformedResponseError(provider string, statusCode int, body []byte, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    "malformed response body",
		StatusCode: statusCode,
		Provider:   provider,
		Body:       body,
		Err:        err,
	}
}

func providerMessage(body []byte) string {
	var errorResponse struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error.Message != "" {
		return errorResponse.Error.Message
	}
	if len(body) == 0 {
		return "empty response body"
	}
	return string(body)
}

func isType(err error, t ErrorType) bool {
	var gatewayErr *GatewayError
	return errors.As(err, &gatewayErr) && gatewayErr.Type == t
}

// IsTransportError reports whether err is a transport error
func IsTransportError(err error) bool { return isType(err, ErrorTypeTransport) }

// IsProviderError reports whether err is a vendor status error
func IsProviderError(err error) bool { return isType(err, ErrorTypeProvider) }

// IsConfigurationError reports whether err is a configuration error
func IsConfigurationError(err error) bool { return isType(err, ErrorTypeConfiguration) }

// IsInvalidRequestError reports whether err is an invalid request error
func IsInvalidRequestError(err error) bool { return isType(err, ErrorTypeInvalidRequest) }
