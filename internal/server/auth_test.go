package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authBody(msg string) string {
	return `{"error":{"type":"authentication_error","message":"` + msg + `"}}`
}

func TestAuthMiddleware(t *testing.T) {
	const key = "k-42"
	tests := []struct {
		name   string
		key    string
		path   string
		header string
		status int
		denied string
	}{
		{name: "auth disabled", path: "/v1/providers", status: http.StatusOK},
		{name: "matching key", key: key, path: "/v1/providers", header: "Bearer " + key, status: http.StatusOK},
		{name: "public path", key: key, path: "/health", status: http.StatusOK},
		{name: "no header", key: key, path: "/v1/providers", status: http.StatusUnauthorized, denied: "missing authorization header"},
		{name: "not bearer", key: key, path: "/v1/providers", header: key, status: http.StatusUnauthorized,
			denied: "invalid authorization header format, expected 'Bearer <token>'"},
		{name: "wrong key", key: key, path: "/v1/providers", header: "Bearer nope", status: http.StatusUnauthorized, denied: "invalid master key"},
		{name: "empty token", key: key, path: "/v1/providers", header: "Bearer ", status: http.StatusUnauthorized, denied: "invalid master key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
			mw := AuthMiddleware(tt.key, []string{"/health"})(ok)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			// Rejections are written to the response, not returned
			require.NoError(t, mw(echo.New().NewContext(req, rec)))
			require.Equal(t, tt.status, rec.Code)
			if tt.denied == "" {
				assert.Equal(t, "ok", rec.Body.String())
				return
			}
			assert.JSONEq(t, authBody(tt.denied), rec.Body.String())
		})
	}
}

func TestAuthMiddleware_Routes(t *testing.T) {
	srv := New(newTestHandler(t, nil), &Config{MasterKey: "route-key"})

	assert.Equal(t, http.StatusUnauthorized, doRequest(srv, http.MethodGet, "/v1/providers", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/health", "").Code, "health stays public")

	req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer route-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	open := New(newTestHandler(t, nil), &Config{})
	assert.Equal(t, http.StatusOK, doRequest(open, http.MethodGet, "/v1/providers", "").Code)
}
