package server

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
)

const bearerPrefix = "Bearer "

// AuthMiddleware rejects requests that do not carry the master key as a
// bearer token. An empty masterKey disables the check, and paths listed in
// public are never checked.
func AuthMiddleware(masterKey string, public []string) echo.MiddlewareFunc {
	want := []byte(masterKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(want) == 0 || slices.Contains(public, c.Request().URL.Path) {
				return next(c)
			}
			token, msg := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if msg != "" {
				return unauthorized(c, msg)
			}
			if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
				return unauthorized(c, "invalid master key")
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header value, or
// returns the message describing why it could not.
func bearerToken(header string) (token, msg string) {
	switch {
	case header == "":
		return "", "missing authorization header"
	case !strings.HasPrefix(header, bearerPrefix):
		return "", "invalid authorization header format, expected 'Bearer <token>'"
	}
	return header[len(bearerPrefix):], ""
}

func unauthorized(c echo.Context, message string) error {
	body := map[string]any{"type": "authentication_error", "message": message}
	return c.JSON(http.StatusUnauthorized, map[string]any{"error": body})
}
