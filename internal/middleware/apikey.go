package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKeyHeader carries the shared secret of machine callers.
const APIKeyHeader = "X-API-Key"

// machineKey is set in the echo context when a request was admitted by its
// API key rather than a user session.
const machineKey = "machine"

func validAPIKey(c echo.Context, key string) bool {
	got := c.Request().Header.Get(APIKeyHeader)
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
}

// RequireAPIKey admits only requests carrying the configured machine key.
func RequireAPIKey(key string, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !validAPIKey(c, key) {
				logger.Warn("invalid api key", slog.String("remote_ip", c.RealIP()), slog.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden: invalid API key"})
			}
			c.Set(machineKey, true)
			return next(c)
		}
	}
}

// RequireAPIKeyOrSession admits a request with a valid machine key header
// and otherwise falls back to session authentication. A present but wrong
// key is rejected outright.
func RequireAPIKeyOrSession(key string, resolver *SessionResolver, logger *slog.Logger) echo.MiddlewareFunc {
	apiKey := RequireAPIKey(key, logger)
	session := RequireSession(resolver, logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withKey, withSession := apiKey(next), session(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(APIKeyHeader) != "" {
				return withKey(c)
			}
			return withSession(c)
		}
	}
}

// IsMachine reports whether the request was admitted by API key.
func IsMachine(c echo.Context) bool {
	v, _ := c.Get(machineKey).(bool)
	return v
}
