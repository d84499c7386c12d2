package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedHosts rejects requests whose Host header is not one of hosts. Port
// suffixes are ignored. An empty list allows every host.
func TrustedHosts(hosts ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = true
		}
	}
	if len(allowed) == 0 {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := c.Request().Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if !allowed[strings.ToLower(host)] {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid host header"})
			}
			return next(c)
		}
	}
}
