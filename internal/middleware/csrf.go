package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

// CSRF double-submit names shared with the frontend.
const (
	CSRFCookie = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

// RequireCSRF compares the csrf_token cookie with the X-CSRF-Token header on
// state-changing requests. GET, HEAD and OPTIONS pass through.
func RequireCSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			var cookieVal string
			if ck, err := c.Cookie(CSRFCookie); err == nil {
				cookieVal = ck.Value
			}
			if err := utils.VerifyCSRF(cookieVal, c.Request().Header.Get(CSRFHeader)); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "CSRF token mismatch"})
			}
			return next(c)
		}
	}
}
