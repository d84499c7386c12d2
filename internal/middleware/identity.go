package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the id of the session user as a string for keys and
// log attributes, "machine" for API key callers, and "anon" otherwise.
func currentUserID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return strconv.FormatUint(u.ID, 10)
	}
	if IsMachine(c) {
		return "machine"
	}
	return "anon"
}
