package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireCSRF(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		cookie     string
		header     string
		wantStatus int
	}{
		{"get is exempt", http.MethodGet, "", "", http.StatusNoContent},
		{"options is exempt", http.MethodOptions, "", "", http.StatusNoContent},
		{"matching", http.MethodPost, "abc", "abc", http.StatusNoContent},
		{"missing cookie", http.MethodPost, "", "abc", http.StatusForbidden},
		{"missing header", http.MethodPatch, "abc", "", http.StatusForbidden},
		{"mismatch", http.MethodDelete, "abc", "abd", http.StatusForbidden},
		{"both empty", http.MethodPut, "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireCSRF()(func(c echo.Context) error {
				return c.NoContent(http.StatusNoContent)
			})(c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"CSRF token mismatch"}`, rec.Body.String())
			}
		})
	}
}
