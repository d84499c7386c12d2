package handler

import (
	"net/http"
	"time"

	"github.com/iliyamo/work-location-scheduler/internal/middleware"
)

// RefreshCookie carries the refresh token; it is only read by /auth/refresh.
const RefreshCookie = "refresh_token"

func (h *AuthHandler) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: httpOnly,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) expiredCookie(name string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: httpOnly,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) accessCookie(token string) *http.Cookie {
	return h.cookie(middleware.AccessCookie, token, h.Cfg.AccessTTL(), true)
}

func (h *AuthHandler) refreshCookie(token string) *http.Cookie {
	return h.cookie(RefreshCookie, token, h.Cfg.RefreshTTL(), true)
}

func (h *AuthHandler) csrfCookie(token string) *http.Cookie {
	return h.cookie(middleware.CSRFCookie, token, h.Cfg.CSRFTTL(), false)
}
