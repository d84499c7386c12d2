package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/work-location-scheduler/internal/model"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

// AccessCookie is the cookie that carries the access token for browser
// clients.
const AccessCookie = "access_token"

// userKey is the echo context key holding the resolved model.User.
const userKey = "user"

var (
	// ErrUnauthenticated covers a missing credential and every token decode
	// failure.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrUserNotFound means the token was valid but its subject no longer
	// exists.
	ErrUserNotFound = errors.New("user not found")
)

// CredentialSource extracts a raw token from a request. ok is false when
// the source has nothing to offer, letting the next source try.
type CredentialSource func(r *http.Request) (token string, ok bool)

// BearerHeader reads "Authorization: Bearer <token>".
func BearerHeader() CredentialSource {
	return func(r *http.Request) (string, bool) {
		scheme, token, found := strings.Cut(r.Header.Get(echo.HeaderAuthorization), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
}

// CookieCredential reads the token from the named cookie.
func CookieCredential(name string) CredentialSource {
	return func(r *http.Request) (string, bool) {
		ck, err := r.Cookie(name)
		if err != nil || ck.Value == "" {
			return "", false
		}
		return ck.Value, true
	}
}

// UserLookup is the part of the user store the resolver needs.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SessionResolver turns a request into the authenticated user. It holds no
// mutable state and is safe for concurrent use.
type SessionResolver struct {
	signer  *utils.TokenSigner
	users   UserLookup
	sources []CredentialSource
}

// NewSessionResolver builds a resolver that tries sources in order. With no
// sources it uses the bearer header and then the access token cookie.
func NewSessionResolver(signer *utils.TokenSigner, users UserLookup, sources ...CredentialSource) *SessionResolver {
	if len(sources) == 0 {
		sources = []CredentialSource{BearerHeader(), CookieCredential(AccessCookie)}
	}
	return &SessionResolver{signer: signer, users: users, sources: sources}
}

// Resolve returns the user behind the first credential found.
func (s *SessionResolver) Resolve(r *http.Request) (model.User, error) {
	raw, ok := s.credential(r)
	if !ok {
		return model.User{}, ErrUnauthenticated
	}
	id, err := s.signer.DecodeAs(raw, utils.TokenAccess)
	if err != nil {
		return model.User{}, ErrUnauthenticated
	}
	u, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("load user %d: %w", id, err)
	}
	return u, nil
}

func (s *SessionResolver) credential(r *http.Request) (string, bool) {
	for _, src := range s.sources {
		if tok, ok := src(r); ok {
			return tok, true
		}
	}
	return "", false
}

// RequireSession rejects requests without a valid session and stores the
// resolved user for CurrentUser.
func RequireSession(resolver *SessionResolver, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, err := resolver.Resolve(c.Request())
			if err != nil {
				return sessionError(c, logger, err)
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

func sessionError(c echo.Context, logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
	case errors.Is(err, ErrUserNotFound):
		logger.Warn("token subject not found", slog.String("path", c.Path()))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	default:
		logger.Error("resolve session", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
}

// CurrentUser returns the user stored by RequireSession.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}
