package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/work-location-scheduler/internal/config"
	"github.com/iliyamo/work-location-scheduler/internal/middleware"
	"github.com/iliyamo/work-location-scheduler/internal/model"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

// minPasswordLength applies to passwords chosen through the API.
const minPasswordLength = 8

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Signer *utils.TokenSigner
	Logger *slog.Logger
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, signer *utils.TokenSigner, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Signer: signer, Logger: logger.With(slog.String("component", "auth"))}
}

// ----- DTOs -----

// loginReq accepts the OAuth2 password form (username) as well as JSON
// bodies using either username or email.
type loginReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r loginReq) identifier() string {
	if s := strings.TrimSpace(r.Email); s != "" {
		return s
	}
	return strings.TrimSpace(r.Username)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" form:"old_password"`
	NewPassword string `json:"new_password" form:"new_password"`
}

type loginResp struct {
	Message           string `json:"message"`
	CSRFToken         string `json:"csrf_token"`
	IsDefaultPassword bool   `json:"is_default_password"`
}

type machineLoginResp struct {
	Message           string `json:"message"`
	AccessToken       string `json:"access_token"`
	RefreshToken      string `json:"refresh_token"`
	CSRFToken         string `json:"csrf_token"`
	IsDefaultPassword bool   `json:"is_default_password"`
}

type sessionTokens struct {
	access  utils.IssuedToken
	refresh utils.IssuedToken
	csrf    string
}

// Login verifies credentials and sets the access, refresh and csrf cookies.
// The csrf token is also returned in the body for the frontend to echo.
func (h *AuthHandler) Login(c echo.Context) error {
	u, tokens, status, msg := h.authenticate(c, "login")
	if status != 0 {
		return errorJSON(c, status, msg)
	}
	c.SetCookie(h.accessCookie(tokens.access.Token))
	c.SetCookie(h.refreshCookie(tokens.refresh.Token))
	c.SetCookie(h.csrfCookie(tokens.csrf))
	h.Logger.Info("login successful", slog.Uint64("user_id", u.ID), slog.String("email", u.Email))
	return c.JSON(http.StatusOK, loginResp{
		Message:           "Login successful",
		CSRFToken:         tokens.csrf,
		IsDefaultPassword: u.IsDefaultPassword,
	})
}

// MachineLogin is the login variant for callers behind the API key. Tokens
// come back in the body and no cookies are set.
func (h *AuthHandler) MachineLogin(c echo.Context) error {
	u, tokens, status, msg := h.authenticate(c, "machine login")
	if status != 0 {
		return errorJSON(c, status, msg)
	}
	h.Logger.Info("machine login successful", slog.Uint64("user_id", u.ID), slog.String("email", u.Email))
	return c.JSON(http.StatusOK, machineLoginResp{
		Message:           "Login successful",
		AccessToken:       tokens.access.Token,
		RefreshToken:      tokens.refresh.Token,
		CSRFToken:         tokens.csrf,
		IsDefaultPassword: u.IsDefaultPassword,
	})
}

// authenticate binds and checks credentials and issues a token set. A
// non-zero status means the request failed with msg.
func (h *AuthHandler) authenticate(c echo.Context, kind string) (model.User, sessionTokens, int, string) {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return model.User{}, sessionTokens{}, http.StatusBadRequest, "invalid body"
	}
	ident := req.identifier()
	if ident == "" || req.Password == "" {
		return model.User{}, sessionTokens{}, http.StatusBadRequest, "username and password required"
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, ident)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.Logger.Error(kind+": load user", slog.Any("error", err))
		return model.User{}, sessionTokens{}, http.StatusInternalServerError, "Internal server error"
	}
	// An unknown email and a wrong password are indistinguishable to the caller.
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.Logger.Warn(kind+" failed", slog.String("email", ident), slog.String("remote_ip", c.RealIP()))
		return model.User{}, sessionTokens{}, http.StatusUnauthorized, "Invalid email or password"
	}

	tokens, err := h.issueSession(u.ID)
	if err != nil {
		h.Logger.Error(kind+": issue tokens", slog.Uint64("user_id", u.ID), slog.Any("error", err))
		return model.User{}, sessionTokens{}, http.StatusInternalServerError, "Internal server error"
	}
	return u, tokens, 0, ""
}

func (h *AuthHandler) issueSession(userID uint64) (sessionTokens, error) {
	access, err := h.Signer.Issue(userID, utils.TokenAccess, h.Cfg.AccessTTL())
	if err != nil {
		return sessionTokens{}, err
	}
	refresh, err := h.Signer.Issue(userID, utils.TokenRefresh, h.Cfg.RefreshTTL())
	if err != nil {
		return sessionTokens{}, err
	}
	csrf, err := utils.NewCSRFToken()
	if err != nil {
		return sessionTokens{}, err
	}
	return sessionTokens{access: access, refresh: refresh, csrf: csrf}, nil
}

// Refresh exchanges a valid refresh token, from the cookie or the body, for
// a new access token and csrf token. The refresh token itself is kept.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, fromBody := "", false
	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		raw = ck.Value
	} else {
		var req refreshReq
		_ = c.Bind(&req)
		raw, fromBody = strings.TrimSpace(req.RefreshToken), true
	}
	if raw == "" {
		return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
	}
	id, err := h.Signer.DecodeAs(raw, utils.TokenRefresh)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
		}
		h.Logger.Error("refresh: load user", slog.Uint64("user_id", id), slog.Any("error", err))
		return internalError(c)
	}

	access, err := h.Signer.Issue(u.ID, utils.TokenAccess, h.Cfg.AccessTTL())
	if err != nil {
		return internalError(c)
	}
	csrf, err := utils.NewCSRFToken()
	if err != nil {
		return internalError(c)
	}
	c.SetCookie(h.accessCookie(access.Token))
	c.SetCookie(h.csrfCookie(csrf))

	resp := echo.Map{"message": "Token refreshed", "csrf_token": csrf}
	if fromBody {
		resp["access_token"] = access.Token
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout expires every session cookie. Issued tokens stay valid until they
// expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.expiredCookie(middleware.AccessCookie, true))
	c.SetCookie(h.expiredCookie(RefreshCookie, true))
	c.SetCookie(h.expiredCookie(middleware.CSRFCookie, false))
	h.Logger.Info("logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// ChangePassword verifies the current password and stores the new one,
// clearing the default-password flag.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return errorJSON(c, http.StatusBadRequest, "old_password and new_password required")
	}
	if utf8.RuneCountInString(req.NewPassword) < minPasswordLength {
		return errorJSON(c, http.StatusBadRequest, "new_password must be at least 8 characters")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		h.Logger.Warn("password change rejected: wrong old password", slog.Uint64("user_id", u.ID))
		return errorJSON(c, http.StatusBadRequest, "Old password is incorrect")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		h.Logger.Error("update password", slog.Uint64("user_id", u.ID), slog.Any("error", err))
		return internalError(c)
	}
	h.Logger.Info("password changed", slog.Uint64("user_id", u.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

// Me returns the caller's own account summary.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":                  u.ID,
		"email":               u.Email,
		"is_default_password": u.IsDefaultPassword,
	})
}
