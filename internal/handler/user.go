package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/work-location-scheduler/internal/config"
	"github.com/iliyamo/work-location-scheduler/internal/middleware"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
)

const maxAllowanceLength = 32

// UserHandler serves user administration and the missing-schedule report.
type UserHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Logger *slog.Logger
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, logger *slog.Logger) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Logger: logger.With(slog.String("component", "users"))}
}

type createUserReq struct {
	EmployeeNumber     string  `json:"employee_number"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	Password           string  `json:"password"`
	CommutingAllowance *string `json:"commuting_allowance"`
}

func (r *createUserReq) validate() string {
	r.EmployeeNumber = strings.TrimSpace(r.EmployeeNumber)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	switch {
	case r.EmployeeNumber == "" || r.Name == "" || r.Email == "" || r.Password == "":
		return "employee_number, name, email and password required"
	case !validEmail(r.Email):
		return "invalid email"
	case utf8.RuneCountInString(r.Password) < minPasswordLength:
		return "password must be at least 8 characters"
	}
	if r.CommutingAllowance != nil {
		a := strings.TrimSpace(*r.CommutingAllowance)
		if a == "" {
			r.CommutingAllowance = nil
		} else if utf8.RuneCountInString(a) > maxAllowanceLength {
			return "commuting_allowance too long"
		} else {
			r.CommutingAllowance = &a
		}
	}
	return ""
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

type allowanceReq struct {
	Allowance string `json:"allowance"`
}

// Create provisions a new account with a default password.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return errorJSON(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, repository.NewUser{
		EmployeeNumber:     req.EmployeeNumber,
		Name:               req.Name,
		Email:              req.Email,
		Password:           req.Password,
		CommutingAllowance: req.CommutingAllowance,
	}, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return errorJSON(c, http.StatusConflict, "email already exists")
	case errors.Is(err, repository.ErrEmployeeNumberExists):
		return errorJSON(c, http.StatusConflict, "employee number already exists")
	case err != nil:
		h.Logger.Error("create user", slog.Any("error", err))
		return internalError(c)
	}
	h.Logger.Info("created user", slog.Uint64("user_id", u.ID), slog.String("name", u.Name))
	return c.JSON(http.StatusCreated, u)
}

// List returns every user.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.Logger.Error("list users", slog.Any("error", err))
		return internalError(c)
	}
	h.Logger.Info("fetched users", slog.Int("count", len(users)))
	return c.JSON(http.StatusOK, users)
}

// UpdateCommutingAllowance sets the allowance status of the user in the path.
func (h *UserHandler) UpdateCommutingAllowance(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}
	var req allowanceReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	allowance := strings.TrimSpace(req.Allowance)
	if allowance == "" || utf8.RuneCountInString(allowance) > maxAllowanceLength {
		return errorJSON(c, http.StatusBadRequest, "invalid allowance")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Users.UpdateCommutingAllowance(ctx, id, allowance); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		h.Logger.Error("update commuting allowance", slog.Uint64("user_id", id), slog.Any("error", err))
		return internalError(c)
	}
	h.Logger.Info("updated commuting allowance", slog.Uint64("user_id", id), slog.String("allowance", allowance))
	return c.JSON(http.StatusOK, echo.Map{"message": "Updated successfully"})
}

// MissingSchedule lists users with no schedule entry in ?year=&month=.
func (h *UserHandler) MissingSchedule(c echo.Context) error {
	year, errY := strconv.Atoi(c.QueryParam("year"))
	month, errM := strconv.Atoi(c.QueryParam("month"))
	if errY != nil || errM != nil || year < 1 || year > 9999 || month < 1 || month > 12 {
		return errorJSON(c, http.StatusBadRequest, "year and month required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.MissingSchedule(ctx, year, time.Month(month))
	if err != nil {
		h.Logger.Error("missing schedule query", slog.Any("error", err))
		return internalError(c)
	}
	h.Logger.Info("users missing schedule",
		slog.Int("year", year), slog.Int("month", month), slog.Int("count", len(users)),
		slog.Bool("machine", middleware.IsMachine(c)))
	return c.JSON(http.StatusOK, users)
}
