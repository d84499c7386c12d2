package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/work-location-scheduler/internal/model"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
)

const maxLocationLength = 64

// ScheduleHandler serves the work-location schedule endpoints.
type ScheduleHandler struct {
	Schedules *repository.ScheduleRepo
	Logger    *slog.Logger
}

func NewScheduleHandler(schedules *repository.ScheduleRepo, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{Schedules: schedules, Logger: logger.With(slog.String("component", "schedules"))}
}

// scheduleReq sets or clears one day. A null or blank location clears it.
type scheduleReq struct {
	UserID   uint64     `json:"user_id"`
	WorkDate model.Date `json:"work_date"`
	Location *string    `json:"location"`
}

// Upsert creates, updates or deletes the entry for (user_id, work_date).
func (h *ScheduleHandler) Upsert(c echo.Context) error {
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body: work_date must be YYYY-MM-DD")
	}
	if req.UserID == 0 || req.WorkDate.IsZero() {
		return errorJSON(c, http.StatusBadRequest, "user_id and work_date required")
	}
	if req.Location != nil && utf8.RuneCountInString(*req.Location) > maxLocationLength {
		return errorJSON(c, http.StatusBadRequest, "location too long")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Schedules.UpsertOrDelete(ctx, req.UserID, req.WorkDate, req.Location)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		h.Logger.Error("upsert schedule",
			slog.Uint64("user_id", req.UserID), slog.String("work_date", req.WorkDate.String()), slog.Any("error", err))
		return internalError(c)
	}
	if res.Deleted {
		h.Logger.Info("deleted schedule", slog.Uint64("user_id", req.UserID), slog.String("work_date", req.WorkDate.String()))
		return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
	}
	h.Logger.Info("saved schedule",
		slog.Uint64("id", res.Schedule.ID), slog.Uint64("user_id", req.UserID),
		slog.String("work_date", req.WorkDate.String()), slog.String("location", res.Schedule.Location))
	return c.JSON(http.StatusOK, res.Schedule)
}

// List returns schedule entries, optionally restricted to ?month=YYYY-MM.
func (h *ScheduleHandler) List(c echo.Context) error {
	month := c.QueryParam("month")

	ctx, cancel := requestContext(c)
	defer cancel()

	rows, err := h.Schedules.ListByMonth(ctx, month)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidMonth) {
			return errorJSON(c, http.StatusBadRequest, "month must be YYYY-MM")
		}
		h.Logger.Error("list schedules", slog.String("month", month), slog.Any("error", err))
		return internalError(c)
	}
	h.Logger.Info("fetched schedules", slog.Int("count", len(rows)), slog.String("month", month))
	return c.JSON(http.StatusOK, rows)
}
