package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/work-location-scheduler/internal/model"
)

// maxUpsertAttempts bounds retries after losing an insert race on
// (user_id, work_date).
const maxUpsertAttempts = 3

// ScheduleResult is the outcome of UpsertOrDelete. When Deleted is true
// Schedule is the zero value.
type ScheduleResult struct {
	Deleted  bool
	Schedule model.WorkSchedule
}

// ScheduleRepo provides access to the work_schedules table.
type ScheduleRepo struct{ DB *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{DB: db} }

// UpsertOrDelete sets or clears the location of one (user, date) entry.
//
// A nil or blank location deletes the entry; deleting an entry that does
// not exist still reports Deleted. Otherwise the existing row is updated in
// place or a new row inserted. Each attempt runs in its own transaction;
// when a concurrent writer inserts the same key first, the unique
// constraint rejects our insert and the attempt is retried, which then
// takes the update path.
func (r *ScheduleRepo) UpsertOrDelete(ctx context.Context, userID uint64, workDate model.Date, location *string) (ScheduleResult, error) {
	loc := ""
	if location != nil {
		loc = strings.TrimSpace(*location)
	}
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		res, err := r.upsertOrDeleteTx(ctx, userID, workDate, loc)
		if isUniqueViolation(err, "uq_work_schedules_user_date", "work_schedules.user_id") {
			continue
		}
		return res, err
	}
	return ScheduleResult{}, ErrConflict
}

func (r *ScheduleRepo) upsertOrDeleteTx(ctx context.Context, userID uint64, workDate model.Date, loc string) (res ScheduleResult, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var existingID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM work_schedules WHERE user_id = ? AND work_date = ? LIMIT 1",
		userID, workDate).Scan(&existingID)
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ScheduleResult{}, fmt.Errorf("lookup schedule: %w", err)
	}
	err = nil

	if loc == "" {
		if found {
			if _, err = tx.ExecContext(ctx, "DELETE FROM work_schedules WHERE id = ?", existingID); err != nil {
				return ScheduleResult{}, fmt.Errorf("delete schedule: %w", err)
			}
		}
		return ScheduleResult{Deleted: true}, nil
	}

	if found {
		if _, err = tx.ExecContext(ctx,
			"UPDATE work_schedules SET location = ? WHERE id = ?", loc, existingID); err != nil {
			return ScheduleResult{}, fmt.Errorf("update schedule: %w", err)
		}
		return ScheduleResult{Schedule: model.WorkSchedule{
			ID: existingID, UserID: userID, WorkDate: workDate, Location: loc,
		}}, nil
	}

	var one int
	if err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScheduleResult{}, ErrNotFound
		}
		return ScheduleResult{}, fmt.Errorf("lookup user: %w", err)
	}

	ins, err := tx.ExecContext(ctx,
		"INSERT INTO work_schedules (user_id, work_date, location) VALUES (?, ?, ?)",
		userID, workDate, loc)
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return ScheduleResult{}, fmt.Errorf("last insert id: %w", err)
	}
	return ScheduleResult{Schedule: model.WorkSchedule{
		ID: uint64(id), UserID: userID, WorkDate: workDate, Location: loc,
	}}, nil
}

// Get fetches the entry for (userID, workDate).
func (r *ScheduleRepo) Get(ctx context.Context, userID uint64, workDate model.Date) (model.WorkSchedule, error) {
	var s model.WorkSchedule
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, work_date, location FROM work_schedules WHERE user_id = ? AND work_date = ? LIMIT 1",
		userID, workDate).Scan(&s.ID, &s.UserID, &s.WorkDate, &s.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.WorkSchedule{}, ErrNotFound
		}
		return model.WorkSchedule{}, fmt.Errorf("get schedule: %w", err)
	}
	return s, nil
}

// ListByMonth returns entries whose work date falls in month (YYYY-MM), or
// every entry when month is empty, ordered by (work_date, user_id).
func (r *ScheduleRepo) ListByMonth(ctx context.Context, month string) ([]model.WorkSchedule, error) {
	query := "SELECT id, user_id, work_date, location FROM work_schedules"
	var args []any
	if month != "" {
		year, m, err := model.ParseMonth(month)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMonth, err)
		}
		from, to := model.MonthRange(year, m)
		query += " WHERE work_date >= ? AND work_date < ?"
		args = append(args, from, to)
	}
	query += " ORDER BY work_date, user_id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	out := []model.WorkSchedule{}
	for rows.Next() {
		var s model.WorkSchedule
		if err := rows.Scan(&s.ID, &s.UserID, &s.WorkDate, &s.Location); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}
