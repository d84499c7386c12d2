package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/work-location-scheduler/internal/model"
	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

const userColumns = "id, employee_number, name, email, password_hash, is_default_password, commuting_allowance"

// NewUser carries the fields of an administratively provisioned account.
type NewUser struct {
	EmployeeNumber     string
	Name               string
	Email              string
	Password           string
	CommutingAllowance *string
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the initial password and inserts the user. New accounts
// always start with the default-password flag set.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (model.User, error) {
	email := normalizeEmail(in.Email)
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (employee_number, name, email, password_hash, is_default_password, commuting_allowance)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.EmployeeNumber), strings.TrimSpace(in.Name), email, hash, true, in.CommutingAllowance)
	if err != nil {
		switch {
		case isUniqueViolation(err, "uq_users_email", "users.email"):
			return model.User{}, ErrEmailExists
		case isUniqueViolation(err, "uq_users_employee_number", "users.employee_number"):
			return model.User{}, ErrEmployeeNumberExists
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, uint64(id))
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return scanUsers(rows)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", normalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return scanUser(row)
}

// UpdatePassword stores a new hash and clears the default-password flag.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, newPassword string, cost int) error {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return r.updateOne(ctx, id,
		"UPDATE users SET password_hash = ?, is_default_password = ?, updated_at = ? WHERE id = ?",
		hash, false, now(), id)
}

// UpdateCommutingAllowance sets the allowance status of one user.
func (r *UserRepo) UpdateCommutingAllowance(ctx context.Context, id uint64, allowance string) (model.User, error) {
	err := r.updateOne(ctx, id,
		"UPDATE users SET commuting_allowance = ?, updated_at = ? WHERE id = ?",
		allowance, now(), id)
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// MissingSchedule returns every user without a work_schedules row in the
// given month. It is a single anti-join, not a per-user scan.
func (r *UserRepo) MissingSchedule(ctx context.Context, year int, month time.Month) ([]model.User, error) {
	from, to := model.MonthRange(year, month)
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+prefixed("u.", userColumns)+`
		 FROM users u
		 WHERE NOT EXISTS (
		     SELECT 1 FROM work_schedules ws
		     WHERE ws.user_id = u.id AND ws.work_date >= ? AND ws.work_date < ?
		 )
		 ORDER BY u.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("missing schedule query: %w", err)
	}
	return scanUsers(rows)
}

// Count returns the number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// updateOne runs a single-row UPDATE in a transaction and reports
// ErrNotFound when the row does not exist.
func (r *UserRepo) updateOne(ctx context.Context, id uint64, query string, args ...any) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u         model.User
		allowance sql.NullString
	)
	err := row.Scan(&u.ID, &u.EmployeeNumber, &u.Name, &u.Email, &u.PasswordHash, &u.IsDefaultPassword, &allowance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	if allowance.Valid {
		u.CommutingAllowance = &allowance.String
	}
	return u, nil
}

func scanUsers(rows *sql.Rows) ([]model.User, error) {
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
