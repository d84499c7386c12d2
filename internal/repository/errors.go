// Package repository holds the SQL data access layer. The sentinel errors
// below let handlers map persistence outcomes to HTTP responses without
// inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a required row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists and ErrEmployeeNumberExists report unique-key clashes on
// user creation. Handlers translate them into HTTP 409.
var (
	ErrEmailExists          = errors.New("email already exists")
	ErrEmployeeNumberExists = errors.New("employee number already exists")
)

// ErrConflict is returned when a schedule write keeps colliding with
// concurrent writers after all retries. It should not happen in practice.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isUniqueViolation recognises duplicate-key errors from both MySQL and
// SQLite. MySQL names the violated index, SQLite the table columns, so the
// caller passes every name the constraint is known by; no names matches any
// duplicate-key error.
func isUniqueViolation(err error, names ...string) bool {
	if err == nil {
		return false
	}
	var msg string
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != mysqlDuplicateEntry {
			return false
		}
		msg = myErr.Message
	} else {
		msg = err.Error()
		if !strings.Contains(msg, "UNIQUE constraint failed") {
			return false
		}
	}
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// ErrInvalidMonth is returned for a month filter that is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")
