package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// Migration dialects; each has its own directory under migrations/.
const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite3"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

// goose keeps dialect and base FS in package globals.
var migrateMu sync.Mutex

// Migrate applies all pending migrations for dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	dir := "migrations/mysql"
	if dialect == DialectSQLite {
		dir = "migrations/sqlite"
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
