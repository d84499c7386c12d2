package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/work-location-scheduler/internal/database"
)

const testCost = bcrypt.MinCost

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, database.DialectSQLite))

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestUser(t *testing.T, repo *UserRepo, number, email string) uint64 {
	t.Helper()
	u, err := repo.Create(context.Background(), NewUser{
		EmployeeNumber: number,
		Name:           "user " + number,
		Email:          email,
		Password:       "initial-pass",
	}, testCost)
	require.NoError(t, err)
	return u.ID
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
