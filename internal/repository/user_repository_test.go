package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/work-location-scheduler/internal/model"
	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

func TestUserRepo_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))

	allowance := model.AllowanceRequested
	u, err := repo.Create(ctx, NewUser{
		EmployeeNumber:     " 1001 ",
		Name:               "Sato",
		Email:              "  Sato@Example.COM ",
		Password:           "secret-1",
		CommutingAllowance: &allowance,
	}, testCost)
	require.NoError(t, err)

	assert.NotZero(t, u.ID)
	assert.Equal(t, "1001", u.EmployeeNumber)
	assert.Equal(t, "sato@example.com", u.Email)
	assert.True(t, u.IsDefaultPassword)
	require.NotNil(t, u.CommutingAllowance)
	assert.Equal(t, model.AllowanceRequested, *u.CommutingAllowance)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "secret-1"))
}

func TestUserRepo_Create_Duplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))
	createTestUser(t, repo, "1001", "a@example.com")

	tests := []struct {
		name    string
		in      NewUser
		wantErr error
	}{
		{
			name:    "duplicate email",
			in:      NewUser{EmployeeNumber: "2002", Name: "b", Email: "A@example.com", Password: "x"},
			wantErr: ErrEmailExists,
		},
		{
			name:    "duplicate employee number",
			in:      NewUser{EmployeeNumber: "1001", Name: "c", Email: "c@example.com", Password: "x"},
			wantErr: ErrEmployeeNumberExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.in, testCost)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))
	id := createTestUser(t, repo, "1001", "a@example.com")

	u, err := repo.GetByEmail(ctx, " A@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))
	id := createTestUser(t, repo, "1001", "a@example.com")

	require.NoError(t, repo.UpdatePassword(ctx, id, "changed-pass", testCost))

	u, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.IsDefaultPassword)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "changed-pass"))
	assert.False(t, utils.VerifyPassword(u.PasswordHash, "initial-pass"))

	err = repo.UpdatePassword(ctx, 999, "whatever", testCost)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_UpdateCommutingAllowance(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))
	id := createTestUser(t, repo, "1001", "a@example.com")

	u, err := repo.UpdateCommutingAllowance(ctx, id, model.AllowanceNotNeeded)
	require.NoError(t, err)
	require.NotNil(t, u.CommutingAllowance)
	assert.Equal(t, model.AllowanceNotNeeded, *u.CommutingAllowance)

	_, err = repo.UpdateCommutingAllowance(ctx, 999, model.AllowanceSuspended)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUserRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	first := createTestUser(t, repo, "1001", "a@example.com")
	second := createTestUser(t, repo, "1002", "b@example.com")

	users, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, first, users[0].ID)
	assert.Equal(t, second, users[1].ID)
}

func TestUserRepo_MissingSchedule(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepo(db)
	schedules := NewScheduleRepo(db)

	u1 := createTestUser(t, users, "1001", "a@example.com")
	u2 := createTestUser(t, users, "1002", "b@example.com")
	u3 := createTestUser(t, users, "1003", "c@example.com")

	loc := "HQ"
	_, err := schedules.UpsertOrDelete(ctx, u1, model.NewDate(time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)), &loc)
	require.NoError(t, err)
	// Entries on the neighbouring months' edges must not count for May.
	_, err = schedules.UpsertOrDelete(ctx, u2, model.NewDate(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)), &loc)
	require.NoError(t, err)
	_, err = schedules.UpsertOrDelete(ctx, u3, model.NewDate(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)), &loc)
	require.NoError(t, err)

	missing, err := users.MissingSchedule(ctx, 2025, time.May)
	require.NoError(t, err)

	ids := make([]uint64, 0, len(missing))
	for _, u := range missing {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []uint64{u2, u3}, ids)

	missing, err = users.MissingSchedule(ctx, 2025, time.June)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, u1, missing[0].ID)
	assert.Equal(t, u2, missing[1].ID)
}

func TestSeedDemoUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(setupTestDB(t))
	logger := testLogger()

	n, err := SeedDemoUsers(ctx, repo, testCost, logger)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = SeedDemoUsers(ctx, repo, testCost, logger)
	require.NoError(t, err)
	assert.Zero(t, n)

	u, err := repo.GetByEmail(ctx, "sato@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsDefaultPassword)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, DemoPassword))
}
