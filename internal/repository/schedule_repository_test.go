package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/work-location-scheduler/internal/model"
)

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func strPtr(s string) *string { return &s }

func TestScheduleRepo_UpsertOrDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepo(db)
	repo := NewScheduleRepo(db)
	uid := createTestUser(t, users, "1001", "a@example.com")
	day := mustDate(t, "2025-05-07")

	first, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("A"))
	require.NoError(t, err)
	assert.False(t, first.Deleted)
	assert.Equal(t, "A", first.Schedule.Location)
	assert.Equal(t, day, first.Schedule.WorkDate)

	second, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("A"))
	require.NoError(t, err)
	assert.Equal(t, first.Schedule.ID, second.Schedule.ID)

	rows, err := repo.ListByMonth(ctx, "2025-05")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Location)

	del, err := repo.UpsertOrDelete(ctx, uid, day, strPtr(""))
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	again, err := repo.UpsertOrDelete(ctx, uid, day, nil)
	require.NoError(t, err)
	assert.True(t, again.Deleted)

	_, err = repo.Get(ctx, uid, day)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleRepo_UpsertOrDelete_UpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	uid := createTestUser(t, NewUserRepo(db), "1001", "a@example.com")
	day := mustDate(t, "2025-05-07")

	created, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("Tokyo"))
	require.NoError(t, err)

	updated, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("  Osaka  "))
	require.NoError(t, err)
	assert.Equal(t, created.Schedule.ID, updated.Schedule.ID)
	assert.Equal(t, "Osaka", updated.Schedule.Location)

	got, err := repo.Get(ctx, uid, day)
	require.NoError(t, err)
	assert.Equal(t, "Osaka", got.Location)
}

func TestScheduleRepo_UpsertOrDelete_BlankIsDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	uid := createTestUser(t, NewUserRepo(db), "1001", "a@example.com")
	day := mustDate(t, "2025-05-07")

	_, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("A"))
	require.NoError(t, err)

	res, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("   \t"))
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, model.WorkSchedule{}, res.Schedule)

	rows, err := repo.ListByMonth(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestScheduleRepo_UpsertOrDelete_UnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := NewScheduleRepo(setupTestDB(t))

	_, err := repo.UpsertOrDelete(ctx, 42, mustDate(t, "2025-05-07"), strPtr("A"))
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting for an unknown user is still a no-op.
	res, err := repo.UpsertOrDelete(ctx, 42, mustDate(t, "2025-05-07"), nil)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
}

func TestScheduleRepo_UpsertOrDelete_Concurrent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewScheduleRepo(db)
	uid := createTestUser(t, NewUserRepo(db), "1001", "a@example.com")
	day := mustDate(t, "2025-05-07")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertOrDelete(ctx, uid, day, strPtr("A"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := repo.ListByMonth(ctx, "2025-05")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestScheduleRepo_ListByMonth(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepo(db)
	repo := NewScheduleRepo(db)
	u1 := createTestUser(t, users, "1001", "a@example.com")
	u2 := createTestUser(t, users, "1002", "b@example.com")

	entries := []struct {
		user uint64
		date string
		loc  string
	}{
		{u2, "2025-05-02", "B"},
		{u1, "2025-05-02", "A"},
		{u1, "2025-05-01", "A"},
		{u1, "2025-04-30", "X"},
		{u2, "2025-06-01", "Y"},
	}
	for _, e := range entries {
		_, err := repo.UpsertOrDelete(ctx, e.user, mustDate(t, e.date), strPtr(e.loc))
		require.NoError(t, err)
	}

	rows, err := repo.ListByMonth(ctx, "2025-05")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-05-01", rows[0].WorkDate.String())
	assert.Equal(t, u1, rows[1].UserID)
	assert.Equal(t, u2, rows[2].UserID)

	all, err := repo.ListByMonth(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	empty, err := repo.ListByMonth(ctx, "2024-01")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, bad := range []string{"2025-5", "2025-13", "May", "2025-05-01"} {
		_, err := repo.ListByMonth(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, bad)
	}
}
