package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iliyamo/work-location-scheduler/internal/model"
)

// DemoPassword is the initial password of every seeded account.
const DemoPassword = "password123"

func demoUsers() []NewUser {
	requested, suspended := model.AllowanceRequested, model.AllowanceSuspended
	return []NewUser{
		{EmployeeNumber: "1001", Name: "Sato", Email: "sato@example.com", Password: DemoPassword, CommutingAllowance: &requested},
		{EmployeeNumber: "1002", Name: "Suzuki", Email: "suzuki@example.com", Password: DemoPassword, CommutingAllowance: &suspended},
		{EmployeeNumber: "1003", Name: "Sano", Email: "sano@example.com", Password: DemoPassword, CommutingAllowance: &requested},
	}
}

// SeedDemoUsers inserts three accounts with the default-password flag set
// when the users table is empty. It returns the number of rows inserted.
func SeedDemoUsers(ctx context.Context, users *UserRepo, cost int, logger *slog.Logger) (int, error) {
	n, err := users.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	inserted := 0
	for _, u := range demoUsers() {
		created, err := users.Create(ctx, u, cost)
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", u.Email, err)
		}
		inserted++
		logger.Info("seeded demo user", slog.Uint64("user_id", created.ID), slog.String("email", created.Email))
	}
	return inserted, nil
}
