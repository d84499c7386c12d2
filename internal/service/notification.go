// Package service holds batch jobs that run outside the request path.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/work-location-scheduler/internal/mailer"
	"github.com/iliyamo/work-location-scheduler/internal/model"
)

// DefaultMinBusinessDays is how many business days of a month must pass
// before reminders go out.
const DefaultMinBusinessDays = 3

const (
	reminderSubject = "作業場所スケジュールが未登録です"
	sendTimeout     = 30 * time.Second
	lockTTL         = 24 * time.Hour
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "wls_missing_schedule_notifications_total",
		Help: "Missing-schedule reminders by outcome (sent, failed, skipped).",
	},
	[]string{"outcome"},
)

// BusinessDaysBetween counts Monday to Friday days in [from, to), using the
// calendar dates of both arguments. It is negative when to is before from.
// No holiday calendar is applied.
func BusinessDaysBetween(from, to time.Time) int {
	f, t := model.NewDate(from).Time(), model.NewDate(to).Time()
	if t.Before(f) {
		return -BusinessDaysBetween(t, f)
	}
	days := int(t.Sub(f) / (24 * time.Hour))
	n := days / 7 * 5
	wd := f.Weekday()
	for i := 0; i < days%7; i++ {
		switch (wd + time.Weekday(i)) % 7 {
		case time.Saturday, time.Sunday:
		default:
			n++
		}
	}
	return n
}

// ShouldNotify reports whether at least minDays business days lie between
// the first day of the month and today.
func ShouldNotify(firstDayOfMonth, today time.Time, minDays int) bool {
	return BusinessDaysBetween(firstDayOfMonth, today) >= minDays
}

// MissingScheduleSource lists users without a schedule entry in a month.
type MissingScheduleSource interface {
	MissingSchedule(ctx context.Context, year int, month time.Month) ([]model.User, error)
}

// RunLock makes sure a day's batch runs once across overlapping invocations.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisRunLock implements RunLock with SET NX.
type RedisRunLock struct {
	Client *redis.Client
}

func (l RedisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Report summarises one Run.
type Report struct {
	Gated        bool `json:"gated"`
	Locked       bool `json:"locked"`
	BusinessDays int  `json:"business_days"`
	Candidates   int  `json:"candidates"`
	Sent         int  `json:"sent"`
	Skipped      int  `json:"skipped"`
	Failed       int  `json:"failed"`
}

// Notifier reminds users who have not entered any schedule for the current
// month. Lock is optional.
type Notifier struct {
	Users           MissingScheduleSource
	Mailer          mailer.Mailer
	Lock            RunLock
	MinBusinessDays int
	DryRun          bool
	Logger          *slog.Logger
}

// Run evaluates the business-day gate for today and, when it passes, sends
// one reminder per user missing a schedule. A failed send is logged and
// counted and the batch continues. The run returns an error only when the
// user query fails or ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, today time.Time) (Report, error) {
	minDays := n.MinBusinessDays
	if minDays <= 0 {
		minDays = DefaultMinBusinessDays
	}
	day := model.NewDate(today)
	first := day.FirstOfMonth()
	log := n.Logger.With(slog.String("date", day.String()))

	rep := Report{BusinessDays: BusinessDaysBetween(first.Time(), day.Time())}
	if rep.BusinessDays < minDays {
		rep.Gated = true
		log.Info("not enough business days elapsed", slog.Int("business_days", rep.BusinessDays), slog.Int("required", minDays))
		return rep, nil
	}

	if n.Lock != nil && !n.DryRun {
		ok, err := n.Lock.Acquire(ctx, "notify:missing-schedule:"+day.String(), lockTTL)
		switch {
		case err != nil:
			log.Warn("run lock unavailable, continuing", slog.Any("error", err))
		case !ok:
			rep.Locked = true
			log.Info("already ran today")
			return rep, nil
		}
	}

	users, err := n.Users.MissingSchedule(ctx, day.Year, day.Month)
	if err != nil {
		return rep, fmt.Errorf("missing schedule query: %w", err)
	}
	rep.Candidates = len(users)

	for _, u := range users {
		if strings.TrimSpace(u.Email) == "" {
			rep.Skipped++
			notificationsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		msg := reminderMessage(u, day.Month)
		if n.DryRun {
			log.Info("dry run: would notify", slog.Uint64("user_id", u.ID), slog.String("email", u.Email))
			rep.Sent++
			continue
		}
		if err := n.send(ctx, msg); err != nil {
			rep.Failed++
			notificationsTotal.WithLabelValues("failed").Inc()
			log.Warn("reminder failed", slog.Uint64("user_id", u.ID), slog.String("email", u.Email), slog.Any("error", err))
			if errors.Is(err, context.Canceled) {
				return rep, err
			}
			continue
		}
		rep.Sent++
		notificationsTotal.WithLabelValues("sent").Inc()
		log.Info("reminder sent", slog.Uint64("user_id", u.ID), slog.String("email", u.Email))
	}

	log.Info("missing schedule notification finished",
		slog.Int("candidates", rep.Candidates), slog.Int("sent", rep.Sent),
		slog.Int("skipped", rep.Skipped), slog.Int("failed", rep.Failed))
	return rep, nil
}

func (n *Notifier) send(ctx context.Context, msg mailer.Message) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return n.Mailer.Send(ctx, msg)
}

func reminderMessage(u model.User, month time.Month) mailer.Message {
	return mailer.Message{
		To:      u.Email,
		Subject: reminderSubject,
		Body:    fmt.Sprintf("%d月の作業場所スケジュールが登録されていません。至急ご対応ください。", int(month)),
	}
}
