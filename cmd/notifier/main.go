// Command notifier sends missing-schedule reminders for the current month.
// It is meant to run once a day from cron; the business-day gate decides
// whether anything is sent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/work-location-scheduler/internal/config"
	"github.com/iliyamo/work-location-scheduler/internal/database"
	"github.com/iliyamo/work-location-scheduler/internal/mailer"
	"github.com/iliyamo/work-location-scheduler/internal/model"
	"github.com/iliyamo/work-location-scheduler/internal/queue"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
	"github.com/iliyamo/work-location-scheduler/internal/service"
)

type options struct {
	date   string
	dryRun bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("notifier", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.date, "date", "", "evaluate as if today were `YYYY-MM-DD` (default: today)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "log recipients without sending")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.date != "" {
		if _, err := model.ParseDate(opts.date); err != nil {
			return options{}, err
		}
	}
	return opts, nil
}

func (o options) today(now time.Time) time.Time {
	if o.date == "" {
		return now
	}
	d, _ := model.ParseDate(o.date)
	return d.Time()
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		slog.Error("notifier failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(opts options) error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.SetupLogger(cfg).With(slog.String("component", "notifier"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	m, closeMailer := buildMailer(cfg, logger)
	defer closeMailer()

	n := &service.Notifier{
		Users:           repository.NewUserRepo(db),
		Mailer:          m,
		MinBusinessDays: cfg.NotifyMinBusinessDays,
		DryRun:          opts.dryRun,
		Logger:          logger,
	}
	if rdb := config.NewRedisClient(config.LoadRedisConfig()); rdb != nil {
		defer rdb.Close()
		n.Lock = service.RedisRunLock{Client: rdb}
	} else {
		logger.Warn("redis unavailable: running without the daily run lock")
	}

	rep, err := n.Run(ctx, opts.today(time.Now()))
	if err != nil {
		return err
	}
	out, _ := json.Marshal(rep)
	fmt.Println(string(out))
	return nil
}

func buildMailer(cfg config.Config, logger *slog.Logger) (mailer.Mailer, func()) {
	switch cfg.MailTransport {
	case config.MailTransportQueue:
		p := queue.NewPublisher(cfg.RabbitURL, cfg.MailQueue, logger)
		return p, func() { _ = p.Close() }
	case config.MailTransportSMTP:
		return mailer.NewSMTPMailer(mailer.SMTPConfigFrom(cfg)), func() {}
	default:
		return mailer.LogMailer{Logger: logger}, func() {}
	}
}
