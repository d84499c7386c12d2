package main // Entry point of the API server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/work-location-scheduler/internal/config"
	"github.com/iliyamo/work-location-scheduler/internal/database"
	"github.com/iliyamo/work-location-scheduler/internal/mailer"
	"github.com/iliyamo/work-location-scheduler/internal/queue"
	"github.com/iliyamo/work-location-scheduler/internal/repository"
	"github.com/iliyamo/work-location-scheduler/internal/router"
	"github.com/iliyamo/work-location-scheduler/internal/utils"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database ready", slog.String("driver", cfg.DBDriver))

	if cfg.SeedDemoUsers {
		if _, err := repository.SeedDemoUsers(ctx, repository.NewUserRepo(db), cfg.BcryptCost, logger); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	signer, err := utils.NewTokenSigner(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		return err
	}

	e := router.New(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		DB:        db,
		Redis:     rdb,
		Signer:    signer,
		Logger:    logger,
	})

	if cfg.MailConsumerEnabled {
		go func() {
			err := queue.StartMailConsumer(ctx, cfg.RabbitURL, cfg.MailQueue, mailer.NewDirect(cfg, logger), logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mail consumer stopped", slog.Any("error", err))
			}
		}()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
