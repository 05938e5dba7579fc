// Command dashboard-worker keeps the shared analytics cache warm: for every
// record change published by the API it drops the user's cached results
// and recomputes what the dashboard shows first.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/db"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	if err := validate(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// validate adds the worker's own requirements: a cache shared with the API
// and a broker to listen to.
func validate(cfg *config.Config) error {
	var errs []error
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cache.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required by the worker"))
	}
	if cfg.Events.AMQPURL == "" {
		errs = append(errs, errors.New("AMQP_URL is required by the worker"))
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	gdb, err := db.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	cache, closeCache, err := analytics.OpenCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	client, err := events.Dial(ctx, cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.Queue, 10, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	svc := services.New(services.Deps{
		DB:                gdb,
		Cache:             cache,
		Logger:            logger,
		DefaultTVARate:    cfg.App.DefaultTVARate,
		DefaultURSSAFRate: cfg.App.DefaultURSSAFRate,
		CacheTTL:          cfg.Cache.TTL,
	})
	return client.Consume(ctx, refreshHandler(svc.Dashboard, time.Now, logger))
}

// dashboardCache is the part of services.DashboardService the worker drives.
type dashboardCache interface {
	Invalidate(ctx context.Context, userID uint) error
	Warm(ctx context.Context, userID uint, now time.Time) error
}

// refreshHandler invalidates then warms the dashboard of the message's user.
// An error requeues the message once.
func refreshHandler(dash dashboardCache, now func() time.Time, logger *log.Logger) events.Handler {
	return func(ctx context.Context, msg *events.Message) error {
		if msg.Type != events.TypeRecordChanged {
			logger.DebugContext(ctx, "ignoring message", "type", msg.Type, "id", msg.ID)
			return nil
		}
		start := time.Now()
		if err := dash.Invalidate(ctx, msg.UserID); err != nil {
			return err
		}
		if err := dash.Warm(ctx, msg.UserID, now()); err != nil {
			return err
		}
		logger.InfoContext(ctx, "dashboard refreshed",
			"user_id", msg.UserID,
			"entity", msg.Entity,
			"action", msg.Action,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}
