package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ares-dev-tech/dashboard/auth"
	"github.com/ares-dev-tech/dashboard/internal/analytics"
	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/db"
	"github.com/ares-dev-tech/dashboard/internal/events"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/services"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Seed the demo account and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.Log.Level), Format: cfg.Log.Format})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	if *migrateOnlyFlag || cfg.App.Migrations {
		if err := db.Migrate(gdb, cfg.Database, true, logger); err != nil {
			return err
		}
		if *migrateOnlyFlag {
			logger.Info("migrations completed; exiting as requested")
			return nil
		}
	} else if err := db.Migrate(gdb, cfg.Database, false, logger); err != nil {
		return err
	}

	if *seedOnlyFlag || cfg.App.Seed {
		u, err := db.SeedDemo(gdb, time.Now(), cfg.App.DefaultTVARate, cfg.App.DefaultURSSAFRate)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("demo account ready", "email", u.Email)
		if *seedOnlyFlag {
			return nil
		}
	}

	cache, closeCache, err := analytics.OpenCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()
	if cfg.Cache.RedisAddr == "" {
		logger.Info("using in-process analytics cache")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		client, err := events.Dial(ctx, cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.Queue, 5, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
	}

	svc := services.New(services.Deps{
		DB:                gdb,
		Cache:             cache,
		Publisher:         publisher,
		Logger:            logger,
		DefaultTVARate:    cfg.App.DefaultTVARate,
		DefaultURSSAFRate: cfg.App.DefaultURSSAFRate,
		CacheTTL:          cfg.Cache.TTL,
	})

	auth.SetSecret(cfg.Auth.SessionSecret)
	auth.TokenTTL = cfg.Auth.TokenTTL
	auth.SetUserVerifier(svc.Users.Exists)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(gdb, svc, logger, time.Now),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}
