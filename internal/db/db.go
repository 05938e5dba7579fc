// Package db opens the gorm connection, applies the schema and seeds
// default data.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/log"
)

// retryDelay is the pause between connection attempts.
var retryDelay = 2 * time.Second

// Open connects to postgres or sqlite depending on cfg, retrying while the
// server comes up.
func Open(cfg config.DatabaseConfig, lg *log.Logger) (*gorm.DB, error) {
	lg = lg.WithComponent(log.ComponentDB)

	dialector, target, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Silent
	if cfg.Debug {
		level = logger.Info
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(gormWriter{lg}, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var gdb *gorm.DB
	for i := 1; i <= attempts; i++ {
		gdb, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			err = ping(gdb)
		}
		if err == nil {
			break
		}
		lg.Warn("database not ready", "attempt", i, "max", attempts, "error", err)
		if i < attempts {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after %d attempts: %w", attempts, err)
	}

	lg.Info("database connected", "dsn", MaskDSN(target))
	return gdb, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, string, error) {
	if !cfg.IsSQLite() {
		dsn := WithUTC(NormalizeDSN(cfg.PostgresURL()))
		return postgres.Open(dsn), dsn, nil
	}
	path := SQLitePath(cfg)
	if dir := filepath.Dir(path); !strings.HasPrefix(path, "file:") && path != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create sqlite directory %s: %w", dir, err)
		}
	}
	return sqlite.Open(path), path, nil
}

// SQLitePath is the sqlite file (or file: URI) selected by cfg.
func SQLitePath(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return strings.TrimPrefix(cfg.URL, "sqlite://")
	}
	return cfg.SQLitePath
}

func ping(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Ping reports whether the database answers; used by the health check.
func Ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// gormWriter routes gorm's logger through slog.
type gormWriter struct {
	lg *log.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.lg.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
