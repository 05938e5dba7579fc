package db

import (
	"embed"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the database drivers for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/ares-dev-tech/dashboard/internal/config"
	"github.com/ares-dev-tech/dashboard/internal/log"
	"github.com/ares-dev-tech/dashboard/internal/models"
)

//go:embed migrations
var migrationsFS embed.FS

// requiredTables must exist after migrating.
var requiredTables = []string{"users", "clients", "articles", "sales", "sale_items", "charges", "settings"}

// Migrate applies the schema. With sqlMigrations the embedded versioned SQL
// files are run through golang-migrate; otherwise gorm AutoMigrate is used,
// which is handy for tests and throwaway sqlite databases.
func Migrate(gdb *gorm.DB, cfg config.DatabaseConfig, sqlMigrations bool, lg *log.Logger) error {
	lg = lg.WithComponent(log.ComponentDB)
	if sqlMigrations {
		version, err := RunSQLMigrations(cfg)
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		lg.Info("sql migrations applied", "version", version)
	} else {
		for _, m := range models.All() {
			if err := gdb.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
		lg.Info("automigrate done")
	}

	for _, table := range requiredTables {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// RunSQLMigrations brings the database to the latest embedded version and
// returns it. An up-to-date database is not an error.
func RunSQLMigrations(cfg config.DatabaseConfig) (uint, error) {
	dir, dbURL := "migrations/postgres", ToURLDSN(NormalizeDSN(cfg.PostgresURL()))
	if cfg.IsSQLite() {
		dir, dbURL = "migrations/sqlite", "sqlite3://"+SQLitePath(cfg)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return 0, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, err
	}
	return version, nil
}
