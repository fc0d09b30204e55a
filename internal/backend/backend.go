// Package backend opens the configured storage driver.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/localdb"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/records"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workouts"
)

// Backend is everything the binaries need from a storage driver.
type Backend interface {
	records.Store
	workouts.History
	InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log models.ImportLog) error
	QueryImportLogs(ctx context.Context, userID string, limit int) ([]models.ImportLog, error)
	Ping(ctx context.Context) error
}

var (
	_ Backend = (*storage.DB)(nil)
	_ Backend = (*localdb.DB)(nil)
)

// Open connects to the database named by cfg. For PostgreSQL, pending
// migrations are applied first. The returned func releases the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (Backend, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := localdb.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database opened", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return db, func() {
			if err := db.Close(); err != nil {
				log.Warn("closing database", "error", err)
			}
		}, nil

	case config.DriverPostgres, "":
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, cfg.Migrations); err != nil {
			return nil, nil, err
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn, cfg.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting database: %w", err)
		}
		log.Info("database connected", "driver", config.DriverPostgres, "host", cfg.Host)
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// Migrate applies pending PostgreSQL migrations. SQLite creates its schema on open.
func Migrate(cfg config.DatabaseConfig) error {
	if cfg.Driver == config.DriverSQLite {
		db, err := localdb.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		return db.Close()
	}
	return storage.RunMigrations(cfg.DSN(), cfg.Migrations)
}
