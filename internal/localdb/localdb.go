// Package localdb is the single-file SQLite backend for running LiftLog on
// one device without a PostgreSQL server.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS personal_records (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		exercise_id  TEXT NOT NULL,
		metric       TEXT NOT NULL CHECK (metric IN ('weight', 'reps', 'volume')),
		value_number REAL NOT NULL,
		unit         TEXT NOT NULL,
		achieved_at  INTEGER NOT NULL,
		context_json TEXT NOT NULL DEFAULT '{}',
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL,
		UNIQUE (user_id, exercise_id, metric)
	)`,
	`CREATE TABLE IF NOT EXISTS workout_sets (
		user_id         TEXT NOT NULL,
		workout_id      TEXT NOT NULL,
		workout_name    TEXT NOT NULL DEFAULT '',
		workout_date    INTEGER NOT NULL,
		exercise_number INTEGER NOT NULL,
		exercise_id     TEXT NOT NULL,
		exercise_name   TEXT NOT NULL,
		target_reps     TEXT NOT NULL DEFAULT '',
		set_index       INTEGER NOT NULL,
		reps            REAL,
		weight          REAL,
		completed       INTEGER NOT NULL DEFAULT 0,
		flags           TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, workout_id, exercise_number, set_index)
	)`,
	`CREATE INDEX IF NOT EXISTS workout_sets_exercise_idx ON workout_sets (user_id, exercise_id, workout_date)`,
	`CREATE INDEX IF NOT EXISTS workout_sets_name_idx ON workout_sets (user_id, exercise_name, workout_date)`,
	`CREATE TABLE IF NOT EXISTS import_logs (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id           TEXT NOT NULL,
		created_at        INTEGER NOT NULL,
		source            TEXT NOT NULL,
		status            TEXT NOT NULL,
		workouts_received INTEGER NOT NULL DEFAULT 0,
		workouts_imported INTEGER NOT NULL DEFAULT 0,
		sets_recorded     INTEGER NOT NULL DEFAULT 0,
		records_saved     INTEGER NOT NULL DEFAULT 0,
		duration_ms       INTEGER,
		error_message     TEXT
	)`,
}

// DB is a SQLite-backed record store and workout history.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY and makes
	// every upsert effectively serialised.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Ping checks the database file is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func joinFlags[T ~string](flags []T) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
