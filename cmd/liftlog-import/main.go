package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/liftlog/internal/backend"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/importer"
	"github.com/claude/liftlog/internal/workouts"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	path := flag.String("path", "", "workout export file or directory of .json exports (required)")
	userID := flag.String("user", "local", "user the workouts belong to")
	dryRun := flag.Bool("dry-run", false, "evaluate records without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -config config.yaml -path export.json [-user id] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	db, closeDB, err := backend.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	svc := workouts.NewService(db, db, log)
	imp := importer.New(svc, db, *userID, log, *dryRun)
	stats, err := imp.Import(ctx, *path)
	printStats(log, stats)
	if err != nil {
		log.Error("import failed", "error", err)
		closeDB()
		os.Exit(1)
	}
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_errored", stats.FilesErrored,
		"workouts_received", stats.WorkoutsReceived,
		"workouts_imported", stats.WorkoutsImported,
		"workouts_rejected", stats.WorkoutsRejected,
		"sets_recorded", stats.SetsRecorded,
		"flagged_sets", stats.FlaggedSets,
		"first_records", stats.FirstRecords,
		"new_records", stats.NewRecords,
		"tied_records", stats.TiedRecords,
		"records_saved", stats.RecordsSaved,
	)
}
