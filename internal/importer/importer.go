// Package importer replays exported workouts through the workout service,
// rebuilding history and personal records in date order.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
)

// Completer finishes or previews a workout. *workouts.Service satisfies it.
type Completer interface {
	CompleteWorkout(ctx context.Context, userID string, w models.Workout) (*workouts.Result, error)
	PreviewWorkout(ctx context.Context, userID string, w models.Workout) (*workouts.Result, error)
}

// LogStore persists a row per import run. Optional.
type LogStore interface {
	InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log models.ImportLog) error
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesErrored   int

	WorkoutsReceived int
	WorkoutsImported int
	WorkoutsRejected int
	SetsRecorded     int64
	FlaggedSets      int

	FirstRecords int
	NewRecords   int
	TiedRecords  int
	RecordsSaved int
}

// Importer reads workout exports and replays them through a Completer.
type Importer struct {
	svc    Completer
	logs   LogStore
	userID string
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. logs and log may be nil.
func New(svc Completer, logs LogStore, userID string, log *slog.Logger, dryRun bool) *Importer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Importer{svc: svc, logs: logs, userID: userID, log: log, dryRun: dryRun}
}

// Import loads every workout under path (a .json file or a directory of
// them) and replays them oldest first.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	started := time.Now()
	logID := imp.startLog(ctx, path)

	err := imp.run(ctx, path)

	imp.finishLog(ctx, logID, path, started, err)
	return &imp.stats, err
}

func (imp *Importer) run(ctx context.Context, path string) error {
	all, err := imp.load(path)
	if err != nil {
		return err
	}
	imp.stats.WorkoutsReceived = len(all)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})

	for _, w := range all {
		if err := ctx.Err(); err != nil {
			return err
		}

		var res *workouts.Result
		if imp.dryRun {
			res, err = imp.svc.PreviewWorkout(ctx, imp.userID, w)
		} else {
			res, err = imp.svc.CompleteWorkout(ctx, imp.userID, w)
		}
		if errors.Is(err, workouts.ErrInvalidWorkout) {
			imp.log.Warn("skipping invalid workout", "workout", w.ID, "error", err)
			imp.stats.WorkoutsRejected++
			continue
		}
		if err != nil {
			return fmt.Errorf("importing workout %s: %w", w.ID, err)
		}
		imp.tally(res)
	}
	return nil
}

func (imp *Importer) tally(res *workouts.Result) {
	imp.stats.WorkoutsImported++
	imp.stats.SetsRecorded += res.SetsRecorded
	imp.stats.RecordsSaved += res.RecordsSaved
	for _, ex := range res.Workout.Exercises {
		for _, s := range ex.Sets {
			if len(s.ValidationFlags) > 0 {
				imp.stats.FlaggedSets++
			}
		}
	}
	for _, r := range res.Records {
		switch r.Status {
		case models.StatusFirstPR:
			imp.stats.FirstRecords++
		case models.StatusNewPR:
			imp.stats.NewRecords++
		case models.StatusTiedPR:
			imp.stats.TiedRecords++
		}
	}
}

// load reads a single file or every *.json file in a directory. Unreadable
// files in a directory are counted and skipped.
func (imp *Importer) load(path string) ([]models.Workout, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		ws, err := readFile(path)
		if err != nil {
			return nil, err
		}
		imp.stats.FilesProcessed++
		return ws, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var all []models.Workout
	for _, f := range files {
		ws, err := readFile(f)
		if err != nil {
			imp.log.Warn("parse failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		imp.stats.FilesProcessed++
		all = append(all, ws...)
	}
	return all, nil
}

func readFile(path string) ([]models.Workout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ws, err := ReadWorkouts(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return ws, nil
}

// ReadWorkouts decodes an export: a JSON array of workouts, an object with a
// "workouts" array, or a single workout object.
func ReadWorkouts(r io.Reader) ([]models.Workout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var ws []models.Workout
		if err := json.Unmarshal(data, &ws); err != nil {
			return nil, err
		}
		return ws, nil
	}

	var probe struct {
		Workouts []models.Workout `json:"workouts"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.Workouts != nil {
		return probe.Workouts, nil
	}

	var w models.Workout
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return []models.Workout{w}, nil
}

func (imp *Importer) startLog(ctx context.Context, path string) int64 {
	if imp.logs == nil || imp.dryRun {
		return 0
	}
	id, err := imp.logs.InsertImportLog(ctx, models.ImportLog{
		UserID: imp.userID,
		Source: "file:" + filepath.Base(path),
		Status: "running",
	})
	if err != nil {
		imp.log.Error("failed to log import", "error", err)
		return 0
	}
	return id
}

func (imp *Importer) finishLog(ctx context.Context, id int64, path string, started time.Time, importErr error) {
	if id == 0 {
		return
	}
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(time.Since(started).Milliseconds())

	entry := models.ImportLog{
		UserID:           imp.userID,
		Source:           "file:" + filepath.Base(path),
		Status:           status,
		WorkoutsReceived: imp.stats.WorkoutsReceived,
		WorkoutsImported: imp.stats.WorkoutsImported,
		SetsRecorded:     imp.stats.SetsRecorded,
		RecordsSaved:     imp.stats.RecordsSaved,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}

	// The run's context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := imp.logs.UpdateImportLog(ctx, id, entry); err != nil {
		imp.log.Error("failed to update import log", "id", id, "error", err)
	}
}
