// Package workouts ties the pure analytics to storage: it finishes a workout
// (validation flags, stats, personal records, history, progression) and
// answers the read queries the HTTP and MCP surfaces expose.
package workouts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/records"
)

// maxConcurrentLoads bounds the store and history lookups issued for one workout.
const maxConcurrentLoads = 4

var (
	// ErrInvalidWorkout wraps every payload validation failure.
	ErrInvalidWorkout = errors.New("invalid workout")
	// ErrUnknownMetric is returned for a metric outside weight, reps, volume.
	ErrUnknownMetric = errors.New("unknown metric")
)

// Result is everything learned from finishing one workout.
type Result struct {
	Workout         models.Workout               `json:"workout"`
	Volume          float64                      `json:"volume"`
	ExerciseVolumes map[string]float64           `json:"exercise_volumes"`
	BestE1RM        *analytics.BestE1RM          `json:"best_e1rm"`
	Records         []models.EvaluatedPR         `json:"records"`
	RecordsSaved    int                          `json:"records_saved"`
	SetsRecorded    int64                        `json:"sets_recorded"`
	Progression     analytics.ProgressionSummary `json:"progression"`
	DryRun          bool                         `json:"dry_run,omitempty"`
}

// Service finishes workouts and serves record and volume queries.
type Service struct {
	store   records.Store
	history History
	log     *slog.Logger
	now     func() time.Time
	writers userLocks
}

// NewService creates a Service. A nil logger discards output.
func NewService(store records.Store, history History, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, history: history, log: logger, now: time.Now}
}

// Validate checks a submitted workout before anything is computed.
func Validate(w models.Workout) error {
	if w.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidWorkout)
	}
	for i, ex := range w.Exercises {
		if ex.ID == "" {
			return fmt.Errorf("%w: exercise %d has no id", ErrInvalidWorkout, i)
		}
		for j, s := range ex.Sets {
			if !s.Completed {
				continue
			}
			if s.Reps.Valid && s.Reps.Float64 < 0 {
				return fmt.Errorf("%w: exercise %s set %d has negative reps", ErrInvalidWorkout, ex.ID, j)
			}
			if s.Weight.Valid && s.Weight.Float64 < 0 {
				return fmt.Errorf("%w: exercise %s set %d has negative weight", ErrInvalidWorkout, ex.ID, j)
			}
		}
	}
	return nil
}

// CompleteWorkout validates, annotates and scores a finished workout, saves
// any new or first personal records and records the workout into history.
// Resubmitting a workout with the same ID replaces its history.
func (s *Service) CompleteWorkout(ctx context.Context, userID string, w models.Workout) (*Result, error) {
	return s.process(ctx, userID, w, false)
}

// PreviewWorkout computes the same Result as CompleteWorkout without writing
// records or history.
func (s *Service) PreviewWorkout(ctx context.Context, userID string, w models.Workout) (*Result, error) {
	return s.process(ctx, userID, w, true)
}

func (s *Service) process(ctx context.Context, userID string, w models.Workout, dryRun bool) (*Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidWorkout)
	}
	if err := Validate(w); err != nil {
		return nil, err
	}
	if w.Date.IsZero() {
		w.Date = s.now()
	}

	// Records are read, compared and written back; one writer per user at a
	// time so a concurrent workout cannot overwrite a higher record.
	if !dryRun {
		unlock := s.writers.lock(userID)
		defer unlock()
	}

	recent, snapshot, prior, err := s.loadContext(ctx, userID, w)
	if err != nil {
		return nil, err
	}

	annotated := analytics.AnnotateWorkout(w, recent)
	annotated.Stats = analytics.ComputeWorkoutStats(annotated)
	flat := analytics.FlattenWorkout(annotated)

	res := &Result{
		Workout:         annotated,
		Volume:          annotated.Stats.TotalVolume,
		ExerciseVolumes: analytics.ComputeExerciseSessionVolumes(flat),
		BestE1RM:        analytics.ComputeBestE1RMSet(flat),
		Records:         records.EvaluateWorkoutPRs(w.ID, w.Date, annotated.Exercises, snapshot),
		Progression:     analytics.SummarizeProgression(annotated.Exercises, w.ID, prior),
		DryRun:          dryRun,
	}
	if dryRun {
		return res, nil
	}

	res.RecordsSaved, err = records.SavePRs(ctx, s.store, userID, res.Records)
	if err != nil {
		return nil, fmt.Errorf("saving records for workout %s: %w", w.ID, err)
	}
	res.SetsRecorded, err = s.history.RecordWorkout(ctx, userID, annotated)
	if err != nil {
		return nil, fmt.Errorf("recording workout %s: %w", w.ID, err)
	}

	s.log.Info("workout completed",
		"user", userID,
		"workout", w.ID,
		"sets", res.SetsRecorded,
		"volume", res.Volume,
		"records", res.RecordsSaved,
		"status", res.Progression.OverallStatus,
	)
	return res, nil
}

// loadContext fetches everything a workout is judged against, from workouts
// dated before it: recent rep windows per exercise, the stored records for every metric, and prior sets
// for progression. Lookups run concurrently.
func (s *Service) loadContext(ctx context.Context, userID string, w models.Workout) (map[string][]float64, records.Snapshot, []models.HistoricalSet, error) {
	var (
		mu       sync.Mutex
		recent   = make(map[string][]float64)
		snapshot = make(records.Snapshot)
		prior    []models.HistoricalSet
	)

	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)
	var names []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)

	for _, ex := range w.Exercises {
		if ex.Name != "" && !seenNames[ex.Name] {
			seenNames[ex.Name] = true
			names = append(names, ex.Name)
		}
		if seenIDs[ex.ID] {
			continue
		}
		seenIDs[ex.ID] = true
		exerciseID := ex.ID

		g.Go(func() error {
			reps, err := s.history.RecentReps(gctx, userID, exerciseID, w.ID, w.Date, analytics.OutlierWindow)
			if err != nil {
				return fmt.Errorf("loading recent reps for %s: %w", exerciseID, err)
			}
			mu.Lock()
			recent[exerciseID] = reps
			mu.Unlock()
			return nil
		})

		for _, m := range models.Metrics {
			g.Go(func() error {
				rec, err := s.store.GetPR(gctx, userID, exerciseID, m)
				if err != nil {
					return fmt.Errorf("loading %s record for %s: %w", m, exerciseID, err)
				}
				if rec != nil {
					mu.Lock()
					snapshot[records.Key{ExerciseID: exerciseID, Metric: m}] = *rec
					mu.Unlock()
				}
				return nil
			})
		}
	}

	if len(names) > 0 {
		g.Go(func() error {
			sets, err := s.history.PriorSets(gctx, userID, names, w.ID, w.Date)
			if err != nil {
				return fmt.Errorf("loading prior sets: %w", err)
			}
			mu.Lock()
			prior = sets
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return recent, snapshot, prior, nil
}

// CheckSet validates one set while it is being logged, using the exercise's
// recent history as the outlier baseline.
func (s *Service) CheckSet(ctx context.Context, userID, exerciseID, targetReps string, reps, weight models.NullFloat) (analytics.SetFlags, error) {
	var recent []float64
	if exerciseID != "" {
		var err error
		recent, err = s.history.RecentReps(ctx, userID, exerciseID, "", time.Time{}, analytics.OutlierWindow)
		if err != nil {
			return analytics.SetFlags{}, fmt.Errorf("loading recent reps for %s: %w", exerciseID, err)
		}
	}
	return analytics.GetSetFlags(analytics.SetFlagParams{
		Reps:       reps,
		Weight:     weight,
		RecentReps: recent,
		TargetReps: targetReps,
	}), nil
}

// ListRecords returns the user's records ordered by exercise, then metric.
func (s *Service) ListRecords(ctx context.Context, userID string) ([]models.PersonalRecord, error) {
	recs, err := s.store.ListPRs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	if recs == nil {
		recs = []models.PersonalRecord{}
	}
	records.SortRecords(recs)
	return recs, nil
}

// GetRecord returns one record, or nil when none is stored.
func (s *Service) GetRecord(ctx context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownMetric, metric)
	}
	rec, err := s.store.GetPR(ctx, userID, exerciseID, metric)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return rec, nil
}

// ClearRecords deletes all of the user's records and returns how many were removed.
func (s *Service) ClearRecords(ctx context.Context, userID string) (int64, error) {
	unlock := s.writers.lock(userID)
	defer unlock()

	n, err := s.store.ClearPRs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing records: %w", err)
	}
	s.log.Info("records cleared", "user", userID, "count", n)
	return n, nil
}

// WeeklyVolume compares the last seven days of volume with the seven before.
type WeeklyVolume struct {
	CurrentStart  time.Time        `json:"current_start"`
	PreviousStart time.Time        `json:"previous_start"`
	End           time.Time        `json:"end"`
	Change        analytics.Change `json:"change"`
}

// WeekOverWeek computes volume for [now-7d, now) against [now-14d, now-7d).
func (s *Service) WeekOverWeek(ctx context.Context, userID string, now time.Time) (*WeeklyVolume, error) {
	const week = 7 * 24 * time.Hour
	currentStart := now.Add(-week)
	previousStart := now.Add(-2 * week)

	var current, previous float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.history.VolumeBetween(gctx, userID, currentStart, now)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.history.VolumeBetween(gctx, userID, previousStart, currentStart)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading weekly volume: %w", err)
	}

	return &WeeklyVolume{
		CurrentStart:  currentStart,
		PreviousStart: previousStart,
		End:           now,
		Change:        analytics.ComputeWeekOverWeek(current, previous),
	}, nil
}

// ListSets returns recorded sets in [start, end).
func (s *Service) ListSets(ctx context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	rows, err := s.history.QueryWorkoutSets(ctx, userID, start, end, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	if rows == nil {
		rows = []models.WorkoutSetRow{}
	}
	return rows, nil
}
