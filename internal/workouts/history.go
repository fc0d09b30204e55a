package workouts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// History is the per-user log of recorded workout sets.
type History interface {
	// RecordWorkout replaces every stored set of the workout and returns the
	// number of rows written.
	RecordWorkout(ctx context.Context, userID string, w models.Workout) (int64, error)
	// RecentReps returns the most recent hard-valid rep counts of completed
	// sets for an exercise, oldest first. Only workouts dated strictly before
	// before count; a zero before means no bound. limit <= 0 returns all.
	RecentReps(ctx context.Context, userID, exerciseID, excludeWorkoutID string, before time.Time, limit int) ([]float64, error)
	// PriorSets returns completed sets with reps and weight for the named
	// exercises from workouts dated strictly before before (zero means no
	// bound), excluding one workout.
	PriorSets(ctx context.Context, userID string, exerciseNames []string, excludeWorkoutID string, before time.Time) ([]models.HistoricalSet, error)
	// VolumeBetween sums reps*weight of volume-contributing sets in [start, end).
	VolumeBetween(ctx context.Context, userID string, start, end time.Time) (float64, error)
	// QueryWorkoutSets lists rows in [start, end), newest workout first,
	// optionally filtered by a case-insensitive exercise name fragment.
	QueryWorkoutSets(ctx context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error)
}

// MemoryHistory is an in-process History, used by tests and dry runs.
type MemoryHistory struct {
	mu   sync.RWMutex
	rows []models.WorkoutSetRow
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory returns an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) RecordWorkout(_ context.Context, userID string, w models.Workout) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.rows[:0]
	for _, r := range h.rows {
		if r.UserID != userID || r.WorkoutID != w.ID {
			kept = append(kept, r)
		}
	}
	added := models.RowsFromWorkout(userID, w)
	h.rows = append(kept, added...)
	return int64(len(added)), nil
}

// sorted returns the user's rows ordered oldest first by workout date, then
// exercise position and set index.
func (h *MemoryHistory) sorted(userID string) []models.WorkoutSetRow {
	var out []models.WorkoutSetRow
	for _, r := range h.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.WorkoutDate.Equal(b.WorkoutDate) {
			return a.WorkoutDate.Before(b.WorkoutDate)
		}
		if a.ExerciseNum != b.ExerciseNum {
			return a.ExerciseNum < b.ExerciseNum
		}
		return a.SetIndex < b.SetIndex
	})
	return out
}

// datedBefore reports whether t falls under the before bound.
func datedBefore(t, before time.Time) bool {
	return before.IsZero() || t.Before(before)
}

func (h *MemoryHistory) RecentReps(_ context.Context, userID, exerciseID, excludeWorkoutID string, before time.Time, limit int) ([]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var reps []float64
	for _, r := range h.sorted(userID) {
		if r.ExerciseID != exerciseID || r.WorkoutID == excludeWorkoutID || !r.Completed || r.Reps == nil {
			continue
		}
		if !datedBefore(r.WorkoutDate, before) {
			continue
		}
		if *r.Reps < 1 || *r.Reps > 40 {
			continue
		}
		reps = append(reps, *r.Reps)
	}
	if limit > 0 && len(reps) > limit {
		reps = reps[len(reps)-limit:]
	}
	return reps, nil
}

func (h *MemoryHistory) PriorSets(_ context.Context, userID string, exerciseNames []string, excludeWorkoutID string, before time.Time) ([]models.HistoricalSet, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make(map[string]bool, len(exerciseNames))
	for _, n := range exerciseNames {
		names[n] = true
	}
	var out []models.HistoricalSet
	for _, r := range h.sorted(userID) {
		if !names[r.ExerciseName] || r.WorkoutID == excludeWorkoutID || !r.Completed || !datedBefore(r.WorkoutDate, before) {
			continue
		}
		if hs, ok := r.Historical(); ok {
			out = append(out, hs)
		}
	}
	return out, nil
}

func (h *MemoryHistory) VolumeBetween(_ context.Context, userID string, start, end time.Time) (float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var total float64
	for _, r := range h.rows {
		if r.UserID != userID || r.WorkoutDate.Before(start) || !r.WorkoutDate.Before(end) {
			continue
		}
		if r.Completed && r.Reps != nil && r.Weight != nil && *r.Reps > 0 && *r.Weight > 0 {
			total += *r.Reps * *r.Weight
		}
	}
	return total, nil
}

func (h *MemoryHistory) QueryWorkoutSets(_ context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	filter := strings.ToLower(exerciseFilter)
	var out []models.WorkoutSetRow
	for _, r := range h.sorted(userID) {
		if r.WorkoutDate.Before(start) || !r.WorkoutDate.Before(end) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(r.ExerciseName), filter) {
			continue
		}
		out = append(out, r)
	}
	// Newest workout first, set order preserved within a workout.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WorkoutDate.After(out[j].WorkoutDate)
	})
	return out, nil
}
