package analytics

import (
	"math"

	"github.com/claude/liftlog/internal/models"
)

// e1rmDivisor is the Epley constant. Every stored e1RM comparison depends on it.
const e1rmDivisor = 30

// CalculateE1RM estimates a one-rep max: weight * (1 + reps/30).
func CalculateE1RM(weight, reps float64) float64 {
	return weight * (1 + reps/e1rmDivisor)
}

// IsVolumeContributing reports whether a set adds to weighted volume. This is
// stricter than IsStatsEligible: zero reps or zero weight contribute nothing
// here, even though a completed bodyweight set is still stats-eligible.
func IsVolumeContributing(s models.LoggedSet) bool {
	return s.Completed && positive(s.Reps) && positive(s.Weight)
}

func positive(n models.NullFloat) bool {
	return n.Valid && !math.IsInf(n.Float64, 0) && n.Float64 > 0
}

// FlattenWorkout lists every set of w with its exercise identity, in order.
func FlattenWorkout(w models.Workout) []models.CompletedSetRecord {
	var out []models.CompletedSetRecord
	for _, ex := range w.Exercises {
		for i, s := range ex.Sets {
			out = append(out, models.CompletedSetRecord{
				WorkoutID:    w.ID,
				ExerciseID:   ex.ID,
				ExerciseName: ex.Name,
				SetIndex:     i,
				Set:          s,
			})
		}
	}
	return out
}

// ComputeWorkoutVolume sums reps*weight over volume-contributing sets.
func ComputeWorkoutVolume(sets []models.CompletedSetRecord) float64 {
	var total float64
	for _, r := range sets {
		if IsVolumeContributing(r.Set) {
			total += r.Set.Reps.Float64 * r.Set.Weight.Float64
		}
	}
	return total
}

// ComputeExerciseSessionVolumes sums volume per exercise ID.
func ComputeExerciseSessionVolumes(sets []models.CompletedSetRecord) map[string]float64 {
	volumes := make(map[string]float64)
	for _, r := range sets {
		if IsVolumeContributing(r.Set) {
			volumes[r.ExerciseID] += r.Set.Reps.Float64 * r.Set.Weight.Float64
		}
	}
	return volumes
}

// BestE1RM is the set with the highest estimated one-rep max.
type BestE1RM struct {
	Value float64                   `json:"value"`
	Set   models.CompletedSetRecord `json:"set"`
}

// ComputeBestE1RMSet returns the volume-contributing set with the highest
// e1RM, or nil if there is none. On a tie the earliest set wins.
func ComputeBestE1RMSet(sets []models.CompletedSetRecord) *BestE1RM {
	var best *BestE1RM
	for _, r := range sets {
		if !IsVolumeContributing(r.Set) {
			continue
		}
		v := CalculateE1RM(r.Set.Weight.Float64, r.Set.Reps.Float64)
		if best == nil || v > best.Value {
			best = &BestE1RM{Value: v, Set: r}
		}
	}
	return best
}

// IsNewBest reports whether current strictly beats previous. A missing or NaN
// previous value is always beaten; equality is not.
func IsNewBest(current float64, previous *float64) bool {
	if previous == nil || math.IsNaN(*previous) {
		return true
	}
	return current > *previous
}

// Change is a period-over-period comparison.
type Change struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Delta    float64 `json:"delta"`
	Percent  float64 `json:"percent"`
}

// ComputeWeekOverWeek compares two totals. Percent is 0 when there is no
// positive baseline, even though Delta may be non-zero.
func ComputeWeekOverWeek(current, previous float64) Change {
	c := Change{Current: current, Previous: previous, Delta: current - previous}
	if previous > 0 {
		c.Percent = c.Delta / previous * 100
	}
	return c
}

// ComputeWorkoutStats fills the workout's aggregate block. Volume counts
// volume-contributing sets; reps count stats-eligible sets so bodyweight work
// still shows up.
func ComputeWorkoutStats(w models.Workout) models.WorkoutStats {
	var st models.WorkoutStats
	for _, ex := range w.Exercises {
		for _, s := range ex.Sets {
			st.TotalSets++
			if s.Completed {
				st.CompletedSets++
			}
			if IsStatsEligible(s) {
				st.TotalReps += s.Reps.Float64
			}
		}
	}
	st.TotalVolume = ComputeWorkoutVolume(FlattenWorkout(w))
	return st
}
