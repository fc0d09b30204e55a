// Package records detects and stores personal records.
package records

import (
	"time"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/models"
)

// Key identifies a record within one user's records.
type Key struct {
	ExerciseID string
	Metric     models.Metric
}

// Lookup returns the stored record for an exercise and metric, or nil.
type Lookup interface {
	Record(exerciseID string, metric models.Metric) *models.PersonalRecord
}

// Snapshot is an in-memory Lookup, typically loaded from a Store before
// evaluating a workout.
type Snapshot map[Key]models.PersonalRecord

// Record implements Lookup.
func (s Snapshot) Record(exerciseID string, metric models.Metric) *models.PersonalRecord {
	r, ok := s[Key{ExerciseID: exerciseID, Metric: metric}]
	if !ok {
		return nil
	}
	return &r
}

// MetricValue is what a set scores on a metric.
func MetricValue(m models.Metric, reps, weight float64) float64 {
	switch m {
	case models.MetricWeight:
		return weight
	case models.MetricReps:
		return reps
	default:
		return weight * reps
	}
}

// ClassifyPR decides the status of best against the stored record. ok is
// false when best is below the record; that is not reported at all.
func ClassifyPR(best float64, existing *models.PersonalRecord) (status models.PRStatus, ok bool) {
	switch {
	case existing == nil:
		return models.StatusFirstPR, true
	case best > existing.ValueNumber:
		return models.StatusNewPR, true
	case best == existing.ValueNumber:
		return models.StatusTiedPR, true
	default:
		return "", false
	}
}

// EvaluateWorkoutPRs compares each exercise's best stats-eligible set on
// every metric with the record in lookup. Exercises without eligible sets are
// skipped. Results follow exercise order, then weight, reps, volume. The first
// set reaching the best value is the one credited. An exercise that appears
// again later in the workout is judged against the record its earlier
// appearance set. lookup is never modified.
func EvaluateWorkoutPRs(workoutID string, workoutDate time.Time, exercises []models.Exercise, lookup Lookup) []models.EvaluatedPR {
	if lookup == nil {
		lookup = Snapshot(nil)
	}
	results := []models.EvaluatedPR{}
	// Records set earlier in this workout.
	earlier := make(Snapshot)

	for _, ex := range exercises {
		var eligible []int
		for i, s := range ex.Sets {
			if analytics.IsStatsEligible(s) {
				eligible = append(eligible, i)
			}
		}
		if len(eligible) == 0 {
			continue
		}

		for _, m := range models.Metrics {
			bestIdx := -1
			var best float64
			for _, i := range eligible {
				s := ex.Sets[i]
				v := MetricValue(m, s.Reps.Float64, s.Weight.Float64)
				if bestIdx < 0 || v > best {
					bestIdx, best = i, v
				}
			}

			prev := earlier.Record(ex.ID, m)
			if prev == nil {
				prev = lookup.Record(ex.ID, m)
			}
			status, ok := ClassifyPR(best, prev)
			if !ok {
				continue
			}

			bestSet := ex.Sets[bestIdx]
			pr := models.EvaluatedPR{
				ExerciseID:     ex.ID,
				Metric:         m,
				Status:         status,
				PreviousRecord: prev,
				NewRecord: models.PersonalRecord{
					ExerciseID:  ex.ID,
					Metric:      m,
					ValueNumber: best,
					Unit:        m.Unit(),
					AchievedAt:  workoutDate,
					Context: models.PRContext{
						WorkoutID: workoutID,
						SetIndex:  bestIdx,
						Reps:      bestSet.Reps.Float64,
						Weight:    bestSet.Weight.Float64,
					},
				},
			}
			results = append(results, pr)
			if status != models.StatusTiedPR {
				earlier[Key{ExerciseID: ex.ID, Metric: m}] = pr.NewRecord
			}
		}
	}
	return results
}
