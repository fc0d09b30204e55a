package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
)

// Compile-time check: *DB satisfies workouts.History.
var _ workouts.History = (*DB)(nil)

// RecordWorkout replaces every history row of the workout.
func (d *DB) RecordWorkout(ctx context.Context, userID string, w models.Workout) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM workout_sets WHERE user_id = ? AND workout_id = ?`, userID, w.ID); err != nil {
		return 0, fmt.Errorf("deleting existing sets for workout %s: %w", w.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO workout_sets (user_id, workout_id, workout_name, workout_date,
		 exercise_number, exercise_id, exercise_name, target_reps, set_index,
		 reps, weight, completed, flags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range models.RowsFromWorkout(userID, w) {
		res, err := stmt.ExecContext(ctx, r.UserID, r.WorkoutID, r.WorkoutName, toMillis(r.WorkoutDate),
			r.ExerciseNum, r.ExerciseID, r.ExerciseName, r.TargetReps, r.SetIndex,
			r.Reps, r.Weight, r.Completed, joinFlags(r.Flags))
		if err != nil {
			return 0, fmt.Errorf("inserting workout set: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing workout %s: %w", w.ID, err)
	}
	return inserted, nil
}

// RecentReps returns the most recent hard-valid rep counts, oldest first.
// A zero before or a non-positive limit is unbounded.
func (d *DB) RecentReps(ctx context.Context, userID, exerciseID, excludeWorkoutID string, before time.Time, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT reps FROM workout_sets
		 WHERE user_id = ? AND exercise_id = ? AND workout_id <> ? AND workout_date < ?
		   AND completed = 1 AND reps BETWEEN 1 AND 40
		 ORDER BY workout_date DESC, exercise_number DESC, set_index DESC
		 LIMIT ?`,
		userID, exerciseID, excludeWorkoutID, beforeMillis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent reps: %w", err)
	}
	defer rows.Close()

	var newestFirst []float64
	for rows.Next() {
		var reps float64
		if err := rows.Scan(&reps); err != nil {
			return nil, fmt.Errorf("scanning recent reps: %w", err)
		}
		newestFirst = append(newestFirst, reps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]float64, len(newestFirst))
	for i, v := range newestFirst {
		out[len(newestFirst)-1-i] = v
	}
	return out, nil
}

// PriorSets returns completed sets of the named exercises outside one
// workout, dated before before when it is set.
func (d *DB) PriorSets(ctx context.Context, userID string, exerciseNames []string, excludeWorkoutID string, before time.Time) ([]models.HistoricalSet, error) {
	if len(exerciseNames) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(exerciseNames)), ",")
	args := []any{userID, excludeWorkoutID, beforeMillis(before)}
	for _, n := range exerciseNames {
		args = append(args, n)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT workout_id, exercise_name, set_index, reps, weight, completed, workout_date
		 FROM workout_sets
		 WHERE user_id = ? AND workout_id <> ? AND workout_date < ?
		   AND exercise_name IN (`+placeholders+`)
		   AND completed = 1 AND reps IS NOT NULL AND weight IS NOT NULL
		 ORDER BY workout_date ASC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying prior sets: %w", err)
	}
	defer rows.Close()

	var result []models.HistoricalSet
	for rows.Next() {
		var (
			h  models.HistoricalSet
			at int64
		)
		if err := rows.Scan(&h.WorkoutID, &h.ExerciseName, &h.SetIndex, &h.Reps, &h.Weight,
			&h.Completed, &at); err != nil {
			return nil, fmt.Errorf("scanning prior set: %w", err)
		}
		h.PerformedAt = fromMillis(at)
		result = append(result, h)
	}
	return result, rows.Err()
}

// VolumeBetween sums reps*weight of completed, positive sets in [start, end).
func (d *DB) VolumeBetween(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	var volume float64
	err := d.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(reps * weight), 0.0) FROM workout_sets
		 WHERE user_id = ? AND workout_date >= ? AND workout_date < ?
		   AND completed = 1 AND reps > 0 AND weight > 0`,
		userID, toMillis(start), toMillis(end)).Scan(&volume)
	if err != nil {
		return 0, fmt.Errorf("querying volume: %w", err)
	}
	return volume, nil
}

// QueryWorkoutSets retrieves history rows in a date range, optionally
// filtered by a partial exercise name.
func (d *DB) QueryWorkoutSets(ctx context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, workout_id, workout_name, workout_date, exercise_number, exercise_id,
		 exercise_name, target_reps, set_index, reps, weight, completed, flags
		 FROM workout_sets
		 WHERE user_id = ? AND workout_date >= ? AND workout_date < ?
		   AND (? = '' OR exercise_name LIKE '%' || ? || '%')
		 ORDER BY workout_date DESC, exercise_number ASC, set_index ASC`,
		userID, toMillis(start), toMillis(end), exerciseFilter, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSetRow
	for rows.Next() {
		var (
			r            models.WorkoutSetRow
			date         int64
			reps, weight sql.NullFloat64
			flags        string
		)
		if err := rows.Scan(&r.UserID, &r.WorkoutID, &r.WorkoutName, &date, &r.ExerciseNum,
			&r.ExerciseID, &r.ExerciseName, &r.TargetReps, &r.SetIndex, &reps, &weight,
			&r.Completed, &flags); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		r.WorkoutDate = fromMillis(date)
		if reps.Valid {
			r.Reps = &reps.Float64
		}
		if weight.Valid {
			r.Weight = &weight.Float64
		}
		if flags != "" {
			for _, f := range strings.Split(flags, ",") {
				r.Flags = append(r.Flags, models.Flag(f))
			}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// beforeMillis is the exclusive upper date bound; zero means none.
func beforeMillis(before time.Time) int64 {
	if before.IsZero() {
		return math.MaxInt64
	}
	return toMillis(before)
}
