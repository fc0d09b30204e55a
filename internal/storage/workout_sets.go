package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
	"github.com/jackc/pgx/v5"
)

// Compile-time check: *DB satisfies workouts.History.
var _ workouts.History = (*DB)(nil)

const setColumns = 13

// RecordWorkout replaces every history row of the workout, so an edited
// workout can be submitted again. Returns the number of rows inserted.
func (db *DB) RecordWorkout(ctx context.Context, userID string, w models.Workout) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM workout_sets WHERE user_id = $1 AND workout_id = $2`, userID, w.ID); err != nil {
		return 0, fmt.Errorf("deleting existing sets for workout %s: %w", w.ID, err)
	}

	inserted, err := insertWorkoutSets(ctx, tx, models.RowsFromWorkout(userID, w))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing workout %s: %w", w.ID, err)
	}
	return inserted, nil
}

func insertWorkoutSets(ctx context.Context, tx pgx.Tx, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (user_id, workout_id, workout_name, workout_date,
		exercise_number, exercise_id, exercise_name, target_reps, set_index,
		reps, weight, completed, flags) VALUES `
	args := make([]any, 0, len(rows)*setColumns)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * setColumns
		placeholders := make([]string, setColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		args = append(args, r.UserID, r.WorkoutID, r.WorkoutName, r.WorkoutDate,
			r.ExerciseNum, r.ExerciseID, r.ExerciseName, r.TargetReps, r.SetIndex,
			r.Reps, r.Weight, r.Completed, flagStrings(r.Flags))
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecentReps returns the most recent hard-valid rep counts of completed sets
// for an exercise, oldest first, excluding one workout and anything dated on
// or after before. A zero before or a non-positive limit is unbounded.
func (db *DB) RecentReps(ctx context.Context, userID, exerciseID, excludeWorkoutID string, before time.Time, limit int) ([]float64, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT reps FROM workout_sets
		 WHERE user_id = $1 AND exercise_id = $2 AND workout_id <> $3
		   AND ($4::timestamptz IS NULL OR workout_date < $4::timestamptz)
		   AND completed AND reps BETWEEN 1 AND 40
		 ORDER BY workout_date DESC, exercise_number DESC, set_index DESC
		 LIMIT $5`,
		userID, exerciseID, excludeWorkoutID, beforeArg(before), limitArg(limit))
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
	return reversed(newestFirst), nil
}

// PriorSets returns completed sets of the named exercises outside one
// workout, dated before before when it is set.
func (db *DB) PriorSets(ctx context.Context, userID string, exerciseNames []string, excludeWorkoutID string, before time.Time) ([]models.HistoricalSet, error) {
	if len(exerciseNames) == 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT workout_id, exercise_name, set_index, reps, weight, completed, workout_date
		 FROM workout_sets
		 WHERE user_id = $1 AND exercise_name = ANY($2) AND workout_id <> $3
		   AND ($4::timestamptz IS NULL OR workout_date < $4::timestamptz)
		   AND completed AND reps IS NOT NULL AND weight IS NOT NULL
		 ORDER BY workout_date ASC`,
		userID, exerciseNames, excludeWorkoutID, beforeArg(before))
	if err != nil {
		return nil, fmt.Errorf("querying prior sets: %w", err)
	}
	defer rows.Close()

	var result []models.HistoricalSet
	for rows.Next() {
		var h models.HistoricalSet
		if err := rows.Scan(&h.WorkoutID, &h.ExerciseName, &h.SetIndex, &h.Reps, &h.Weight,
			&h.Completed, &h.PerformedAt); err != nil {
			return nil, fmt.Errorf("scanning prior set: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// VolumeBetween sums reps*weight of completed, positive sets in [start, end).
func (db *DB) VolumeBetween(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	var volume float64
	err := db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(reps * weight), 0) FROM workout_sets
		 WHERE user_id = $1 AND workout_date >= $2 AND workout_date < $3
		   AND completed AND reps > 0 AND weight > 0`,
		userID, start, end).Scan(&volume)
	if err != nil {
		return 0, fmt.Errorf("querying volume: %w", err)
	}
	return volume, nil
}

// QueryWorkoutSets retrieves history rows in a date range, optionally
// filtered by a partial exercise name.
func (db *DB) QueryWorkoutSets(ctx context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, workout_id, workout_name, workout_date, exercise_number, exercise_id,
		 exercise_name, target_reps, set_index, reps, weight, completed, flags
		 FROM workout_sets
		 WHERE user_id = $1 AND workout_date >= $2 AND workout_date < $3
		   AND ($4 = '' OR exercise_name ILIKE '%' || $4 || '%')
		 ORDER BY workout_date DESC, exercise_number ASC, set_index ASC`,
		userID, start, end, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSetRow
	for rows.Next() {
		var (
			r     models.WorkoutSetRow
			flags []string
		)
		if err := rows.Scan(&r.UserID, &r.WorkoutID, &r.WorkoutName, &r.WorkoutDate, &r.ExerciseNum,
			&r.ExerciseID, &r.ExerciseName, &r.TargetReps, &r.SetIndex, &r.Reps, &r.Weight,
			&r.Completed, &flags); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		r.Flags = parseFlags(flags)
		result = append(result, r)
	}
	return result, rows.Err()
}

func flagStrings(flags []models.Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

func parseFlags(raw []string) []models.Flag {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.Flag, len(raw))
	for i, f := range raw {
		out[i] = models.Flag(f)
	}
	return out
}

// beforeArg maps an unset date bound to NULL.
func beforeArg(before time.Time) any {
	if before.IsZero() {
		return nil
	}
	return before
}

// limitArg maps a non-positive limit to NULL, which Postgres reads as LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func reversed(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
