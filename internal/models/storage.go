package models

import "time"

// WorkoutSetRow is a row for the workout_sets history table.
type WorkoutSetRow struct {
	UserID       string    `json:"user_id"`
	WorkoutID    string    `json:"workout_id"`
	WorkoutName  string    `json:"workout_name"`
	WorkoutDate  time.Time `json:"workout_date"`
	ExerciseNum  int       `json:"exercise_number"`
	ExerciseID   string    `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	TargetReps   string    `json:"target_reps,omitempty"`
	SetIndex     int       `json:"set_index"`
	Reps         *float64  `json:"reps"`
	Weight       *float64  `json:"weight"`
	Completed    bool      `json:"completed"`
	Flags        []Flag    `json:"flags,omitempty"`
}

// HistoricalSet is a prior performance used for progression comparison.
type HistoricalSet struct {
	WorkoutID    string    `json:"workout_id"`
	ExerciseName string    `json:"exercise_name"`
	SetIndex     int       `json:"set_index"`
	Reps         float64   `json:"reps"`
	Weight       float64   `json:"weight"`
	Completed    bool      `json:"completed"`
	PerformedAt  time.Time `json:"performed_at"`
}

// RowsFromWorkout flattens a workout into history rows, preserving set order.
func RowsFromWorkout(userID string, w Workout) []WorkoutSetRow {
	var rows []WorkoutSetRow
	for n, ex := range w.Exercises {
		for i, s := range ex.Sets {
			rows = append(rows, WorkoutSetRow{
				UserID:       userID,
				WorkoutID:    w.ID,
				WorkoutName:  w.Name,
				WorkoutDate:  w.Date,
				ExerciseNum:  n,
				ExerciseID:   ex.ID,
				ExerciseName: ex.Name,
				TargetReps:   ex.TargetReps,
				SetIndex:     i,
				Reps:         s.Reps.Ptr(),
				Weight:       s.Weight.Ptr(),
				Completed:    s.Completed,
				Flags:        s.ValidationFlags,
			})
		}
	}
	return rows
}

// Historical converts a row into a prior performance. ok is false when the
// row lacks usable reps or weight.
func (r WorkoutSetRow) Historical() (HistoricalSet, bool) {
	if r.Reps == nil || r.Weight == nil {
		return HistoricalSet{}, false
	}
	return HistoricalSet{
		WorkoutID:    r.WorkoutID,
		ExerciseName: r.ExerciseName,
		SetIndex:     r.SetIndex,
		Reps:         *r.Reps,
		Weight:       *r.Weight,
		Completed:    r.Completed,
		PerformedAt:  r.WorkoutDate,
	}, true
}

// ImportLog records one importer run.
type ImportLog struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	Source           string    `json:"source"`
	Status           string    `json:"status"`
	WorkoutsReceived int       `json:"workouts_received"`
	WorkoutsImported int       `json:"workouts_imported"`
	SetsRecorded     int64     `json:"sets_recorded"`
	RecordsSaved     int       `json:"records_saved"`
	DurationMs       *int      `json:"duration_ms"`
	ErrorMessage     *string   `json:"error_message"`
}
