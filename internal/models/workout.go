package models

import "time"

// Flag marks a logged set as unusable for statistics.
type Flag string

const (
	FlagMissingReps     Flag = "missing_reps"
	FlagMissingWeight   Flag = "missing_weight"
	FlagRepsHardInvalid Flag = "reps_hard_invalid"
	FlagRepOutlier      Flag = "rep_outlier"
)

// LoggedSet is one attempt at an exercise.
type LoggedSet struct {
	Reps            NullFloat `json:"reps"`
	Weight          NullFloat `json:"weight"`
	Completed       bool      `json:"completed"`
	ValidationFlags []Flag    `json:"validation_flags,omitempty"`
}

// HasFlag reports whether f is among the set's validation flags.
func (s LoggedSet) HasFlag(f Flag) bool {
	for _, got := range s.ValidationFlags {
		if got == f {
			return true
		}
	}
	return false
}

// Exercise is one exercise instance within a workout.
type Exercise struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	TargetSets int         `json:"target_sets,omitempty"`
	TargetReps string      `json:"target_reps,omitempty"` // e.g. "8-10" or "8-10 / 12-15"
	Sets       []LoggedSet `json:"sets"`
}

// WorkoutStats is the aggregate block stored with a finished workout.
type WorkoutStats struct {
	TotalSets     int     `json:"total_sets"`
	CompletedSets int     `json:"completed_sets"`
	TotalVolume   float64 `json:"total_volume"`
	TotalReps     float64 `json:"total_reps"`
}

// Workout is a finalised training session.
type Workout struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Date      time.Time    `json:"date"`
	Exercises []Exercise   `json:"exercises"`
	Stats     WorkoutStats `json:"stats"`
}

// CompletedSetRecord is a set flattened out of its workout, carrying enough
// identity to group or trace it.
type CompletedSetRecord struct {
	WorkoutID    string    `json:"workout_id"`
	ExerciseID   string    `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	SetIndex     int       `json:"set_index"`
	Set          LoggedSet `json:"set"`
}
