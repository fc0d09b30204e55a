package models

import "time"

// Metric is the dimension a personal record is tracked on.
type Metric string

const (
	MetricWeight Metric = "weight"
	MetricReps   Metric = "reps"
	MetricVolume Metric = "volume"
)

// Metrics lists every tracked metric in evaluation order.
var Metrics = []Metric{MetricWeight, MetricReps, MetricVolume}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricWeight, MetricReps, MetricVolume:
		return true
	}
	return false
}

// Unit returns the unit a metric's value is stored in.
func (m Metric) Unit() string {
	if m == MetricReps {
		return "reps"
	}
	return "lbs"
}

// PRStatus classifies an evaluated record.
type PRStatus string

const (
	StatusNewPR   PRStatus = "new_pr"
	StatusFirstPR PRStatus = "first_pr"
	StatusTiedPR  PRStatus = "tied_pr"
)

// PRContext describes the set a record came from.
type PRContext struct {
	WorkoutID string  `json:"workout_id"`
	SetIndex  int     `json:"set_index"`
	Reps      float64 `json:"reps"`
	Weight    float64 `json:"weight"`
}

// PersonalRecord is the stored best for one (user, exercise, metric).
type PersonalRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ExerciseID  string    `json:"exercise_id"`
	Metric      Metric    `json:"metric"`
	ValueNumber float64   `json:"value_number"`
	Unit        string    `json:"unit"`
	AchievedAt  time.Time `json:"achieved_at"`
	Context     PRContext `json:"context_json"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EvaluatedPR is the outcome of comparing a workout's best against the store.
type EvaluatedPR struct {
	ExerciseID     string          `json:"exercise_id"`
	Metric         Metric          `json:"metric"`
	Status         PRStatus        `json:"status"`
	PreviousRecord *PersonalRecord `json:"previous_record,omitempty"`
	NewRecord      PersonalRecord  `json:"new_record"`
}
