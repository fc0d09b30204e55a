// Package analytics holds the pure workout computations: set validation,
// volume and e1RM arithmetic, and set-by-set progression against history.
// Nothing here performs I/O; callers load history and pass it in.
package analytics

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/claude/liftlog/internal/models"
)

const (
	// MinReps and MaxReps bound a hard-valid rep count.
	MinReps = 1
	MaxReps = 40

	// OutlierWindow is how many recent rep counts feed the outlier median.
	OutlierWindow = 10

	// targetOutlierMargin is how far above the top of the target range a rep
	// count may go before it is treated as a typo.
	targetOutlierMargin = 10
)

var integerRe = regexp.MustCompile(`\d+`)

// RepsMissing reports reps that are absent or below one.
func RepsMissing(reps models.NullFloat) bool {
	return !reps.Valid || reps.Float64 < MinReps
}

// WeightMissing reports an absent weight. Zero is a valid (bodyweight) weight.
func WeightMissing(weight models.NullFloat) bool {
	return !weight.Valid
}

// RepsHardInvalid reports a numeric rep count outside [MinReps, MaxReps].
func RepsHardInvalid(reps models.NullFloat) bool {
	return reps.Valid && (reps.Float64 < MinReps || reps.Float64 > MaxReps)
}

// TargetRange is the rep range parsed from an exercise's target string.
type TargetRange struct {
	Min       int `json:"min"`
	Max       int `json:"max"`
	Suggested int `json:"suggested"`
}

// ParseTargetReps extracts every integer from s ("8-10", "8-10 / 12-15", "12")
// and returns their min and max. ok is false when s holds no integer.
func ParseTargetReps(s string) (TargetRange, bool) {
	matches := integerRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return TargetRange{}, false
	}
	r := TargetRange{Min: math.MaxInt, Max: math.MinInt}
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		r.Min = min(r.Min, n)
		r.Max = max(r.Max, n)
	}
	if r.Min > r.Max {
		return TargetRange{}, false
	}
	r.Suggested = int(math.Round(float64(r.Min+r.Max) / 2))
	return r, true
}

// RepWindow keeps the hard-valid rep counts from history (oldest first) and
// returns at most the last OutlierWindow of them.
func RepWindow(history []float64) []float64 {
	var valid []float64
	for _, r := range history {
		if r >= MinReps && r <= MaxReps {
			valid = append(valid, r)
		}
	}
	if len(valid) > OutlierWindow {
		valid = valid[len(valid)-OutlierWindow:]
	}
	return valid
}

// Median returns the median of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// SetFlagParams is the input to GetSetFlags.
type SetFlagParams struct {
	Reps   models.NullFloat `json:"reps"`
	Weight models.NullFloat `json:"weight"`
	// RecentReps are prior rep counts for the same exercise, oldest first.
	RecentReps []float64 `json:"recent_reps,omitempty"`
	TargetReps string    `json:"target_reps,omitempty"`
}

// SetFlags is the validation verdict for one set.
type SetFlags struct {
	Flags         []models.Flag `json:"flags"`
	IsIncomplete  bool          `json:"is_incomplete"`
	IsHardInvalid bool          `json:"is_hard_invalid"`
	SuggestedReps *int          `json:"suggested_reps,omitempty"`
}

// Has reports whether f was raised.
func (f SetFlags) Has(flag models.Flag) bool {
	for _, got := range f.Flags {
		if got == flag {
			return true
		}
	}
	return false
}

// GetSetFlags classifies a set's reps and weight. An outlier is judged
// against the median of recent history when there is any, otherwise against
// the exercise's target range, otherwise not at all.
func GetSetFlags(p SetFlagParams) SetFlags {
	res := SetFlags{Flags: []models.Flag{}}

	if RepsMissing(p.Reps) {
		res.Flags = append(res.Flags, models.FlagMissingReps)
		res.IsIncomplete = true
	}
	if WeightMissing(p.Weight) {
		res.Flags = append(res.Flags, models.FlagMissingWeight)
		res.IsIncomplete = true
	}
	if RepsHardInvalid(p.Reps) {
		res.Flags = append(res.Flags, models.FlagRepsHardInvalid)
		res.IsHardInvalid = true
	}

	if !p.Reps.Valid || res.IsHardInvalid {
		return res
	}
	reps := p.Reps.Float64

	if window := RepWindow(p.RecentReps); len(window) > 0 {
		median := Median(window)
		if median > 0 && reps >= 2*median {
			suggested := int(math.Round(median))
			res.Flags = append(res.Flags, models.FlagRepOutlier)
			res.SuggestedReps = &suggested
		}
		return res
	}

	if target, ok := ParseTargetReps(p.TargetReps); ok && reps > float64(target.Max+targetOutlierMargin) {
		suggested := target.Suggested
		res.Flags = append(res.Flags, models.FlagRepOutlier)
		res.SuggestedReps = &suggested
	}
	return res
}

var disqualifyingFlags = []models.Flag{
	models.FlagMissingReps,
	models.FlagMissingWeight,
	models.FlagRepsHardInvalid,
	models.FlagRepOutlier,
}

// IsStatsEligible reports whether a set counts towards statistics and
// records: it must be completed, carry valid reps and weight, and have no
// disqualifying flag.
func IsStatsEligible(s models.LoggedSet) bool {
	if !s.Completed {
		return false
	}
	if RepsMissing(s.Reps) || WeightMissing(s.Weight) || RepsHardInvalid(s.Reps) {
		return false
	}
	for _, f := range disqualifyingFlags {
		if s.HasFlag(f) {
			return false
		}
	}
	return true
}

// AnnotateWorkout returns a copy of w with every set's validation flags
// recomputed. recent maps exercise ID to that exercise's prior rep counts.
func AnnotateWorkout(w models.Workout, recent map[string][]float64) models.Workout {
	out := w
	out.Exercises = make([]models.Exercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		annotated := ex
		annotated.Sets = make([]models.LoggedSet, len(ex.Sets))
		for j, s := range ex.Sets {
			flags := GetSetFlags(SetFlagParams{
				Reps:       s.Reps,
				Weight:     s.Weight,
				RecentReps: recent[ex.ID],
				TargetReps: ex.TargetReps,
			})
			s.ValidationFlags = nil
			if len(flags.Flags) > 0 {
				s.ValidationFlags = flags.Flags
			}
			annotated.Sets[j] = s
		}
		out.Exercises[i] = annotated
	}
	return out
}
