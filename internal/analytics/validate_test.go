package analytics

import (
	"testing"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/go-cmp/cmp"
)

func completedSet(reps, weight float64) models.LoggedSet {
	return models.LoggedSet{Reps: models.Float(reps), Weight: models.Float(weight), Completed: true}
}

// TestParseTargetReps verifies integers are pulled from free-form target
// strings and the suggestion is the rounded midpoint.
func TestParseTargetReps(t *testing.T) {
	cases := []struct {
		input  string
		want   TargetRange
		wantOK bool
	}{
		{"8-10", TargetRange{Min: 8, Max: 10, Suggested: 9}, true},
		{"8-10 / 12-15", TargetRange{Min: 8, Max: 15, Suggested: 12}, true},
		{"12", TargetRange{Min: 12, Max: 12, Suggested: 12}, true},
		{"5-8 reps", TargetRange{Min: 5, Max: 8, Suggested: 7}, true},
		{"AMRAP", TargetRange{}, false},
		{"", TargetRange{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseTargetReps(tc.input)
		if ok != tc.wantOK {
			t.Errorf("ParseTargetReps(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
		}
		if got != tc.want {
			t.Errorf("ParseTargetReps(%q) = %+v, want %+v", tc.input, got, tc.want)
		}
	}
}

// TestMedian covers odd, even and empty inputs and confirms the input is not
// reordered.
func TestMedian(t *testing.T) {
	in := []float64{10, 8, 12}
	if got := Median(in); got != 10 {
		t.Errorf("Median(odd) = %v, want 10", got)
	}
	if in[0] != 10 || in[1] != 8 {
		t.Errorf("Median mutated its input: %v", in)
	}
	if got := Median([]float64{8, 10, 12, 6}); got != 9 {
		t.Errorf("Median(even) = %v, want 9", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %v, want 0", got)
	}
}

// TestRepWindow verifies out-of-range history is dropped and only the most
// recent entries are kept.
func TestRepWindow(t *testing.T) {
	history := []float64{0, 50, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	want := []float64{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if diff := cmp.Diff(want, RepWindow(history)); diff != "" {
		t.Errorf("RepWindow mismatch (-want +got):\n%s", diff)
	}
}

// TestGetSetFlagsMissing verifies missing reps and weight are flagged and the
// set is marked incomplete.
func TestGetSetFlagsMissing(t *testing.T) {
	got := GetSetFlags(SetFlagParams{})
	want := SetFlags{
		Flags:        []models.Flag{models.FlagMissingReps, models.FlagMissingWeight},
		IsIncomplete: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetSetFlags mismatch (-want +got):\n%s", diff)
	}
}

// TestGetSetFlagsZeroWeightIsValid verifies a bodyweight set with weight 0 is
// not treated as missing weight.
func TestGetSetFlagsZeroWeightIsValid(t *testing.T) {
	got := GetSetFlags(SetFlagParams{Reps: models.Float(10), Weight: models.Float(0)})
	if len(got.Flags) != 0 || got.IsIncomplete {
		t.Errorf("GetSetFlags(10 x 0) = %+v, want no flags", got)
	}
}

// TestGetSetFlagsHardInvalid verifies reps above 40 are flagged but not clamped,
// and that no outlier check runs on them.
func TestGetSetFlagsHardInvalid(t *testing.T) {
	got := GetSetFlags(SetFlagParams{
		Reps:       models.Float(45),
		Weight:     models.Float(100),
		RecentReps: []float64{8, 8, 8},
	})
	want := SetFlags{Flags: []models.Flag{models.FlagRepsHardInvalid}, IsHardInvalid: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetSetFlags mismatch (-want +got):\n%s", diff)
	}
}

// TestGetSetFlagsZeroRepsIsMissingAndHardInvalid verifies reps of 0 trip both
// the missing-data and range rules.
func TestGetSetFlagsZeroRepsIsMissingAndHardInvalid(t *testing.T) {
	got := GetSetFlags(SetFlagParams{Reps: models.Float(0), Weight: models.Float(100)})
	if !got.Has(models.FlagMissingReps) || !got.Has(models.FlagRepsHardInvalid) {
		t.Errorf("GetSetFlags(0 reps) flags = %v", got.Flags)
	}
}

// TestGetSetFlagsHistoryOutlier verifies reps at twice the recent median are
// flagged with the rounded median as the suggestion.
func TestGetSetFlagsHistoryOutlier(t *testing.T) {
	history := []float64{8, 9, 8, 10, 8}
	got := GetSetFlags(SetFlagParams{Reps: models.Float(16), Weight: models.Float(100), RecentReps: history})
	if !got.Has(models.FlagRepOutlier) {
		t.Fatalf("expected rep_outlier, got %v", got.Flags)
	}
	if got.SuggestedReps == nil || *got.SuggestedReps != 8 {
		t.Errorf("SuggestedReps = %v, want 8", got.SuggestedReps)
	}

	got = GetSetFlags(SetFlagParams{Reps: models.Float(15), Weight: models.Float(100), RecentReps: history})
	if got.Has(models.FlagRepOutlier) {
		t.Errorf("15 reps against median 8 should not be an outlier")
	}
}

// TestGetSetFlagsHistoryBeatsTarget verifies the target range is not consulted
// once any history exists.
func TestGetSetFlagsHistoryBeatsTarget(t *testing.T) {
	got := GetSetFlags(SetFlagParams{
		Reps:       models.Float(25),
		Weight:     models.Float(50),
		RecentReps: []float64{20, 22},
		TargetReps: "8-10",
	})
	if got.Has(models.FlagRepOutlier) {
		t.Errorf("history median 21 should accept 25 reps, got %v", got.Flags)
	}
}

// TestGetSetFlagsTargetFallback verifies the target-range rule applies when
// there is no usable history.
func TestGetSetFlagsTargetFallback(t *testing.T) {
	got := GetSetFlags(SetFlagParams{
		Reps:       models.Float(21),
		Weight:     models.Float(50),
		RecentReps: []float64{0, 99}, // all filtered out
		TargetReps: "8-10",
	})
	if !got.Has(models.FlagRepOutlier) {
		t.Fatalf("21 reps against 8-10 should be an outlier, got %v", got.Flags)
	}
	if got.SuggestedReps == nil || *got.SuggestedReps != 9 {
		t.Errorf("SuggestedReps = %v, want 9", got.SuggestedReps)
	}

	got = GetSetFlags(SetFlagParams{Reps: models.Float(20), Weight: models.Float(50), TargetReps: "8-10"})
	if got.Has(models.FlagRepOutlier) {
		t.Errorf("20 reps is exactly max+10 and should not be an outlier")
	}
}

// TestGetSetFlagsNoHistoryNoTarget verifies there is no outlier check when
// neither history nor a target is available.
func TestGetSetFlagsNoHistoryNoTarget(t *testing.T) {
	got := GetSetFlags(SetFlagParams{Reps: models.Float(40), Weight: models.Float(20)})
	if len(got.Flags) != 0 {
		t.Errorf("flags = %v, want none", got.Flags)
	}
}

// TestIsStatsEligibleRequiresCompletion verifies an incomplete set is never
// eligible regardless of its values.
func TestIsStatsEligibleRequiresCompletion(t *testing.T) {
	for _, s := range []models.LoggedSet{
		{Reps: models.Float(8), Weight: models.Float(100)},
		{Reps: models.Float(1), Weight: models.Float(0)},
		{Reps: models.Float(40), Weight: models.Float(500)},
		{},
	} {
		if IsStatsEligible(s) {
			t.Errorf("IsStatsEligible(%+v) = true for an incomplete set", s)
		}
	}
}

// TestIsStatsEligible covers the data rules applied to completed sets.
func TestIsStatsEligible(t *testing.T) {
	cases := []struct {
		name string
		set  models.LoggedSet
		want bool
	}{
		{"normal", completedSet(8, 100), true},
		{"bodyweight", completedSet(12, 0), true},
		{"zero reps", completedSet(0, 100), false},
		{"too many reps", completedSet(41, 100), false},
		{"missing weight", models.LoggedSet{Reps: models.Float(8), Completed: true}, false},
		{"flagged outlier", models.LoggedSet{
			Reps: models.Float(30), Weight: models.Float(50), Completed: true,
			ValidationFlags: []models.Flag{models.FlagRepOutlier},
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsStatsEligible(tc.set); got != tc.want {
				t.Errorf("IsStatsEligible = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestAnnotateWorkout verifies flags are recomputed per exercise without
// mutating the input workout.
func TestAnnotateWorkout(t *testing.T) {
	in := models.Workout{
		ID: "w1",
		Exercises: []models.Exercise{
			{ID: "bench", TargetReps: "8-10", Sets: []models.LoggedSet{
				completedSet(8, 100),
				completedSet(20, 100),
			}},
			{ID: "curl", Sets: []models.LoggedSet{
				{Reps: models.Float(10), Completed: true, ValidationFlags: []models.Flag{models.FlagRepOutlier}},
			}},
		},
	}
	out := AnnotateWorkout(in, map[string][]float64{"bench": {8, 8, 9}})

	if got := out.Exercises[0].Sets[0].ValidationFlags; got != nil {
		t.Errorf("set 0 flags = %v, want none", got)
	}
	if !out.Exercises[0].Sets[1].HasFlag(models.FlagRepOutlier) {
		t.Errorf("set 1 flags = %v, want rep_outlier", out.Exercises[0].Sets[1].ValidationFlags)
	}
	wantCurl := []models.Flag{models.FlagMissingWeight}
	if diff := cmp.Diff(wantCurl, out.Exercises[1].Sets[0].ValidationFlags); diff != "" {
		t.Errorf("curl flags mismatch (-want +got):\n%s", diff)
	}
	if in.Exercises[0].Sets[1].ValidationFlags != nil {
		t.Error("AnnotateWorkout mutated its input")
	}
}
