package localdb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/go-cmp/cmp"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "liftlog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleWorkout(id string, date time.Time, reps ...float64) models.Workout {
	sets := make([]models.LoggedSet, len(reps))
	for i, r := range reps {
		sets[i] = models.LoggedSet{Reps: models.Float(r), Weight: models.Float(100), Completed: true}
	}
	return models.Workout{
		ID:   id,
		Name: "Push",
		Date: date,
		Exercises: []models.Exercise{
			{ID: "bench", Name: "Bench Press", TargetReps: "8-10", Sets: sets},
		},
	}
}

// TestOpenCreatesDirectory verifies Open creates missing parent directories
// and the schema can be applied twice.
func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "liftlog.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

// TestUpsertPR verifies insert, update in place and the absent-record case.
func TestUpsertPR(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	got, err := db.GetPR(ctx, "u1", "bench", models.MetricWeight)
	if err != nil {
		t.Fatalf("GetPR: %v", err)
	}
	if got != nil {
		t.Fatalf("GetPR on empty db = %+v, want nil", got)
	}

	achieved := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first, err := db.UpsertPR(ctx, models.PersonalRecord{
		UserID: "u1", ExerciseID: "bench", Metric: models.MetricWeight,
		ValueNumber: 200, Unit: "lbs", AchievedAt: achieved,
		Context: models.PRContext{WorkoutID: "w1", SetIndex: 2, Reps: 5, Weight: 200},
	})
	if err != nil {
		t.Fatalf("UpsertPR: %v", err)
	}

	second, err := db.UpsertPR(ctx, models.PersonalRecord{
		UserID: "u1", ExerciseID: "bench", Metric: models.MetricWeight,
		ValueNumber: 210, Unit: "lbs", AchievedAt: achieved.Add(24 * time.Hour),
		Context: models.PRContext{WorkoutID: "w2", SetIndex: 0, Reps: 3, Weight: 210},
	})
	if err != nil {
		t.Fatalf("UpsertPR update: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on update: %s -> %s", first.ID, second.ID)
	}
	if second.ValueNumber != 210 {
		t.Errorf("ValueNumber = %v, want 210", second.ValueNumber)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on update")
	}
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards")
	}

	stored, err := db.GetPR(ctx, "u1", "bench", models.MetricWeight)
	if err != nil {
		t.Fatalf("GetPR: %v", err)
	}
	want := models.PRContext{WorkoutID: "w2", SetIndex: 0, Reps: 3, Weight: 210}
	if diff := cmp.Diff(want, stored.Context); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
	if !stored.AchievedAt.Equal(achieved.Add(24 * time.Hour)) {
		t.Errorf("AchievedAt = %v", stored.AchievedAt)
	}
}

// TestUpsertPRRejectsUnknownMetric verifies the metric is validated before
// touching the database.
func TestUpsertPRRejectsUnknownMetric(t *testing.T) {
	db := openTemp(t)
	_, err := db.UpsertPR(context.Background(), models.PersonalRecord{
		UserID: "u1", ExerciseID: "bench", Metric: "speed",
	})
	if err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

// TestListAndClearPRs verifies ordering and that clearing is scoped to one user.
func TestListAndClearPRs(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	for _, r := range []models.PersonalRecord{
		{UserID: "u1", ExerciseID: "squat", Metric: models.MetricVolume, ValueNumber: 1500},
		{UserID: "u1", ExerciseID: "bench", Metric: models.MetricReps, ValueNumber: 12},
		{UserID: "u1", ExerciseID: "bench", Metric: models.MetricWeight, ValueNumber: 200},
		{UserID: "u2", ExerciseID: "bench", Metric: models.MetricWeight, ValueNumber: 150},
	} {
		if _, err := db.UpsertPR(ctx, r); err != nil {
			t.Fatalf("UpsertPR: %v", err)
		}
	}

	list, err := db.ListPRs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPRs: %v", err)
	}
	var keys []string
	for _, r := range list {
		keys = append(keys, r.ExerciseID+"/"+string(r.Metric))
	}
	want := []string{"bench/weight", "bench/reps", "squat/volume"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("ListPRs order mismatch (-want +got):\n%s", diff)
	}

	n, err := db.ClearPRs(ctx, "u1")
	if err != nil {
		t.Fatalf("ClearPRs: %v", err)
	}
	if n != 3 {
		t.Errorf("ClearPRs removed %d, want 3", n)
	}
	other, err := db.ListPRs(ctx, "u2")
	if err != nil {
		t.Fatalf("ListPRs: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("u2 has %d records after clearing u1, want 1", len(other))
	}
}

// TestConcurrentUpserts verifies racing upserts leave exactly one row.
func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			if _, err := db.UpsertPR(ctx, models.PersonalRecord{
				UserID: "u1", ExerciseID: "bench", Metric: models.MetricWeight, ValueNumber: v,
			}); err != nil {
				t.Errorf("UpsertPR: %v", err)
			}
		}(float64(100 + i))
	}
	wg.Wait()

	list, err := db.ListPRs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPRs: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d rows, want 1", len(list))
	}
}

// TestRecordWorkoutReplaces verifies re-recording a workout replaces its rows
// rather than duplicating them.
func TestRecordWorkoutReplaces(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	n, err := db.RecordWorkout(ctx, "u1", sampleWorkout("w1", day, 8, 8, 7))
	if err != nil {
		t.Fatalf("RecordWorkout: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted %d, want 3", n)
	}
	n, err = db.RecordWorkout(ctx, "u1", sampleWorkout("w1", day, 10, 9))
	if err != nil {
		t.Fatalf("RecordWorkout again: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted %d, want 2", n)
	}

	rows, err := db.QueryWorkoutSets(ctx, "u1", day.Add(-time.Hour), day.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("QueryWorkoutSets: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if *rows[0].Reps != 10 || *rows[1].Reps != 9 {
		t.Errorf("reps = %v, %v; want 10, 9", *rows[0].Reps, *rows[1].Reps)
	}
}

// TestRecordWorkoutKeepsNullsAndFlags verifies missing values stay NULL and
// flags round trip through the TEXT column.
func TestRecordWorkoutKeepsNullsAndFlags(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	w := models.Workout{
		ID: "w1", Date: day,
		Exercises: []models.Exercise{{ID: "bench", Name: "Bench Press", Sets: []models.LoggedSet{{
			Reps:            models.Float(8),
			Completed:       true,
			ValidationFlags: []models.Flag{models.FlagMissingWeight},
		}}}},
	}
	if _, err := db.RecordWorkout(ctx, "u1", w); err != nil {
		t.Fatalf("RecordWorkout: %v", err)
	}

	rows, err := db.QueryWorkoutSets(ctx, "u1", day, day.Add(time.Hour), "bench")
	if err != nil {
		t.Fatalf("QueryWorkoutSets: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Weight != nil {
		t.Errorf("Weight = %v, want nil", *rows[0].Weight)
	}
	if diff := cmp.Diff([]models.Flag{models.FlagMissingWeight}, rows[0].Flags); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
}

// TestRecentReps verifies the window excludes the current workout, skips
// hard-invalid values and comes back oldest first.
func TestRecentReps(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i, w := range []models.Workout{
		sampleWorkout("w1", day, 5, 0, 6),
		sampleWorkout("w2", day.Add(48*time.Hour), 7, 80),
		sampleWorkout("w3", day.Add(96*time.Hour), 9),
	} {
		if _, err := db.RecordWorkout(ctx, "u1", w); err != nil {
			t.Fatalf("RecordWorkout %d: %v", i, err)
		}
	}

	got, err := db.RecentReps(ctx, "u1", "bench", "w3", time.Time{}, 10)
	if err != nil {
		t.Fatalf("RecentReps: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 6, 7}, got); diff != "" {
		t.Errorf("RecentReps mismatch (-want +got):\n%s", diff)
	}

	got, err = db.RecentReps(ctx, "u1", "bench", "w3", time.Time{}, 2)
	if err != nil {
		t.Fatalf("RecentReps: %v", err)
	}
	if diff := cmp.Diff([]float64{6, 7}, got); diff != "" {
		t.Errorf("RecentReps limited mismatch (-want +got):\n%s", diff)
	}

	// A non-positive limit returns everything.
	got, err = db.RecentReps(ctx, "u1", "bench", "", time.Time{}, 0)
	if err != nil {
		t.Fatalf("RecentReps: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 6, 7, 9}, got); diff != "" {
		t.Errorf("RecentReps unlimited mismatch (-want +got):\n%s", diff)
	}

	// Only workouts dated before the bound count.
	got, err = db.RecentReps(ctx, "u1", "bench", "", day.Add(48*time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentReps: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 6}, got); diff != "" {
		t.Errorf("RecentReps before w2 mismatch (-want +got):\n%s", diff)
	}
}

// TestPriorSetsAndVolume verifies prior-set lookup by name and the weekly
// volume window bounds.
func TestPriorSetsAndVolume(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if _, err := db.RecordWorkout(ctx, "u1", sampleWorkout("w1", day, 8, 8)); err != nil {
		t.Fatalf("RecordWorkout: %v", err)
	}
	if _, err := db.RecordWorkout(ctx, "u1", sampleWorkout("w2", day.Add(7*24*time.Hour), 10)); err != nil {
		t.Fatalf("RecordWorkout: %v", err)
	}

	prior, err := db.PriorSets(ctx, "u1", []string{"Bench Press"}, "w2", time.Time{})
	if err != nil {
		t.Fatalf("PriorSets: %v", err)
	}
	if len(prior) != 2 {
		t.Fatalf("PriorSets returned %d, want 2", len(prior))
	}
	if prior[0].WorkoutID != "w1" || !prior[0].PerformedAt.Equal(day) {
		t.Errorf("prior[0] = %+v", prior[0])
	}

	if got, err := db.PriorSets(ctx, "u1", nil, "w2", time.Time{}); err != nil || got != nil {
		t.Errorf("PriorSets(nil names) = %v, %v", got, err)
	}

	// Nothing is dated before the first workout.
	if got, err := db.PriorSets(ctx, "u1", []string{"Bench Press"}, "", day); err != nil || len(got) != 0 {
		t.Errorf("PriorSets(before w1) = %v, %v; want none", got, err)
	}
	later, err := db.PriorSets(ctx, "u1", []string{"Bench Press"}, "", day.Add(7*24*time.Hour))
	if err != nil || len(later) != 2 {
		t.Errorf("PriorSets(before w2) = %d rows, %v; want 2", len(later), err)
	}

	vol, err := db.VolumeBetween(ctx, "u1", day, day.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("VolumeBetween: %v", err)
	}
	if vol != 1600 {
		t.Errorf("VolumeBetween = %v, want 1600", vol)
	}

	vol, err = db.VolumeBetween(ctx, "u2", day, day.Add(14*24*time.Hour))
	if err != nil {
		t.Fatalf("VolumeBetween: %v", err)
	}
	if vol != 0 {
		t.Errorf("VolumeBetween for empty user = %v, want 0", vol)
	}
}

// TestImportLogs verifies a run can be opened, closed and listed newest first.
func TestImportLogs(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	first, err := db.InsertImportLog(ctx, models.ImportLog{UserID: "u1", Source: "file:a.json", Status: "running"})
	if err != nil {
		t.Fatalf("InsertImportLog: %v", err)
	}
	second, err := db.InsertImportLog(ctx, models.ImportLog{UserID: "u1", Source: "file:b.json", Status: "running"})
	if err != nil {
		t.Fatalf("InsertImportLog: %v", err)
	}

	ms := 120
	if err := db.UpdateImportLog(ctx, first, models.ImportLog{
		Status: "success", WorkoutsReceived: 3, WorkoutsImported: 3, SetsRecorded: 12, RecordsSaved: 4, DurationMs: &ms,
	}); err != nil {
		t.Fatalf("UpdateImportLog: %v", err)
	}

	logs, err := db.QueryImportLogs(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("QueryImportLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].ID != second {
		t.Errorf("newest log id = %d, want %d", logs[0].ID, second)
	}
	done := logs[1]
	if done.Status != "success" || done.SetsRecorded != 12 || done.DurationMs == nil || *done.DurationMs != 120 {
		t.Errorf("updated log = %+v", done)
	}
	if logs[0].ErrorMessage != nil {
		t.Errorf("ErrorMessage = %v, want nil", *logs[0].ErrorMessage)
	}
}
