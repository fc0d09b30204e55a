package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestListRecords verifies the user header is forwarded and the array parsed.
func TestListRecords(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/records": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-User-ID"); got != "alice" {
				t.Errorf("X-User-ID=%q, want alice", got)
			}
			writeTestJSON(t, w, []models.PersonalRecord{
				{ExerciseID: "bench", Metric: models.MetricWeight, ValueNumber: 225},
			})
		},
	})
	defer ts.Close()

	recs, err := NewHTTPClient(ts.URL).ListRecords(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ValueNumber != 225 {
		t.Errorf("records = %+v", recs)
	}
}

// TestGetRecordNotFound verifies a 404 becomes a nil record, not an error.
func TestGetRecordNotFound(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/records/bench/reps": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			writeTestJSON(t, w, map[string]string{"error": "record not found"})
		},
	})
	defer ts.Close()

	rec, err := NewHTTPClient(ts.URL).GetRecord(context.Background(), "local", "bench", models.MetricReps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("record = %+v, want nil", rec)
	}
}

// TestGetRecord verifies a single record response is decoded.
func TestGetRecord(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/records/bench/volume": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.PersonalRecord{ExerciseID: "bench", Metric: models.MetricVolume, ValueNumber: 1350})
		},
	})
	defer ts.Close()

	rec, err := NewHTTPClient(ts.URL).GetRecord(context.Background(), "local", "bench", models.MetricVolume)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.ValueNumber != 1350 {
		t.Errorf("record = %+v, want 1350", rec)
	}
}

// TestWeekOverWeek verifies the now parameter is sent as RFC 3339.
func TestWeekOverWeek(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/volume/weekly": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("now"); got != "2026-03-09T00:00:00Z" {
				t.Errorf("now=%q", got)
			}
			writeTestJSON(t, w, workouts.WeeklyVolume{
				End:    now,
				Change: analytics.ComputeWeekOverWeek(1000, 0),
			})
		},
	})
	defer ts.Close()

	wv, err := NewHTTPClient(ts.URL).WeekOverWeek(context.Background(), "local", now)
	if err != nil {
		t.Fatal(err)
	}
	if wv.Change.Delta != 1000 || wv.Change.Percent != 0 {
		t.Errorf("change = %+v", wv.Change)
	}
}

// TestCheckSet verifies the request body carries null for missing values.
func TestCheckSet(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets/check": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["weight"] != nil {
				t.Errorf("weight = %v, want null", body["weight"])
			}
			if body["reps"] != 8.0 {
				t.Errorf("reps = %v, want 8", body["reps"])
			}
			writeTestJSON(t, w, analytics.SetFlags{
				Flags:        []models.Flag{models.FlagMissingWeight},
				IsIncomplete: true,
			})
		},
	})
	defer ts.Close()

	flags, err := NewHTTPClient(ts.URL).CheckSet(context.Background(), "local", "bench", "", models.Float(8), models.NullFloat{})
	if err != nil {
		t.Fatal(err)
	}
	if !flags.IsIncomplete || !flags.Has(models.FlagMissingWeight) {
		t.Errorf("flags = %+v", flags)
	}
}

// TestListSets verifies the range and filter params.
func TestListSets(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("exercise") != "bench" || q.Get("start") == "" || q.Get("end") == "" {
				t.Errorf("query = %v", q)
			}
			writeTestJSON(t, w, []models.WorkoutSetRow{{WorkoutID: "w1", ExerciseName: "Bench Press"}})
		},
	})
	defer ts.Close()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows, err := NewHTTPClient(ts.URL).ListSets(context.Background(), "local", start, start.AddDate(0, 0, 7), "bench")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].WorkoutID != "w1" {
		t.Errorf("rows = %+v", rows)
	}
}

// TestHTTPClientError verifies non-200 responses are returned as errors.
func TestHTTPClientError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/records": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL).ListRecords(context.Background(), "local"); err == nil {
		t.Error("expected error for 500 response")
	}
}
