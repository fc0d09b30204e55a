package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
	"github.com/go-chi/chi/v5"
)

// Request body caps.
const (
	maxWorkoutBody  = 4 << 20
	maxCheckSetBody = 64 << 10
)

func (s *Server) handleCompleteWorkout(w http.ResponseWriter, r *http.Request) {
	s.submitWorkout(w, r, s.svc.CompleteWorkout)
}

func (s *Server) handlePreviewWorkout(w http.ResponseWriter, r *http.Request) {
	s.submitWorkout(w, r, s.svc.PreviewWorkout)
}

type workoutFunc func(ctx context.Context, userID string, wk models.Workout) (*workouts.Result, error)

func (s *Server) submitWorkout(w http.ResponseWriter, r *http.Request, process workoutFunc) {
	var wk models.Workout
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWorkoutBody)).Decode(&wk); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	res, err := process(r.Context(), userIDFromContext(r), wk)
	if err != nil {
		s.writeServiceError(w, "workout", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type checkSetRequest struct {
	ExerciseID string           `json:"exercise_id"`
	TargetReps string           `json:"target_reps"`
	Reps       models.NullFloat `json:"reps"`
	Weight     models.NullFloat `json:"weight"`
}

func (s *Server) handleCheckSet(w http.ResponseWriter, r *http.Request) {
	var req checkSetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckSetBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	flags, err := s.svc.CheckSet(r.Context(), userIDFromContext(r), req.ExerciseID, req.TargetReps, req.Reps, req.Weight)
	if err != nil {
		s.writeServiceError(w, "check set", err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListRecords(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeServiceError(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	metric := models.Metric(chi.URLParam(r, "metric"))

	rec, err := s.svc.GetRecord(r.Context(), userIDFromContext(r), exerciseID, metric)
	if err != nil {
		s.writeServiceError(w, "get record", err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ClearRecords(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeServiceError(w, "clear records", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleWeeklyVolume(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if v := r.URL.Query().Get("now"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid now: " + err.Error()})
			return
		}
		now = t
	}

	wv, err := s.svc.WeekOverWeek(r.Context(), userIDFromContext(r), now)
	if err != nil {
		s.writeServiceError(w, "weekly volume", err)
		return
	}
	writeJSON(w, http.StatusOK, wv)
}

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := s.svc.ListSets(r.Context(), userIDFromContext(r), start, end, r.URL.Query().Get("exercise"))
	if err != nil {
		s.writeServiceError(w, "query sets", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.logs.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []models.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// writeServiceError maps validation failures to 400 and everything else to 500.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, workouts.ErrInvalidWorkout) || errors.Is(err, workouts.ErrUnknownMetric) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.log.Error(op+" error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = parseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if endStr == "" {
		end = time.Now()
		return
	}
	end, err = time.Parse(time.RFC3339, endStr)
	if err != nil {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// End of day for date-only
		end = end.Add(24 * time.Hour)
	}
	return
}
