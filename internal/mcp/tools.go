package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("List all personal records. Each exercise has up to three: heaviest weight, most reps in a set, and highest single-set volume (reps x weight), with the workout and set they came from."),
)

var toolGetPersonalRecord = mcp.NewTool("get_personal_record",
	mcp.WithDescription("Get one personal record for an exercise and metric."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise ID")),
	mcp.WithString("metric", mcp.Required(), mcp.Description("Record metric"), mcp.Enum("weight", "reps", "volume")),
)

var toolGetWeeklyVolume = mcp.NewTool("get_weekly_volume",
	mcp.WithDescription("Compare training volume (sum of reps x weight over completed sets) for the last 7 days against the 7 days before. Percent is 0 when there is no previous volume."),
	mcp.WithString("now", mcp.Description("End of the current week (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolCheckSet = mcp.NewTool("check_set",
	mcp.WithDescription("Check a set before logging it. Flags missing reps or weight, impossible rep counts (outside 1-40) and likely typos compared with recent history or the target rep range, with a suggested rep count for typos."),
	mcp.WithString("exercise_id", mcp.Description("Exercise ID, used to load recent rep history")),
	mcp.WithString("target_reps", mcp.Description("Target rep range, e.g. '8-10'")),
	mcp.WithNumber("reps", mcp.Description("Reps performed. Omit if not entered.")),
	mcp.WithNumber("weight", mcp.Description("Weight used. Omit if not entered.")),
)

var toolGetWorkoutSets = mcp.NewTool("get_workout_sets",
	mcp.WithDescription("Query logged sets. Returns each set's reps, weight, completion and validation flags."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench press')")),
)

// --- Tool handlers ---

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := h.ds.ListRecords(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(recs)
}

func (h *handlers) getPersonalRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	metric, err := req.RequireString("metric")
	if err != nil {
		return mcp.NewToolResultError("metric parameter is required"), nil
	}
	if !models.Metric(metric).Valid() {
		return mcp.NewToolResultError("metric must be one of weight, reps, volume"), nil
	}

	rec, err := h.ds.GetRecord(ctx, UserIDFromContext(ctx), exerciseID, models.Metric(metric))
	if err != nil {
		h.log.Error("mcp get_personal_record", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if rec == nil {
		return mcp.NewToolResultText("no " + metric + " record for " + exerciseID), nil
	}
	return jsonResult(rec)
}

func (h *handlers) getWeeklyVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := time.Now()
	if v := req.GetString("now", ""); v != "" {
		t, err := parseFlexTime(v)
		if err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
		now = t
	}

	wv, err := h.ds.WeekOverWeek(ctx, UserIDFromContext(ctx), now)
	if err != nil {
		h.log.Error("mcp get_weekly_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(wv)
}

func (h *handlers) checkSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var reps, weight models.NullFloat
	if v, err := req.RequireFloat("reps"); err == nil {
		reps = models.Float(v)
	}
	if v, err := req.RequireFloat("weight"); err == nil {
		weight = models.Float(v)
	}

	flags, err := h.ds.CheckSet(ctx, UserIDFromContext(ctx),
		req.GetString("exercise_id", ""), req.GetString("target_reps", ""), reps, weight)
	if err != nil {
		h.log.Error("mcp check_set", "error", err)
		return mcp.NewToolResultError("check failed: " + err.Error()), nil
	}
	return jsonResult(flags)
}

func (h *handlers) getWorkoutSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.ds.ListSets(ctx, UserIDFromContext(ctx), start, end, req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_workout_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(rows)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
