package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
)

// DataSource abstracts the data layer for MCP tools. Both *workouts.Service
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListRecords(ctx context.Context, userID string) ([]models.PersonalRecord, error)
	GetRecord(ctx context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error)
	WeekOverWeek(ctx context.Context, userID string, now time.Time) (*workouts.WeeklyVolume, error)
	CheckSet(ctx context.Context, userID, exerciseID, targetReps string, reps, weight models.NullFloat) (analytics.SetFlags, error)
	ListSets(ctx context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error)
}

// Compile-time check: *workouts.Service satisfies DataSource.
var _ DataSource = (*workouts.Service)(nil)
