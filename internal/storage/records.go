package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/records"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time check: *DB satisfies records.Store.
var _ records.Store = (*DB)(nil)

const recordColumns = `id, user_id, exercise_id, metric, value_number, unit,
	achieved_at, context_json, created_at, updated_at`

// GetPR returns the stored record for one exercise and metric, or nil.
func (db *DB) GetPR(ctx context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM personal_records
		 WHERE user_id = $1 AND exercise_id = $2 AND metric = $3`,
		userID, exerciseID, string(metric))
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying personal record: %w", err)
	}
	return rec, nil
}

// UpsertPR inserts or replaces a record in one statement. It does not compare
// values; callers serialise the read-compare-write per user.
func (db *DB) UpsertPR(ctx context.Context, rec models.PersonalRecord) (*models.PersonalRecord, error) {
	if !rec.Metric.Valid() {
		return nil, fmt.Errorf("unknown metric %q", rec.Metric)
	}
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return nil, fmt.Errorf("encoding record context: %w", err)
	}

	row := db.Pool.QueryRow(ctx,
		`INSERT INTO personal_records (id, user_id, exercise_id, metric, value_number, unit,
		 achieved_at, context_json, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		 ON CONFLICT (user_id, exercise_id, metric) DO UPDATE SET
			value_number = EXCLUDED.value_number,
			unit = EXCLUDED.unit,
			achieved_at = EXCLUDED.achieved_at,
			context_json = EXCLUDED.context_json,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+recordColumns,
		uuid.New(), rec.UserID, rec.ExerciseID, string(rec.Metric), rec.ValueNumber, rec.Unit,
		rec.AchievedAt, contextJSON, time.Now().UTC())
	saved, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upserting personal record: %w", err)
	}
	return saved, nil
}

// ListPRs returns all of a user's records by exercise, then metric.
func (db *DB) ListPRs(ctx context.Context, userID string) ([]models.PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+recordColumns+` FROM personal_records
		 WHERE user_id = $1
		 ORDER BY exercise_id, CASE metric WHEN 'weight' THEN 1 WHEN 'reps' THEN 2 ELSE 3 END`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	result := []models.PersonalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// ClearPRs deletes all of a user's records.
func (db *DB) ClearPRs(ctx context.Context, userID string) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM personal_records WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing personal records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*models.PersonalRecord, error) {
	var (
		rec         models.PersonalRecord
		id          uuid.UUID
		metric      string
		contextJSON []byte
	)
	if err := row.Scan(&id, &rec.UserID, &rec.ExerciseID, &metric, &rec.ValueNumber, &rec.Unit,
		&rec.AchievedAt, &contextJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.ID = id.String()
	rec.Metric = models.Metric(metric)
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
			return nil, fmt.Errorf("decoding record context: %w", err)
		}
	}
	return &rec, nil
}
