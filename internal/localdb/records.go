package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/records"
	"github.com/google/uuid"
)

// Compile-time check: *DB satisfies records.Store.
var _ records.Store = (*DB)(nil)

const recordColumns = `id, user_id, exercise_id, metric, value_number, unit,
	achieved_at, context_json, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func (d *DB) GetPR(ctx context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM personal_records
		 WHERE user_id = ? AND exercise_id = ? AND metric = ?`,
		userID, exerciseID, string(metric))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying personal record: %w", err)
	}
	return rec, nil
}

func (d *DB) UpsertPR(ctx context.Context, rec models.PersonalRecord) (*models.PersonalRecord, error) {
	if !rec.Metric.Valid() {
		return nil, fmt.Errorf("unknown metric %q", rec.Metric)
	}
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return nil, fmt.Errorf("encoding record context: %w", err)
	}
	now := toMillis(time.Now())

	row := d.db.QueryRowContext(ctx,
		`INSERT INTO personal_records (id, user_id, exercise_id, metric, value_number, unit,
		 achieved_at, context_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, exercise_id, metric) DO UPDATE SET
			value_number = excluded.value_number,
			unit = excluded.unit,
			achieved_at = excluded.achieved_at,
			context_json = excluded.context_json,
			updated_at = excluded.updated_at
		 RETURNING `+recordColumns,
		uuid.NewString(), rec.UserID, rec.ExerciseID, string(rec.Metric), rec.ValueNumber, rec.Unit,
		toMillis(rec.AchievedAt), string(contextJSON), now, now)
	saved, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upserting personal record: %w", err)
	}
	return saved, nil
}

func (d *DB) ListPRs(ctx context.Context, userID string) ([]models.PersonalRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM personal_records WHERE user_id = ?
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

func (d *DB) ClearPRs(ctx context.Context, userID string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM personal_records WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing personal records: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(row scanner) (*models.PersonalRecord, error) {
	var (
		rec                              models.PersonalRecord
		metric, contextJSON              string
		achievedAt, createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.ExerciseID, &metric, &rec.ValueNumber, &rec.Unit,
		&achievedAt, &contextJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Metric = models.Metric(metric)
	rec.AchievedAt = fromMillis(achievedAt)
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &rec.Context); err != nil {
			return nil, fmt.Errorf("decoding record context: %w", err)
		}
	}
	return &rec, nil
}
