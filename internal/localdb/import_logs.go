package localdb

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// InsertImportLog creates a new import log entry and returns its ID.
func (d *DB) InsertImportLog(ctx context.Context, log models.ImportLog) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO import_logs (user_id, created_at, source, status, workouts_received,
		 workouts_imported, sets_recorded, records_saved, duration_ms, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.UserID, toMillis(time.Now()), log.Source, log.Status, log.WorkoutsReceived,
		log.WorkoutsImported, log.SetsRecorded, log.RecordsSaved, log.DurationMs, log.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return res.LastInsertId()
}

// UpdateImportLog records the final state of a run.
func (d *DB) UpdateImportLog(ctx context.Context, id int64, log models.ImportLog) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE import_logs SET
		 status = ?, workouts_received = ?, workouts_imported = ?,
		 sets_recorded = ?, records_saved = ?, duration_ms = ?, error_message = ?
		 WHERE id = ?`,
		log.Status, log.WorkoutsReceived, log.WorkoutsImported,
		log.SetsRecorded, log.RecordsSaved, log.DurationMs, log.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (d *DB) QueryImportLogs(ctx context.Context, userID string, limit int) ([]models.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, source, status, workouts_received, workouts_imported,
		 sets_recorded, records_saved, duration_ms, error_message
		 FROM import_logs
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []models.ImportLog
	for rows.Next() {
		var (
			l         models.ImportLog
			createdAt int64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &createdAt, &l.Source, &l.Status,
			&l.WorkoutsReceived, &l.WorkoutsImported, &l.SetsRecorded, &l.RecordsSaved,
			&l.DurationMs, &l.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		l.CreatedAt = fromMillis(createdAt)
		result = append(result, l)
	}
	return result, rows.Err()
}
