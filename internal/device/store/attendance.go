package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/device/models"
)

// AttendanceRepository persists the local attendance log.
type AttendanceRepository struct {
	db dbx.DBTX
}

func NewAttendanceRepository(db dbx.DBTX) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Record appends one unsynced attendance row and returns its local id. It
// has no remote dependency: a device that has never synced can still record.
func (r *AttendanceRepository) Record(ctx context.Context, identityID, scheduleID int64, takenAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (identity_id, schedule_id, taken_at, synced) VALUES (?, ?, ?, 0)`,
		identityID, scheduleID, takenAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to record attendance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get attendance id: %w", err)
	}
	return id, nil
}

// Unsynced returns every record not yet accepted by the central authority,
// oldest first. The result is a finite snapshot; records created after the
// query are picked up on the next call.
func (r *AttendanceRepository) Unsynced(ctx context.Context) ([]models.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, identity_id, schedule_id, taken_at FROM attendance WHERE synced = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced attendance: %w", err)
	}
	defer rows.Close()

	var result []models.AttendanceRecord
	for rows.Next() {
		var item models.AttendanceRecord
		var takenAt string
		if err := rows.Scan(&item.ID, &item.IdentityID, &item.ScheduleID, &takenAt); err != nil {
			return nil, err
		}
		item.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt)
		if err != nil {
			return nil, fmt.Errorf("malformed taken_at on attendance %d: %w", item.ID, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// markSynced flips the synced flag for the given ids. Callers wrap it in a
// transaction via Store.MarkSynced.
func markSynced(ctx context.Context, db dbx.DBTX, ids []int64) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`UPDATE attendance SET synced = 1 WHERE id IN (%s)`, placeholders)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark attendance synced: %w", err)
	}
	return nil
}
