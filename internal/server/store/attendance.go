package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/syncapi"
)

// AttendanceRepository stores the attendance marks pushed by devices. It
// holds the *sql.DB rather than a DBTX because batch inserts run in their
// own transaction.
type AttendanceRepository struct {
	db *sql.DB
}

func NewAttendanceRepository(db *sql.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// InsertBatch stores a pushed batch all-or-nothing. Devices deliver
// at-least-once, so the uniqueness key on (device, student, schedule,
// taken_at) absorbs duplicate rows from a re-push; records for students who
// have since left the roster are dropped silently.
func (r *AttendanceRepository) InsertBatch(ctx context.Context, deviceID string, records []syncapi.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO attendance (device_id, student_id, schedule_id, taken_at)
		SELECT $1, s.id, $3, $4
		FROM students s
		WHERE s.id = $2
		ON CONFLICT (device_id, student_id, schedule_id, taken_at) DO NOTHING;
	`
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, record := range records {
			_, err := tx.ExecContext(ctx, query,
				deviceID, record.IdentityID, record.ScheduleID, record.TakenAt.UTC())
			if err != nil {
				return fmt.Errorf("failed to insert attendance record: %w", err)
			}
		}
		return nil
	})
}
