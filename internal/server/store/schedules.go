package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/server/models"
)

// ScheduleRepository implements timetable storage over a dbx.DBTX.
type ScheduleRepository struct {
	db dbx.DBTX
}

func NewScheduleRepository(db dbx.DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new timetable slot and returns its id.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) (int64, error) {
	query := `
		INSERT INTO schedules (subject_name, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		schedule.SubjectName, schedule.DayOfWeek, schedule.StartTime, schedule.EndTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert schedule: %w", err)
	}
	return id, nil
}

// UpdatedSince returns every slot changed after the given time. A zero since
// returns the full timetable.
func (r *ScheduleRepository) UpdatedSince(ctx context.Context, since time.Time) ([]models.Schedule, error) {
	query := `
		SELECT id, subject_name, day_of_week, start_time, end_time, last_updated
		FROM schedules
		WHERE last_updated > $1
		ORDER BY id;
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select schedules: %w", err)
	}
	defer rows.Close()

	var result []models.Schedule
	for rows.Next() {
		var item models.Schedule
		if err := rows.Scan(
			&item.ID, &item.SubjectName, &item.DayOfWeek,
			&item.StartTime, &item.EndTime, &item.LastUpdated,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
