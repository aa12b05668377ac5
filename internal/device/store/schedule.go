package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/device/models"
)

// ErrNoActiveClass is returned when no timetable slot covers the given instant.
var ErrNoActiveClass = errors.New("no active class")

// ScheduleRepository persists the cached timetable.
type ScheduleRepository struct {
	db dbx.DBTX
}

func NewScheduleRepository(db dbx.DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// UpsertSchedules applies pulled timetable changes with replace-by-id semantics.
func (r *ScheduleRepository) UpsertSchedules(ctx context.Context, schedules []models.ScheduledClass) error {
	query := `
		INSERT INTO schedules (id, subject_name, day_of_week, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject_name = excluded.subject_name,
			day_of_week = excluded.day_of_week,
			start_time = excluded.start_time,
			end_time = excluded.end_time
	`
	for _, s := range schedules {
		if _, err := r.db.ExecContext(ctx, query, s.ID, s.SubjectName, s.DayOfWeek, s.StartTime, s.EndTime); err != nil {
			return fmt.Errorf("failed to upsert schedule %d: %w", s.ID, err)
		}
	}
	return nil
}

// FindActiveClass returns the timetable slot whose weekday matches now and
// whose [start_time, end_time] window contains now's time of day.
//
// When slots overlap the earliest start time wins, lowest id breaking ties.
// The timetable is not supposed to contain overlaps; the ordering just keeps
// the answer deterministic if it ever does.
func (r *ScheduleRepository) FindActiveClass(ctx context.Context, now time.Time) (models.ScheduledClass, error) {
	query := `
		SELECT id, subject_name, day_of_week, start_time, end_time FROM schedules
		WHERE day_of_week = ? AND start_time <= ? AND end_time >= ?
		ORDER BY start_time, id
		LIMIT 1
	`
	clock := now.Format("15:04")

	var c models.ScheduledClass
	err := r.db.QueryRowContext(ctx, query, Weekday(now), clock, clock).
		Scan(&c.ID, &c.SubjectName, &c.DayOfWeek, &c.StartTime, &c.EndTime)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduledClass{}, ErrNoActiveClass
	}
	if err != nil {
		return models.ScheduledClass{}, fmt.Errorf("failed to find active class: %w", err)
	}
	return c, nil
}

// Weekday maps a time to the timetable's day numbering, 0 (Monday) through
// 6 (Sunday).
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
