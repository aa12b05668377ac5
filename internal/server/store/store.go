// Package store is the authority's PostgreSQL persistence layer: the student
// roster with enrolled face embeddings, the timetable, the attendance log
// collected from every classroom device, and department notices.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ioehub/campus-attendance/internal/server/store/migrations"
)

// Store owns the database handle and the repositories built on top of it.
type Store struct {
	db *sql.DB

	Students   *StudentRepository
	Schedules  *ScheduleRepository
	Attendance *AttendanceRepository
	Notices    *NoticeRepository
}

// Open connects to the PostgreSQL database at dsn and applies any pending
// migrations. Safe to call on every start.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	return New(db), nil
}

// New builds a Store over an already opened database. Used by tests.
func New(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Students:   NewStudentRepository(db),
		Schedules:  NewScheduleRepository(db),
		Attendance: NewAttendanceRepository(db),
		Notices:    NewNoticeRepository(db),
	}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
