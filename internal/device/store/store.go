// Package store is the device's durable local state: the cached roster and
// timetable pulled from the central authority, the attendance log, and the
// sync watermark. Everything lives in a single SQLite database so the device
// keeps working with no network at all.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/ioehub/campus-attendance/internal/dbx"
	"github.com/ioehub/campus-attendance/internal/device/store/migrations"
)

// watermarkKey is the metadata key holding the last successful pull time.
const watermarkKey = "last_sync_time"

// Store owns the SQLite handle and the repositories built on top of it.
//
// The pool is capped at a single connection, which serializes every reader
// and writer. The recognition loop and the sync agent share the store from
// separate goroutines; with one connection their statements cannot
// interleave into a torn write.
type Store struct {
	db *sql.DB

	Roster     *RosterRepository
	Schedule   *ScheduleRepository
	Attendance *AttendanceRepository
	Metadata   *MetadataRepository
}

// Open opens (creating if needed) the device database at dsn and applies any
// pending migrations. Safe to call on every start.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open device db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate device db: %w", err)
	}

	return &Store{
		db:         db,
		Roster:     NewRosterRepository(db),
		Schedule:   NewScheduleRepository(db),
		Attendance: NewAttendanceRepository(db),
		Metadata:   NewMetadataRepository(db),
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MarkSynced flips the synced flag for exactly the given attendance ids
// inside one transaction, so a crash mid-update can never leave a partially
// applied push behind.
func (s *Store) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return markSynced(ctx, tx, ids)
	})
}

// LastSyncTime returns the persisted pull watermark, or a zero time if the
// device has never completed a pull.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	value, err := s.Metadata.Get(ctx, watermarkKey)
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed watermark %q: %w", value, err)
	}
	return t, nil
}

// SetLastSyncTime persists t as the new pull watermark. Callers only pass
// server-reported times, and only after the pulled delta has been applied.
func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.Metadata.Set(ctx, watermarkKey, t.UTC().Format(time.RFC3339Nano))
}
