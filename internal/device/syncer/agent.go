// Package syncer reconciles the device's local state with the central
// authority: it pushes attendance records the authority has not confirmed
// yet and pulls roster/timetable changes since the persisted watermark.
//
// Both directions are at-least-once. A failed push leaves every record
// unsynced so the identical batch is resent later; a failed pull leaves the
// watermark untouched so the identical delta is re-requested. Re-applied
// pulls are harmless because upserts replace by id, and duplicate pushes are
// deduplicated by the authority.
package syncer

import (
	"context"
	"time"

	"github.com/ioehub/campus-attendance/internal/device/models"
	"github.com/ioehub/campus-attendance/internal/device/store"
	"github.com/ioehub/campus-attendance/internal/logging"
	"github.com/ioehub/campus-attendance/internal/syncapi"
)

// DefaultInterval is the pause between reconciliation cycles.
const DefaultInterval = 15 * time.Minute

// Agent runs the periodic push/pull cycle against the central authority.
type Agent struct {
	store    *store.Store
	client   *Client
	log      logging.Logger
	interval time.Duration

	// OnPull, when set, runs after every successfully applied pull. The
	// device uses it to reload the matcher from the refreshed roster.
	OnPull func(ctx context.Context)
}

func NewAgent(st *store.Store, client *Client, log logging.Logger, interval time.Duration) *Agent {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Agent{store: st, client: client, log: log, interval: interval}
}

// Run reconciles immediately, then on every tick until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info(ctx, "sync agent started", "interval", a.interval.String())

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		a.SyncNow(ctx)
		select {
		case <-ctx.Done():
			a.log.Info(ctx, "sync agent stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncNow runs one push and one pull. The two phases fail independently: a
// push failure never skips the pull.
func (a *Agent) SyncNow(ctx context.Context) {
	if err := a.push(ctx); err != nil {
		a.log.Warn(ctx, "attendance push failed, will retry next cycle", "error", err)
	}
	if err := a.pull(ctx); err != nil {
		a.log.Warn(ctx, "updates pull failed, will retry next cycle", "error", err)
	}
}

// push drains unsynced attendance to the authority. Records are marked
// synced only after a confirmed success, and exactly the pushed ids are
// marked; a record created while the push was in flight is picked up next
// cycle.
func (a *Agent) push(ctx context.Context) error {
	records, err := a.store.Attendance.Unsynced(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := make([]syncapi.AttendanceRecord, len(records))
	ids := make([]int64, len(records))
	for i, r := range records {
		batch[i] = syncapi.AttendanceRecord{
			IdentityID: r.IdentityID,
			ScheduleID: r.ScheduleID,
			TakenAt:    r.TakenAt,
		}
		ids[i] = r.ID
	}

	if err := a.client.PushAttendance(ctx, batch); err != nil {
		return err
	}

	if err := a.store.MarkSynced(ctx, ids); err != nil {
		// The authority has the records; the local flags catch up after the
		// next successful push of the same batch.
		return err
	}

	a.log.Info(ctx, "attendance pushed", "records", len(ids))
	return nil
}

// pull applies roster/timetable changes since the watermark, then advances
// the watermark to the authority's reported time. The order matters: the
// watermark moves only after the upserts succeeded, and it only ever moves
// forward.
func (a *Agent) pull(ctx context.Context) error {
	since, err := a.store.LastSyncTime(ctx)
	if err != nil {
		return err
	}

	updates, err := a.client.PullUpdates(ctx, since)
	if err != nil {
		return err
	}

	identities := make([]models.Identity, len(updates.Identities))
	for i, id := range updates.Identities {
		identities[i] = models.Identity{ID: id.ID, Name: id.Name, Embeddings: id.Embeddings}
	}
	schedules := make([]models.ScheduledClass, len(updates.Schedules))
	for i, s := range updates.Schedules {
		schedules[i] = models.ScheduledClass{
			ID:          s.ID,
			SubjectName: s.SubjectName,
			DayOfWeek:   s.DayOfWeek,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		}
	}

	if err := a.store.Roster.UpsertIdentities(ctx, identities); err != nil {
		return err
	}
	if err := a.store.Schedule.UpsertSchedules(ctx, schedules); err != nil {
		return err
	}

	if updates.ServerTime.After(since) {
		if err := a.store.SetLastSyncTime(ctx, updates.ServerTime); err != nil {
			return err
		}
	}

	if len(identities) > 0 || len(schedules) > 0 {
		a.log.Info(ctx, "updates pulled",
			"identities", len(identities), "schedules", len(schedules),
			"watermark", updates.ServerTime.Format(time.RFC3339))
	}

	if a.OnPull != nil {
		a.OnPull(ctx)
	}
	return nil
}
