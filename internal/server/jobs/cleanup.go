// Package jobs holds the authority's background maintenance work.
package jobs

import (
	"context"
	"time"

	"github.com/ioehub/campus-attendance/internal/logging"
)

// DefaultCleanupInterval is used when the configured interval is not positive.
const DefaultCleanupInterval = 24 * time.Hour

// GraduateRemover deletes students whose course has finished.
type GraduateRemover interface {
	DeleteGraduated(ctx context.Context, currentYear int) (int64, error)
}

// CleanupJob periodically removes graduated students from the roster. Their
// attendance rows go with them via the cascade, and any attendance a device
// still pushes for them afterwards is dropped on insert.
type CleanupJob struct {
	store    GraduateRemover
	log      logging.Logger
	interval time.Duration

	now func() time.Time
}

func NewCleanupJob(store GraduateRemover, log logging.Logger, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupJob{
		store:    store,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run cleans up immediately and then on every tick until ctx is cancelled.
func (j *CleanupJob) Run(ctx context.Context) error {
	j.log.Info(ctx, "cleanup job started", "interval", j.interval)

	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info(ctx, "cleanup job stopped")
			return ctx.Err()
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *CleanupJob) runOnce(ctx context.Context) {
	year := j.now().Year()
	removed, err := j.store.DeleteGraduated(ctx, year)
	if err != nil {
		j.log.Error(ctx, "cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		j.log.Info(ctx, "removed graduated students", "count", removed, "year", year)
	}
}
