// Package attendance runs the device's recognition loop: while a scheduled
// class is live it keeps capturing frames, resolving the faces in them to
// roster identities and recording each identity's attendance once per
// session.
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/ioehub/campus-attendance/internal/device/capture"
	"github.com/ioehub/campus-attendance/internal/device/models"
	"github.com/ioehub/campus-attendance/internal/device/recognizer"
	"github.com/ioehub/campus-attendance/internal/device/session"
	"github.com/ioehub/campus-attendance/internal/device/store"
	"github.com/ioehub/campus-attendance/internal/facedet"
	"github.com/ioehub/campus-attendance/internal/logging"
)

const (
	DefaultActiveInterval = 3 * time.Second
	DefaultIdleInterval   = 10 * time.Second

	// captureRetryInterval is the short wait after a failed frame grab.
	captureRetryInterval = time.Second
)

// ClassFinder answers "which class is scheduled right now, if any".
type ClassFinder interface {
	FindActiveClass(ctx context.Context, now time.Time) (models.ScheduledClass, error)
}

// Recorder appends one attendance mark to the local store.
type Recorder interface {
	Record(ctx context.Context, identityID, scheduleID int64, takenAt time.Time) (int64, error)
}

// Matcher resolves an embedding to a roster identity.
type Matcher interface {
	Match(query []float64) (recognizer.Match, error)
}

// Taker drives one polling cycle after another until its context is
// cancelled. Every transient failure (frame grab, detection, matching,
// store write) is logged and retried at the polling cadence; nothing short
// of cancellation stops the loop.
type Taker struct {
	schedule ClassFinder
	camera   capture.Camera
	detector facedet.Detector
	matcher  Matcher
	tracker  *session.Tracker
	recorder Recorder
	log      logging.Logger

	activeInterval time.Duration
	idleInterval   time.Duration

	now func() time.Time
}

func NewTaker(schedule ClassFinder, camera capture.Camera, detector facedet.Detector, matcher Matcher, recorder Recorder, log logging.Logger) *Taker {
	return &Taker{
		schedule:       schedule,
		camera:         camera,
		detector:       detector,
		matcher:        matcher,
		tracker:        session.NewTracker(),
		recorder:       recorder,
		log:            log,
		activeInterval: DefaultActiveInterval,
		idleInterval:   DefaultIdleInterval,
		now:            time.Now,
	}
}

// SetIntervals overrides the polling cadence. Non-positive values keep the
// defaults.
func (t *Taker) SetIntervals(active, idle time.Duration) {
	if active > 0 {
		t.activeInterval = active
	}
	if idle > 0 {
		t.idleInterval = idle
	}
}

// Run polls until ctx is cancelled.
func (t *Taker) Run(ctx context.Context) error {
	t.log.Info(ctx, "recognition loop started")
	for {
		wait := t.cycle(ctx)
		select {
		case <-ctx.Done():
			t.log.Info(ctx, "recognition loop stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// cycle executes one poll of the loop and returns how long to wait before
// the next one.
func (t *Taker) cycle(ctx context.Context) time.Duration {
	now := t.now()

	class, err := t.schedule.FindActiveClass(ctx, now)
	if errors.Is(err, store.ErrNoActiveClass) {
		if t.tracker.Observe(0, false) == session.TransitionEnded {
			t.log.Info(ctx, "class session ended")
		}
		return t.idleInterval
	}
	if err != nil {
		t.log.Error(ctx, "failed to look up active class", "error", err)
		return t.idleInterval
	}

	switch t.tracker.Observe(class.ID, true) {
	case session.TransitionStarted, session.TransitionChanged:
		t.log.Info(ctx, "class session started",
			"schedule_id", class.ID, "subject", class.SubjectName, "until", class.EndTime)
	}

	frame, err := t.camera.Grab(ctx)
	if err != nil {
		t.log.Warn(ctx, "frame capture failed", "error", err)
		return captureRetryInterval
	}

	embeddings, err := t.detector.Detect(ctx, frame)
	if err != nil {
		t.log.Warn(ctx, "face detection failed", "error", err)
		return t.activeInterval
	}

	for _, embedding := range embeddings {
		match, err := t.matcher.Match(embedding)
		if errors.Is(err, recognizer.ErrNoMatch) {
			continue
		}
		if err != nil {
			t.log.Warn(ctx, "match failed", "error", err)
			continue
		}
		if t.tracker.Seen(match.IdentityID) {
			continue
		}
		if _, err := t.recorder.Record(ctx, match.IdentityID, class.ID, t.now()); err != nil {
			// Not marking the identity keeps it eligible for the next cycle.
			t.log.Error(ctx, "failed to record attendance",
				"identity_id", match.IdentityID, "schedule_id", class.ID, "error", err)
			continue
		}
		t.tracker.MarkPresent(match.IdentityID)
		t.log.Info(ctx, "attendance marked",
			"identity_id", match.IdentityID, "name", match.Name,
			"schedule_id", class.ID, "distance", match.Distance)
	}

	return t.activeInterval
}
