package attendance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioehub/campus-attendance/internal/device/models"
	"github.com/ioehub/campus-attendance/internal/device/recognizer"
	"github.com/ioehub/campus-attendance/internal/device/store"
	"github.com/ioehub/campus-attendance/internal/logging"
)

type fakeSchedule struct {
	class models.ScheduledClass
	err   error
}

func (f *fakeSchedule) FindActiveClass(ctx context.Context, now time.Time) (models.ScheduledClass, error) {
	if f.err != nil {
		return models.ScheduledClass{}, f.err
	}
	return f.class, nil
}

type fakeCamera struct {
	frame []byte
	err   error
	grabs int
}

func (f *fakeCamera) Grab(ctx context.Context) ([]byte, error) {
	f.grabs++
	return f.frame, f.err
}

func (f *fakeCamera) Close() error { return nil }

type fakeDetector struct {
	embeddings [][]float64
	err        error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([][]float64, error) {
	return f.embeddings, f.err
}

type recordedMark struct {
	identityID int64
	scheduleID int64
}

type fakeRecorder struct {
	marks []recordedMark
	err   error
}

func (f *fakeRecorder) Record(ctx context.Context, identityID, scheduleID int64, takenAt time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.marks = append(f.marks, recordedMark{identityID, scheduleID})
	return int64(len(f.marks)), nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestMatcher(t *testing.T) *recognizer.Recognizer {
	t.Helper()
	r := recognizer.New(0.40)
	r.Load([]models.Identity{
		{ID: 7, Name: "Hari", Embeddings: [][]float64{{1, 0}}},
		{ID: 8, Name: "Rita", Embeddings: [][]float64{{0, 1}}},
	})
	return r
}

func TestCycle_MarksEachIdentityOncePerSession(t *testing.T) {
	schedule := &fakeSchedule{class: models.ScheduledClass{ID: 3, SubjectName: "Digital Logic", EndTime: "09:50"}}
	camera := &fakeCamera{frame: []byte("frame")}
	detector := &fakeDetector{embeddings: [][]float64{{0.99, 0.01}, {0.02, 0.98}}}
	recorder := &fakeRecorder{}

	taker := NewTaker(schedule, camera, detector, newTestMatcher(t), recorder, testLogger())

	wait := taker.cycle(context.Background())
	assert.Equal(t, DefaultActiveInterval, wait)
	require.Equal(t, []recordedMark{{7, 3}, {8, 3}}, recorder.marks)

	// Same faces next cycle: no further marks.
	taker.cycle(context.Background())
	assert.Len(t, recorder.marks, 2)
}

func TestCycle_IdleWhenNoClass(t *testing.T) {
	schedule := &fakeSchedule{err: store.ErrNoActiveClass}
	camera := &fakeCamera{frame: []byte("frame")}
	taker := NewTaker(schedule, camera, &fakeDetector{}, newTestMatcher(t), &fakeRecorder{}, testLogger())

	wait := taker.cycle(context.Background())
	assert.Equal(t, DefaultIdleInterval, wait)
	assert.Equal(t, 0, camera.grabs, "no frame should be grabbed outside a session")
}

func TestCycle_SessionEndsThenNewSessionRemarks(t *testing.T) {
	schedule := &fakeSchedule{class: models.ScheduledClass{ID: 1}}
	detector := &fakeDetector{embeddings: [][]float64{{1, 0}}}
	recorder := &fakeRecorder{}
	taker := NewTaker(schedule, &fakeCamera{frame: []byte("f")}, detector, newTestMatcher(t), recorder, testLogger())

	taker.cycle(context.Background()) // class 1, identity 7 marked
	require.Len(t, recorder.marks, 1)

	schedule.err = store.ErrNoActiveClass
	taker.cycle(context.Background()) // gap between classes

	schedule.err = nil
	schedule.class = models.ScheduledClass{ID: 2}
	taker.cycle(context.Background()) // class 2: same face marks again
	require.Equal(t, []recordedMark{{7, 1}, {7, 2}}, recorder.marks)
}

func TestCycle_CaptureFailureRetriesQuickly(t *testing.T) {
	schedule := &fakeSchedule{class: models.ScheduledClass{ID: 1}}
	camera := &fakeCamera{err: errors.New("camera glitch")}
	recorder := &fakeRecorder{}
	taker := NewTaker(schedule, camera, &fakeDetector{}, newTestMatcher(t), recorder, testLogger())

	wait := taker.cycle(context.Background())
	assert.Equal(t, captureRetryInterval, wait)
	assert.Empty(t, recorder.marks)
}

func TestCycle_DetectorFailureIsSwallowed(t *testing.T) {
	schedule := &fakeSchedule{class: models.ScheduledClass{ID: 1}}
	detector := &fakeDetector{err: errors.New("model crashed")}
	recorder := &fakeRecorder{}
	taker := NewTaker(schedule, &fakeCamera{frame: []byte("f")}, detector, newTestMatcher(t), recorder, testLogger())

	wait := taker.cycle(context.Background())
	assert.Equal(t, DefaultActiveInterval, wait)
	assert.Empty(t, recorder.marks)
}

func TestCycle_UnknownFaceIsIgnored(t *testing.T) {
	schedule := &fakeSchedule{class: models.ScheduledClass{ID: 1}}
	// Orthogonal-ish to both enrolled vectors: distance above threshold.
	detector := &fakeDetector{embeddings: [][]float64{{0.7, -0.7}}}
	recorder := &fakeRecorder{}
	taker := NewTaker(schedule, &fakeCamera{frame: []byte("f")}, detector, newTestMatcher(t), recorder, testLogger())

	taker.cycle(context.Background())
	assert.Empty(t, recorder.marks)
}

func TestCycle_RecordFailureKeepsIdentityEligible(t *testing.T) {
	schedule := &fakeSchedule{class: models.ScheduledClass{ID: 1}}
	detector := &fakeDetector{embeddings: [][]float64{{1, 0}}}
	recorder := &fakeRecorder{err: errors.New("disk full")}
	taker := NewTaker(schedule, &fakeCamera{frame: []byte("f")}, detector, newTestMatcher(t), recorder, testLogger())

	taker.cycle(context.Background())
	assert.Empty(t, recorder.marks)

	// Store recovers: the identity was not burned by the failed write.
	recorder.err = nil
	taker.cycle(context.Background())
	require.Equal(t, []recordedMark{{7, 1}}, recorder.marks)
}

func TestRun_StopsOnCancel(t *testing.T) {
	schedule := &fakeSchedule{err: store.ErrNoActiveClass}
	taker := NewTaker(schedule, &fakeCamera{frame: []byte("f")}, &fakeDetector{}, newTestMatcher(t), &fakeRecorder{}, testLogger())
	taker.SetIntervals(time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- taker.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
