// Package device assembles and runs the classroom device agent: the local
// store, the recognition loop and the sync agent, wired together and shut
// down on OS signals.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ioehub/campus-attendance/internal/device/attendance"
	"github.com/ioehub/campus-attendance/internal/device/capture"
	"github.com/ioehub/campus-attendance/internal/device/config"
	"github.com/ioehub/campus-attendance/internal/device/recognizer"
	"github.com/ioehub/campus-attendance/internal/device/store"
	"github.com/ioehub/campus-attendance/internal/device/syncer"
	"github.com/ioehub/campus-attendance/internal/facedet"
	"github.com/ioehub/campus-attendance/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(cfg *config.Config) *App {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl).With("device_id", cfg.DeviceID)
	return &App{config: cfg, logger: logger}
}

// Run starts both loops and blocks until a signal or a fatal startup error.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg := app.config
	log := app.logger

	st, err := store.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("store init error: %w", err)
	}
	defer st.Close()

	camera := capture.NewSnapshotCamera(cfg.CameraURL, cfg.RequestTimeout)
	defer camera.Close()

	// A device without a working camera cannot do its job; unlike every
	// later capture error this one aborts startup.
	if err := camera.Probe(ctx); err != nil {
		return fmt.Errorf("camera unavailable at %s: %w", cfg.CameraURL, err)
	}

	detector := facedet.NewHTTPDetector(cfg.DetectorURL, cfg.RequestTimeout)

	matcher := recognizer.New(cfg.MatchThreshold)
	reload := func(ctx context.Context) {
		identities, err := st.Roster.All(ctx)
		if err != nil {
			log.Error(ctx, "failed to load roster", "error", err)
			return
		}
		matcher.Load(identities)
		log.Info(ctx, "roster loaded", "identities", len(identities), "embeddings", matcher.Size())
	}
	reload(ctx)

	taker := attendance.NewTaker(st.Schedule, camera, detector, matcher, st.Attendance, log)
	taker.SetIntervals(cfg.ActiveInterval, cfg.IdleInterval)

	client := syncer.NewClient(cfg.ServerURL, cfg.DeviceID, []byte(cfg.SharedSecret), cfg.RequestTimeout)
	agent := syncer.NewAgent(st, client, log, cfg.SyncInterval)
	agent.OnPull = reload

	log.Info(ctx, "device agent starting", "server", cfg.ServerURL)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return taker.Run(ctx) })
	g.Go(func() error { return agent.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info(ctx, "device agent stopped")
	return nil
}
