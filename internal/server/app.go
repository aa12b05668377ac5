// Package server assembles and runs the central authority: the PostgreSQL
// store, the HTTP API the devices and admins talk to, and the graduation
// cleanup job, wired together and shut down on OS signals.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ioehub/campus-attendance/internal/facedet"
	"github.com/ioehub/campus-attendance/internal/logging"
	"github.com/ioehub/campus-attendance/internal/server/config"
	"github.com/ioehub/campus-attendance/internal/server/faces"
	"github.com/ioehub/campus-attendance/internal/server/httpapi"
	"github.com/ioehub/campus-attendance/internal/server/jobs"
	"github.com/ioehub/campus-attendance/internal/server/store"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(cfg *config.Config) *App {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)
	return &App{config: cfg, logger: logger}
}

// Run starts the HTTP API and the cleanup job and blocks until a signal or a
// fatal startup error.
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

	uploader, err := faces.NewS3Uploader(cfg)
	if err != nil {
		return fmt.Errorf("object storage init error: %w", err)
	}
	detector := facedet.NewHTTPDetector(cfg.DetectorURL, cfg.RequestTimeout)
	enroller := faces.NewService(st.Students, detector, uploader)

	api := httpapi.NewServer([]byte(cfg.SecretKey),
		st.Attendance, st.Students, st.Schedules, st.Notices, enroller, log)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	cleanup := jobs.NewCleanupJob(st.Students, log, cfg.CleanupInterval)

	log.Info(ctx, "authority starting", "addr", cfg.HTTPAddr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return cleanup.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info(ctx, "authority stopped")
	return nil
}
