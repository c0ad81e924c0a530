package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/darkwavepulse/pulse-access/internal/config"
	"github.com/darkwavepulse/pulse-access/internal/health"
	"github.com/darkwavepulse/pulse-access/internal/observability"
	"github.com/darkwavepulse/pulse-access/internal/service"
)

// App owns the process lifecycle: the HTTP server, the background session
// sweeper, and the observability runtime, supervised together and shut down
// in order.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Sweeper       *service.Sweeper
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	// StopBackgroundTasks cancels everything Run started besides the server;
	// set by New, replaceable in tests.
	StopBackgroundTasks func()
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, sweeper *service.Sweeper, readiness *health.ProbeRunner, stop func()) *App {
	if stop == nil {
		stop = func() {}
	}
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		Sweeper:                      sweeper,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
		StopBackgroundTasks:          stop,
	}
}

// Run serves until ctx is cancelled, then drains. The sweeper runs under the
// same supervision; its cancellation is an expected exit, not a failure.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.Sweeper != nil {
		g.Go(func() error {
			if err := a.Sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown() error {
	a.Logger.Info("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownHTTPDrainTimeout)
	defer cancel()
	if err := a.Server.Shutdown(drainCtx); err != nil {
		a.Logger.Warn("http drain incomplete", "error", err)
	}

	a.StopBackgroundTasks()

	obsCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownObservabilityTimeout)
	defer cancel()
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		a.Logger.Warn("observability shutdown incomplete", "error", err)
	}

	a.Logger.Info("shutdown complete")
	return nil
}
