// Command launchpad boots a single launchpad's twin runtime: it connects to
// the event log, runs the controller state machine against its attached
// drone, and serves the ops HTTP surface (liveness, readiness, metrics).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"launchpad/internal/config"
	"launchpad/internal/controller"
	"launchpad/internal/effector"
	"launchpad/internal/eventlog"
	"launchpad/internal/httpapi"
	"launchpad/internal/logging"
	"launchpad/internal/telemetry"
	"launchpad/internal/twinexec"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize structured logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	eff, err := buildEffector(cfg)
	if err != nil {
		logger.Fatal("failed to initialise effector", logging.Error(err))
	}

	log := eventlog.New(cfg.EventLogURL, logger)
	metrics := telemetry.New()

	ctrl := controller.New(cfg.LaunchpadName, log, eff)
	ctrl.Options = twinexec.Options{
		ChannelCapacity:  100,
		Debounce:         cfg.TwinDebounce,
		SubscribeBackoff: cfg.SubscribeBackoff,
		Metrics:          metrics,
	}
	ctrl.ActionBackoff = cfg.EffectorBackoff
	ctrl.ControllerDebounce = cfg.ControllerDebounce
	ctrl.TelemetryTick = cfg.TelemetryTick
	ctrl.EnabledWindow = cfg.EnabledWindow
	ctrl.Metrics = metrics

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opsHandlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger:    logger,
		Readiness: ctrl,
		Metrics:   metrics,
	})
	mux := http.NewServeMux()
	opsHandlers.Register(mux)
	opsServer := &http.Server{Addr: cfg.OpsAddr, Handler: logging.HTTPTraceMiddleware(logger)(mux)}

	go func() {
		logger.Info("ops server listening", logging.String("address", cfg.OpsAddr))
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server terminated", logging.Error(err))
		}
	}()

	logger.Info("launchpad starting",
		logging.String("launchpad", cfg.LaunchpadName),
		logging.String("event_log_url", cfg.EventLogURL),
		logging.String("effector_mode", cfg.EffectorMode))

	runErr := ctrl.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown failed", logging.Error(err))
	}

	if runErr != nil && ctx.Err() == nil {
		logger.Error("controller terminated unexpectedly", logging.Error(runErr))
		os.Exit(1)
	}
	logger.Info("launchpad stopped")
}

func buildEffector(cfg *config.Config) (effector.Effector, error) {
	switch cfg.EffectorMode {
	case "tello":
		// No scanner: the host is assumed to already be on the drone's
		// network. Platforms with a Wi-Fi adapter seam wire one here.
		tello := effector.NewTello(nil)
		tello.SSIDScanAttempts = cfg.SSIDScanAttempts
		tello.SSIDScanInterval = cfg.SSIDScanInterval
		return tello, nil
	case "mock", "":
		return effector.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown effector mode %q", cfg.EffectorMode)
	}
}
