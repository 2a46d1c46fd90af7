package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"opta-metricsd/internal/broadcast"
	"opta-metricsd/internal/collector"
	"opta-metricsd/internal/config"
	"opta-metricsd/internal/ipc"
	"opta-metricsd/internal/source"
	"opta-metricsd/internal/wire"
)

const healthInterval = 10 * time.Second

// Agent owns the streaming core: snapshot source, producer loop,
// broadcaster, IPC server, and the diagnostics probe.
type Agent struct {
	cfg         config.Config
	logger      *slog.Logger
	broadcaster *broadcast.Broadcaster
	producer    *collector.Producer
	server      *ipc.Server
	health      *HealthStatus
}

// New wires the streaming components together from configuration.
func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	limits := wire.Limits{
		Processes:     cfg.ProcessLimit,
		Fans:          cfg.FanLimit,
		NameBytes:     cfg.NameLimitBytes,
		BufferCeiling: wire.DefaultBufferCeiling,
	}
	b := broadcast.New(logger, cfg.RateHz, cfg.RingCapacity, limits)
	src := source.NewSystemSource(logger, cfg.DiskPath, cfg.ProcessLimit)
	producer := collector.NewProducer(logger, src, b, cfg.PublishInterval(), cfg.ErrorBackoff)
	server := ipc.New(logger, b, endpointFor(cfg), cfg.ConnWriteTimeout, cfg.PublishInterval())

	return &Agent{
		cfg:         cfg,
		logger:      logger,
		broadcaster: b,
		producer:    producer,
		server:      server,
		health:      NewHealthStatus(),
	}, nil
}

func endpointFor(cfg config.Config) string {
	if runtime.GOOS == "windows" {
		return cfg.PipeName
	}
	return cfg.SocketPath
}

// Run starts the core and blocks until a signal arrives or a component
// fails. A second signal, or a graceful stop overrunning the configured
// timeout, forces an immediate shutdown.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting opta-metricsd",
		"endpoint", endpointFor(a.cfg),
		"rate_hz", a.cfg.RateHz,
		"ring_capacity", a.cfg.RingCapacity)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Core terminated by itself (startup error/runtime error/parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful stop completed in time
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	a.shutdown()

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("opta-metricsd stopped")
	return nil
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}
