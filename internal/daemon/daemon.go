package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scribed/internal/callback"
	"scribed/internal/config"
	"scribed/internal/executor"
	"scribed/internal/fetch"
	"scribed/internal/logging"
	"scribed/internal/preflight"
	"scribed/internal/queue"
	"scribed/internal/server"
	"scribed/internal/whisper"
	"scribed/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	api      *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon and its component graph from configuration.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	engine := whisper.NewCLI(whisper.WithBinary(cfg.Whisper.Binary))
	dispatcher := callback.NewDispatcher(cfg, logger)
	exec := executor.NewExecutor(cfg, store, engine, dispatcher, logger)
	manager := workflow.NewManager(cfg, store, exec, logger)
	gateway := fetch.NewGateway(cfg, logger)
	api := server.NewServer(cfg, store, gateway, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: manager,
		api:      api,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers interrupted jobs, and launches
// the workflow manager and HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribed instance is already running")
	}

	for _, result := range preflight.RunAll(d.cfg) {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name), logging.String("detail", result.Detail))
	}

	reset, err := d.store.ResetStuckRunning(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset interrupted jobs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("requeued interrupted jobs", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.Start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("scribed daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.api.Addr()))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribed daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the HTTP server's bound address, empty before Start.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// Running reports whether the daemon has started and not yet stopped.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
