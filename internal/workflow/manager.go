package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribed/internal/config"
	"scribed/internal/logging"
	"scribed/internal/queue"
	"scribed/internal/services"
	"scribed/internal/stage"
)

// Manager runs the worker pool that drains the job queue.
type Manager struct {
	store   *queue.Store
	handler stage.Handler
	logger  *slog.Logger

	workers       int
	pollInterval  time.Duration
	retryInterval time.Duration
	heartbeat     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewManager constructs a manager from configuration.
func NewManager(cfg *config.Config, store *queue.Store, handler stage.Handler, logger *slog.Logger) *Manager {
	workers := cfg.Whisper.EngineSlots
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		store:         store,
		handler:       handler,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		workers:       workers,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat:     time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// the provided context is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("workflow manager already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go m.workerLoop(runCtx, &wg, i)
	}
	go func() {
		wg.Wait()
		close(m.done)
	}()

	m.logger.Info("workflow manager started", logging.Int("workers", m.workers))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.started = false
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
	m.logger.Info("workflow manager stopped")
}

func (m *Manager) workerLoop(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	logger := m.logger.With(logging.Int("worker", workerID))

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("claim failed", logging.Error(err))
			if !sleepCtx(ctx, m.retryInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, m.pollInterval) {
				return
			}
			continue
		}

		m.runJob(ctx, logger, job)
	}
}

// runJob drives one claimed job to a terminal state. Failures are persisted
// with a classified kind; persistence errors leave the job running for
// crash recovery to reset.
func (m *Manager) runJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithStage(jobCtx, "transcribe")
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	jobLogger := logging.WithContext(jobCtx, logger)
	jobLogger.Info("job claimed", logging.String("source", job.SourceName))

	hbCtx, stopHeartbeat := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go heartbeatLoop(hbCtx, &hbWG, m.store, jobLogger, job.ID, m.heartbeat)
	defer func() {
		stopHeartbeat()
		hbWG.Wait()
	}()

	err := m.handler.Prepare(jobCtx, job)
	if err == nil {
		err = m.handler.Execute(jobCtx, job)
	}
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		// Daemon shutdown mid-job: leave the row running so startup
		// recovery returns it to pending.
		jobLogger.Info("job interrupted by shutdown")
		return
	}

	kind := services.FailureKind(err)
	job.SetFailed(kind, err.Error())
	if updateErr := m.store.Update(jobCtx, job); updateErr != nil {
		jobLogger.Error("failed to persist job failure", logging.Error(updateErr))
		return
	}
	stage.RemoveStagedInput(jobLogger, job.InputPath)
	jobLogger.Error(fmt.Sprintf("job failed: %s", kind), logging.Error(err))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
