// Package executor runs a claimed job end to end: engine invocation,
// formatting, persistence, and callback delivery.
package executor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"scribed/internal/callback"
	"scribed/internal/config"
	"scribed/internal/logging"
	"scribed/internal/queue"
	"scribed/internal/services"
	"scribed/internal/stage"
	"scribed/internal/transcript"
	"scribed/internal/whisper"
)

// Executor is the transcription stage handler. Engine invocations pass
// through a bounded slot semaphore so concurrent workers never exceed the
// configured engine capacity.
type Executor struct {
	store      *queue.Store
	engine     whisper.Client
	dispatcher *callback.Dispatcher
	slots      chan struct{}
	modelDir   string
	model      string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewExecutor constructs the stage handler from configuration.
func NewExecutor(cfg *config.Config, store *queue.Store, engine whisper.Client, dispatcher *callback.Dispatcher, logger *slog.Logger) *Executor {
	slotCount := cfg.Whisper.EngineSlots
	if slotCount < 1 {
		slotCount = 1
	}
	return &Executor{
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		slots:      make(chan struct{}, slotCount),
		modelDir:   cfg.Whisper.ModelDir,
		model:      cfg.Whisper.Model,
		timeout:    time.Duration(cfg.Whisper.Timeout) * time.Second,
		logger:     logging.NewComponentLogger(logger, "executor"),
	}
}

// Prepare verifies the staged input still exists and fills in the default
// model when the submission left it blank.
func (e *Executor) Prepare(ctx context.Context, job *queue.Job) error {
	if _, err := os.Stat(job.InputPath); err != nil {
		return services.Wrap(services.ErrValidation, "executor", "prepare", "staged input missing", err)
	}
	if job.Model == "" {
		job.Model = e.model
	}
	return nil
}

// Execute transcribes the staged input and records the terminal result.
// The staged file is removed only once the completed state is persisted;
// error exits leave it in place so the manager's terminal transition (or a
// rerun after daemon restart) still has the input.
func (e *Executor) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)

	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return services.Wrap(services.ErrTransient, "executor", "acquire slot", "", ctx.Err())
	}
	defer func() { <-e.slots }()

	engineCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		engineCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.engine.Transcribe(engineCtx, job.InputPath, whisper.Options{
		Model:          job.Model,
		ModelDir:       e.modelDir,
		Language:       job.Language,
		Temperature:    job.Temperature,
		WordTimestamps: job.WordTimestamps,
	})
	if err != nil {
		return err
	}

	doc, err := transcript.Format(result, job.ResponseFormat, job.SourceStem(), job.WordTimestamps)
	if err != nil {
		return services.Wrap(services.ErrEngine, "executor", "format", string(job.ResponseFormat), err)
	}

	encoded, err := json.Marshal(doc.Body)
	if err != nil {
		return services.Wrap(services.ErrEngine, "executor", "encode result", "", err)
	}

	job.SetCompleted(string(encoded))
	if err := e.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrTransient, "executor", "persist result", "", err)
	}
	stage.RemoveStagedInput(logger, job.InputPath)
	logger.Info("job completed", logging.String("format", string(job.ResponseFormat)))

	if job.CallbackURL != "" && e.dispatcher != nil {
		if err := e.dispatcher.Deliver(ctx, job.CallbackURL, doc.CallbackPayload()); err != nil {
			logger.Warn("callback delivery failed",
				logging.String("url", job.CallbackURL), logging.Error(err))
		}
	}
	return nil
}

var _ stage.Handler = (*Executor)(nil)
