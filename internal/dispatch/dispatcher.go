package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/generation"
	"github.com/phrazzld/namegen-api/internal/redact"
	"github.com/phrazzld/namegen-api/internal/store"
)

var (
	// ErrQueueFull is returned by Dispatch when no queue slot is free.
	// The task has already been marked failed when it is returned.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrDispatcherStopped is returned by Dispatch after Stop was called.
	// The task has already been marked failed when it is returned.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// Failure causes recorded on tasks. They are shown to API clients.
const (
	msgQueueFull       = "generation queue is full, please retry later"
	msgStopped         = "server is shutting down, please retry later"
	msgBlocked         = "generation blocked by content safety filters"
	msgMalformed       = "generation engine returned a malformed response"
	msgUnavailable     = "generation engine unavailable"
	msgCrashed         = "generation engine crashed"
	msgInterrupted     = "generation interrupted"
	msgFailedPrefix    = "generation failed: "
	msgTimedOutPattern = "generation timed out after %s"
)

// Failure reasons used as metric labels.
const (
	reasonNone        = ""
	reasonTimeout     = "timeout"
	reasonBlocked     = "blocked"
	reasonMalformed   = "malformed"
	reasonUnavailable = "unavailable"
	reasonPanic       = "panic"
	reasonError       = "error"
	reasonQueueFull   = "queue_full"
	reasonStopped     = "stopped"
	reasonInterrupted = "interrupted"
)

const (
	// storeTimeout bounds each outcome write.
	storeTimeout = 10 * time.Second
	// staleBatchSize caps the tasks failed per sweep; the next tick picks up the rest.
	staleBatchSize = 500
)

// Config holds configuration for the dispatcher.
type Config struct {
	// WorkerCount determines how many tasks are generated concurrently
	WorkerCount int

	// QueueSize is the buffer size of the in-memory queue
	QueueSize int

	// EngineTimeout bounds each generator call
	EngineTimeout time.Duration

	// StaleAfter is the age after which a pending task that nobody is
	// working on is considered abandoned
	StaleAfter time.Duration

	// StaleCheckInterval defines how often abandoned tasks are swept.
	// If zero, defaults to 5 minutes
	StaleCheckInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:        2,
		QueueSize:          100,
		EngineTimeout:      60 * time.Second,
		StaleAfter:         30 * time.Minute,
		StaleCheckInterval: 5 * time.Minute,
	}
}

// ConfigFromSettings converts the application's dispatch settings.
func ConfigFromSettings(s config.DispatchConfig) Config {
	return Config{
		WorkerCount:        s.WorkerCount,
		QueueSize:          s.QueueSize,
		EngineTimeout:      s.EngineTimeout(),
		StaleAfter:         s.StaleAfter(),
		StaleCheckInterval: s.StaleCheckInterval(),
	}
}

// Dispatcher generates names for pending tasks on a pool of workers and
// records each outcome in the task store.
type Dispatcher struct {
	store     store.TaskStore
	generator generation.Generator
	config    Config
	logger    *slog.Logger
	metrics   *Metrics

	jobs chan *domain.Task

	mu       sync.Mutex
	closed   bool
	tracked  map[string]struct{}
	started  bool
	stopOnce sync.Once

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Dispatcher. metrics may be nil.
func New(
	taskStore store.TaskStore,
	generator generation.Generator,
	cfg Config,
	logger *slog.Logger,
	metrics *Metrics,
) *Dispatcher {
	defaults := DefaultConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = defaults.EngineTimeout
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaults.StaleAfter
	}
	if cfg.StaleCheckInterval <= 0 {
		cfg.StaleCheckInterval = defaults.StaleCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		store:     taskStore,
		generator: generator,
		config:    cfg,
		logger:    logger.With(slog.String("component", "dispatcher")),
		metrics:   metrics,
		jobs:      make(chan *domain.Task, cfg.QueueSize),
		tracked:   make(map[string]struct{}),
	}
}

// Start fails pending tasks abandoned by a previous process, then starts the
// workers and the periodic stale-task monitor. The monitor stops when ctx is
// cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started || d.closed {
		d.mu.Unlock()
		return errors.New("dispatcher already started")
	}
	d.started = true
	d.mu.Unlock()

	if _, err := d.sweepStale(ctx); err != nil {
		return fmt.Errorf("failed to recover stale tasks: %w", err)
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.wg.Add(1)
	go d.staleTaskMonitor(monitorCtx)

	d.logger.Info("dispatcher started",
		slog.Int("workers", d.config.WorkerCount),
		slog.Int("queue_size", d.config.QueueSize))
	return nil
}

// Stop refuses new work, lets the workers drain the queue and waits for them.
// It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()

		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
		d.logger.Info("dispatcher stopped")
	})
}

// Dispatch queues a pending task for generation without blocking.
// When the queue is full or the dispatcher is stopped, the task is marked
// failed before the error is returned, so it never stays pending.
func (d *Dispatcher) Dispatch(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("dispatch: nil task")
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.failUnqueued(ctx, task.Slug, msgStopped, reasonStopped)
		return ErrDispatcherStopped
	}
	if _, dup := d.tracked[task.Slug]; dup {
		d.mu.Unlock()
		return nil
	}

	select {
	case d.jobs <- task.Clone():
		d.tracked[task.Slug] = struct{}{}
		d.metrics.setQueueDepth(len(d.jobs))
		d.mu.Unlock()
		d.logger.Debug("task queued", slog.String("slug", task.Slug))
		return nil
	default:
		d.mu.Unlock()
		d.failUnqueued(ctx, task.Slug, msgQueueFull, reasonQueueFull)
		return ErrQueueFull
	}
}

// failUnqueued records a failure for a task that never reached a worker.
// The request context may be cancelled soon after Dispatch returns, so the
// write detaches from it.
func (d *Dispatcher) failUnqueued(ctx context.Context, slug, cause, reason string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	d.logger.Warn("task not queued", slog.String("slug", slug), slog.String("reason", reason))
	d.record(writeCtx, d.logger.With(slog.String("slug", slug)), slug, domain.Failed(cause), reason)
}

func (d *Dispatcher) isTracked(slug string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tracked[slug]
	return ok
}

func (d *Dispatcher) untrack(slug string) {
	d.mu.Lock()
	delete(d.tracked, slug)
	d.mu.Unlock()
}

// worker processes tasks until the queue is closed and drained.
func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("starting worker", slog.Int("worker_id", id))
	for task := range d.jobs {
		d.metrics.setQueueDepth(len(d.jobs))
		d.process(id, task)
	}
	d.logger.Debug("task queue closed, stopping worker", slog.Int("worker_id", id))
}

// process runs one generation and writes its outcome.
func (d *Dispatcher) process(workerID int, task *domain.Task) {
	defer d.untrack(task.Slug)

	log := d.logger.With(
		slog.String("slug", task.Slug),
		slog.Int("worker_id", workerID),
	)
	log.Info("generating name")

	d.metrics.addInFlight(1)
	start := time.Now()
	outcome, reason := d.generate(log, task)
	d.metrics.addInFlight(-1)
	d.metrics.observeDuration(string(outcome.Status), time.Since(start))

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	d.record(ctx, log, task.Slug, outcome, reason)
}

// generate calls the engine once under the engine timeout and converts the
// result, error or panic into an outcome.
func (d *Dispatcher) generate(log *slog.Logger, task *domain.Task) (outcome domain.Outcome, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.EngineTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("generator panicked", slog.String("panic", redact.String(fmt.Sprint(r))))
			outcome, reason = domain.Failed(msgCrashed), reasonPanic
		}
	}()

	result, err := d.generator.GenerateName(ctx, task.Input)
	if err == nil {
		err = result.Validate()
		if err != nil {
			err = fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
	}
	if err == nil {
		return domain.Completed(result), reasonNone
	}

	log.Warn("generation failed", slog.String("error", redact.Error(err)))
	return classify(err, ctx.Err(), d.config.EngineTimeout)
}

// classify maps a generator error to a failure cause and metric reason.
// A deadline hit takes precedence over whatever the engine returned.
func classify(err, ctxErr error, timeout time.Duration) (domain.Outcome, string) {
	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return domain.Failed(fmt.Sprintf(msgTimedOutPattern, timeout)), reasonTimeout
	case errors.Is(err, generation.ErrContentBlocked):
		return domain.Failed(msgBlocked), reasonBlocked
	case errors.Is(err, generation.ErrInvalidResponse), errors.Is(err, generation.ErrNoCandidates):
		return domain.Failed(msgMalformed), reasonMalformed
	case errors.Is(err, generation.ErrTransientFailure):
		return domain.Failed(msgUnavailable), reasonUnavailable
	default:
		return domain.Failed(msgFailedPrefix + redact.Error(err)), reasonError
	}
}

// record writes the outcome and counts it. A task deleted while it was being
// generated is not an error.
func (d *Dispatcher) record(ctx context.Context, log *slog.Logger, slug string, outcome domain.Outcome, reason string) {
	_, err := d.store.Update(ctx, slug, outcome)
	switch {
	case err == nil:
		d.metrics.observeOutcome(string(outcome.Status), reason)
		log.Info("task finalized", slog.String("status", string(outcome.Status)))
	case errors.Is(err, store.ErrTaskNotFound):
		log.Info("task deleted before its outcome was recorded")
	case errors.Is(err, store.ErrTaskFinalized):
		log.Warn("task already finalized, outcome dropped", slog.String("status", string(outcome.Status)))
	default:
		log.Error("failed to record task outcome", slog.String("error", redact.Error(err)))
	}
}

// staleTaskMonitor periodically fails pending tasks nobody is working on.
func (d *Dispatcher) staleTaskMonitor(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.StaleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.sweepStale(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("failed to check for stale tasks", slog.String("error", redact.Error(err)))
			}
		}
	}
}

// sweepStale marks pending tasks older than StaleAfter as failed, skipping
// those queued or in flight here. It returns how many were failed.
func (d *Dispatcher) sweepStale(ctx context.Context) (int, error) {
	cutoff := domain.Now().Add(-d.config.StaleAfter)
	pending, err := d.store.ListPending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, task := range pending {
		if d.isTracked(task.Slug) {
			continue
		}
		_, err := d.store.Update(ctx, task.Slug, domain.Failed(msgInterrupted))
		switch {
		case err == nil:
			failed++
			d.metrics.observeOutcome(string(domain.TaskStatusFailed), reasonInterrupted)
		case errors.Is(err, store.ErrTaskNotFound), errors.Is(err, store.ErrTaskFinalized):
			// finished or deleted since the listing
		default:
			return failed, err
		}
	}

	if failed > 0 {
		d.logger.Info("failed stale pending tasks", slog.Int("count", failed))
	}
	return failed, nil
}
