package worker

import (
	"context"
	"sync"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/queue"

	"go.uber.org/zap"
)

// Worker is a single logical consumer fanning out across a bounded set of
// goroutines pulling from one queue. Jobs are dispatched by name to the
// registered handler.
type Worker struct {
	provider    queue.Provider
	registry    map[string]Handler
	middlewares []Middleware
	config      Config
	logger      *logger.Logger
	wg          sync.WaitGroup
	stopCh      chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
}

// New creates a new Worker instance
func New(provider queue.Provider, config Config, log *logger.Logger) *Worker {
	if config.Concurrency <= 0 {
		config.Concurrency = 10
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 200 * time.Millisecond
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = 5 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Worker{
		provider: provider,
		registry: make(map[string]Handler),
		config:   config,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

// Register registers a handler for a job name
func (w *Worker) Register(name string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registry[name] = handler
	w.logger.Info("Handler registered", zap.String("name", name))
}

// Use adds a middleware to the worker
func (w *Worker) Use(mw Middleware) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.middlewares = append(w.middlewares, mw)
}

// Start launches the worker goroutines and blocks until ctx is cancelled or
// Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker pool", zap.Int("concurrency", w.config.Concurrency))

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.processLoop(ctx, i)
	}

	select {
	case <-ctx.Done():
		w.logger.Info("Worker context cancelled")
	case <-w.stopCh:
		w.logger.Info("Worker stop signal received")
	}

	return w.shutdown()
}

// Stop gracefully stops the worker
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("Worker shutdown timeout exceeded")
		return ctx.Err()
	}
}

func (w *Worker) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All workers finished")
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout exceeded, forcing stop")
		return ctx.Err()
	}

	return w.provider.Close()
}

// processLoop is the main processing loop for each worker goroutine
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	log := w.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		job, err := w.provider.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to fetch job", zap.Error(err))
			w.sleep(ctx, w.config.ErrorBackoff)
			continue
		}

		if job == nil {
			w.sleep(ctx, w.config.PollInterval)
			continue
		}

		w.processJob(ctx, job, log)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-timer.C:
	}
}

// processJob dispatches a single job and settles it with the queue
func (w *Worker) processJob(ctx context.Context, job *queue.Job, log *logger.Logger) {
	jobLog := log.With(
		zap.String("job_id", job.ID),
		zap.String("job_name", job.Name),
		zap.Int("attempt", job.Attempt),
	)

	handler := w.lookup(job.Name)
	if handler == nil {
		// No retry can make an unknown name dispatchable
		jobLog.Error("No handler registered for job name")
		if err := w.provider.Nack(ctx, job, false); err != nil {
			jobLog.Error("Failed to park unhandled job", zap.Error(err))
		}
		return
	}

	job.Attempt++

	start := time.Now()
	err := handler.Process(ctx, job)
	duration := time.Since(start)

	jobLog = jobLog.With(zap.Duration("duration", duration))

	if err == nil {
		jobLog.Info("Job processed")
		if ackErr := w.provider.Ack(ctx, job); ackErr != nil {
			jobLog.Error("Failed to acknowledge job", zap.Error(ackErr))
		}
		return
	}

	w.settleFailure(ctx, job, err, jobLog)
}

// settleFailure applies the retry policy to a failed job
func (w *Worker) settleFailure(ctx context.Context, job *queue.Job, err error, log *logger.Logger) {
	if errorsx.IsPermanent(err) {
		log.Warn("Job failed permanently", zap.Error(err))
		if nackErr := w.provider.Nack(ctx, job, false); nackErr != nil {
			log.Error("Failed to park job", zap.Error(nackErr))
		}
		return
	}

	if job.ShouldRetry() {
		delay := job.NextDelay()
		job.ScheduledAt = time.Now().Add(delay)
		log.Warn("Job failed, scheduling retry",
			zap.Error(err),
			zap.Duration("delay", delay),
			zap.Int("max_attempts", job.MaxAttempts),
		)
		if nackErr := w.provider.Nack(ctx, job, true); nackErr != nil {
			log.Error("Failed to requeue job", zap.Error(nackErr))
		}
		return
	}

	log.Warn("Job exhausted attempts, parking as failed", zap.Error(err))
	if nackErr := w.provider.Nack(ctx, job, false); nackErr != nil {
		log.Error("Failed to park exhausted job", zap.Error(nackErr))
	}
}

func (w *Worker) lookup(name string) Handler {
	w.mu.RLock()
	defer w.mu.RUnlock()

	handler, exists := w.registry[name]
	if !exists {
		return nil
	}
	if len(w.middlewares) > 0 {
		handler = Chain(w.middlewares...)(handler)
	}
	return handler
}
