package task

import (
	"context"
	"time"

	"taskflow/internal/pkg/config"
	"taskflow/internal/pkg/database"
	"taskflow/internal/pkg/health"
	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/queue"
	"taskflow/internal/pkg/rate"
	"taskflow/internal/pkg/redis"
	"taskflow/internal/pkg/scheduler"
	"taskflow/internal/pkg/server"
	"taskflow/internal/pkg/worker"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// coreModules is the infrastructure every process variant needs
var coreModules = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
	redis.Module,
	queue.Module,

	fx.Provide(
		NewTaskConfig,
		NewTaskRepository,
		NewProducer,
		NewTaskService,
	),
)

// ServerApp provides the HTTP API process: routes, rate limiting, health.
var ServerApp = fx.Options(
	coreModules,
	server.Module,
	rate.Module,
	health.Module,

	fx.Provide(
		NewTaskHandler,
	),

	fx.Invoke(registerTaskRoutes),
)

// WorkerApp provides the background process: worker pool plus the overdue
// sweeper on its cron schedule.
var WorkerApp = fx.Options(
	coreModules,
	scheduler.Module,

	fx.Provide(
		NewWorkerPool,
		NewProcessor,
		NewSweeper,
	),

	fx.Invoke(
		registerWorker,
		registerSweeper,
	),
)

// registerTaskRoutes registers task routes on the Echo server
func registerTaskRoutes(srv *server.Server, handler *TaskHandler, limiter *rate.Limiter) {
	e := srv.GetEcho()
	RegisterTaskRoutes(e, handler, limiter)
}

// NewWorkerPool builds the worker pool from the queue configuration
func NewWorkerPool(cfg *config.Config, provider queue.Provider, log *logger.Logger) *worker.Worker {
	wCfg := worker.DefaultConfig()
	if cfg.Queue.Concurrency > 0 {
		wCfg.Concurrency = cfg.Queue.Concurrency
	}
	if cfg.Queue.PollIntervalMs > 0 {
		wCfg.PollInterval = time.Duration(cfg.Queue.PollIntervalMs) * time.Millisecond
	}
	if cfg.Queue.ShutdownTimeoutSec > 0 {
		wCfg.ShutdownTimeout = time.Duration(cfg.Queue.ShutdownTimeoutSec) * time.Second
	}

	w := worker.New(provider, wCfg, log)
	w.Use(worker.RecoveryMiddleware(log))
	w.Use(worker.LoggingMiddleware(log))
	return w
}

// registerWorker wires the processor handlers and the pool lifecycle
func registerWorker(lc fx.Lifecycle, w *worker.Worker, processor *Processor, log *logger.Logger) {
	processor.Register(w)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start blocks until the pool stops, so it runs in its own
			// goroutine.
			go func() {
				if err := w.Start(context.Background()); err != nil {
					log.Error("Worker pool stopped with error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return w.Stop(ctx)
		},
	})
}

// registerSweeper schedules the overdue sweep
func registerSweeper(cfg *config.Config, sched *scheduler.Scheduler, sweeper *Sweeper, log *logger.Logger) error {
	if !cfg.Sweeper.Enabled {
		log.Info("Overdue sweeper disabled")
		return nil
	}

	schedule, err := scheduler.NewCronSchedule(cfg.Sweeper.Cron)
	if err != nil {
		return err
	}

	err = sched.Register(&scheduler.Entry{
		Name:     "overdue-task-sweep",
		Schedule: schedule,
		Handler:  sweeper.Sweep,
		Timeout:  time.Duration(cfg.Sweeper.LockTTLSec) * time.Second,
	})
	if err != nil {
		return err
	}

	log.Info("Overdue sweeper scheduled", zap.String("cron", cfg.Sweeper.Cron))
	return nil
}
