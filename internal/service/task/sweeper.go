package task

import (
	"context"
	"time"

	"taskflow/internal/pkg/logger"

	"go.uber.org/zap"
)

// Sweeper discovers tasks past their due date that are still pending and
// enqueues follow-up jobs for them. Runs are idempotent in effect: a re-run
// before the prior jobs drain re-enqueues the same ids, and the overdue
// handler tolerates redundant notifications.
type Sweeper struct {
	store    taskStore
	producer notifier
	logger   *logger.Logger
}

// NewSweeper creates a new overdue sweeper
func NewSweeper(repo *TaskRepository, producer *Producer, log *logger.Logger) *Sweeper {
	return newSweeper(repo, producer, log)
}

func newSweeper(store taskStore, producer notifier, log *logger.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		producer: producer,
		logger:   log,
	}
}

// Sweep runs one pass. Per-task enqueue failures are logged individually so
// one broker hiccup does not abort the sweep for the remaining tasks.
func (s *Sweeper) Sweep(ctx context.Context) error {
	s.logger.Debug("Checking for overdue tasks")

	overdue, err := s.store.FindOverdue(ctx, time.Now())
	if err != nil {
		return err
	}

	s.logger.Info("Found overdue tasks", zap.Int("count", len(overdue)))

	enqueued := 0
	for _, t := range overdue {
		if _, err := s.producer.EnqueueOverdue(ctx, []string{t.ID}); err != nil {
			s.logger.Error("Failed to enqueue overdue task",
				zap.String("task_id", t.ID),
				zap.Error(err),
			)
			continue
		}
		enqueued++
		s.logger.Debug("Queued overdue task", zap.String("task_id", t.ID))
	}

	s.logger.Debug("Overdue sweep completed",
		zap.Int("found", len(overdue)),
		zap.Int("enqueued", enqueued),
	)

	return nil
}
