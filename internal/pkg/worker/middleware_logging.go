package worker

import (
	"context"
	"time"

	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/queue"

	"go.uber.org/zap"
)

// LoggingMiddleware logs the start and outcome of each job execution
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, job *queue.Job) error {
			jobLog := log.With(
				zap.String("job_id", job.ID),
				zap.String("job_name", job.Name),
				zap.Int("attempt", job.Attempt),
			)

			jobLog.Debug("Job execution started")
			start := time.Now()

			err := next.Process(ctx, job)

			jobLog = jobLog.With(zap.Duration("duration", time.Since(start)))
			if err != nil {
				jobLog.Error("Job execution failed", zap.Error(err))
			} else {
				jobLog.Debug("Job execution completed")
			}

			return err
		})
	}
}
