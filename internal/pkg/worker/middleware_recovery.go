package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/queue"

	"go.uber.org/zap"
)

// RecoveryMiddleware converts handler panics into errors so a single
// bad job cannot take down the worker pool
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, job *queue.Job) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Job handler panicked",
						zap.String("job_id", job.ID),
						zap.String("job_name", job.Name),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next.Process(ctx, job)
		})
	}
}
