package worker

import (
	"context"

	"taskflow/internal/pkg/queue"
)

// Handler processes jobs of one registered name. Handlers must be idempotent:
// delivery is at-least-once and the same job may arrive more than once.
//
// A returned error wrapped as errorsx.Permanent is terminal and the job is
// parked without further attempts; any other error triggers the job's
// retry/backoff policy.
type Handler interface {
	Process(ctx context.Context, job *queue.Job) error
}

// HandlerFunc is a function adapter that implements the Handler interface
type HandlerFunc func(ctx context.Context, job *queue.Job) error

// Process implements the Handler interface
func (f HandlerFunc) Process(ctx context.Context, job *queue.Job) error {
	return f(ctx, job)
}
