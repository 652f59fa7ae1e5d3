package queue

import (
	"context"
	"errors"
)

var (
	// ErrQueueUnavailable indicates the broker is transiently unreachable
	ErrQueueUnavailable = errors.New("queue unavailable")
	// ErrJobNotFound indicates the job record has disappeared from the broker
	ErrJobNotFound = errors.New("job not found")
)

// Enqueuer is the producer side of the queue
type Enqueuer interface {
	// Enqueue adds a named job and returns its broker-assigned id
	Enqueue(ctx context.Context, name string, payload []byte, opts ...Option) (string, error)
}

// Provider is the consumer side of the queue. A fetched job is leased to
// exactly one worker; an unacknowledged lease expires and the job is
// redelivered.
type Provider interface {
	// Fetch retrieves the next claimable job, nil if none is due
	Fetch(ctx context.Context) (*Job, error)

	// Ack acknowledges successful processing
	Ack(ctx context.Context, job *Job) error

	// Nack reports failed processing. With requeue the job is rescheduled
	// per its backoff; otherwise it is parked in the failed set.
	Nack(ctx context.Context, job *Job, requeue bool) error

	// Close releases queue resources
	Close() error
}
