package queue

import (
	"time"
)

// BackoffType defines how retry delays grow between attempts
type BackoffType string

const (
	// BackoffExponential doubles the delay on every attempt
	BackoffExponential BackoffType = "exponential"

	// BackoffFixed always waits the base delay
	BackoffFixed BackoffType = "fixed"
)

// BackoffPolicy describes the retry delay for a job
type BackoffPolicy struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Job is one unit of asynchronous work. Delivery is at-least-once: a worker
// crash after execution but before acknowledgment causes redelivery, so
// handlers must be idempotent.
type Job struct {
	// ID is the broker-assigned identifier
	ID string `json:"id"`

	// Name selects the handler the job is dispatched to
	Name string `json:"name"`

	// Payload is the serialized job data
	Payload []byte `json:"payload"`

	// Attempt counts deliveries so far (0 before the first delivery)
	Attempt int `json:"attempt"`

	// MaxAttempts bounds retries before the job is parked as failed
	MaxAttempts int `json:"max_attempts"`

	// Backoff is the retry delay policy
	Backoff BackoffPolicy `json:"backoff"`

	// Priority orders delivery; a lower value is delivered first
	Priority int `json:"priority"`

	// RemoveOnComplete drops the job record after successful processing
	RemoveOnComplete bool `json:"remove_on_complete"`

	// KeepOnFail retains exhausted jobs for operator inspection
	KeepOnFail bool `json:"keep_on_fail"`

	// EnqueuedAt is when the job was first enqueued
	EnqueuedAt time.Time `json:"enqueued_at"`

	// ScheduledAt is the earliest delivery time (zero means immediately)
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// ShouldRetry reports whether another attempt is allowed after the current
// one failed. Attempt counts deliveries already made, so a job is retried
// while it has been delivered fewer than MaxAttempts times.
func (j *Job) ShouldRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// NextDelay returns the attempt-indexed retry delay. For exponential backoff
// the delay is base * 2^(attempt-1), matching one doubling per failure.
func (j *Job) NextDelay() time.Duration {
	base := j.Backoff.Delay
	if base <= 0 {
		base = time.Second
	}
	if j.Backoff.Type != BackoffExponential || j.Attempt <= 1 {
		return base
	}
	delay := base
	for i := 1; i < j.Attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

const maxRetryDelay = time.Hour

// Option customizes an enqueued job
type Option func(*Job)

// WithAttempts sets the maximum number of delivery attempts
func WithAttempts(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.MaxAttempts = n
		}
	}
}

// WithBackoff sets the retry backoff policy
func WithBackoff(t BackoffType, delay time.Duration) Option {
	return func(j *Job) {
		j.Backoff = BackoffPolicy{Type: t, Delay: delay}
	}
}

// WithPriority sets the job priority (lower value = higher priority)
func WithPriority(p int) Option {
	return func(j *Job) {
		j.Priority = p
	}
}

// WithDelay defers the first delivery
func WithDelay(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.ScheduledAt = time.Now().Add(d)
		}
	}
}

// WithRetention sets the completion and failure retention behavior
func WithRetention(removeOnComplete, keepOnFail bool) Option {
	return func(j *Job) {
		j.RemoveOnComplete = removeOnComplete
		j.KeepOnFail = keepOnFail
	}
}

// newJob builds a job with defaults applied
func newJob(id, name string, payload []byte, opts ...Option) *Job {
	job := &Job{
		ID:               id,
		Name:             name,
		Payload:          payload,
		MaxAttempts:      1,
		Backoff:          BackoffPolicy{Type: BackoffExponential, Delay: time.Second},
		Priority:         5,
		RemoveOnComplete: true,
		KeepOnFail:       true,
		EnqueuedAt:       time.Now(),
	}
	for _, opt := range opts {
		opt(job)
	}
	return job
}
