package worker

import (
	"time"
)

// Config holds the configuration for the worker pool
type Config struct {
	// Concurrency is the number of worker goroutines
	Concurrency int

	// PollInterval is the idle delay when no job is due
	PollInterval time.Duration

	// ErrorBackoff is the delay after a fetch error
	ErrorBackoff time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		PollInterval:    200 * time.Millisecond,
		ErrorBackoff:    5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
