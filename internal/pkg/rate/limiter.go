package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrInvalidConfig indicates invalid limiter configuration
	ErrInvalidConfig = errors.New("invalid rate limiter configuration")
	// ErrStorageUnavailable indicates the counter store is unavailable
	ErrStorageUnavailable = errors.New("counter store unavailable")
)

// Config holds rate limiter configuration for one protected operation class.
type Config struct {
	// Limit is the number of requests allowed per window
	Limit int

	// Window is the fixed window length
	Window time.Duration

	// FailOpen allows requests when the counter store is unavailable
	FailOpen bool
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Limit <= 0 || c.Window <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// State is the counter record for one (client, operation) key.
type State struct {
	// Count is the number of requests observed in the current window
	Count int `json:"count"`

	// ResetAt is when the current window ends
	ResetAt time.Time `json:"reset_at"`
}

// Storage is the TTL-aware key/value store backing the counters.
type Storage interface {
	// Get retrieves the counter record for a key, nil if absent or expired
	Get(ctx context.Context, key string) (*State, error)

	// Set stores the counter record with the given TTL
	Set(ctx context.Context, key string, state *State, ttl time.Duration) error

	// Delete removes the record for a key
	Delete(ctx context.Context, key string) error

	// Close releases storage resources
	Close() error

	// Ping checks if the storage backend is available
	Ping(ctx context.Context) error
}

// Limiter is a fixed-window counter keyed by (client identity, operation).
// Bursts are possible at window boundaries; that is an accepted approximation
// of a sliding window, not a bug.
type Limiter struct {
	config  Config
	storage Storage
	logger  *logger.Logger
}

// New creates a new fixed-window limiter
func New(config Config, storage Storage, log *logger.Logger) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		config:  config,
		storage: storage,
		logger:  log,
	}, nil
}

// Key builds the counter key for a client identity and operation name.
func Key(clientID, operation string) string {
	return fmt.Sprintf("%s:%s", clientID, operation)
}

// Allow checks and consumes one slot for key. When the quota is exhausted it
// returns an *errorsx.RateLimitError carrying the limit and reset time.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()

	state, err := l.storage.Get(ctx, key)
	if err != nil {
		l.logger.Error("rate limit storage get failed", zap.String("key", key), zap.Error(err))
		if errors.Is(err, ErrStorageUnavailable) && l.config.FailOpen {
			return &Result{Allowed: true, Limit: l.config.Limit}, nil
		}
		return nil, err
	}

	// First request in the window: count 1, TTL equal to the full window.
	if state == nil || !state.ResetAt.After(now) {
		state = &State{Count: 1, ResetAt: now.Add(l.config.Window)}
		if err := l.storage.Set(ctx, key, state, l.config.Window); err != nil {
			if errors.Is(err, ErrStorageUnavailable) && l.config.FailOpen {
				return &Result{Allowed: true, Limit: l.config.Limit}, nil
			}
			return nil, err
		}
		return &Result{
			Allowed:   true,
			Limit:     l.config.Limit,
			Remaining: l.config.Limit - 1,
			ResetAt:   state.ResetAt,
		}, nil
	}

	if state.Count >= l.config.Limit {
		return &Result{
			Allowed: false,
			Limit:   l.config.Limit,
			ResetAt: state.ResetAt,
		}, &errorsx.RateLimitError{Limit: l.config.Limit, ResetAt: state.ResetAt}
	}

	// Subsequent request: increment and re-store with the remaining TTL so
	// the window is not extended on every call.
	state.Count++
	if err := l.storage.Set(ctx, key, state, time.Until(state.ResetAt)); err != nil {
		if errors.Is(err, ErrStorageUnavailable) && l.config.FailOpen {
			return &Result{Allowed: true, Limit: l.config.Limit}, nil
		}
		return nil, err
	}

	return &Result{
		Allowed:   true,
		Limit:     l.config.Limit,
		Remaining: l.config.Limit - state.Count,
		ResetAt:   state.ResetAt,
	}, nil
}

// Reset clears the counter for a key
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.storage.Delete(ctx, key)
}

// Close closes the limiter and its storage
func (l *Limiter) Close() error {
	return l.storage.Close()
}
