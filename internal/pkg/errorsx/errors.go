package errorsx

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds for caller-facing failures.
var (
	// ErrNotFound indicates the entity does not exist or zero rows were affected
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input or an unrecognized enum value
	ErrValidation = errors.New("validation failed")
	// ErrDependencyUnavailable indicates the store or queue is transiently unreachable
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrInternal indicates an unclassified failure
	ErrInternal = errors.New("internal error")
)

var (
	// Retryable indicates the operation may succeed if retried
	Retryable = errors.New("retryable")
	// Permanent indicates the operation will not succeed upon retry
	Permanent = errors.New("permanent")
)

// NotFound wraps err (or creates a new error from msg) as ErrNotFound.
func NotFound(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// Validation wraps msg as ErrValidation.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// DependencyUnavailable wraps err as ErrDependencyUnavailable.
func DependencyUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
}

// WrapRetryable marks an error as retryable
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(Retryable, err)
}

// WrapPermanent marks an error as permanent
func WrapPermanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(Permanent, err)
}

func IsRetryable(err error) bool {
	return errors.Is(err, Retryable)
}

func IsPermanent(err error) bool {
	return errors.Is(err, Permanent)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDependencyUnavailable(err error) bool {
	return errors.Is(err, ErrDependencyUnavailable)
}

// RateLimitError carries the configured limit and the window reset time so
// callers can compute a retry-after.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}

// IsRateLimited reports whether err is a rate-limit rejection and returns it.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
