package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates the component is healthy
	StatusUp Status = "UP"
	// StatusDown indicates the component is unhealthy
	StatusDown Status = "DOWN"
)

// CheckResult represents the result of a single health check
type CheckResult struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Checker probes one dependency
type Checker interface {
	// Name returns the component name
	Name() string
	// Check reports nil when the component is reachable
	Check(ctx context.Context) error
}

// Response is the JSON body of the health endpoint
type Response struct {
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

// Service runs all registered checkers concurrently with a per-check timeout.
type Service struct {
	checkers []Checker
	timeout  time.Duration
}

func NewService(checkers ...Checker) *Service {
	return &Service{
		checkers: checkers,
		timeout:  3 * time.Second,
	}
}

// Check runs every checker and aggregates. Overall status is UP only when
// all checks pass.
func (s *Service) Check(ctx context.Context) Response {
	results := make([]CheckResult, len(s.checkers))

	var wg sync.WaitGroup
	for i, checker := range s.checkers {
		wg.Add(1)
		go func(i int, checker Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			result := CheckResult{
				Name:      checker.Name(),
				Status:    StatusUp,
				CheckedAt: time.Now().UTC(),
			}
			if err := checker.Check(checkCtx); err != nil {
				result.Status = StatusDown
				result.Error = err.Error()
			}
			results[i] = result
		}(i, checker)
	}
	wg.Wait()

	overall := StatusUp
	for _, r := range results {
		if r.Status == StatusDown {
			overall = StatusDown
			break
		}
	}

	return Response{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}
