package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEntryAlreadyExists      = errors.New("scheduler: entry already exists")
	ErrSchedulerAlreadyStarted = errors.New("scheduler: already started")
	ErrSchedulerNotStarted     = errors.New("scheduler: not started")
)

// HandlerFunc is the function executed when an entry fires.
type HandlerFunc func(ctx context.Context) error

// Entry is a named recurring task.
type Entry struct {
	Name     string
	Schedule Schedule
	Handler  HandlerFunc
	// Timeout bounds a single execution. Zero means no timeout.
	Timeout time.Duration

	nextRun time.Time
}

// Lock guards an entry so only one instance runs it at a time.
// A nil Lock runs entries unguarded.
type Lock interface {
	TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, value string) error
}

// Scheduler runs registered entries on their schedules. When a Lock is
// configured, each firing is guarded so that only one process instance
// executes the entry per tick.
type Scheduler struct {
	log        *logger.Logger
	lock       Lock
	lockTTL    time.Duration
	instanceID string

	tickInterval time.Duration

	mu       sync.Mutex
	entries  map[string]*Entry
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLock guards entry execution with a distributed lock.
func WithLock(lock Lock, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.lock = lock
		s.lockTTL = ttl
	}
}

// WithTickInterval overrides how often due entries are checked.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.tickInterval = d
	}
}

// New creates a scheduler.
func New(log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:          log,
		instanceID:   uuid.New().String(),
		tickInterval: time.Second,
		entries:      make(map[string]*Entry),
		lockTTL:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds an entry to the scheduler.
func (s *Scheduler) Register(entry *Entry) error {
	if entry.Name == "" {
		return fmt.Errorf("scheduler: entry name is required")
	}
	if entry.Schedule == nil {
		return fmt.Errorf("scheduler: entry %q has no schedule", entry.Name)
	}
	if entry.Handler == nil {
		return fmt.Errorf("scheduler: entry %q has no handler", entry.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Name]; exists {
		return ErrEntryAlreadyExists
	}

	entry.nextRun = entry.Schedule.NextRun(time.Now())
	s.entries[entry.Name] = entry

	s.log.Info("Schedule entry registered",
		zap.String("entry", entry.Name),
		zap.String("schedule", entry.Schedule.String()),
		zap.Time("next_run_at", entry.nextRun),
	)

	return nil
}

// Start begins the tick loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyStarted
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.run()

	s.log.Info("Scheduler started",
		zap.String("instance_id", s.instanceID),
		zap.Int("entries", len(s.entries)),
	)

	return nil
}

// Stop stops the tick loop and waits for in-flight executions, or until
// ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Scheduler stopped", zap.String("instance_id", s.instanceID))
		return nil
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out", zap.String("instance_id", s.instanceID))
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Scheduler) tick(now time.Time) {
	s.mu.Lock()
	var due []*Entry
	for _, entry := range s.entries {
		if !entry.nextRun.After(now) {
			due = append(due, entry)
			entry.nextRun = entry.Schedule.NextRun(now)
		}
	}
	s.mu.Unlock()

	for _, entry := range due {
		s.wg.Add(1)
		go s.execute(entry)
	}
}

func (s *Scheduler) execute(entry *Entry) {
	defer s.wg.Done()

	ctx := context.Background()
	if entry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.Timeout)
		defer cancel()
	}

	if s.lock != nil {
		key := "scheduler:lock:" + entry.Name
		acquired, err := s.lock.TryLock(ctx, key, s.instanceID, s.lockTTL)
		if err != nil {
			s.log.Error("Failed to acquire schedule lock",
				zap.String("entry", entry.Name),
				zap.Error(err),
			)
			return
		}
		if !acquired {
			s.log.Debug("Schedule entry held by another instance",
				zap.String("entry", entry.Name),
			)
			return
		}
		defer func() {
			if err := s.lock.Unlock(context.Background(), key, s.instanceID); err != nil {
				s.log.Warn("Failed to release schedule lock",
					zap.String("entry", entry.Name),
					zap.Error(err),
				)
			}
		}()
	}

	start := time.Now()
	s.log.Debug("Executing schedule entry", zap.String("entry", entry.Name))

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Schedule entry panicked",
				zap.String("entry", entry.Name),
				zap.Any("panic", r),
			)
		}
	}()

	if err := entry.Handler(ctx); err != nil {
		s.log.Error("Schedule entry failed",
			zap.String("entry", entry.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	s.log.Info("Schedule entry completed",
		zap.String("entry", entry.Name),
		zap.Duration("duration", time.Since(start)),
	)
}
