package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskflow/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronScheduleHourly(t *testing.T) {
	schedule, err := NewCronSchedule("0 * * * *")
	require.NoError(t, err)

	from := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	next := schedule.NextRun(from)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), next)
}

func TestCronScheduleRejectsInvalidExpression(t *testing.T) {
	_, err := NewCronSchedule("not a cron")
	require.Error(t, err)
}

func TestIntervalSchedule(t *testing.T) {
	schedule := NewIntervalSchedule(15 * time.Minute)

	from := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(15*time.Minute), schedule.NextRun(from))
}

func TestSchedulerRunsDueEntries(t *testing.T) {
	s := New(logger.NewNop(), WithTickInterval(10*time.Millisecond))

	var runs atomic.Int32
	err := s.Register(&Entry{
		Name:     "tick",
		Schedule: NewIntervalSchedule(20 * time.Millisecond),
		Handler: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	time.Sleep(100 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestSchedulerRejectsDuplicateEntry(t *testing.T) {
	s := New(logger.NewNop())

	entry := func() *Entry {
		return &Entry{
			Name:     "dup",
			Schedule: NewIntervalSchedule(time.Minute),
			Handler:  func(ctx context.Context) error { return nil },
		}
	}
	require.NoError(t, s.Register(entry()))
	assert.ErrorIs(t, s.Register(entry()), ErrEntryAlreadyExists)
}

func TestSchedulerRegisterValidation(t *testing.T) {
	s := New(logger.NewNop())

	assert.Error(t, s.Register(&Entry{}))
	assert.Error(t, s.Register(&Entry{Name: "x"}))
	assert.Error(t, s.Register(&Entry{Name: "x", Schedule: NewIntervalSchedule(time.Minute)}))
}

// fakeLock grants the lock to a fixed holder only
type fakeLock struct {
	mu     sync.Mutex
	holder string
	locked map[string]string
}

func (l *fakeLock) TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked == nil {
		l.locked = make(map[string]string)
	}
	if _, held := l.locked[key]; held {
		return false, nil
	}
	if l.holder != "" && value != l.holder {
		return false, nil
	}
	l.locked[key] = value
	return true, nil
}

func (l *fakeLock) Unlock(ctx context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked[key] == value {
		delete(l.locked, key)
	}
	return nil
}

func TestSchedulerSkipsEntryHeldElsewhere(t *testing.T) {
	lock := &fakeLock{holder: "other-instance"}
	s := New(logger.NewNop(),
		WithTickInterval(10*time.Millisecond),
		WithLock(lock, time.Minute),
	)

	var runs atomic.Int32
	err := s.Register(&Entry{
		Name:     "guarded",
		Schedule: NewIntervalSchedule(10 * time.Millisecond),
		Handler: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	time.Sleep(60 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	assert.Equal(t, int32(0), runs.Load(), "entry held by another instance must not run here")
}

func TestSchedulerRunsWithLock(t *testing.T) {
	lock := &fakeLock{}
	s := New(logger.NewNop(),
		WithTickInterval(10*time.Millisecond),
		WithLock(lock, time.Minute),
	)

	var runs atomic.Int32
	err := s.Register(&Entry{
		Name:     "guarded",
		Schedule: NewIntervalSchedule(20 * time.Millisecond),
		Handler: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	time.Sleep(100 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
