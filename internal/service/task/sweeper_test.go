package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskflow/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepEnqueuesOnlyOverduePending(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	sweeper := newSweeper(store, producer, logger.NewNop())
	ctx := context.Background()

	overdue := &Task{Title: "a", Status: StatusPending, DueDate: time.Now().Add(-24 * time.Hour)}
	future := &Task{Title: "b", Status: StatusPending, DueDate: time.Now().Add(24 * time.Hour)}
	resolved := &Task{Title: "c", Status: StatusCompleted, DueDate: time.Now().Add(-24 * time.Hour)}
	for _, task := range []*Task{overdue, future, resolved} {
		require.NoError(t, store.Insert(ctx, task))
	}

	require.NoError(t, sweeper.Sweep(ctx))

	require.Len(t, producer.calls, 1)
	assert.Equal(t, JobOverdueTask, producer.calls[0].job)
	assert.Equal(t, []string{overdue.ID}, producer.calls[0].taskIDs)
}

func TestSweepNoOverdueTasks(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	sweeper := newSweeper(store, producer, logger.NewNop())

	require.NoError(t, sweeper.Sweep(context.Background()))
	assert.Empty(t, producer.calls)
}

func TestSweepSurvivesEnqueueFailures(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{err: errors.New("broker down")}
	sweeper := newSweeper(store, producer, logger.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		task := &Task{Title: "t", Status: StatusPending, DueDate: time.Now().Add(-time.Hour)}
		require.NoError(t, store.Insert(ctx, task))
	}

	// Per-task enqueue failures are logged, not propagated.
	require.NoError(t, sweeper.Sweep(ctx))
}

func TestSweepIsRepeatable(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	sweeper := newSweeper(store, producer, logger.NewNop())
	ctx := context.Background()

	task := &Task{Title: "t", Status: StatusPending, DueDate: time.Now().Add(-time.Hour)}
	require.NoError(t, store.Insert(ctx, task))

	require.NoError(t, sweeper.Sweep(ctx))
	require.NoError(t, sweeper.Sweep(ctx))

	// A re-run before the jobs drain re-enqueues the same id; the handler
	// tolerates the duplicate.
	require.Len(t, producer.calls, 2)
	assert.Equal(t, producer.calls[0].taskIDs, producer.calls[1].taskIDs)
}
