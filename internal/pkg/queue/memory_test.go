package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueuePriorityOrder(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	defer q.Close()
	ctx := context.Background()

	lowID, err := q.Enqueue(ctx, "low", nil, WithPriority(5))
	require.NoError(t, err)
	highID, err := q.Enqueue(ctx, "high", nil, WithPriority(1))
	require.NoError(t, err)

	first, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, highID, first.ID, "lower priority value is delivered first")

	second, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, lowID, second.ID)
}

func TestMemoryQueueFIFOWithinPriority(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	defer q.Close()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := q.Enqueue(ctx, "job", nil, WithPriority(2))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, want := range ids {
		job, err := q.Fetch(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, want, job.ID)
	}
}

func TestMemoryQueueDelayedDelivery(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "delayed", nil, WithDelay(40*time.Millisecond))
	require.NoError(t, err)

	job, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, job, "job must not be claimable before its scheduled time")

	time.Sleep(50 * time.Millisecond)

	job, err = q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "delayed", job.Name)
}

func TestMemoryQueueLeaseRedelivery(t *testing.T) {
	q := NewMemoryQueue(30 * time.Millisecond)
	defer q.Close()
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "job", nil)
	require.NoError(t, err)

	job, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	// Not acked within the lease: the job becomes claimable again.
	time.Sleep(40 * time.Millisecond)

	redelivered, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, redelivered)
	assert.Equal(t, id, redelivered.ID)
}

func TestMemoryQueueAckRemovesJob(t *testing.T) {
	q := NewMemoryQueue(30 * time.Millisecond)
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "job", nil)
	require.NoError(t, err)

	job, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, job))

	time.Sleep(40 * time.Millisecond)

	next, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, next, "acked job must not be redelivered")
}

func TestMemoryQueueNackRequeueWithBackoff(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	defer q.Close()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "job", nil, WithAttempts(3))
	require.NoError(t, err)

	job, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	job.Attempt = 1
	job.ScheduledAt = time.Now().Add(40 * time.Millisecond)
	require.NoError(t, q.Nack(ctx, job, true))

	next, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Nil(t, next, "requeued job waits out its backoff delay")

	time.Sleep(50 * time.Millisecond)

	next, err = q.Fetch(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 1, next.Attempt)
}

func TestMemoryQueueParkOnFailure(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	defer q.Close()
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "job", nil, WithRetention(true, true))
	require.NoError(t, err)

	job, err := q.Fetch(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, job, false))

	failed := q.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].ID)
	assert.Equal(t, 0, q.Depth())
}

func TestMemoryQueueClosedIsUnavailable(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	require.NoError(t, q.Close())

	_, err := q.Enqueue(context.Background(), "job", nil)
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestJobShouldRetry(t *testing.T) {
	job := &Job{MaxAttempts: 3}

	job.Attempt = 1
	assert.True(t, job.ShouldRetry())
	job.Attempt = 2
	assert.True(t, job.ShouldRetry())
	job.Attempt = 3
	assert.False(t, job.ShouldRetry())
}

func TestJobNextDelayExponential(t *testing.T) {
	job := &Job{
		Backoff: BackoffPolicy{Type: BackoffExponential, Delay: 5 * time.Second},
	}

	job.Attempt = 1
	assert.Equal(t, 5*time.Second, job.NextDelay())
	job.Attempt = 2
	assert.Equal(t, 10*time.Second, job.NextDelay())
	job.Attempt = 3
	assert.Equal(t, 20*time.Second, job.NextDelay())
}

func TestJobNextDelayFixed(t *testing.T) {
	job := &Job{
		Backoff: BackoffPolicy{Type: BackoffFixed, Delay: 3 * time.Second},
	}

	for attempt := 1; attempt <= 4; attempt++ {
		job.Attempt = attempt
		assert.Equal(t, 3*time.Second, job.NextDelay())
	}
}

func TestJobNextDelayCapped(t *testing.T) {
	job := &Job{
		Attempt: 30,
		Backoff: BackoffPolicy{Type: BackoffExponential, Delay: 10 * time.Second},
	}
	assert.Equal(t, maxRetryDelay, job.NextDelay())
}
