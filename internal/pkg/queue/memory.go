package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is the in-process reference implementation of Enqueuer and
// Provider. It delivers in (priority, insertion) order, honors delayed
// scheduling, and redelivers jobs whose lease expired without an ack.
type MemoryQueue struct {
	mu         sync.Mutex
	ready      readyHeap
	scheduled  schedHeap
	inflight   map[string]*lease
	failed     []*Job
	completed  []*Job
	visibility time.Duration
	seq        uint64
	closed     bool
}

type lease struct {
	job      *Job
	deadline time.Time
}

// NewMemoryQueue creates an in-memory queue. visibility bounds how long a
// fetched job may stay unacknowledged before it becomes claimable again.
func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &MemoryQueue{
		inflight:   make(map[string]*lease),
		visibility: visibility,
	}
}

// Enqueue adds a named job and returns its id
func (q *MemoryQueue) Enqueue(ctx context.Context, name string, payload []byte, opts ...Option) (string, error) {
	job := newJob(uuid.NewString(), name, payload, opts...)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrQueueUnavailable
	}

	q.push(job)
	return job.ID, nil
}

// push assumes q.mu is held
func (q *MemoryQueue) push(job *Job) {
	q.seq++
	item := &queueItem{job: job, seq: q.seq}
	if job.ScheduledAt.After(time.Now()) {
		heap.Push(&q.scheduled, item)
	} else {
		heap.Push(&q.ready, item)
	}
}

// Fetch retrieves the next due job, nil if none
func (q *MemoryQueue) Fetch(ctx context.Context) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueUnavailable
	}

	now := time.Now()

	// Promote due scheduled jobs
	for q.scheduled.Len() > 0 && !q.scheduled[0].job.ScheduledAt.After(now) {
		item := heap.Pop(&q.scheduled).(*queueItem)
		heap.Push(&q.ready, item)
	}

	// Reclaim expired leases: the job becomes claimable again, which is
	// where at-least-once redelivery comes from.
	for id, l := range q.inflight {
		if now.After(l.deadline) {
			delete(q.inflight, id)
			q.seq++
			heap.Push(&q.ready, &queueItem{job: l.job, seq: q.seq})
		}
	}

	if q.ready.Len() == 0 {
		return nil, nil
	}

	item := heap.Pop(&q.ready).(*queueItem)
	q.inflight[item.job.ID] = &lease{job: item.job, deadline: now.Add(q.visibility)}
	return item.job, nil
}

// Ack acknowledges successful processing
func (q *MemoryQueue) Ack(ctx context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, job.ID)
	if !job.RemoveOnComplete {
		q.completed = append(q.completed, job)
	}
	return nil
}

// Nack reports failed processing
func (q *MemoryQueue) Nack(ctx context.Context, job *Job, requeue bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inflight, job.ID)

	if requeue {
		q.push(job)
		return nil
	}

	if job.KeepOnFail {
		q.failed = append(q.failed, job)
	}
	return nil
}

// Close marks the queue closed
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Failed returns jobs parked after exhausting their attempts
func (q *MemoryQueue) Failed() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.failed))
	copy(out, q.failed)
	return out
}

// Depth returns the number of claimable and scheduled jobs
func (q *MemoryQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready.Len() + q.scheduled.Len()
}

type queueItem struct {
	job *Job
	seq uint64
}

// readyHeap orders by (priority, seq): lower priority value first, then FIFO
type readyHeap []*queueItem

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority < h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}
func (h readyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x interface{}) { *h = append(*h, x.(*queueItem)) }
func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// schedHeap orders by the earliest delivery time
type schedHeap []*queueItem

func (h schedHeap) Len() int { return len(h) }
func (h schedHeap) Less(i, j int) bool {
	return h[i].job.ScheduledAt.Before(h[j].job.ScheduledAt)
}
func (h schedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *schedHeap) Push(x interface{}) { *h = append(*h, x.(*queueItem)) }
func (h *schedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
