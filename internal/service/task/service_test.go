package task

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory taskStore for service tests
type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]*Task

	insertErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[string]*Task)}
}

func (s *fakeStore) Insert(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	clone := *t
	s.tasks[t.ID] = &clone
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, errorsx.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *fakeStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return errorsx.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeStore) FindAll(ctx context.Context, filter Filter) ([]*Task, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Task
	for _, t := range s.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		clone := *t
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *fakeStore) Statistics(ctx context.Context) (*Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Statistics{}
	for _, t := range s.tasks {
		stats.Total++
		switch t.Status {
		case StatusCompleted:
			stats.Completed++
		case StatusInProgress:
			stats.InProgress++
		case StatusPending:
			stats.Pending++
		}
		if t.Priority == PriorityHigh {
			stats.HighPriority++
		}
	}
	return stats, nil
}

func (s *fakeStore) FindOverdue(ctx context.Context, now time.Time) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var overdue []*Task
	for _, t := range s.tasks {
		if t.DueDate.Before(now) && t.Status == StatusPending {
			clone := *t
			overdue = append(overdue, &clone)
		}
	}
	return overdue, nil
}

func (s *fakeStore) UpdateTx(ctx context.Context, id string, mutate func(*Task) error) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, errorsx.ErrNotFound
	}
	clone := *t
	if err := mutate(&clone); err != nil {
		return nil, err
	}
	clone.UpdatedAt = time.Now()
	s.tasks[id] = &clone
	result := clone
	return &result, nil
}

// enqueueCall records one producer invocation
type enqueueCall struct {
	job     string
	taskID  string
	status  Status
	taskIDs []string
}

// fakeProducer is an in-memory notifier for service tests
type fakeProducer struct {
	mu    sync.Mutex
	calls []enqueueCall
	err   error
}

func (p *fakeProducer) EnqueueStatusUpdate(ctx context.Context, taskID string, status Status) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.calls = append(p.calls, enqueueCall{job: JobStatusUpdate, taskID: taskID, status: status})
	return uuid.New().String(), nil
}

func (p *fakeProducer) EnqueueOverdue(ctx context.Context, taskIDs []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.calls = append(p.calls, enqueueCall{job: JobOverdueTask, taskIDs: taskIDs})
	return uuid.New().String(), nil
}

func (p *fakeProducer) statusCalls() []enqueueCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []enqueueCall
	for _, c := range p.calls {
		if c.job == JobStatusUpdate {
			out = append(out, c)
		}
	}
	return out
}

func newTestService(store *fakeStore, producer *fakeProducer) *TaskService {
	return newTaskService(store, producer, NewTaskConfig(), logger.NewNop())
}

func TestCreatePersistsAndNotifies(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	svc := newTestService(store, producer)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskDTO{
		Title:   "Write report",
		DueDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, StatusPending, created.Status, "status defaults to pending")
	assert.Equal(t, PriorityMedium, created.Priority, "priority defaults to medium")

	got, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)

	calls := producer.statusCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, created.ID, calls[0].taskID)
	assert.Equal(t, StatusPending, calls[0].status)
}

func TestCreateSurvivesEnqueueFailure(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{err: errors.New("broker down")}
	svc := newTestService(store, producer)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskDTO{Title: "Still created"})
	require.NoError(t, err, "queue unavailability must not fail the create")

	got, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Still created", got.Title)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeProducer{})

	_, err := svc.Create(context.Background(), CreateTaskDTO{})
	require.Error(t, err)
	assert.True(t, errorsx.IsValidation(err))
}

func TestUpdateEnqueuesOnlyOnStatusChange(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	svc := newTestService(store, producer)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskDTO{Title: "Task"})
	require.NoError(t, err)
	require.Len(t, producer.statusCalls(), 1)

	// Status change produces exactly one more job.
	inProgress := StatusInProgress
	updated, err := svc.Update(ctx, created.ID, UpdateTaskDTO{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)

	calls := producer.statusCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, StatusInProgress, calls[1].status)

	// Re-applying the same status produces none.
	_, err = svc.Update(ctx, created.ID, UpdateTaskDTO{Status: &inProgress})
	require.NoError(t, err)
	assert.Len(t, producer.statusCalls(), 2)

	// Non-status updates produce none either.
	title := "Renamed"
	_, err = svc.Update(ctx, created.ID, UpdateTaskDTO{Title: &title})
	require.NoError(t, err)
	assert.Len(t, producer.statusCalls(), 2)
}

func TestUpdateMissingTask(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeProducer{})

	title := "nope"
	_, err := svc.Update(context.Background(), uuid.New().String(), UpdateTaskDTO{Title: &title})
	require.Error(t, err)
	assert.True(t, errorsx.IsNotFound(err))
}

func TestRemoveMissingTask(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeProducer{})

	err := svc.Remove(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, errorsx.IsNotFound(err))
}

func TestUpdateStatusIsIdempotent(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	svc := newTestService(store, producer)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskDTO{Title: "Task"})
	require.NoError(t, err)
	before := len(producer.statusCalls())

	// Applying the same transition twice converges on the same state
	// without emitting new jobs.
	for i := 0; i < 2; i++ {
		updated, err := svc.UpdateStatus(ctx, created.ID, StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, updated.Status)
	}
	assert.Len(t, producer.statusCalls(), before)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProducer{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskDTO{Title: "Task"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, Status("ARCHIVED"))
	require.Error(t, err)
	assert.True(t, errorsx.IsValidation(err))
}

func TestFindAllFiltersAndPaginates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProducer{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, CreateTaskDTO{Title: "Pending", Status: StatusPending})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateTaskDTO{Title: "Done", Status: StatusCompleted})
		require.NoError(t, err)
	}

	resp, err := svc.FindAll(ctx, Filter{Status: StatusPending, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, int64(5), resp.Total)
	for _, task := range resp.Tasks {
		assert.Equal(t, StatusPending, task.Status)
	}
}

func TestStatisticsAggregates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProducer{})
	ctx := context.Background()

	seed := []CreateTaskDTO{
		{Title: "a", Status: StatusPending, Priority: PriorityHigh},
		{Title: "b", Status: StatusPending},
		{Title: "c", Status: StatusInProgress, Priority: PriorityHigh},
		{Title: "d", Status: StatusCompleted},
	}
	for _, dto := range seed {
		_, err := svc.Create(ctx, dto)
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.InProgress)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(2), stats.HighPriority)
}

func TestBatchIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProducer{})
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateTaskDTO{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateTaskDTO{Title: "b"})
	require.NoError(t, err)
	missing := uuid.New().String()

	resp, err := svc.Batch(ctx, BatchRequest{
		Tasks:  []string{a.ID, missing, b.ID},
		Action: BatchActionComplete,
	})
	require.NoError(t, err, "one bad id must not abort the batch")

	require.Len(t, resp.Succeeded, 2)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, missing, resp.Failed[0].TaskID)
	assert.NotEmpty(t, resp.Failed[0].Error)

	for _, id := range []string{a.ID, b.ID} {
		got, err := svc.FindOne(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	}
}

func TestBatchCompleteNotifiesPerTransition(t *testing.T) {
	store := newFakeStore()
	producer := &fakeProducer{}
	svc := newTestService(store, producer)
	ctx := context.Background()

	pending, err := svc.Create(ctx, CreateTaskDTO{Title: "pending"})
	require.NoError(t, err)
	done, err := svc.Create(ctx, CreateTaskDTO{Title: "done", Status: StatusCompleted})
	require.NoError(t, err)
	before := len(producer.statusCalls())

	resp, err := svc.Batch(ctx, BatchRequest{
		Tasks:  []string{pending.ID, done.ID},
		Action: BatchActionComplete,
	})
	require.NoError(t, err)
	require.Len(t, resp.Succeeded, 2)

	// only the task that actually changed status produces a job
	calls := producer.statusCalls()[before:]
	require.Len(t, calls, 1)
	assert.Equal(t, pending.ID, calls[0].taskID)
	assert.Equal(t, StatusCompleted, calls[0].status)
}

func TestBatchDelete(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeProducer{})
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateTaskDTO{Title: "a"})
	require.NoError(t, err)

	resp, err := svc.Batch(ctx, BatchRequest{
		Tasks:  []string{a.ID},
		Action: BatchActionDelete,
	})
	require.NoError(t, err)
	require.Len(t, resp.Succeeded, 1)

	_, err = svc.FindOne(ctx, a.ID)
	assert.True(t, errorsx.IsNotFound(err))
}
