package task

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// taskStore is the persistence surface the service depends on
type taskStore interface {
	Insert(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	DeleteByID(ctx context.Context, id string) error
	FindAll(ctx context.Context, filter Filter) ([]*Task, int64, error)
	Statistics(ctx context.Context) (*Statistics, error)
	FindOverdue(ctx context.Context, now time.Time) ([]*Task, error)
	UpdateTx(ctx context.Context, id string, mutate func(*Task) error) (*Task, error)
}

// notifier is the queue surface the service depends on
type notifier interface {
	EnqueueStatusUpdate(ctx context.Context, taskID string, status Status) (string, error)
	EnqueueOverdue(ctx context.Context, taskIDs []string) (string, error)
}

// TaskService handles task business logic. Writes go to the store first;
// queue notifications happen only after the transaction commits, and an
// enqueue failure never fails the request.
type TaskService struct {
	store    taskStore
	producer notifier
	config   *TaskConfig
	validate *validator.Validate
	logger   *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(repo *TaskRepository, producer *Producer, cfg *TaskConfig, log *logger.Logger) *TaskService {
	return newTaskService(repo, producer, cfg, log)
}

func newTaskService(store taskStore, producer notifier, cfg *TaskConfig, log *logger.Logger) *TaskService {
	if cfg == nil {
		cfg = NewTaskConfig()
	}
	return &TaskService{
		store:    store,
		producer: producer,
		config:   cfg,
		validate: validator.New(),
		logger:   log,
	}
}

// Create persists a new task and notifies the queue of its initial status.
func (s *TaskService) Create(ctx context.Context, dto CreateTaskDTO) (*Task, error) {
	if err := s.validate.Struct(dto); err != nil {
		return nil, errorsx.Validation(err.Error())
	}

	t := &Task{
		Title:       dto.Title,
		Description: dto.Description,
		Status:      dto.Status,
		Priority:    dto.Priority,
		DueDate:     dto.DueDate,
		UserID:      dto.UserID,
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	if err := s.store.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.notifyStatusChange(ctx, t.ID, t.Status)

	return t, nil
}

// Update applies a partial update in one transaction. A status-change job is
// enqueued only when the committed status differs from the previous one.
func (s *TaskService) Update(ctx context.Context, id string, dto UpdateTaskDTO) (*Task, error) {
	if err := s.validate.Struct(dto); err != nil {
		return nil, errorsx.Validation(err.Error())
	}

	var previousStatus Status
	updated, err := s.store.UpdateTx(ctx, id, func(t *Task) error {
		previousStatus = t.Status

		if dto.Title != nil {
			t.Title = *dto.Title
		}
		if dto.Description != nil {
			t.Description = *dto.Description
		}
		if dto.Status != nil {
			t.Status = *dto.Status
		}
		if dto.Priority != nil {
			t.Priority = *dto.Priority
		}
		if dto.DueDate != nil {
			t.DueDate = *dto.DueDate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != previousStatus {
		s.notifyStatusChange(ctx, updated.ID, updated.Status)
	}

	return updated, nil
}

// Remove deletes a task. The affected-row count is the existence check.
func (s *TaskService) Remove(ctx context.Context, id string) error {
	return s.store.DeleteByID(ctx, id)
}

// FindOne retrieves a task by id
func (s *TaskService) FindOne(ctx context.Context, id string) (*Task, error) {
	return s.store.GetByID(ctx, id)
}

// FindAll retrieves a filtered, paginated task list
func (s *TaskService) FindAll(ctx context.Context, filter Filter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = s.config.DefaultPageSize
	}
	if filter.Limit > s.config.MaxPageSize {
		filter.Limit = s.config.MaxPageSize
	}

	tasks, total, err := s.store.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Tasks: tasks,
		Count: len(tasks),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// Statistics returns the aggregate task breakdown
func (s *TaskService) Statistics(ctx context.Context) (*Statistics, error) {
	return s.store.Statistics(ctx)
}

// UpdateStatus writes a status back without emitting a new queue job.
// Re-applying the current status is a no-op, so redeliveries of the same
// message converge on the same state.
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status Status) (*Task, error) {
	if !status.IsValid() {
		return nil, errorsx.Validation(fmt.Sprintf("unknown status %q", status))
	}

	return s.store.UpdateTx(ctx, id, func(t *Task) error {
		t.Status = status
		return nil
	})
}

// Batch applies one action to many tasks with per-id failure isolation.
func (s *TaskService) Batch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errorsx.Validation(err.Error())
	}

	resp := &BatchResponse{
		Succeeded: []BatchItemResult{},
		Failed:    []BatchItemResult{},
	}

	for _, id := range req.Tasks {
		var err error
		switch req.Action {
		case BatchActionComplete:
			completed := StatusCompleted
			_, err = s.Update(ctx, id, UpdateTaskDTO{Status: &completed})
		case BatchActionDelete:
			err = s.Remove(ctx, id)
		default:
			err = errorsx.Validation(fmt.Sprintf("unknown action %q", req.Action))
		}

		if err != nil {
			resp.Failed = append(resp.Failed, BatchItemResult{TaskID: id, Error: err.Error()})
			continue
		}
		resp.Succeeded = append(resp.Succeeded, BatchItemResult{TaskID: id})
	}

	return resp, nil
}

// notifyStatusChange enqueues a status-update job. The store already
// committed, so a broker failure is logged and swallowed; the overdue
// sweeper reconciles anything missed.
func (s *TaskService) notifyStatusChange(ctx context.Context, taskID string, status Status) {
	jobID, err := s.producer.EnqueueStatusUpdate(ctx, taskID, status)
	if err != nil {
		s.logger.Warn("Failed to enqueue status update",
			zap.String("task_id", taskID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Status update enqueued",
		zap.String("task_id", taskID),
		zap.String("job_id", jobID),
	)
}
