package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskflow/internal/pkg/queue"
)

// Job names dispatched by the task service
const (
	JobStatusUpdate = "task-status-update"
	JobOverdueTask  = "process-overdue-task"
)

// StatusUpdatePayload notifies downstream processing of a status change
type StatusUpdatePayload struct {
	TaskID string `json:"taskId"`
	Status Status `json:"status"`
}

// OverduePayload carries the ids of overdue tasks to process
type OverduePayload struct {
	TaskIDs []string `json:"taskIds"`
}

// Producer enqueues task jobs with their per-type delivery options.
type Producer struct {
	enqueuer queue.Enqueuer
}

// NewProducer creates a new job producer
func NewProducer(enqueuer queue.Enqueuer) *Producer {
	return &Producer{enqueuer: enqueuer}
}

// EnqueueStatusUpdate publishes a status-change job for a single task
func (p *Producer) EnqueueStatusUpdate(ctx context.Context, taskID string, status Status) (string, error) {
	payload, err := json.Marshal(StatusUpdatePayload{TaskID: taskID, Status: status})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.enqueuer.Enqueue(ctx, JobStatusUpdate, payload,
		queue.WithAttempts(3),
		queue.WithBackoff(queue.BackoffExponential, 5*time.Second),
		queue.WithPriority(2),
		queue.WithRetention(true, true),
	)
}

// EnqueueOverdue publishes an overdue-processing job for the given task ids
func (p *Producer) EnqueueOverdue(ctx context.Context, taskIDs []string) (string, error) {
	payload, err := json.Marshal(OverduePayload{TaskIDs: taskIDs})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	return p.enqueuer.Enqueue(ctx, JobOverdueTask, payload,
		queue.WithAttempts(5),
		queue.WithBackoff(queue.BackoffExponential, 10*time.Second),
		queue.WithPriority(1),
		queue.WithRetention(true, true),
	)
}
