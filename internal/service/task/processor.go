package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/queue"
	"taskflow/internal/pkg/worker"

	"go.uber.org/zap"
)

// overdueChunkSize bounds how many ids are processed concurrently
const overdueChunkSize = 20

// Processor executes the task jobs. Handlers are idempotent: redelivery of
// an already-applied status update converges on the same stored state.
type Processor struct {
	service *TaskService
	logger  *logger.Logger
}

// NewProcessor creates a new job processor
func NewProcessor(service *TaskService, log *logger.Logger) *Processor {
	return &Processor{
		service: service,
		logger:  log,
	}
}

// Register wires the processor's handlers into the worker
func (p *Processor) Register(w *worker.Worker) {
	w.Register(JobStatusUpdate, worker.HandlerFunc(p.HandleStatusUpdate))
	w.Register(JobOverdueTask, worker.HandlerFunc(p.HandleOverdue))
}

// HandleStatusUpdate applies a status change from the queue back to the
// store. Malformed payloads and unknown status values are terminal; store
// failures are retryable.
func (p *Processor) HandleStatusUpdate(ctx context.Context, job *queue.Job) error {
	var payload StatusUpdatePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errorsx.WrapPermanent(fmt.Errorf("invalid payload: %w", err))
	}
	if payload.TaskID == "" || payload.Status == "" {
		return errorsx.WrapPermanent(fmt.Errorf("missing task id or status"))
	}
	if !payload.Status.IsValid() {
		return errorsx.WrapPermanent(fmt.Errorf("invalid status value %q", payload.Status))
	}

	t, err := p.service.UpdateStatus(ctx, payload.TaskID, payload.Status)
	if err != nil {
		if errorsx.IsNotFound(err) {
			// The task was deleted after the job was enqueued; retrying
			// cannot bring it back.
			return errorsx.WrapPermanent(err)
		}
		return errorsx.WrapRetryable(err)
	}

	p.logger.Info("Task status updated",
		zap.String("task_id", t.ID),
		zap.String("status", string(t.Status)),
	)

	return nil
}

// HandleOverdue processes a batch of overdue task ids in bounded chunks.
// Each id is handled independently; one failure never aborts the rest, and
// per-id failures are absorbed rather than retried so a redelivery does not
// re-run ids that already succeeded.
func (p *Processor) HandleOverdue(ctx context.Context, job *queue.Job) error {
	var payload OverduePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errorsx.WrapPermanent(fmt.Errorf("invalid payload: %w", err))
	}
	if len(payload.TaskIDs) == 0 {
		p.logger.Warn("Overdue job carried no task ids", zap.String("job_id", job.ID))
		return nil
	}

	p.logger.Debug("Processing overdue tasks",
		zap.String("job_id", job.ID),
		zap.Int("count", len(payload.TaskIDs)),
	)

	var succeeded, failed int
	for start := 0; start < len(payload.TaskIDs); start += overdueChunkSize {
		end := start + overdueChunkSize
		if end > len(payload.TaskIDs) {
			end = len(payload.TaskIDs)
		}
		ok, bad := p.processOverdueChunk(ctx, payload.TaskIDs[start:end])
		succeeded += ok
		failed += bad
	}

	p.logger.Info("Overdue batch processed",
		zap.String("job_id", job.ID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)

	return nil
}

func (p *Processor) processOverdueChunk(ctx context.Context, ids []string) (succeeded, failed int) {
	results := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = p.notifyOverdue(ctx, id)
		}(i, id)
	}
	wg.Wait()

	for i, err := range results {
		if err != nil {
			failed++
			p.logger.Warn("Failed to process overdue task",
				zap.String("task_id", ids[i]),
				zap.Error(err),
			)
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

// notifyOverdue handles one overdue task. A task already resolved since the
// sweep is skipped, which makes redundant notifications harmless.
func (p *Processor) notifyOverdue(ctx context.Context, id string) error {
	t, err := p.service.FindOne(ctx, id)
	if err != nil {
		if errorsx.IsNotFound(err) {
			p.logger.Debug("Overdue task no longer exists", zap.String("task_id", id))
			return nil
		}
		return err
	}

	if t.Status != StatusPending {
		p.logger.Debug("Task resolved before overdue processing",
			zap.String("task_id", t.ID),
			zap.String("status", string(t.Status)),
		)
		return nil
	}

	p.logger.Info("Task overdue",
		zap.String("task_id", t.ID),
		zap.String("title", t.Title),
		zap.Time("due_date", t.DueDate),
	)

	return nil
}
