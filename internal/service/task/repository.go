package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/internal/pkg/database"
	"taskflow/internal/pkg/errorsx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskRepository handles task data access
type TaskRepository struct {
	*database.BaseRepository[Task]
	db *database.Database
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.Database) *TaskRepository {
	return &TaskRepository{
		BaseRepository: database.NewBaseRepository[Task](db),
		db:             db,
	}
}

// FindAll retrieves tasks matching the filter plus the unpaginated total.
func (r *TaskRepository) FindAll(ctx context.Context, filter Filter) ([]*Task, int64, error) {
	query := r.DB().WithContext(ctx).Model(&Task{})
	query = applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	var tasks []*Task
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

func applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if !filter.DueAfter.IsZero() {
		query = query.Where("due_date >= ?", filter.DueAfter)
	}
	if !filter.DueBefore.IsZero() {
		query = query.Where("due_date <= ?", filter.DueBefore)
	}
	if !filter.CreatedAfter.IsZero() {
		query = query.Where("created_at >= ?", filter.CreatedAfter)
	}
	if !filter.CreatedBefore.IsZero() {
		query = query.Where("created_at <= ?", filter.CreatedBefore)
	}
	if !filter.UpdatedAfter.IsZero() {
		query = query.Where("updated_at >= ?", filter.UpdatedAfter)
	}
	if !filter.UpdatedBefore.IsZero() {
		query = query.Where("updated_at <= ?", filter.UpdatedBefore)
	}
	return query
}

// Statistics aggregates the task breakdown in a single query.
func (r *TaskRepository) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := r.DB().WithContext(ctx).Model(&Task{}).
		Select(`COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS in_progress,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN priority = ? THEN 1 ELSE 0 END) AS high_priority`,
			StatusCompleted, StatusInProgress, StatusPending, PriorityHigh).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	return &stats, nil
}

// FindOverdue returns tasks past their due date that are still pending.
func (r *TaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]*Task, error) {
	var tasks []*Task
	err := r.DB().WithContext(ctx).
		Where("due_date < ? AND status = ?", now, StatusPending).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTx applies mutate to the task inside one transaction. The row is
// locked for the duration so concurrent writers serialize; mutate sees the
// committed state and may capture it.
func (r *TaskRepository) UpdateTx(ctx context.Context, id string, mutate func(*Task) error) (*Task, error) {
	var updated *Task
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		var t Task
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&t).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errorsx.ErrNotFound
			}
			return fmt.Errorf("failed to load task: %w", err)
		}

		if err := mutate(&t); err != nil {
			return err
		}

		if err := tx.Save(&t).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}

		updated = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
