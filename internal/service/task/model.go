package task

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// IsValid reports whether s is a recognized status value
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority is the urgency of a task
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid reports whether p is a recognized priority value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents the task entity
type Task struct {
	ID          string    `gorm:"primarykey;type:uuid" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Status      Status    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Priority    Priority  `gorm:"type:varchar(20);not null;default:'MEDIUM';index" json:"priority"`
	DueDate     time.Time `gorm:"index" json:"dueDate"`
	UserID      string    `gorm:"type:uuid;index" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Task model
func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate assigns the task id when the caller did not
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// CreateTaskDTO is the data transfer object for creating a task
type CreateTaskDTO struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description"`
	Status      Status    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    Priority  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     time.Time `json:"dueDate"`
	UserID      string    `json:"userId" validate:"omitempty,uuid4"`
}

// UpdateTaskDTO is the data transfer object for updating a task.
// Nil fields are left unchanged.
type UpdateTaskDTO struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    *Priority  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time `json:"dueDate"`
}

// Filter narrows findAll results. Zero values mean "no constraint".
type Filter struct {
	Status        Status
	Priority      Priority
	UserID        string
	Search        string
	DueBefore     time.Time
	DueAfter      time.Time
	CreatedBefore time.Time
	CreatedAfter  time.Time
	UpdatedBefore time.Time
	UpdatedAfter  time.Time
	Page          int
	Limit         int
}

// ListResponse is the paginated task list response
type ListResponse struct {
	Tasks []*Task `json:"tasks"`
	Count int     `json:"count"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

// Statistics is the aggregate task breakdown
type Statistics struct {
	Total        int64 `json:"total"`
	Completed    int64 `json:"completed"`
	InProgress   int64 `json:"inProgress"`
	Pending      int64 `json:"pending"`
	HighPriority int64 `json:"highPriority"`
}

// BatchAction selects the operation applied to a batch of task ids
type BatchAction string

const (
	BatchActionComplete BatchAction = "complete"
	BatchActionDelete   BatchAction = "delete"
)

// BatchRequest applies one action to many tasks
type BatchRequest struct {
	Tasks  []string    `json:"tasks" validate:"required,min=1,dive,uuid4"`
	Action BatchAction `json:"action" validate:"required,oneof=complete delete"`
}

// BatchItemResult is the outcome for one id in a batch request
type BatchItemResult struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error,omitempty"`
}

// BatchResponse summarizes a batch request with per-id isolation
type BatchResponse struct {
	Succeeded []BatchItemResult `json:"succeeded"`
	Failed    []BatchItemResult `json:"failed"`
}
