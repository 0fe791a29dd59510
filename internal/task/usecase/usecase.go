package usecase

import (
	"context"

	"pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/events"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	// CreateTask writes a new task reported by ownerEmail and links it to
	// its project stage. Returns the stored task with its new ID.
	CreateTask(ctx context.Context, task *domain.Task, ownerEmail string) (*domain.Task, error)

	// GetTask retrieves a task by ID
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListTasks lists tasks visible to email under role
	ListTasks(ctx context.Context, role domain.Role, email string) ([]*domain.Task, error)

	// ListByReporter lists tasks created by email
	ListByReporter(ctx context.Context, email string) ([]*domain.Task, error)

	// UpdateTask merges the supplied fields and re-runs stage linkage
	UpdateTask(ctx context.Context, taskID string, updates TaskUpdateRequest, ownerEmail string) (*domain.Task, error)

	// DeleteTask deletes a task and removes it from its project and stage
	DeleteTask(ctx context.Context, taskID, ownerEmail string) error

	// AddComment appends a comment to a task
	AddComment(ctx context.Context, taskID, author, text string) (*domain.Comment, error)

	SetEventPublisher(publisher events.Publisher)
	SetLinkageRetrier(retrier LinkageRetrier)
}

// TaskUpdateRequest represents the fields that can be updated. Nil means
// unchanged; an empty DueDate clears it.
type TaskUpdateRequest struct {
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	EstimatedTime *float64 `json:"estimatedTime,omitempty"`
	Effort        *string  `json:"effort,omitempty"`
	Assignee      *string  `json:"assignee,omitempty"`
	Status        *string  `json:"status,omitempty"`
	DueDate       *string  `json:"dueDate,omitempty"`
	Priority      *string  `json:"priority,omitempty"`
	ProjectID     *string  `json:"projectId,omitempty"`
	StageID       *string  `json:"stageId,omitempty"`
}

// StageLinker maintains the project and stage back-references of tasks
type StageLinker interface {
	UpdateProjectStage(ctx context.Context, ref domain.StageRef) domain.LinkageResult
	UnlinkTask(ctx context.Context, projectID, taskID string) domain.LinkageResult
}

// LinkageRetrier re-runs linkage that failed on the store
type LinkageRetrier interface {
	QueueLink(ref domain.StageRef) bool
	QueueUnlink(ref domain.StageRef) bool
}
