package repository

import (
	"context"

	"pmchat-backend/internal/project/domain"
)

// TaskState is the part of a task document that linkage and progress read
type TaskState struct {
	Status    string `json:"status" firestore:"status"`
	ProjectID string `json:"projectId" firestore:"projectId"`
	StageID   string `json:"stageId" firestore:"stageId"`
}

// TaskLookup reads a task inside the running transaction. found is false
// when the task document no longer exists.
type TaskLookup func(taskID string) (state TaskState, found bool, err error)

// MutateFunc edits a project read inside a transaction. Returning false
// skips the write entirely.
type MutateFunc func(p *domain.Project, tasks TaskLookup) (bool, error)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	NewID() string
	Create(ctx context.Context, project *domain.Project) error
	// FindByID returns nil, nil when the project does not exist
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	FindAll(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error

	// Mutate runs fn over the project inside a store transaction and writes
	// back stages, taskIds, progress and currentStageId in one update.
	// Returns docstore.ErrNotFound when the project does not exist.
	Mutate(ctx context.Context, id string, fn MutateFunc) error
}

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	NewID() string
	Create(ctx context.Context, employee *domain.Employee) error
	FindByID(ctx context.Context, id string) (*domain.Employee, error)
	FindAll(ctx context.Context) ([]*domain.Employee, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// RiskRepository defines the interface for risk register data access
type RiskRepository interface {
	NewID() string
	Create(ctx context.Context, risk *domain.Risk) error
	FindByID(ctx context.Context, id string) (*domain.Risk, error)
	FindByProject(ctx context.Context, projectID string) ([]*domain.Risk, error)
	FindAll(ctx context.Context) ([]*domain.Risk, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}
