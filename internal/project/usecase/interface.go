package usecase

import (
	"context"

	"pmchat-backend/internal/project/domain"
)

// ProjectUsecase defines project and embedded stage business logic
type ProjectUsecase interface {
	CreateProject(ctx context.Context, req CreateProjectRequest) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	UpdateProject(ctx context.Context, id string, req ProjectUpdateRequest) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// Stages live inside the project document; every stage change is a
	// project transaction.
	ListStages(ctx context.Context, projectID string) ([]domain.Stage, error)
	AddStage(ctx context.Context, projectID string, req StageRequest) (*domain.Stage, error)
	UpdateStage(ctx context.Context, projectID, stageID string, req StageUpdateRequest) (*domain.Stage, error)
	DeleteStage(ctx context.Context, projectID, stageID string) error

	// RecomputeProgress refreshes stage and project progress from task statuses
	RecomputeProgress(ctx context.Context, projectID string) (*domain.Project, error)
}

// EmployeeUsecase defines employee business logic
type EmployeeUsecase interface {
	CreateEmployee(ctx context.Context, req CreateEmployeeRequest) (*domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	ListEmployees(ctx context.Context) ([]*domain.Employee, error)
	UpdateEmployee(ctx context.Context, id string, req EmployeeUpdateRequest) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

// RiskUsecase defines risk register business logic
type RiskUsecase interface {
	CreateRisk(ctx context.Context, req CreateRiskRequest) (*domain.Risk, error)
	GetRisk(ctx context.Context, id string) (*domain.Risk, error)
	// ListRisks returns all risks, or those of projectID when it is set
	ListRisks(ctx context.Context, projectID string) ([]*domain.Risk, error)
	UpdateRisk(ctx context.Context, id string, req RiskUpdateRequest) (*domain.Risk, error)
	DeleteRisk(ctx context.Context, id string) error
}

type CreateProjectRequest struct {
	Name    string         `json:"name" yaml:"name"`
	Manager string         `json:"manager" yaml:"manager"`
	OnTrack *bool          `json:"onTrack,omitempty" yaml:"onTrack,omitempty"`
	Stages  []StageRequest `json:"stages,omitempty" yaml:"stages,omitempty"`
}

type ProjectUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Manager        *string `json:"manager,omitempty"`
	OnTrack        *bool   `json:"onTrack,omitempty"`
	CurrentStageID *string `json:"currentStageId,omitempty"`
}

type StageRequest struct {
	ID             string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string  `json:"name" yaml:"name"`
	Owner          string  `json:"owner,omitempty" yaml:"owner,omitempty"`
	CompletionTime float64 `json:"completionTime,omitempty" yaml:"completionTime,omitempty"`
	ProcessGroup   string  `json:"processGroup,omitempty" yaml:"processGroup,omitempty"`
	KnowledgeArea  string  `json:"knowledgeArea,omitempty" yaml:"knowledgeArea,omitempty"`
}

type StageUpdateRequest struct {
	Name           *string  `json:"name,omitempty"`
	Owner          *string  `json:"owner,omitempty"`
	CompletionTime *float64 `json:"completionTime,omitempty"`
	ProcessGroup   *string  `json:"processGroup,omitempty"`
	KnowledgeArea  *string  `json:"knowledgeArea,omitempty"`
}

type CreateEmployeeRequest struct {
	Name   string   `json:"name" yaml:"name"`
	Email  string   `json:"email" yaml:"email"`
	Role   string   `json:"role" yaml:"role"`
	Skills []string `json:"skills,omitempty" yaml:"skills,omitempty"`
}

type EmployeeUpdateRequest struct {
	Name   *string   `json:"name,omitempty"`
	Email  *string   `json:"email,omitempty"`
	Role   *string   `json:"role,omitempty"`
	Skills *[]string `json:"skills,omitempty"`
}

type CreateRiskRequest struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Probability string `json:"probability"`
	Impact      string `json:"impact"`
	Mitigation  string `json:"mitigation,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Status      string `json:"status,omitempty"`
}

type RiskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Probability *string `json:"probability,omitempty"`
	Impact      *string `json:"impact,omitempty"`
	Mitigation  *string `json:"mitigation,omitempty"`
	Owner       *string `json:"owner,omitempty"`
	Status      *string `json:"status,omitempty"`
}
