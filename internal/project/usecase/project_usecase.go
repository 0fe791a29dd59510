package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/internal/project/repository"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/docstore"

	"github.com/google/uuid"
)

// projectUsecase implements ProjectUsecase interface
type projectUsecase struct {
	projectRepo repository.ProjectRepository
	aggregator  *ProgressAggregator
}

// NewProjectUsecase creates a new instance of projectUsecase
func NewProjectUsecase(projectRepo repository.ProjectRepository, aggregator *ProgressAggregator) ProjectUsecase {
	return &projectUsecase{
		projectRepo: projectRepo,
		aggregator:  aggregator,
	}
}

func (u *projectUsecase) CreateProject(ctx context.Context, req CreateProjectRequest) (*domain.Project, error) {
	const op = "project.Create"
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation(op, "name is required")
	}

	now := time.Now()
	project := &domain.Project{
		ID:        u.projectRepo.NewID(),
		Name:      name,
		Manager:   req.Manager,
		OnTrack:   true,
		Stages:    make([]domain.Stage, 0, len(req.Stages)),
		TaskIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.OnTrack != nil {
		project.OnTrack = *req.OnTrack
	}

	for _, sr := range req.Stages {
		stage, err := newStage(op, sr)
		if err != nil {
			return nil, err
		}
		if project.StageIndex(stage.ID) >= 0 {
			return nil, apperror.Validation(op, "duplicate stage id %s", stage.ID)
		}
		project.Stages = append(project.Stages, stage)
	}
	if len(project.Stages) > 0 {
		project.CurrentStageID = project.Stages[0].ID
	}

	if err := u.projectRepo.Create(ctx, project); err != nil {
		return nil, apperror.Store(op, err)
	}
	log.Printf("[ProjectUsecase] Created project %s with %d stages", project.ID, len(project.Stages))
	return project, nil
}

func (u *projectUsecase) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	const op = "project.Get"
	if id == "" {
		return nil, apperror.Validation(op, "id is required")
	}
	project, err := u.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if project == nil {
		return nil, apperror.NotFound(op, "project %s not found", id)
	}
	return project, nil
}

func (u *projectUsecase) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	projects, err := u.projectRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.Store("project.List", err)
	}
	return projects, nil
}

func (u *projectUsecase) UpdateProject(ctx context.Context, id string, req ProjectUpdateRequest) (*domain.Project, error) {
	const op = "project.Update"
	project, err := u.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.Validation(op, "name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Manager != nil {
		fields["manager"] = *req.Manager
	}
	if req.OnTrack != nil {
		fields["onTrack"] = *req.OnTrack
	}
	if req.CurrentStageID != nil {
		if *req.CurrentStageID != "" && project.StageIndex(*req.CurrentStageID) < 0 {
			return nil, apperror.Validation(op, "stage %s does not belong to project %s", *req.CurrentStageID, id)
		}
		fields["currentStageId"] = *req.CurrentStageID
	}
	if len(fields) == 0 {
		return project, nil
	}

	if err := u.projectRepo.Update(ctx, id, fields); err != nil {
		if docstore.IsNotFound(err) {
			return nil, apperror.NotFound(op, "project %s not found", id)
		}
		return nil, apperror.Store(op, err)
	}
	return u.GetProject(ctx, id)
}

func (u *projectUsecase) DeleteProject(ctx context.Context, id string) error {
	if _, err := u.GetProject(ctx, id); err != nil {
		return err
	}
	if err := u.projectRepo.Delete(ctx, id); err != nil {
		return apperror.Store("project.Delete", err)
	}
	return nil
}

func (u *projectUsecase) ListStages(ctx context.Context, projectID string) ([]domain.Stage, error) {
	project, err := u.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return project.Stages, nil
}

func (u *projectUsecase) AddStage(ctx context.Context, projectID string, req StageRequest) (*domain.Stage, error) {
	const op = "stage.Add"
	stage, err := newStage(op, req)
	if err != nil {
		return nil, err
	}

	err = u.mutate(ctx, op, projectID, func(p *domain.Project) error {
		if p.StageIndex(stage.ID) >= 0 {
			return apperror.Validation(op, "stage %s already exists", stage.ID)
		}
		p.Stages = append(p.Stages, stage)
		if p.CurrentStageID == "" {
			p.CurrentStageID = stage.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stage, nil
}

func (u *projectUsecase) UpdateStage(ctx context.Context, projectID, stageID string, req StageUpdateRequest) (*domain.Stage, error) {
	const op = "stage.Update"
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, apperror.Validation(op, "name cannot be empty")
	}
	if req.CompletionTime != nil && *req.CompletionTime < 0 {
		return nil, apperror.Validation(op, "completionTime cannot be negative")
	}

	var updated domain.Stage
	err := u.mutate(ctx, op, projectID, func(p *domain.Project) error {
		idx := p.StageIndex(stageID)
		if idx < 0 {
			return apperror.NotFound(op, "stage %s not found in project %s", stageID, projectID)
		}
		stage := &p.Stages[idx]
		if req.Name != nil {
			stage.Name = strings.TrimSpace(*req.Name)
		}
		if req.Owner != nil {
			stage.Owner = *req.Owner
		}
		if req.CompletionTime != nil {
			stage.CompletionTime = *req.CompletionTime
		}
		if req.ProcessGroup != nil {
			stage.ProcessGroup = *req.ProcessGroup
		}
		if req.KnowledgeArea != nil {
			stage.KnowledgeArea = *req.KnowledgeArea
		}
		updated = *stage
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteStage removes the stage. Its tasks stay linked to the project.
func (u *projectUsecase) DeleteStage(ctx context.Context, projectID, stageID string) error {
	const op = "stage.Delete"
	return u.mutate(ctx, op, projectID, func(p *domain.Project) error {
		idx := p.StageIndex(stageID)
		if idx < 0 {
			return apperror.NotFound(op, "stage %s not found in project %s", stageID, projectID)
		}
		p.Stages = append(p.Stages[:idx], p.Stages[idx+1:]...)
		if p.CurrentStageID == stageID {
			p.CurrentStageID = ""
			if len(p.Stages) > 0 {
				p.CurrentStageID = p.Stages[0].ID
			}
		}
		return nil
	})
}

func (u *projectUsecase) RecomputeProgress(ctx context.Context, projectID string) (*domain.Project, error) {
	if err := u.aggregator.Recompute(ctx, projectID); err != nil {
		return nil, err
	}
	return u.GetProject(ctx, projectID)
}

// mutate runs fn on the project inside a transaction and refreshes progress
func (u *projectUsecase) mutate(ctx context.Context, op, projectID string, fn func(p *domain.Project) error) error {
	if projectID == "" {
		return apperror.Validation(op, "projectId is required")
	}
	err := u.projectRepo.Mutate(ctx, projectID, func(p *domain.Project, tasks repository.TaskLookup) (bool, error) {
		if err := fn(p); err != nil {
			return false, err
		}
		if _, err := u.aggregator.Apply(p, tasks); err != nil {
			return false, err
		}
		return true, nil
	})
	if docstore.IsNotFound(err) {
		return apperror.NotFound(op, "project %s not found", projectID)
	}
	return apperror.Store(op, err)
}

func newStage(op string, req StageRequest) (domain.Stage, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Stage{}, apperror.Validation(op, "stage name is required")
	}
	if req.CompletionTime < 0 {
		return domain.Stage{}, apperror.Validation(op, "completionTime cannot be negative")
	}
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	return domain.Stage{
		ID:             id,
		Name:           name,
		Owner:          req.Owner,
		CompletionTime: req.CompletionTime,
		ProcessGroup:   req.ProcessGroup,
		KnowledgeArea:  req.KnowledgeArea,
		TaskIDs:        []string{},
	}, nil
}
