package usecase

import (
	"context"
	"strings"
	"time"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/internal/project/repository"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/docstore"
)

type riskUsecase struct {
	riskRepo    repository.RiskRepository
	projectRepo repository.ProjectRepository
}

func NewRiskUsecase(riskRepo repository.RiskRepository, projectRepo repository.ProjectRepository) RiskUsecase {
	return &riskUsecase{
		riskRepo:    riskRepo,
		projectRepo: projectRepo,
	}
}

func (u *riskUsecase) CreateRisk(ctx context.Context, req CreateRiskRequest) (*domain.Risk, error) {
	const op = "risk.Create"
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation(op, "title is required")
	}
	if req.ProjectID == "" {
		return nil, apperror.Validation(op, "projectId is required")
	}
	if !domain.ValidRiskLevel(domain.RiskLevel(req.Probability)) {
		return nil, apperror.Validation(op, "invalid probability %q", req.Probability)
	}
	if !domain.ValidRiskLevel(domain.RiskLevel(req.Impact)) {
		return nil, apperror.Validation(op, "invalid impact %q", req.Impact)
	}
	status := domain.RiskOpen
	if req.Status != "" {
		status = domain.RiskStatus(req.Status)
		if !domain.ValidRiskStatus(status) {
			return nil, apperror.Validation(op, "invalid status %q", req.Status)
		}
	}

	project, err := u.projectRepo.FindByID(ctx, req.ProjectID)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if project == nil {
		return nil, apperror.NotFound(op, "project %s not found", req.ProjectID)
	}

	now := time.Now()
	risk := &domain.Risk{
		ID:          u.riskRepo.NewID(),
		ProjectID:   req.ProjectID,
		Title:       title,
		Description: req.Description,
		Probability: domain.RiskLevel(req.Probability),
		Impact:      domain.RiskLevel(req.Impact),
		Mitigation:  req.Mitigation,
		Owner:       req.Owner,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.riskRepo.Create(ctx, risk); err != nil {
		return nil, apperror.Store(op, err)
	}
	return risk, nil
}

func (u *riskUsecase) GetRisk(ctx context.Context, id string) (*domain.Risk, error) {
	const op = "risk.Get"
	risk, err := u.riskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if risk == nil {
		return nil, apperror.NotFound(op, "risk %s not found", id)
	}
	return risk, nil
}

func (u *riskUsecase) ListRisks(ctx context.Context, projectID string) ([]*domain.Risk, error) {
	var (
		risks []*domain.Risk
		err   error
	)
	if projectID != "" {
		risks, err = u.riskRepo.FindByProject(ctx, projectID)
	} else {
		risks, err = u.riskRepo.FindAll(ctx)
	}
	if err != nil {
		return nil, apperror.Store("risk.List", err)
	}
	return risks, nil
}

func (u *riskUsecase) UpdateRisk(ctx context.Context, id string, req RiskUpdateRequest) (*domain.Risk, error) {
	const op = "risk.Update"
	fields := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.Validation(op, "title cannot be empty")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Probability != nil {
		if !domain.ValidRiskLevel(domain.RiskLevel(*req.Probability)) {
			return nil, apperror.Validation(op, "invalid probability %q", *req.Probability)
		}
		fields["probability"] = *req.Probability
	}
	if req.Impact != nil {
		if !domain.ValidRiskLevel(domain.RiskLevel(*req.Impact)) {
			return nil, apperror.Validation(op, "invalid impact %q", *req.Impact)
		}
		fields["impact"] = *req.Impact
	}
	if req.Mitigation != nil {
		fields["mitigation"] = *req.Mitigation
	}
	if req.Owner != nil {
		fields["owner"] = *req.Owner
	}
	if req.Status != nil {
		if !domain.ValidRiskStatus(domain.RiskStatus(*req.Status)) {
			return nil, apperror.Validation(op, "invalid status %q", *req.Status)
		}
		fields["status"] = *req.Status
	}
	if len(fields) == 0 {
		return u.GetRisk(ctx, id)
	}

	if err := u.riskRepo.Update(ctx, id, fields); err != nil {
		if docstore.IsNotFound(err) {
			return nil, apperror.NotFound(op, "risk %s not found", id)
		}
		return nil, apperror.Store(op, err)
	}
	return u.GetRisk(ctx, id)
}

func (u *riskUsecase) DeleteRisk(ctx context.Context, id string) error {
	if _, err := u.GetRisk(ctx, id); err != nil {
		return err
	}
	return apperror.Store("risk.Delete", u.riskRepo.Delete(ctx, id))
}
