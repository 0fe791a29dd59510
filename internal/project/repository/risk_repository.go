package repository

import (
	"context"
	"time"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/pkg/docstore"
)

type docstoreRiskRepository struct {
	store docstore.Store
}

// NewRiskRepository creates a new document-store backed RiskRepository
func NewRiskRepository(store docstore.Store) RiskRepository {
	return &docstoreRiskRepository{store: store}
}

func (r *docstoreRiskRepository) NewID() string {
	return r.store.NewID(domain.RiskCollection)
}

func (r *docstoreRiskRepository) Create(ctx context.Context, risk *domain.Risk) error {
	return r.store.Set(ctx, domain.RiskCollection, risk.ID, risk)
}

func (r *docstoreRiskRepository) FindByID(ctx context.Context, id string) (*domain.Risk, error) {
	snap, err := r.store.Get(ctx, domain.RiskCollection, id)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var risk domain.Risk
	if err := snap.DataTo(&risk); err != nil {
		return nil, err
	}
	risk.ID = snap.ID()
	return &risk, nil
}

func (r *docstoreRiskRepository) FindByProject(ctx context.Context, projectID string) ([]*domain.Risk, error) {
	return r.list(ctx, docstore.Filter{Field: "projectId", Value: projectID})
}

func (r *docstoreRiskRepository) FindAll(ctx context.Context) ([]*domain.Risk, error) {
	return r.list(ctx)
}

func (r *docstoreRiskRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updatedAt"] = time.Now()
	return r.store.Update(ctx, domain.RiskCollection, id, fields)
}

func (r *docstoreRiskRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, domain.RiskCollection, id)
}

func (r *docstoreRiskRepository) list(ctx context.Context, filters ...docstore.Filter) ([]*domain.Risk, error) {
	snaps, err := r.store.List(ctx, domain.RiskCollection, filters...)
	if err != nil {
		return nil, err
	}
	risks := make([]*domain.Risk, 0, len(snaps))
	for _, snap := range snaps {
		var risk domain.Risk
		if err := snap.DataTo(&risk); err != nil {
			return nil, err
		}
		risk.ID = snap.ID()
		risks = append(risks, &risk)
	}
	return risks, nil
}
