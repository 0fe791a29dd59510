package repository

import (
	"context"
	"time"

	"pmchat-backend/internal/project/domain"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/docstore"
)

type docstoreProjectRepository struct {
	store docstore.Store
}

// NewProjectRepository creates a new document-store backed ProjectRepository
func NewProjectRepository(store docstore.Store) ProjectRepository {
	return &docstoreProjectRepository{store: store}
}

func (r *docstoreProjectRepository) NewID() string {
	return r.store.NewID(domain.ProjectCollection)
}

func (r *docstoreProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	normalizeProject(project)
	return r.store.Set(ctx, domain.ProjectCollection, project.ID, project)
}

func (r *docstoreProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	snap, err := r.store.Get(ctx, domain.ProjectCollection, id)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeProject(snap)
}

func (r *docstoreProjectRepository) FindAll(ctx context.Context) ([]*domain.Project, error) {
	snaps, err := r.store.List(ctx, domain.ProjectCollection)
	if err != nil {
		return nil, err
	}
	projects := make([]*domain.Project, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decodeProject(snap)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (r *docstoreProjectRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updatedAt"] = time.Now()
	return r.store.Update(ctx, domain.ProjectCollection, id, fields)
}

func (r *docstoreProjectRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, domain.ProjectCollection, id)
}

func (r *docstoreProjectRepository) Mutate(ctx context.Context, id string, fn MutateFunc) error {
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		snap, err := tx.Get(domain.ProjectCollection, id)
		if err != nil {
			return err
		}
		project, err := decodeProject(snap)
		if err != nil {
			return err
		}

		// Each task is read once per attempt; Tx forbids reads after writes
		seen := map[string]TaskState{}
		lookup := func(taskID string) (TaskState, bool, error) {
			if state, ok := seen[taskID]; ok {
				return state, true, nil
			}
			tsnap, err := tx.Get(taskdomain.Collection, taskID)
			if err != nil {
				if docstore.IsNotFound(err) {
					return TaskState{}, false, nil
				}
				return TaskState{}, false, err
			}
			var state TaskState
			if err := tsnap.DataTo(&state); err != nil {
				return TaskState{}, false, err
			}
			seen[taskID] = state
			return state, true, nil
		}

		changed, err := fn(project, lookup)
		if err != nil || !changed {
			return err
		}

		normalizeProject(project)
		return tx.Update(domain.ProjectCollection, id, map[string]interface{}{
			"stages":         project.Stages,
			"taskIds":        project.TaskIDs,
			"progress":       project.Progress,
			"currentStageId": project.CurrentStageID,
			"updatedAt":      time.Now(),
		})
	})
}

func decodeProject(snap docstore.Snapshot) (*domain.Project, error) {
	var p domain.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.ID = snap.ID()
	normalizeProject(&p)
	return &p, nil
}

// normalizeProject replaces nil ID lists with empty ones so documents never
// hold null where an array is expected
func normalizeProject(p *domain.Project) {
	if p.TaskIDs == nil {
		p.TaskIDs = []string{}
	}
	if p.Stages == nil {
		p.Stages = []domain.Stage{}
	}
	for i := range p.Stages {
		if p.Stages[i].TaskIDs == nil {
			p.Stages[i].TaskIDs = []string{}
		}
	}
}
