package usecase

import (
	"context"
	"math"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/internal/project/repository"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/docstore"
)

// ProgressAggregator recomputes stage and project completion from the
// status of linked tasks
type ProgressAggregator struct {
	projects repository.ProjectRepository
}

func NewProgressAggregator(projects repository.ProjectRepository) *ProgressAggregator {
	return &ProgressAggregator{projects: projects}
}

// Recompute refreshes the progress of projectID and its stages in a single
// transaction. Nothing is written when no value changed.
func (a *ProgressAggregator) Recompute(ctx context.Context, projectID string) error {
	const op = "ProgressAggregator.Recompute"
	if projectID == "" {
		return apperror.Validation(op, "projectId is required")
	}
	err := a.projects.Mutate(ctx, projectID, a.Apply)
	if docstore.IsNotFound(err) {
		return apperror.NotFound(op, "project %s not found", projectID)
	}
	return apperror.Store(op, err)
}

// Apply sets progress on p from the statuses returned by tasks. Task IDs
// whose document is gone are left out of the totals. It reports whether any
// progress value changed.
func (a *ProgressAggregator) Apply(p *domain.Project, tasks repository.TaskLookup) (bool, error) {
	statuses := make(map[string]string)
	done := func(taskID string) (counted, isDone bool, err error) {
		status, ok := statuses[taskID]
		if !ok {
			state, found, err := tasks(taskID)
			if err != nil {
				return false, false, err
			}
			if found {
				status = state.Status
			}
			statuses[taskID] = status
		}
		if status == "" {
			return false, false, nil
		}
		return true, status == string(taskdomain.TaskStatusDone), nil
	}

	percent := func(ids []string) (int, error) {
		total, finished := 0, 0
		for _, id := range ids {
			counted, isDone, err := done(id)
			if err != nil {
				return 0, err
			}
			if !counted {
				continue
			}
			total++
			if isDone {
				finished++
			}
		}
		if total == 0 {
			return 0, nil
		}
		return int(math.Round(float64(finished) / float64(total) * 100)), nil
	}

	changed := false
	for i := range p.Stages {
		value, err := percent(p.Stages[i].TaskIDs)
		if err != nil {
			return false, err
		}
		if p.Stages[i].Progress != value {
			p.Stages[i].Progress = value
			changed = true
		}
	}

	value, err := percent(p.TaskIDs)
	if err != nil {
		return false, err
	}
	if p.Progress != value {
		p.Progress = value
		changed = true
	}
	return changed, nil
}
