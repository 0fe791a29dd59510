package usecase

import (
	"context"

	"pmchat-backend/internal/project/domain"
	"pmchat-backend/internal/project/repository"
	taskdomain "pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/docstore"
)

// LinkageUpdater keeps project.taskIds and stage.taskIds in step with the
// projectId/stageId stored on tasks. Every change runs inside a store
// transaction together with a progress refresh. The task document read in
// that transaction decides where the task belongs, so a caller holding a
// stale copy of the task cannot undo a newer move.
type LinkageUpdater struct {
	projects   repository.ProjectRepository
	aggregator *ProgressAggregator
}

func NewLinkageUpdater(projects repository.ProjectRepository, aggregator *ProgressAggregator) *LinkageUpdater {
	return &LinkageUpdater{
		projects:   projects,
		aggregator: aggregator,
	}
}

// UpdateProjectStage links ref.TaskID to the stage its document names,
// removing it from any other stage of the same project. When the document
// no longer places the task in ref.ProjectID, the task is removed from that
// project instead.
func (u *LinkageUpdater) UpdateProjectStage(ctx context.Context, ref taskdomain.StageRef) taskdomain.LinkageResult {
	result := taskdomain.LinkageResult{Ref: ref}
	if ref.ProjectID == "" || ref.StageID == "" || ref.TaskID == "" {
		result.Outcome = taskdomain.LinkageUnassigned
		return result
	}
	return u.sync(ctx, result)
}

// UnlinkTask removes taskID from the project and all of its stages, unless
// the task document has since been placed back in the project
func (u *LinkageUpdater) UnlinkTask(ctx context.Context, projectID, taskID string) taskdomain.LinkageResult {
	result := taskdomain.LinkageResult{Ref: taskdomain.StageRef{ProjectID: projectID, TaskID: taskID}}
	if projectID == "" || taskID == "" {
		result.Outcome = taskdomain.LinkageUnassigned
		return result
	}
	return u.sync(ctx, result)
}

// sync brings one project's references to result.Ref.TaskID in line with
// the task document
func (u *LinkageUpdater) sync(ctx context.Context, result taskdomain.LinkageResult) taskdomain.LinkageResult {
	taskID := result.Ref.TaskID
	err := u.projects.Mutate(ctx, result.Ref.ProjectID, func(p *domain.Project, tasks repository.TaskLookup) (bool, error) {
		state, found, err := tasks(taskID)
		if err != nil {
			return false, err
		}

		var changed bool
		switch {
		case !found:
			result.Outcome = taskdomain.LinkageTaskNotFound
			changed = unlinkTask(p, taskID)
		case state.ProjectID != p.ID || state.StageID == "":
			result.Outcome = taskdomain.LinkageUnlinked
			changed = unlinkTask(p, taskID)
		default:
			result.Ref.StageID = state.StageID
			idx := p.StageIndex(state.StageID)
			if idx < 0 {
				result.Outcome = taskdomain.LinkageStageNotFound
				return false, nil
			}
			changed = linkTask(p, idx, taskID)
			if changed {
				result.Outcome = taskdomain.LinkageLinked
			} else {
				result.Outcome = taskdomain.LinkageAlreadyLinked
			}
		}

		progressChanged, err := u.aggregator.Apply(p, tasks)
		if err != nil {
			return false, err
		}
		return changed || progressChanged, nil
	})
	return finish(result, err)
}

func finish(result taskdomain.LinkageResult, err error) taskdomain.LinkageResult {
	switch {
	case err == nil:
	case docstore.IsNotFound(err):
		result.Outcome = taskdomain.LinkageProjectNotFound
	default:
		result.Outcome = taskdomain.LinkageFailed
		result.Err = err
	}
	return result
}

// linkTask adds taskID to the project list and to stage idx, and drops it
// from every other stage
func linkTask(p *domain.Project, idx int, taskID string) bool {
	changed := false
	if !containsID(p.TaskIDs, taskID) {
		p.TaskIDs = append(p.TaskIDs, taskID)
		changed = true
	}
	for i := range p.Stages {
		if i == idx {
			if !containsID(p.Stages[i].TaskIDs, taskID) {
				p.Stages[i].TaskIDs = append(p.Stages[i].TaskIDs, taskID)
				changed = true
			}
			continue
		}
		if ids, removed := removeID(p.Stages[i].TaskIDs, taskID); removed {
			p.Stages[i].TaskIDs = ids
			changed = true
		}
	}
	return changed
}

// unlinkTask drops taskID from the project list and every stage
func unlinkTask(p *domain.Project, taskID string) bool {
	changed := false
	if ids, removed := removeID(p.TaskIDs, taskID); removed {
		p.TaskIDs = ids
		changed = true
	}
	for i := range p.Stages {
		if ids, removed := removeID(p.Stages[i].TaskIDs, taskID); removed {
			p.Stages[i].TaskIDs = ids
			changed = true
		}
	}
	return changed
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	removed := false
	for _, v := range ids {
		if v == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out, removed
}
