package app

import (
	"context"
	"fmt"
	"log"

	taskdomain "pmchat-backend/internal/task/domain"
)

// ReconcileReport counts what a reconcile run touched
type ReconcileReport struct {
	Tasks    int
	Outcomes map[taskdomain.LinkageOutcome]int
	Projects int
	Failed   int
}

// Reconcile re-links every task to its project stage and then refreshes the
// progress of every project. It repairs back-references left stale by
// linkage attempts that never succeeded.
func (a *App) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Outcomes: make(map[taskdomain.LinkageOutcome]int)}

	tasks, err := a.TaskRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Tasks++
		result := a.Linkage.UpdateProjectStage(ctx, task.Ref())
		report.Outcomes[result.Outcome]++
		if result.Retryable() {
			report.Failed++
			log.Printf("[Reconcile] %s", result)
		}
	}

	projects, err := a.ProjectRepo.FindAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list projects: %w", err)
	}
	for _, project := range projects {
		if err := a.Aggregator.Recompute(ctx, project.ID); err != nil {
			report.Failed++
			log.Printf("[Reconcile] Failed to recompute progress of project %s: %v", project.ID, err)
			continue
		}
		report.Projects++
	}

	log.Printf("[Reconcile] Processed %d tasks and %d projects (%d failures)", report.Tasks, report.Projects, report.Failed)
	return report, nil
}
