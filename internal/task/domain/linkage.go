package domain

import "fmt"

// LinkageOutcome describes what a stage linkage attempt did to the project
type LinkageOutcome string

const (
	LinkageLinked          LinkageOutcome = "linked"
	LinkageAlreadyLinked   LinkageOutcome = "already_linked"
	LinkageUnlinked        LinkageOutcome = "unlinked"
	LinkageUnassigned      LinkageOutcome = "unassigned"
	LinkageProjectNotFound LinkageOutcome = "project_not_found"
	LinkageStageNotFound   LinkageOutcome = "stage_not_found"
	LinkageTaskNotFound    LinkageOutcome = "task_not_found"
	LinkageFailed          LinkageOutcome = "failed"
)

// LinkageResult is returned by every linkage operation. Only LinkageFailed
// carries an error; the not-found outcomes are expected states.
type LinkageResult struct {
	Ref     StageRef
	Outcome LinkageOutcome
	Err     error
}

// Retryable reports whether the attempt failed on the store and may succeed later
func (r LinkageResult) Retryable() bool {
	return r.Outcome == LinkageFailed
}

func (r LinkageResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("task=%s project=%s stage=%s outcome=%s err=%v",
			r.Ref.TaskID, r.Ref.ProjectID, r.Ref.StageID, r.Outcome, r.Err)
	}
	return fmt.Sprintf("task=%s project=%s stage=%s outcome=%s",
		r.Ref.TaskID, r.Ref.ProjectID, r.Ref.StageID, r.Outcome)
}
