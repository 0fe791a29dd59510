package domain

import "time"

// Collection is the document collection holding tasks
const Collection = "tasks"

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskStatus represents the kanban column a task sits in.
// Any status may move to any other status.
type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "inProgress"
	TaskStatusDone       TaskStatus = "done"
)

// Effort categorizes which side of the stack a task touches
type Effort string

const (
	EffortBackend   Effort = "backend"
	EffortFrontend  Effort = "frontend"
	EffortFullStack Effort = "backend+frontend"
)

// Role selects which tasks a listing returns
type Role string

const (
	RoleProjectManager Role = "projectManager"
	RoleDeveloper      Role = "developer"
	RoleManagement     Role = "management"
)

// Comment is one entry in a task's discussion thread
type Comment struct {
	ID        string    `json:"id" firestore:"id"`
	Author    string    `json:"author" firestore:"author"`
	Text      string    `json:"text" firestore:"text"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Task is a unit of work assigned to a developer inside a project stage
type Task struct {
	ID            string     `json:"id" firestore:"id"`
	Title         string     `json:"title" firestore:"title"`
	Description   string     `json:"description" firestore:"description"`
	EstimatedTime float64    `json:"estimatedTime" firestore:"estimatedTime"` // hours
	Effort        Effort     `json:"effort,omitempty" firestore:"effort,omitempty"`
	Assignee      string     `json:"assignee,omitempty" firestore:"assignee,omitempty"`
	Status        TaskStatus `json:"status" firestore:"status"`
	DueDate       *time.Time `json:"dueDate,omitempty" firestore:"dueDate,omitempty"`
	Priority      Priority   `json:"priority,omitempty" firestore:"priority,omitempty"`
	Comments      []Comment  `json:"comments" firestore:"comments"`
	Reporter      string     `json:"reporter" firestore:"reporter"`
	ProjectID     string     `json:"projectId,omitempty" firestore:"projectId,omitempty"`
	StageID       string     `json:"stageId,omitempty" firestore:"stageId,omitempty"`
	ReminderSent  bool       `json:"reminderSent" firestore:"reminderSent"`
	CreatedAt     time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// StageRef is the part of a task the stage linkage cares about
type StageRef struct {
	ProjectID string
	StageID   string
	TaskID    string
}

// Ref returns the linkage reference of the task
func (t *Task) Ref() StageRef {
	return StageRef{ProjectID: t.ProjectID, StageID: t.StageID, TaskID: t.ID}
}

func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusBacklog, TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func ValidEffort(e Effort) bool {
	switch e {
	case EffortBackend, EffortFrontend, EffortFullStack:
		return true
	}
	return false
}

func ValidRole(r Role) bool {
	switch r {
	case RoleProjectManager, RoleDeveloper, RoleManagement:
		return true
	}
	return false
}
