package events

import (
	"context"
	"time"
)

type Type string

const (
	TaskCreated Type = "task.created"
	TaskUpdated Type = "task.updated"
	TaskDeleted Type = "task.deleted"
)

// TaskEvent is published whenever a task changes
type TaskEvent struct {
	Type       Type      `json:"type"`
	TaskID     string    `json:"taskId"`
	Title      string    `json:"title"`
	Assignee   string    `json:"assignee,omitempty"`
	Reporter   string    `json:"reporter,omitempty"`
	ProjectID  string    `json:"projectId,omitempty"`
	StageID    string    `json:"stageId,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Handler consumes a single event
type Handler func(ctx context.Context, event TaskEvent) error

// Publisher sends task events to whoever is listening
type Publisher interface {
	Publish(ctx context.Context, event TaskEvent) error
	Close() error
}

// Subscriber delivers events to handler until ctx is done
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
}
