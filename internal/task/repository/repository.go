package repository

import (
	"context"
	"time"

	"pmchat-backend/internal/task/domain"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// NewID reserves a store-generated task ID
	NewID() string

	// Create writes the full task document under task.ID
	Create(ctx context.Context, task *domain.Task) error

	// FindByID returns nil, nil when the task does not exist
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// FindAll returns every task
	FindAll(ctx context.Context) ([]*domain.Task, error)

	// FindByReporter returns tasks created by email
	FindByReporter(ctx context.Context, email string) ([]*domain.Task, error)

	// FindByAssignee returns tasks assigned to email
	FindByAssignee(ctx context.Context, email string) ([]*domain.Task, error)

	// Update merges the given fields into the stored task
	Update(ctx context.Context, id string, fields map[string]interface{}) error

	// Delete deletes a task by ID
	Delete(ctx context.Context, id string) error

	// AddComment appends a comment to the task's thread
	AddComment(ctx context.Context, id string, comment domain.Comment) error

	// FindPendingReminders finds tasks due before now+window whose reminder
	// was not sent yet and that are not done
	FindPendingReminders(ctx context.Context, now time.Time, window time.Duration) ([]*domain.Task, error)

	// MarkReminderSent marks a task's reminder as sent
	MarkReminderSent(ctx context.Context, id string) error
}
