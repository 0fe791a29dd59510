package repository

import (
	"context"
	"time"

	"pmchat-backend/internal/task/domain"
	"pmchat-backend/pkg/docstore"
)

// docstoreTaskRepository implements TaskRepository on the document store
type docstoreTaskRepository struct {
	store docstore.Store
}

// NewTaskRepository creates a new document-store backed TaskRepository
func NewTaskRepository(store docstore.Store) TaskRepository {
	return &docstoreTaskRepository{store: store}
}

func (r *docstoreTaskRepository) NewID() string {
	return r.store.NewID(domain.Collection)
}

func (r *docstoreTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.Comments == nil {
		task.Comments = []domain.Comment{}
	}
	return r.store.Set(ctx, domain.Collection, task.ID, task)
}

func (r *docstoreTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	snap, err := r.store.Get(ctx, domain.Collection, id)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var task domain.Task
	if err := snap.DataTo(&task); err != nil {
		return nil, err
	}
	task.ID = snap.ID()
	return &task, nil
}

func (r *docstoreTaskRepository) FindAll(ctx context.Context) ([]*domain.Task, error) {
	return r.list(ctx)
}

func (r *docstoreTaskRepository) FindByReporter(ctx context.Context, email string) ([]*domain.Task, error) {
	return r.list(ctx, docstore.Filter{Field: "reporter", Value: email})
}

func (r *docstoreTaskRepository) FindByAssignee(ctx context.Context, email string) ([]*domain.Task, error) {
	return r.list(ctx, docstore.Filter{Field: "assignee", Value: email})
}

func (r *docstoreTaskRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updatedAt"] = time.Now()
	return r.store.Update(ctx, domain.Collection, id, fields)
}

func (r *docstoreTaskRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, domain.Collection, id)
}

func (r *docstoreTaskRepository) AddComment(ctx context.Context, id string, comment domain.Comment) error {
	return r.store.ArrayUnion(ctx, domain.Collection, id, "comments", comment)
}

func (r *docstoreTaskRepository) FindPendingReminders(ctx context.Context, now time.Time, window time.Duration) ([]*domain.Task, error) {
	tasks, err := r.list(ctx, docstore.Filter{Field: "reminderSent", Value: false})
	if err != nil {
		return nil, err
	}

	deadline := now.Add(window)
	var pending []*domain.Task
	for _, t := range tasks {
		if t.DueDate == nil || t.Status == domain.TaskStatusDone {
			continue
		}
		if t.DueDate.After(deadline) {
			continue
		}
		pending = append(pending, t)
	}
	return pending, nil
}

func (r *docstoreTaskRepository) MarkReminderSent(ctx context.Context, id string) error {
	return r.store.Update(ctx, domain.Collection, id, map[string]interface{}{
		"reminderSent": true,
		"updatedAt":    time.Now(),
	})
}

func (r *docstoreTaskRepository) list(ctx context.Context, filters ...docstore.Filter) ([]*domain.Task, error) {
	snaps, err := r.store.List(ctx, domain.Collection, filters...)
	if err != nil {
		return nil, err
	}
	tasks := make([]*domain.Task, 0, len(snaps))
	for _, snap := range snaps {
		var task domain.Task
		if err := snap.DataTo(&task); err != nil {
			return nil, err
		}
		task.ID = snap.ID()
		tasks = append(tasks, &task)
	}
	return tasks, nil
}
