package usecase

import (
	"context"
	"log"
	"net/mail"
	"strings"
	"time"

	"pmchat-backend/internal/task/domain"
	"pmchat-backend/internal/task/repository"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/docstore"
	"pmchat-backend/pkg/events"

	"github.com/google/uuid"
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo  repository.TaskRepository
	linker    StageLinker
	retrier   LinkageRetrier
	publisher events.Publisher
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository, linker StageLinker) TaskUsecase {
	return &taskUsecase{
		taskRepo: taskRepo,
		linker:   linker,
	}
}

func (u *taskUsecase) SetEventPublisher(publisher events.Publisher) {
	u.publisher = publisher
}

func (u *taskUsecase) SetLinkageRetrier(retrier LinkageRetrier) {
	u.retrier = retrier
}

func (u *taskUsecase) CreateTask(ctx context.Context, task *domain.Task, ownerEmail string) (*domain.Task, error) {
	const op = "task.Create"
	ownerEmail, err := requireEmail(op, ownerEmail)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperror.Validation(op, "task is required")
	}
	if err := validateTask(op, task); err != nil {
		return nil, err
	}

	now := time.Now()
	task.ID = u.taskRepo.NewID()
	task.Title = strings.TrimSpace(task.Title)
	task.CreatedAt = now
	task.UpdatedAt = now
	task.ReminderSent = false
	if task.Status == "" {
		task.Status = domain.TaskStatusBacklog
	}
	if task.Reporter == "" {
		task.Reporter = ownerEmail
	}
	if task.Comments == nil {
		task.Comments = []domain.Comment{}
	}

	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, apperror.Store(op, err)
	}
	log.Printf("[TaskUsecase] Created task %s for %s", task.ID, ownerEmail)

	u.link(ctx, task.Ref())
	u.publish(ctx, events.TaskCreated, task)
	return task, nil
}

func (u *taskUsecase) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	const op = "task.Get"
	if taskID == "" {
		return nil, apperror.Validation(op, "id is required")
	}
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if task == nil {
		return nil, apperror.NotFound(op, "task %s not found", taskID)
	}
	return task, nil
}

func (u *taskUsecase) ListTasks(ctx context.Context, role domain.Role, email string) ([]*domain.Task, error) {
	const op = "task.List"
	var (
		tasks []*domain.Task
		err   error
	)
	switch role {
	case domain.RoleManagement:
		tasks, err = u.taskRepo.FindAll(ctx)
	case domain.RoleProjectManager:
		if email == "" {
			return nil, apperror.Validation(op, "email is required")
		}
		tasks, err = u.taskRepo.FindByReporter(ctx, email)
	case domain.RoleDeveloper:
		if email == "" {
			return nil, apperror.Validation(op, "email is required")
		}
		tasks, err = u.taskRepo.FindByAssignee(ctx, email)
	default:
		return nil, apperror.Validation(op, "invalid role %q", role)
	}
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	return tasks, nil
}

func (u *taskUsecase) ListByReporter(ctx context.Context, email string) ([]*domain.Task, error) {
	return u.ListTasks(ctx, domain.RoleProjectManager, email)
}

func (u *taskUsecase) UpdateTask(ctx context.Context, taskID string, updates TaskUpdateRequest, ownerEmail string) (*domain.Task, error) {
	const op = "task.Update"
	if _, err := requireEmail(op, ownerEmail); err != nil {
		return nil, err
	}
	if taskID == "" {
		return nil, apperror.Validation(op, "id is required")
	}

	fields, err := updateFields(op, updates)
	if err != nil {
		return nil, err
	}

	existing, err := u.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := u.taskRepo.Update(ctx, taskID, fields); err != nil {
			if docstore.IsNotFound(err) {
				return nil, apperror.NotFound(op, "task %s not found", taskID)
			}
			return nil, apperror.Store(op, err)
		}
	}

	// Another patch may have landed between the read above and the write,
	// so links and the response follow the stored document.
	current, err := u.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// Leaving a project, or losing the stage inside it, drops the old links
	if existing.ProjectID != "" && (existing.ProjectID != current.ProjectID || current.StageID == "") {
		u.unlink(ctx, existing.ProjectID, taskID)
	}
	u.link(ctx, current.Ref())
	u.publish(ctx, events.TaskUpdated, current)
	return current, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, taskID, ownerEmail string) error {
	const op = "task.Delete"
	ownerEmail, err := requireEmail(op, ownerEmail)
	if err != nil {
		return err
	}
	task, err := u.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if err := u.taskRepo.Delete(ctx, taskID); err != nil {
		return apperror.Store(op, err)
	}
	log.Printf("[TaskUsecase] Deleted task %s by %s", taskID, ownerEmail)

	u.unlink(ctx, task.ProjectID, taskID)
	u.publish(ctx, events.TaskDeleted, task)
	return nil
}

func (u *taskUsecase) AddComment(ctx context.Context, taskID, author, text string) (*domain.Comment, error) {
	const op = "task.AddComment"
	author, err := requireEmail(op, author)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Validation(op, "text is required")
	}
	if _, err := u.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	comment := domain.Comment{
		ID:        uuid.New().String(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.taskRepo.AddComment(ctx, taskID, comment); err != nil {
		return nil, apperror.Store(op, err)
	}
	return &comment, nil
}

// link runs stage linkage detached from request cancellation. The outcome
// is logged; store failures go to the retry worker.
func (u *taskUsecase) link(ctx context.Context, ref domain.StageRef) {
	if u.linker == nil {
		return
	}
	result := u.linker.UpdateProjectStage(context.WithoutCancel(ctx), ref)
	log.Printf("[TaskUsecase] Linkage: %s", result)
	if result.Retryable() && u.retrier != nil {
		if !u.retrier.QueueLink(ref) {
			log.Printf("[TaskUsecase] Linkage retry queue full, task %s left unlinked", ref.TaskID)
		}
	}
}

func (u *taskUsecase) unlink(ctx context.Context, projectID, taskID string) {
	if u.linker == nil || projectID == "" {
		return
	}
	result := u.linker.UnlinkTask(context.WithoutCancel(ctx), projectID, taskID)
	log.Printf("[TaskUsecase] Unlink: %s", result)
	if result.Retryable() && u.retrier != nil {
		u.retrier.QueueUnlink(domain.StageRef{ProjectID: projectID, TaskID: taskID})
	}
}

func (u *taskUsecase) publish(ctx context.Context, eventType events.Type, task *domain.Task) {
	if u.publisher == nil {
		return
	}
	event := events.TaskEvent{
		Type:       eventType,
		TaskID:     task.ID,
		Title:      task.Title,
		Assignee:   task.Assignee,
		Reporter:   task.Reporter,
		ProjectID:  task.ProjectID,
		StageID:    task.StageID,
		Status:     string(task.Status),
		OccurredAt: time.Now(),
	}
	if err := u.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("[TaskUsecase] Failed to publish %s for %s: %v", eventType, task.ID, err)
	}
}

// requireEmail returns the bare address, dropping any display name
func requireEmail(op, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperror.Validation(op, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", apperror.Validation(op, "invalid email %q", email)
	}
	return addr.Address, nil
}

func validateTask(op string, task *domain.Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return apperror.Validation(op, "title is required")
	}
	if task.EstimatedTime < 0 {
		return apperror.Validation(op, "estimatedTime cannot be negative")
	}
	if task.Status != "" && !domain.ValidStatus(task.Status) {
		return apperror.Validation(op, "invalid status %q", task.Status)
	}
	if task.Priority != "" && !domain.ValidPriority(task.Priority) {
		return apperror.Validation(op, "invalid priority %q", task.Priority)
	}
	if task.Effort != "" && !domain.ValidEffort(task.Effort) {
		return apperror.Validation(op, "invalid effort %q", task.Effort)
	}
	if task.StageID != "" && task.ProjectID == "" {
		return apperror.Validation(op, "stageId requires projectId")
	}
	return nil
}

// updateFields validates a patch and turns it into store field updates
func updateFields(op string, updates TaskUpdateRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if updates.Title != nil {
		title := strings.TrimSpace(*updates.Title)
		if title == "" {
			return nil, apperror.Validation(op, "title cannot be empty")
		}
		fields["title"] = title
	}
	if updates.Description != nil {
		fields["description"] = *updates.Description
	}
	if updates.EstimatedTime != nil {
		if *updates.EstimatedTime < 0 {
			return nil, apperror.Validation(op, "estimatedTime cannot be negative")
		}
		fields["estimatedTime"] = *updates.EstimatedTime
	}
	if updates.Effort != nil {
		if *updates.Effort != "" && !domain.ValidEffort(domain.Effort(*updates.Effort)) {
			return nil, apperror.Validation(op, "invalid effort %q", *updates.Effort)
		}
		fields["effort"] = *updates.Effort
	}
	if updates.Assignee != nil {
		fields["assignee"] = *updates.Assignee
	}
	if updates.Status != nil {
		if !domain.ValidStatus(domain.TaskStatus(*updates.Status)) {
			return nil, apperror.Validation(op, "invalid status %q", *updates.Status)
		}
		fields["status"] = *updates.Status
	}
	if updates.Priority != nil {
		if *updates.Priority != "" && !domain.ValidPriority(domain.Priority(*updates.Priority)) {
			return nil, apperror.Validation(op, "invalid priority %q", *updates.Priority)
		}
		fields["priority"] = *updates.Priority
	}
	if updates.DueDate != nil {
		if *updates.DueDate == "" {
			fields["dueDate"] = nil
		} else {
			due, err := time.Parse(time.RFC3339, *updates.DueDate)
			if err != nil {
				return nil, apperror.Validation(op, "dueDate must be RFC3339")
			}
			fields["dueDate"] = due
		}
		fields["reminderSent"] = false // Reset reminder status when due date changes
	}
	if updates.ProjectID != nil {
		fields["projectId"] = *updates.ProjectID
	}
	if updates.StageID != nil {
		fields["stageId"] = *updates.StageID
	}
	return fields, nil
}
