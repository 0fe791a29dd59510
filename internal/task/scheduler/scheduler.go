package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pmchat-backend/internal/task/repository"
	"pmchat-backend/pkg/fcm"
)

// Notifier pushes a notification to every device of a user
type Notifier interface {
	NotifyUser(ctx context.Context, email string, notification fcm.NotificationData) (int, error)
}

// TaskReminderScheduler sends push reminders for tasks that are nearly due
type TaskReminderScheduler struct {
	taskRepo repository.TaskRepository
	notifier Notifier
	interval time.Duration
	window   time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewTaskReminderScheduler creates a new scheduler
func NewTaskReminderScheduler(taskRepo repository.TaskRepository, notifier Notifier, interval, window time.Duration) *TaskReminderScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if window <= 0 {
		window = time.Hour
	}
	return &TaskReminderScheduler{
		taskRepo: taskRepo,
		notifier: notifier,
		interval: interval,
		window:   window,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the scheduler loop
func (s *TaskReminderScheduler) Start() {
	if s.notifier == nil {
		log.Println("[TaskScheduler] Notifier not available, scheduler disabled")
		return
	}

	log.Printf("[TaskScheduler] Starting task reminder scheduler (interval: %s, window: %s)", s.interval, s.window)

	go func() {
		// Run immediately on start
		s.CheckAndSendReminders(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.CheckAndSendReminders(context.Background())
			case <-s.stopChan:
				log.Println("[TaskScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *TaskReminderScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// CheckAndSendReminders notifies the assignee (or the reporter of unassigned
// tasks) of every pending reminder and marks it sent. Returns how many tasks
// were processed.
func (s *TaskReminderScheduler) CheckAndSendReminders(ctx context.Context) int {
	now := s.now()

	tasks, err := s.taskRepo.FindPendingReminders(ctx, now, s.window)
	if err != nil {
		log.Printf("[TaskScheduler] Error finding pending reminders: %v", err)
		return 0
	}
	if len(tasks) == 0 {
		return 0
	}

	log.Printf("[TaskScheduler] Found %d tasks with pending reminders", len(tasks))

	for _, task := range tasks {
		recipient := task.Assignee
		if recipient == "" {
			recipient = task.Reporter
		}

		title := "Reminder: " + task.Title
		if task.DueDate.Before(now) {
			title = "Overdue: " + task.Title
		}
		body := fmt.Sprintf("Due %s", task.DueDate.Format("02 Jan 2006 15:04"))
		if task.Priority != "" {
			body = fmt.Sprintf("%s · %s priority", body, task.Priority)
		}

		sent, err := s.notifier.NotifyUser(ctx, recipient, fcm.NotificationData{
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":     "task_reminder",
				"taskId":   task.ID,
				"priority": string(task.Priority),
			},
			ClickAction: "/tasks/" + task.ID,
		})
		if err != nil {
			log.Printf("[TaskScheduler] Error sending reminder for task %s: %v", task.ID, err)
		} else {
			log.Printf("[TaskScheduler] Sent reminder for task '%s' to %d devices", task.Title, sent)
		}

		// Mark reminder as sent regardless of success (to avoid spamming)
		if err := s.taskRepo.MarkReminderSent(ctx, task.ID); err != nil {
			log.Printf("[TaskScheduler] Error marking reminder as sent for task %s: %v", task.ID, err)
		}
	}
	return len(tasks)
}
