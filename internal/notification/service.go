package notification

import (
	"context"
	"fmt"
	"log"

	"pmchat-backend/internal/notification/repository"
	"pmchat-backend/pkg/events"
	"pmchat-backend/pkg/fcm"
)

// Service pushes notifications to the devices registered for a user
type Service struct {
	tokenRepo repository.DeviceTokenRepository
	sender    fcm.Sender
}

func NewService(tokenRepo repository.DeviceTokenRepository, sender fcm.Sender) *Service {
	return &Service{
		tokenRepo: tokenRepo,
		sender:    sender,
	}
}

// NotifyUser sends notification to every device of email and forgets the
// tokens FCM rejected. Returns the number of devices reached.
func (s *Service) NotifyUser(ctx context.Context, email string, notification fcm.NotificationData) (int, error) {
	tokens, err := s.tokenRepo.GetTokensByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		log.Printf("[Notification] No devices registered for %s", email)
		return 0, nil
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := s.sender.SendToDevices(ctx, tokenStrings, notification)
	if err != nil {
		return 0, err
	}

	if len(failedTokens) > 0 {
		log.Printf("[Notification] Cleaning up %d failed tokens for %s", len(failedTokens), email)
		for _, token := range failedTokens {
			if err := s.tokenRepo.DeleteToken(ctx, token); err != nil {
				log.Printf("[Notification] Failed to delete token %s: %v", fcm.Mask(token), err)
			}
		}
	}
	return len(tokenStrings) - len(failedTokens), nil
}

// HandleEvent notifies the assignee of a created or updated task
func (s *Service) HandleEvent(ctx context.Context, event events.TaskEvent) error {
	if event.Assignee == "" {
		return nil
	}

	var title string
	switch event.Type {
	case events.TaskCreated:
		title = "New task assigned: " + event.Title
	case events.TaskUpdated:
		title = "Task updated: " + event.Title
	default:
		return nil
	}

	body := "Status: " + event.Status
	if event.Reporter != "" {
		body += " · from " + event.Reporter
	}

	sent, err := s.NotifyUser(ctx, event.Assignee, fcm.NotificationData{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":      string(event.Type),
			"taskId":    event.TaskID,
			"projectId": event.ProjectID,
			"stageId":   event.StageID,
		},
		ClickAction: "/tasks/" + event.TaskID,
	})
	if err != nil {
		return err
	}
	log.Printf("[Notification] %s for task %s sent to %d devices of %s", event.Type, event.TaskID, sent, event.Assignee)
	return nil
}

// Start consumes task events until ctx is done
func (s *Service) Start(ctx context.Context, subscriber events.Subscriber) {
	log.Println("[Notification] Listening for task events")
	if err := subscriber.Subscribe(ctx, s.HandleEvent); err != nil && ctx.Err() == nil {
		log.Printf("[Notification] Subscriber stopped: %v", err)
	}
}
