package repository

import (
	"context"

	"pmchat-backend/internal/conversation/domain"
)

// ConversationRepository defines the interface for conversation data access
type ConversationRepository interface {
	// AppendMessage adds msg to the end of the conversation, creating it on
	// first use. name is stored when non-empty; a new conversation without
	// one is named after its first message.
	AppendMessage(ctx context.Context, email, conversationID string, msg domain.Message, name string) (*domain.Conversation, error)

	// List returns the owner's conversations, most recently updated first
	List(ctx context.Context, email string) ([]domain.Summary, error)

	// Get returns nil, nil when the conversation does not exist
	Get(ctx context.Context, email, conversationID string) (*domain.Conversation, error)

	Rename(ctx context.Context, email, conversationID, name string) error
	Delete(ctx context.Context, email, conversationID string) error
}
