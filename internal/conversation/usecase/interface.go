package usecase

import (
	"context"

	"pmchat-backend/internal/conversation/domain"
	"pmchat-backend/pkg/ai"
	"pmchat-backend/pkg/chroma"
)

// ConversationUsecase defines conversation history business logic
type ConversationUsecase interface {
	AppendMessage(ctx context.Context, email, conversationID string, msg domain.Message, name string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, email string) ([]domain.Summary, error)
	GetConversation(ctx context.Context, email, conversationID string) ([]domain.Message, error)
	RenameConversation(ctx context.Context, email, conversationID, name string) error
	DeleteConversation(ctx context.Context, email, conversationID string) error
	// Search uses the semantic index when one is set and falls back to
	// typo-tolerant keyword matching otherwise
	Search(ctx context.Context, email, query string, limit int) ([]SearchResult, error)

	SetIndexer(indexer MessageIndexer)
}

// MessageIndexer keeps a semantic index of persisted messages
type MessageIndexer interface {
	UpsertMessage(ctx context.Context, owner, conversationID, messageID, role, content string) error
	SemanticSearch(ctx context.Context, owner, query string, limit int) ([]chroma.Hit, error)
	DeleteMessages(ctx context.Context, conversationID string, messageIDs []string) error
}

// ProviderSource resolves a provider by name
type ProviderSource interface {
	Get(name string) (ai.ChatProvider, error)
}

type SearchResult struct {
	ConversationID   string         `json:"conversationId"`
	ConversationName string         `json:"conversationName"`
	Message          domain.Message `json:"message"`
	Distance         float64        `json:"distance"`
}

// ChatRequest is one chat turn. The last message must be the user's.
type ChatRequest struct {
	Email          string       `json:"email"`
	ConversationID string       `json:"conversationId"`
	Messages       []ai.Message `json:"messages"`
	Provider       string       `json:"provider,omitempty"`
	Name           string       `json:"name,omitempty"`
}

type ChatResult struct {
	ConversationID string         `json:"conversationId"`
	Provider       string         `json:"provider"`
	Model          string         `json:"model"`
	Reply          domain.Message `json:"reply"`
}
