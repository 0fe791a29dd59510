package ai

import (
	"context"
	"errors"
)

// Message is one turn of a chat sent to a provider
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// DeltaFunc receives streamed text as it arrives. Returning an error stops
// forwarding but the provider keeps collecting the full reply.
type DeltaFunc func(chunk string) error

// ChatProvider is the interface every LLM backend implements
// Implement this interface to add new AI providers
type ChatProvider interface {
	Name() ProviderType
	Model() string
	// StreamChat sends messages and returns the full reply once the stream
	// ends. onDelta may be nil.
	StreamChat(ctx context.Context, messages []Message, onDelta DeltaFunc) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI  ProviderType = "openai"
	ProviderGemini  ProviderType = "gemini"
	ProviderMindsDB ProviderType = "mindsdb"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNotConfigured   = errors.New("provider not configured")
	ErrEmptyReply      = errors.New("provider returned an empty reply")
)
