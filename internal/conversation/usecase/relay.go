package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"pmchat-backend/internal/conversation/domain"
	"pmchat-backend/pkg/ai"
	"pmchat-backend/pkg/apperror"

	"github.com/google/uuid"
)

const defaultSystemPrompt = "You are a helpful assistant for a software project management team. Answer concisely."

// maxNameLength bounds generated conversation titles
const maxNameLength = 60

// ChatRelay forwards chat turns to a provider and records both sides of the
// exchange in the conversation history
type ChatRelay struct {
	conversations ConversationUsecase
	providers     ProviderSource
	timeout       time.Duration
	systemPrompt  string
}

func NewChatRelay(conversations ConversationUsecase, providers ProviderSource, timeout time.Duration) *ChatRelay {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ChatRelay{
		conversations: conversations,
		providers:     providers,
		timeout:       timeout,
		systemPrompt:  defaultSystemPrompt,
	}
}

// Chat persists the trailing user message, streams the provider's reply
// through onDelta while ctx is alive, and persists the full reply once the
// provider finishes. Generation runs detached from ctx so a client that
// disconnects mid-stream still gets its reply stored. A provider failure
// leaves the user message stored without a reply.
func (r *ChatRelay) Chat(ctx context.Context, req ChatRequest, onDelta ai.DeltaFunc) (*ChatResult, error) {
	const op = "chat.Relay"
	if len(req.Messages) == 0 {
		return nil, apperror.Validation(op, "messages are required")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != string(domain.RoleUser) || strings.TrimSpace(last.Content) == "" {
		return nil, apperror.Validation(op, "last message must be a non-empty user message")
	}
	for _, m := range req.Messages {
		if !domain.ValidRole(domain.Role(m.Role)) {
			return nil, apperror.Validation(op, "invalid role %q", m.Role)
		}
	}
	if err := validateKey(op, req.Email, req.ConversationID); err != nil {
		return nil, err
	}

	provider, err := r.providers.Get(req.Provider)
	if err != nil {
		if errors.Is(err, ai.ErrUnknownProvider) || errors.Is(err, ai.ErrNotConfigured) {
			return nil, apperror.Validation(op, "%v", err)
		}
		return nil, apperror.Provider(op, err)
	}

	if _, err := r.conversations.AppendMessage(ctx, req.Email, req.ConversationID, domain.Message{
		Role:    domain.RoleUser,
		Content: last.Content,
	}, req.Name); err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	relay := func(chunk string) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onDelta == nil {
			return nil
		}
		return onDelta(chunk)
	}

	started := time.Now()
	text, err := provider.StreamChat(genCtx, r.withSystemPrompt(req.Messages), relay)
	if err != nil {
		log.Printf("[ChatRelay] %s failed for %s/%s after %s, user message kept without reply: %v",
			provider.Name(), req.Email, req.ConversationID, time.Since(started), err)
		return nil, apperror.Provider(op, err)
	}

	// Read after the stream: a fallback provider reports whichever backend
	// produced the reply
	name, model := provider.Name(), provider.Model()
	reply := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   text,
		Model:     model,
		Timestamp: time.Now().UTC(),
	}
	// Persist even when the caller is gone
	if _, err := r.conversations.AppendMessage(context.WithoutCancel(ctx), req.Email, req.ConversationID, reply, ""); err != nil {
		return nil, err
	}

	log.Printf("[ChatRelay] %s replied to %s/%s in %s (%d chars)",
		name, req.Email, req.ConversationID, time.Since(started), len(text))
	return &ChatResult{
		ConversationID: req.ConversationID,
		Provider:       string(name),
		Model:          model,
		Reply:          reply,
	}, nil
}

// GenerateName asks a provider for a short title and stores it
func (r *ChatRelay) GenerateName(ctx context.Context, email, conversationID, providerName string) (string, error) {
	const op = "chat.GenerateName"
	messages, err := r.conversations.GetConversation(ctx, email, conversationID)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", apperror.Validation(op, "conversation is empty")
	}

	provider, err := r.providers.Get(providerName)
	if err != nil {
		return "", apperror.Validation(op, "%v", err)
	}

	var transcript strings.Builder
	for i, m := range messages {
		if i == 6 {
			break
		}
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	genCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	text, err := provider.StreamChat(genCtx, []ai.Message{
		{Role: string(domain.RoleSystem), Content: "Reply with a title of at most six words for the conversation below. No quotes, no punctuation at the end."},
		{Role: string(domain.RoleUser), Content: transcript.String()},
	}, nil)
	if err != nil {
		return "", apperror.Provider(op, err)
	}

	name := cleanName(text)
	if name == "" {
		return "", apperror.Provider(op, ai.ErrEmptyReply)
	}
	if err := r.conversations.RenameConversation(ctx, email, conversationID, name); err != nil {
		return "", err
	}
	return name, nil
}

func (r *ChatRelay) withSystemPrompt(messages []ai.Message) []ai.Message {
	for _, m := range messages {
		if m.Role == string(domain.RoleSystem) {
			return messages
		}
	}
	out := make([]ai.Message, 0, len(messages)+1)
	out = append(out, ai.Message{Role: string(domain.RoleSystem), Content: r.systemPrompt})
	return append(out, messages...)
}

func cleanName(s string) string {
	s = strings.TrimSpace(strings.SplitN(strings.TrimSpace(s), "\n", 2)[0])
	s = strings.Trim(s, "\"'`*#. ")
	if utf8.RuneCountInString(s) > maxNameLength {
		s = string([]rune(s)[:maxNameLength])
	}
	return s
}
