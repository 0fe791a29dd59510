package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pmchat-backend/internal/conversation/domain"
	"pmchat-backend/internal/conversation/repository"
	"pmchat-backend/pkg/ai"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/chroma"
	"pmchat-backend/pkg/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "pm@example.com"

// fakeProvider streams its chunks, or fails with err
type fakeProvider struct {
	name   ai.ProviderType
	chunks []string
	err    error
	delay  time.Duration

	mu   sync.Mutex
	seen [][]ai.Message
}

func (f *fakeProvider) Name() ai.ProviderType { return f.name }
func (f *fakeProvider) Model() string         { return string(f.name) + "-test" }

func (f *fakeProvider) StreamChat(ctx context.Context, messages []ai.Message, onDelta ai.DeltaFunc) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, messages)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	var full strings.Builder
	forward := onDelta != nil
	for _, c := range f.chunks {
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		full.WriteString(c)
		if forward {
			if err := onDelta(c); err != nil {
				forward = false
			}
		}
	}
	return full.String(), nil
}

func (f *fakeProvider) lastMessages() []ai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[len(f.seen)-1]
}

type fakeIndexer struct {
	mu       sync.Mutex
	upserted map[string]string
	deleted  []string
	hits     []chroma.Hit
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{upserted: map[string]string{}}
}

func (f *fakeIndexer) UpsertMessage(ctx context.Context, owner, conversationID, messageID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted[conversationID+":"+messageID] = content
	return nil
}

func (f *fakeIndexer) SemanticSearch(ctx context.Context, owner, query string, limit int) ([]chroma.Hit, error) {
	return f.hits, nil
}

func (f *fakeIndexer) DeleteMessages(ctx context.Context, conversationID string, messageIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageIDs...)
	return nil
}

func (f *fakeIndexer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserted)
}

type relayHarness struct {
	conversations ConversationUsecase
	relay         *ChatRelay
	provider      *fakeProvider
}

func newRelayHarness(p *fakeProvider) *relayHarness {
	conversations := NewConversationUsecase(repository.NewConversationRepository(docstore.NewMemoryStore()))
	registry := &ai.Registry{}
	registry.Register(p)
	return &relayHarness{
		conversations: conversations,
		relay:         NewChatRelay(conversations, registry, time.Second),
		provider:      p,
	}
}

func userTurn(content string) []ai.Message {
	return []ai.Message{{Role: "user", Content: content}}
}

func TestChatStreamsAndPersistsBothMessages(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderOpenAI, chunks: []string{"Split ", "it ", "by domain."}})
	ctx := context.Background()

	var streamed []string
	result, err := h.relay.Chat(ctx, ChatRequest{
		Email:          owner,
		ConversationID: "c1",
		Messages:       userTurn("How should we split the billing stage?"),
		Provider:       "openai",
	}, func(chunk string) error {
		streamed = append(streamed, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Split ", "it ", "by domain."}, streamed)
	assert.Equal(t, "Split it by domain.", result.Reply.Content)
	assert.Equal(t, "openai-test", result.Model)

	messages, err := h.conversations.GetConversation(ctx, owner, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, "How should we split the billing stage?", messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Split it by domain.", messages[1].Content)
	assert.Equal(t, "openai-test", messages[1].Model)

	sent := h.provider.lastMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "system", sent[0].Role)
}

func TestChatKeepsCallerSystemPrompt(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderGemini, chunks: []string{"ok"}})

	_, err := h.relay.Chat(context.Background(), ChatRequest{
		Email:          owner,
		ConversationID: "c1",
		Messages: []ai.Message{
			{Role: "system", Content: "Answer in French."},
			{Role: "user", Content: "Bonjour"},
		},
		Provider: "gemini",
	}, nil)
	require.NoError(t, err)

	sent := h.provider.lastMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Answer in French.", sent[0].Content)
}

func TestChatPersistsReplyAfterClientDisconnects(t *testing.T) {
	h := newRelayHarness(&fakeProvider{
		name:   ai.ProviderOpenAI,
		chunks: []string{"one ", "two ", "three"},
		delay:  10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())

	var streamed []string
	result, err := h.relay.Chat(ctx, ChatRequest{
		Email:          owner,
		ConversationID: "c1",
		Messages:       userTurn("count"),
		Provider:       "openai",
	}, func(chunk string) error {
		streamed = append(streamed, chunk)
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one "}, streamed)
	assert.Equal(t, "one two three", result.Reply.Content)

	messages, err := h.conversations.GetConversation(context.Background(), owner, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "one two three", messages[1].Content)
}

func TestChatProviderFailureKeepsUserMessage(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderOpenAI, err: errors.New("upstream returned 502")})
	ctx := context.Background()

	_, err := h.relay.Chat(ctx, ChatRequest{
		Email:          owner,
		ConversationID: "c1",
		Messages:       userTurn("hello"),
		Provider:       "openai",
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrProvider)

	messages, err := h.conversations.GetConversation(ctx, owner, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
}

func TestChatRecordsFallbackModel(t *testing.T) {
	conversations := NewConversationUsecase(repository.NewConversationRepository(docstore.NewMemoryStore()))
	registry := &ai.Registry{}
	registry.Register(&fakeProvider{name: ai.ProviderOpenAI, err: errors.New("openai status 429: quota exceeded")})
	registry.Register(&fakeProvider{name: ai.ProviderGemini, chunks: []string{"from ", "gemini"}})
	registry.SetFallback(ai.ProviderGemini)
	relay := NewChatRelay(conversations, registry, time.Second)
	ctx := context.Background()

	result, err := relay.Chat(ctx, ChatRequest{
		Email:          owner,
		ConversationID: "c1",
		Messages:       userTurn("hello"),
		Provider:       "openai",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", result.Provider)
	assert.Equal(t, "gemini-test", result.Model)
	assert.Equal(t, "gemini-test", result.Reply.Model)

	messages, err := conversations.GetConversation(ctx, owner, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "from gemini", messages[1].Content)
	assert.Equal(t, "gemini-test", messages[1].Model)
}

func TestChatValidation(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderOpenAI, chunks: []string{"x"}})

	cases := map[string]ChatRequest{
		"no messages":         {Email: owner, ConversationID: "c1", Provider: "openai"},
		"assistant last":      {Email: owner, ConversationID: "c1", Provider: "openai", Messages: []ai.Message{{Role: "assistant", Content: "hi"}}},
		"blank user message":  {Email: owner, ConversationID: "c1", Provider: "openai", Messages: userTurn("  ")},
		"missing email":       {ConversationID: "c1", Provider: "openai", Messages: userTurn("hi")},
		"slash in email":      {Email: "a/b@example.com", ConversationID: "c1", Provider: "openai", Messages: userTurn("hi")},
		"missing id":          {Email: owner, Provider: "openai", Messages: userTurn("hi")},
		"unknown provider":    {Email: owner, ConversationID: "c1", Provider: "claude", Messages: userTurn("hi")},
		"unconfigured":        {Email: owner, ConversationID: "c1", Provider: "mindsdb", Messages: userTurn("hi")},
		"bad role in history": {Email: owner, ConversationID: "c1", Provider: "openai", Messages: []ai.Message{{Role: "tool", Content: "x"}, {Role: "user", Content: "hi"}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.relay.Chat(context.Background(), req, nil)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	list, err := h.conversations.ListConversations(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGenerateName(t *testing.T) {
	p := &fakeProvider{name: ai.ProviderOpenAI, chunks: []string{"\"Billing stage split.\"\nextra"}}
	h := newRelayHarness(p)
	ctx := context.Background()

	_, err := h.relay.Chat(ctx, ChatRequest{
		Email: owner, ConversationID: "c1", Provider: "openai", Messages: userTurn("How do we split billing?"),
	}, nil)
	require.NoError(t, err)

	name, err := h.relay.GenerateName(ctx, owner, "c1", "openai")
	require.NoError(t, err)
	assert.Equal(t, "Billing stage split", name)

	list, err := h.conversations.ListConversations(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Billing stage split", list[0].Name)
}

func TestGenerateNameMissingConversation(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderOpenAI, chunks: []string{"x"}})
	_, err := h.relay.GenerateName(context.Background(), owner, "nope", "openai")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestConversationLifecycleWithIndexer(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderOpenAI, chunks: []string{"Use risk register."}})
	indexer := newFakeIndexer()
	h.conversations.SetIndexer(indexer)
	ctx := context.Background()

	result, err := h.relay.Chat(ctx, ChatRequest{
		Email: owner, ConversationID: "c1", Provider: "openai", Messages: userTurn("Where do we track risks?"),
	}, nil)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return indexer.count() == 2 }, time.Second, 10*time.Millisecond)

	indexer.hits = []chroma.Hit{
		{ConversationID: "c1", MessageID: result.Reply.ID, Distance: 0.12},
		{ConversationID: "gone", MessageID: "m1", Distance: 0.5},
	}
	results, err := h.conversations.Search(ctx, owner, "risk tracking", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Use risk register.", results[0].Message.Content)
	assert.Equal(t, "Where do we track risks?", results[0].ConversationName)

	require.NoError(t, h.conversations.RenameConversation(ctx, owner, "c1", "Risks"))
	require.NoError(t, h.conversations.DeleteConversation(ctx, owner, "c1"))
	assert.Eventually(t, func() bool {
		indexer.mu.Lock()
		defer indexer.mu.Unlock()
		return len(indexer.deleted) == 2
	}, time.Second, 10*time.Millisecond)

	_, err = h.conversations.GetConversation(ctx, owner, "c1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, h.conversations.DeleteConversation(ctx, owner, "c1"), apperror.ErrNotFound)
	assert.ErrorIs(t, h.conversations.RenameConversation(ctx, owner, "c1", "x"), apperror.ErrNotFound)
}

func TestKeywordSearchWithoutIndexer(t *testing.T) {
	h := newRelayHarness(&fakeProvider{name: ai.ProviderOpenAI})
	ctx := context.Background()

	for _, m := range []domain.Message{
		{Role: domain.RoleSystem, Content: "You track risk registers."},
		{Role: domain.RoleUser, Content: "Who owns the risk register for billing?"},
		{Role: domain.RoleAssistant, Content: "The risk registr is owned by the PM."},
		{Role: domain.RoleUser, Content: "Schedule the deployment review."},
	} {
		_, err := h.conversations.AppendMessage(ctx, owner, "c1", m, "")
		require.NoError(t, err)
	}

	results, err := h.conversations.Search(ctx, owner, "risk register", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Who owns the risk register for billing?", results[0].Message.Content)
	assert.Equal(t, "c1", results[0].ConversationID)
	assert.Less(t, results[0].Distance, results[1].Distance)

	results, err = h.conversations.Search(ctx, "someone@example.com", "risk register", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = h.conversations.Search(ctx, owner, "  ", 5)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
