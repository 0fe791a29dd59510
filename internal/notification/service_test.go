package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pmchat-backend/internal/notification/domain"
	"pmchat-backend/pkg/events"
	"pmchat-backend/pkg/fcm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]domain.DeviceToken
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: map[string]domain.DeviceToken{}}
}

func (m *memoryTokens) SaveToken(ctx context.Context, email, token, deviceInfo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = domain.DeviceToken{ID: token, Email: email, Token: token, DeviceInfo: deviceInfo}
	return nil
}

func (m *memoryTokens) GetTokensByEmail(ctx context.Context, email string) ([]domain.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DeviceToken
	for _, t := range m.tokens {
		if t.Email == email {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTokens) DeleteToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memoryTokens) DeleteTokensByEmail(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.Email == email {
			delete(m.tokens, k)
		}
	}
	return nil
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []fcm.NotificationData
	reject map[string]bool
	err    error
}

func (r *recordingSender) SendToDevices(ctx context.Context, tokens []string, n fcm.NotificationData) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, n)
	var failed []string
	for _, t := range tokens {
		if r.reject[t] {
			failed = append(failed, t)
		}
	}
	return failed, nil
}

func TestNotifyUserDropsRejectedTokens(t *testing.T) {
	tokens := newMemoryTokens()
	ctx := context.Background()
	require.NoError(t, tokens.SaveToken(ctx, "dev@example.com", "good", "Chrome"))
	require.NoError(t, tokens.SaveToken(ctx, "dev@example.com", "stale", "Firefox"))
	require.NoError(t, tokens.SaveToken(ctx, "other@example.com", "other", "Safari"))

	sender := &recordingSender{reject: map[string]bool{"stale": true}}
	svc := NewService(tokens, sender)

	sent, err := svc.NotifyUser(ctx, "dev@example.com", fcm.NotificationData{Title: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	left, err := tokens.GetTokensByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "good", left[0].Token)
}

func TestNotifyUserWithoutDevices(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(newMemoryTokens(), sender)

	sent, err := svc.NotifyUser(context.Background(), "dev@example.com", fcm.NotificationData{Title: "hi"})
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, sender.sent)
}

func TestNotifyUserSendError(t *testing.T) {
	tokens := newMemoryTokens()
	require.NoError(t, tokens.SaveToken(context.Background(), "dev@example.com", "good", ""))
	svc := NewService(tokens, &recordingSender{err: errors.New("quota")})

	_, err := svc.NotifyUser(context.Background(), "dev@example.com", fcm.NotificationData{})
	assert.Error(t, err)
}

func TestHandleEvent(t *testing.T) {
	tokens := newMemoryTokens()
	ctx := context.Background()
	require.NoError(t, tokens.SaveToken(ctx, "dev@example.com", "good", ""))
	sender := &recordingSender{}
	svc := NewService(tokens, sender)

	require.NoError(t, svc.HandleEvent(ctx, events.TaskEvent{
		Type: events.TaskCreated, TaskID: "T1", Title: "Design invoices", Assignee: "dev@example.com", Status: "todo",
	}))
	require.NoError(t, svc.HandleEvent(ctx, events.TaskEvent{Type: events.TaskDeleted, TaskID: "T1", Assignee: "dev@example.com"}))
	require.NoError(t, svc.HandleEvent(ctx, events.TaskEvent{Type: events.TaskUpdated, TaskID: "T2"}))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "New task assigned: Design invoices", sender.sent[0].Title)
	assert.Equal(t, "T1", sender.sent[0].Data["taskId"])
	assert.Equal(t, "/tasks/T1", sender.sent[0].ClickAction)
}

func TestStartConsumesLocalBus(t *testing.T) {
	tokens := newMemoryTokens()
	require.NoError(t, tokens.SaveToken(context.Background(), "dev@example.com", "good", ""))
	sender := &recordingSender{}
	svc := NewService(tokens, sender)

	bus := events.NewLocalBus(10)
	done := make(chan struct{})
	go func() {
		svc.Start(context.Background(), bus)
		close(done)
	}()

	require.NoError(t, bus.Publish(context.Background(), events.TaskEvent{
		Type: events.TaskUpdated, TaskID: "T1", Title: "x", Assignee: "dev@example.com",
	}))
	require.NoError(t, bus.Close())
	<-done

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.sent, 1)
}
