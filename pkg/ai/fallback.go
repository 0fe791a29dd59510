package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
)

// FallbackProvider routes to primary and retries on secondary when primary
// is unreachable or out of quota before any text was streamed. Name and
// Model report the provider that answered the last StreamChat call, or
// primary before the first one. Registry.Get returns a new FallbackProvider
// per request.
type FallbackProvider struct {
	primary   ChatProvider
	secondary ChatProvider

	mu       sync.Mutex
	answered ChatProvider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(primary, secondary ChatProvider) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		answered:  primary,
	}
}

func (f *FallbackProvider) Name() ProviderType { return f.Answered().Name() }
func (f *FallbackProvider) Model() string      { return f.Answered().Model() }

// Answered returns the provider that served the last StreamChat call
func (f *FallbackProvider) Answered() ChatProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answered
}

func (f *FallbackProvider) setAnswered(p ChatProvider) {
	f.mu.Lock()
	f.answered = p
	f.mu.Unlock()
}

func (f *FallbackProvider) StreamChat(ctx context.Context, messages []Message, onDelta DeltaFunc) (string, error) {
	streamed := false
	track := func(chunk string) error {
		streamed = true
		if onDelta != nil {
			return onDelta(chunk)
		}
		return nil
	}

	f.setAnswered(f.primary)
	result, err := f.primary.StreamChat(ctx, messages, track)
	if err == nil {
		return result, nil
	}
	if streamed || f.secondary == nil || !(isConnectionError(err) || isQuotaError(err)) {
		return result, err
	}

	log.Printf("[AI] %s failed: %v, falling back to %s", f.primary.Name(), err, f.secondary.Name())
	f.setAnswered(f.secondary)
	result, err = f.secondary.StreamChat(ctx, messages, onDelta)
	if err != nil {
		return "", fmt.Errorf("%s fallback failed: %w", f.secondary.Name(), err)
	}
	return result, nil
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
