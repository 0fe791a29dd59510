package ai

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
)

// Config holds AI provider configuration
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string

	MindsDBBaseURL string
	MindsDBAPIKey  string
	MindsDBModel   string

	// Fallback names the provider used when the requested one is unreachable
	Fallback ProviderType
}

// Registry holds the configured providers by name
type Registry struct {
	providers map[ProviderType]ChatProvider
	fallback  ProviderType
}

// NewRegistry creates every provider that has credentials in cfg.
// Providers without credentials are skipped.
func NewRegistry(ctx context.Context, cfg Config) (*Registry, error) {
	r := &Registry{
		providers: make(map[ProviderType]ChatProvider),
		fallback:  cfg.Fallback,
	}

	if cfg.OpenAIAPIKey != "" {
		r.Register(NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		r.Register(gemini)
	}
	if cfg.MindsDBBaseURL != "" {
		r.Register(NewMindsDBProvider(cfg.MindsDBAPIKey, cfg.MindsDBBaseURL, cfg.MindsDBModel))
	}

	log.Printf("[AI] Providers configured: %v (fallback=%q)", r.Names(), r.fallback)
	return r, nil
}

// Register adds or replaces a provider
func (r *Registry) Register(p ChatProvider) {
	if r.providers == nil {
		r.providers = make(map[ProviderType]ChatProvider)
	}
	r.providers[p.Name()] = p
}

// SetFallback sets the provider tried when the requested one is unreachable
func (r *Registry) SetFallback(name ProviderType) {
	r.fallback = name
}

// Get returns the named provider, wrapped with the fallback provider when
// one is configured
func (r *Registry) Get(name string) (ChatProvider, error) {
	pt := ProviderType(strings.ToLower(strings.TrimSpace(name)))
	switch pt {
	case ProviderOpenAI, ProviderGemini, ProviderMindsDB:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	p, ok := r.providers[pt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, pt)
	}
	if fb, ok := r.providers[r.fallback]; ok && r.fallback != pt {
		return NewFallbackProvider(p, fb), nil
	}
	return p, nil
}

// Names lists configured providers
func (r *Registry) Names() []ProviderType {
	names := make([]ProviderType, 0, len(r.providers))
	for _, n := range []ProviderType{ProviderOpenAI, ProviderGemini, ProviderMindsDB} {
		if _, ok := r.providers[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Close releases providers that hold client connections
func (r *Registry) Close() error {
	var firstErr error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
