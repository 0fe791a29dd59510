package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider streams replies through a genai chat session
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider authenticated by API key
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() ProviderType { return ProviderGemini }
func (g *GeminiProvider) Model() string      { return g.model }

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

func (g *GeminiProvider) StreamChat(ctx context.Context, messages []Message, onDelta DeltaFunc) (string, error) {
	system, history, last, err := toGeminiContents(messages)
	if err != nil {
		return "", err
	}

	// A model per call: SystemInstruction is not safe to share
	model := g.client.GenerativeModel(g.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	session := model.StartChat()
	session.History = history

	var full strings.Builder
	forward := onDelta != nil
	iter := session.SendMessageStream(ctx, genai.Text(last))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream failed: %w", err)
		}

		text := responseText(resp)
		if text == "" {
			continue
		}
		full.WriteString(text)
		if forward {
			if err := onDelta(text); err != nil {
				forward = false
			}
		}
	}

	if full.Len() == 0 {
		return "", ErrEmptyReply
	}
	return full.String(), nil
}

// toGeminiContents splits a message list into the system instruction, the
// chat history and the final user turn
func toGeminiContents(messages []Message) (string, []*genai.Content, string, error) {
	var (
		system  []string
		history []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}

	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return "", nil, "", fmt.Errorf("gemini: conversation must end with a user message")
	}
	lastContent := history[len(history)-1]
	history = history[:len(history)-1]

	var last strings.Builder
	for _, part := range lastContent.Parts {
		if t, ok := part.(genai.Text); ok {
			last.WriteString(string(t))
		}
	}
	return strings.Join(system, "\n\n"), history, last.String(), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}
