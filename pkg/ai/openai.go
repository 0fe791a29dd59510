package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider streams Chat Completions over SSE. Any server speaking the
// same protocol works by changing BaseURL.
type OpenAIProvider struct {
	name       ProviderType
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider for api.openai.com or a compatible base URL
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		name:       ProviderOpenAI,
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (o *OpenAIProvider) Name() ProviderType { return o.name }
func (o *OpenAIProvider) Model() string      { return o.model }

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenAIProvider) StreamChat(ctx context.Context, messages []Message, onDelta DeltaFunc) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":       o.model,
		"messages":    messages,
		"temperature": 0.7,
		"stream":      true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", o.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s status %d: %s", o.name, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var full strings.Builder
	forward := onDelta != nil
	finished := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			finished = true
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return full.String(), fmt.Errorf("%s stream error: %s", o.name, chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if reason := chunk.Choices[0].FinishReason; reason != nil && *reason != "" {
			finished = true
		}
		if chunk.Choices[0].Delta.Content == "" {
			continue
		}

		text := chunk.Choices[0].Delta.Content
		full.WriteString(text)
		if forward {
			if err := onDelta(text); err != nil {
				forward = false
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("%s stream read failed: %w", o.name, err)
	}
	// A body that closes without [DONE] or a finish_reason was cut off
	if !finished {
		return full.String(), fmt.Errorf("%s stream ended before completion: %w", o.name, io.ErrUnexpectedEOF)
	}
	if full.Len() == 0 {
		return "", ErrEmptyReply
	}
	return full.String(), nil
}
