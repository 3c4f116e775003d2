package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI calls the chat completions endpoint.
type OpenAI struct {
	URL    string
	Model  string
	apiKey string // unexported; never serialized by encoding/json
}

// NewOpenAI constructs an OpenAI generator.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{URL: defaultOpenAIURL, Model: model, apiKey: apiKey}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(openaiRequest{
		Model:    p.Model,
		Messages: []openaiMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		text, retry, err := p.generateOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retry {
			return "", err
		}
	}
	return "", lastErr
}

func (p *OpenAI) generateOnce(ctx context.Context, body []byte) (text string, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", false, fmt.Errorf("reading response body: %w", err)
	}

	var out openaiResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", false, fmt.Errorf("parsing response JSON (HTTP %d, body: %s): %w", resp.StatusCode, truncate(string(respBytes), 200), err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", retryable(resp.StatusCode), fmt.Errorf("openai: %s: %s", out.Error.Type, out.Error.Message)
		}
		return "", retryable(resp.StatusCode), fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, truncate(string(respBytes), 200))
	}
	if len(out.Choices) == 0 {
		return "", false, fmt.Errorf("openai: empty choices in response")
	}
	return out.Choices[0].Message.Content, false, nil
}
