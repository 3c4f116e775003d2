// Package llm provides the language model capability used for requirement
// extraction and adjudication. Providers are stateless: each call carries the
// full prompt and the caller owns all response parsing.
package llm

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

// sharedHTTPClient is used by all providers; a 5-minute timeout covers slow
// model responses.
var sharedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
}

const (
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Generator is the narrow text-in/text-out contract over a language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewProvider parses a "provider:model" string and returns the matching
// Generator. API keys are read from the environment at construction time.
// Example: "gemini:gemini-flash-latest" or "openai:gpt-4o".
func NewProvider(providerModel string) (Generator, error) {
	parts := strings.SplitN(providerModel, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid model format %q: expected provider:model (e.g. gemini:gemini-flash-latest)", providerModel)
	}
	switch parts[0] {
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return NewGemini(apiKey, parts[1]), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return NewOpenAI(apiKey, parts[1]), nil
	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are gemini, openai", parts[0])
	}
}

// retryable reports whether an HTTP status warrants another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(d)))
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
