// Package extractor turns free text into discrete, numbered compliance
// requirements, either by pattern matching or with model assistance.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"policyaudit/llm"
	"policyaudit/schema"
)

// ErrEmptyInput is returned when the input text is blank.
var ErrEmptyInput = errors.New("extractor: input text cannot be empty")

// ErrMalformedResponse is returned when the model output is not a JSON array
// of requirement objects. It is fatal for the extraction request.
var ErrMalformedResponse = errors.New("extractor: malformed model response")

var numberedQuestionRe = regexp.MustCompile(`(?s)\d+\.\s*(.+?\?)`)

// questionWords is the lexicon accepted as evidence that a candidate without
// a question mark is still a question.
var questionWords = []string{
	"what", "how", "when", "where", "why", "who", "which",
	"do", "does", "did", "is", "are", "was", "were",
	"can", "could", "should", "would", "will",
}

// ExtractNumbered scans text for lines beginning with an integer followed by
// a period and ending in a question mark, spanning multiple lines when
// needed. Each match is whitespace-normalized and assigned a sequential
// 1-based id in order of appearance.
func ExtractNumbered(text string) []schema.Requirement {
	matches := numberedQuestionRe.FindAllStringSubmatch(text, -1)
	out := make([]schema.Requirement, 0, len(matches))
	for i, m := range matches {
		out = append(out, schema.Requirement{
			ID:          i + 1,
			Requirement: strings.Join(strings.Fields(m[1]), " "),
		})
	}
	return out
}

const extractPrompt = `You are an expert compliance officer tasked with extracting audit and compliance questions from text.

Please analyze the following text and extract ALL audit or compliance related questions.
Focus on questions that would be relevant for:
- Regulatory compliance audits
- Internal compliance reviews
- Risk assessments
- Policy adherence checks
- Control testing
- Governance reviews

Return ONLY a valid JSON array with objects in this exact format:
[{"id": 1, "requirement": "What is the company's policy on data retention?"}]

Rules:
- Extract questions as they appear in the text, don't rephrase them
- Include the question mark if present in the original text
- Number questions sequentially starting from 1
- Only include actual questions, not statements
- If no questions are found, return an empty array []
- Do NOT include any explanation or additional text, only the JSON array

Text to analyze:
%s`

// Extractor extracts compliance requirements with model assistance.
type Extractor struct {
	generator llm.Generator
}

// New constructs a model-assisted Extractor.
func New(generator llm.Generator) *Extractor {
	return &Extractor{generator: generator}
}

// Extract sends the whole input text to the language model and parses the
// returned JSON array. Entries that do not look like questions are dropped
// and the survivors renumbered; a response that is not a JSON array fails
// with ErrMalformedResponse.
func (e *Extractor) Extract(ctx context.Context, text string) ([]schema.Requirement, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	raw, err := e.generator.Generate(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("extract requirements: %w", err)
	}
	var candidates []struct {
		ID          int    `json:"id"`
		Requirement string `json:"requirement"`
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), &candidates); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out := make([]schema.Requirement, 0, len(candidates))
	for _, c := range candidates {
		if !looksLikeQuestion(c.Requirement) {
			continue
		}
		out = append(out, schema.Requirement{
			ID:          len(out) + 1,
			Requirement: strings.TrimSpace(c.Requirement),
		})
	}
	return out, nil
}

// Deterministic extracts numbered questions by pattern matching only, with
// no model call.
type Deterministic struct{}

func (Deterministic) Extract(ctx context.Context, text string) ([]schema.Requirement, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return ExtractNumbered(text), nil
}

// StripFences removes a markdown code-fence wrapper from model output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func looksLikeQuestion(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if strings.Contains(text, "?") {
		return true
	}
	first := strings.ToLower(strings.Fields(text)[0])
	for _, w := range questionWords {
		if first == w {
			return true
		}
	}
	return false
}
