// Package adjudicator decides whether one requirement is met by one candidate
// policy+procedure text, citing verbatim evidence when it is.
package adjudicator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"policyaudit/extractor"
	"policyaudit/llm"
	"policyaudit/schema"
)

const checkPrompt = `You are an expert compliance officer.

You are given:
1. A policy and procedure text.
2. A requirement that the policy must fulfill.

Your task:
- Determine if the requirement is **met** based on the policy text.
- If it is met, **quote the exact sentence(s)** from the text that serve as evidence.
- If not, explain briefly why it is not met.
- Always be objective and base your answer only on the given text.

---

**Requirement:**
%s

**Policy + Procedure Text:**
"""%s"""

Respond in JSON with the following keys:
- "is_met": true or false
- "citation": exact quoted text if met (if any)
- "explanation": brief reasoning if not met (if any)`

// Adjudicator runs the single-shot met/not-met check.
type Adjudicator struct {
	generator llm.Generator
}

// New constructs an Adjudicator.
func New(generator llm.Generator) *Adjudicator {
	return &Adjudicator{generator: generator}
}

// Check asks the model whether the requirement is met by the candidate text.
// A transport or API failure is returned as an error; a response the model
// produced but that cannot be parsed degrades to an unknown verdict instead,
// so a single misbehaving completion never fails the audit of a requirement.
func (a *Adjudicator) Check(ctx context.Context, candidateText, requirement string) (schema.Verdict, error) {
	raw, err := a.generator.Generate(ctx, fmt.Sprintf(checkPrompt, requirement, candidateText))
	if err != nil {
		return schema.Verdict{}, fmt.Errorf("adjudicate requirement: %w", err)
	}
	return parseVerdict(raw), nil
}

func parseVerdict(raw string) schema.Verdict {
	cleaned := extractor.StripFences(raw)
	var decoded struct {
		IsMet       *bool  `json:"is_met"`
		Citation    string `json:"citation"`
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return schema.Verdict{}
	}
	return schema.Verdict{
		IsMet:       decoded.IsMet,
		Citation:    strings.TrimSpace(decoded.Citation),
		Explanation: strings.TrimSpace(decoded.Explanation),
	}
}
