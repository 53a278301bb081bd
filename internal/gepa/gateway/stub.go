package gateway

import (
	"context"
	"strings"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// KeywordStub is a deterministic, in-memory Gateway used by tests and by
// the scenarios in spec.md §8 (S1/S2). ToolSelection picks whichever tool
// has the most case-insensitive keyword overlap between its description
// and the query; ties are broken to the first tool in candidate order, so
// an all-identical-description inventory deterministically always picks
// tools[0] (S2's baseline-accuracy-0 behavior). TextCompletion is driven by
// a caller-supplied function so mutation-directed tests can control the
// rewritten description without a real LLM call.
type KeywordStub struct {
	// Complete answers text_completion calls. If nil, TextCompletion
	// returns the prompt unchanged (useful for tests that only exercise
	// ToolSelection).
	Complete func(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error)
}

func (s *KeywordStub) Name() string { return "stub" }

func (s *KeywordStub) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (ToolSelectionResult, error) {
	if len(tools) == 0 {
		return ToolSelectionResult{}, nil
	}
	q := strings.ToLower(query)
	bestIdx := 0
	bestScore := -1
	for i, t := range tools {
		score := overlapScore(q, strings.ToLower(t.Description))
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return ToolSelectionResult{SelectedToolName: tools[bestIdx].Name}, nil
}

func (s *KeywordStub) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	if s.Complete != nil {
		return s.Complete(ctx, model, prompt, maxOutputTokens)
	}
	return prompt, nil
}

// overlapScore counts how many whitespace-delimited words of description
// appear as a substring of query. Ties score 0 for an empty description.
func overlapScore(query, description string) int {
	score := 0
	for _, word := range strings.Fields(description) {
		if len(word) < 3 {
			continue
		}
		if strings.Contains(query, word) {
			score++
		}
	}
	return score
}
