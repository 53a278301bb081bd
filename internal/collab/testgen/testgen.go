// Package testgen synthesizes the labelled test_cases a GEPA run scores
// candidates against, when a human-authored set isn't available. Grounded
// on the teacher's internal/compaction.Summarizer: a narrow
// single-method interface wrapping an LLM text-completion call, with the
// prompt a text/template and the response parsed back into structured Go
// values rather than consumed as prose.
package testgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/pkg/gepa"
)

// Generator synthesizes n labelled test cases for a tool inventory.
type Generator interface {
	Generate(ctx context.Context, tools []gepa.Tool, n int) ([]gepa.TestCase, error)
}

const defaultMaxOutputTokens = 2048

var generatePrompt = template.Must(template.New("testgen").Parse(
	`You are generating evaluation data for a tool-selection system.

Given the following tools:
{{range .Tools}}
- name: {{.Name}}
  description: {{.Description}}
{{end}}

Write {{.Count}} realistic user queries, each of which should unambiguously
trigger exactly one of the tools above. Vary phrasing and topic.

Respond with a JSON array only, no prose, where each element has the shape:
{"query": "...", "expected_tool_name": "..."}
`))

// LLMGenerator generates test cases via a gateway.Gateway text-completion
// call, using the same deterministic (temperature 0) gateway a run's
// evaluator and mutator use.
type LLMGenerator struct {
	gw    gateway.Gateway
	model string
}

// NewLLMGenerator builds a Generator backed by gw, using model for the
// completion call.
func NewLLMGenerator(gw gateway.Gateway, model string) *LLMGenerator {
	return &LLMGenerator{gw: gw, model: model}
}

type generatedCase struct {
	Query            string `json:"query"`
	ExpectedToolName string `json:"expected_tool_name"`
}

// Generate prompts the gateway for n candidate queries and labels, dropping
// any whose expected_tool_name doesn't match a tool actually in the
// inventory (a hallucinated label would otherwise poison every run that
// scores against it).
func (g *LLMGenerator) Generate(ctx context.Context, tools []gepa.Tool, n int) ([]gepa.TestCase, error) {
	if n <= 0 {
		return nil, nil
	}
	prompt, err := renderPrompt(tools, n)
	if err != nil {
		return nil, fmt.Errorf("testgen: rendering prompt: %w", err)
	}

	raw, err := g.gw.TextCompletion(ctx, g.model, prompt, defaultMaxOutputTokens)
	if err != nil {
		return nil, fmt.Errorf("testgen: generating test cases: %w", err)
	}

	var generated []generatedCase
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &generated); err != nil {
		return nil, fmt.Errorf("testgen: parsing generated test cases: %w", err)
	}

	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}

	cases := make([]gepa.TestCase, 0, len(generated))
	for i, g := range generated {
		if !known[g.ExpectedToolName] || strings.TrimSpace(g.Query) == "" {
			continue
		}
		cases = append(cases, gepa.TestCase{
			ID:               fmt.Sprintf("generated-%d", i+1),
			Query:            g.Query,
			ExpectedToolName: g.ExpectedToolName,
		})
	}
	return cases, nil
}

func renderPrompt(tools []gepa.Tool, n int) (string, error) {
	var sb strings.Builder
	err := generatePrompt.Execute(&sb, struct {
		Tools []gepa.Tool
		Count int
	}{Tools: tools, Count: n})
	return sb.String(), err
}

// extractJSONArray trims any leading/trailing prose a model adds around the
// requested JSON array, returning the substring from the first '[' to the
// last ']'.
func extractJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
