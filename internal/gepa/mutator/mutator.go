// Package mutator implements the Reflective Mutator (C5): produces a new
// candidate by rewriting one tool's description via an LLM reflection
// prompt, either failure-directed or conciseness-directed (spec.md §4.5).
package mutator

import (
	"context"
	"strings"
	"text/template"

	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/internal/gepa/gepaprng"
	"github.com/gepa-project/gepa/internal/gepa/rategate"
	"github.com/gepa-project/gepa/pkg/gepa"
)

const maxFailureDirectedLength = 200

var failurePrompt = template.Must(template.New("failure").Parse(
	`A tool named "{{.ToolName}}" is presented to a language model alongside other tools so it can pick the right one for a user's query.

Current description of "{{.ToolName}}": {{.CurrentDescription}}

Other tools available:
{{range .OtherTools}}- {{.Name}}: {{.Description}}
{{end}}
For the query "{{.Query}}" the model should have selected "{{.ExpectedTool}}" but instead selected "{{.SelectedTool}}".

Rewrite the description of "{{.ToolName}}" so that it is clearly disambiguated from the other tools above for queries like this one. Reply with only the new description, at most 200 characters.`))

var concisenessPrompt = template.Must(template.New("conciseness").Parse(
	`The description of the tool "{{.ToolName}}" is:

{{.CurrentDescription}}

Rewrite it to be shorter, at most {{.TargetLength}} characters, while preserving its meaning. Reply with only the new description.`))

// Mutator produces offspring candidates via a single reflective LLM call.
type Mutator struct {
	gw   gateway.Gateway
	gate *rategate.Gate
}

// New creates a Mutator bound to gw and gate.
func New(gw gateway.Gateway, gate *rategate.Gate) *Mutator {
	return &Mutator{gw: gw, gate: gate}
}

// Mutate produces an offspring candidate identical to parent except for one
// tool's rewritten description. On a ProviderError from the gateway, it
// returns a no-op mutation: a new candidate id with parent's descriptions
// unchanged, which still consumes a mutation slot per spec.md §4.5.
func (m *Mutator) Mutate(ctx context.Context, parent gepa.EvaluatedCandidate, testCases []gepa.TestCase, model string, newID string, rng *gepaprng.Rand, emitter *gepa.Emitter) (gepa.Candidate, error) {
	failing := parent.FailingResults()
	if len(failing) > 0 {
		return m.mutateFailureDirected(ctx, parent, failing, testCases, model, newID, rng, emitter)
	}
	return m.mutateConcisenessDirected(ctx, parent, model, newID, rng, emitter)
}

func (m *Mutator) mutateFailureDirected(ctx context.Context, parent gepa.EvaluatedCandidate, failing []gepa.EvalResult, testCases []gepa.TestCase, model, newID string, rng *gepaprng.Rand, emitter *gepa.Emitter) (gepa.Candidate, error) {
	failure := failing[rng.IntN(len(failing))]

	tool, ok := parent.Candidate.ToolByName(failure.ExpectedToolName)
	if !ok {
		return noOp(parent.Candidate, newID), nil
	}

	if emitter != nil {
		f := failure
		emitter.ReflectionStart(gepa.ReflectionPayload{CandidateID: parent.Candidate.ID, Tool: tool.Name, Failure: &f})
	}

	query := queryFor(testCases, failure.TestCaseID)
	prompt, err := renderFailurePrompt(tool, parent.Candidate, failure, query)
	if err != nil {
		return noOp(parent.Candidate, newID), nil
	}

	newDesc, err := m.complete(ctx, model, prompt)
	if err != nil {
		return noOp(parent.Candidate, newID), nil
	}
	newDesc = clip(strings.TrimSpace(newDesc), maxFailureDirectedLength)

	if emitter != nil {
		emitter.ReflectionDone(gepa.ReflectionPayload{CandidateID: parent.Candidate.ID, Tool: tool.Name, OldDesc: tool.Description, NewDesc: newDesc})
	}

	return parent.Candidate.WithToolDescription(newID, tool.Name, newDesc), nil
}

func (m *Mutator) mutateConcisenessDirected(ctx context.Context, parent gepa.EvaluatedCandidate, model, newID string, rng *gepaprng.Rand, emitter *gepa.Emitter) (gepa.Candidate, error) {
	if len(parent.Candidate.Tools) == 0 {
		return noOp(parent.Candidate, newID), nil
	}
	tool := parent.Candidate.Tools[rng.IntN(len(parent.Candidate.Tools))]

	if emitter != nil {
		emitter.ReflectionStart(gepa.ReflectionPayload{CandidateID: parent.Candidate.ID, Tool: tool.Name})
	}

	target := len(tool.Description) * 3 / 4
	if target < 50 {
		target = 50
	}

	var sb strings.Builder
	err := concisenessPrompt.Execute(&sb, struct {
		ToolName            string
		CurrentDescription  string
		TargetLength        int
	}{tool.Name, tool.Description, target})
	if err != nil {
		return noOp(parent.Candidate, newID), nil
	}

	newDesc, err := m.complete(ctx, model, sb.String())
	if err != nil {
		return noOp(parent.Candidate, newID), nil
	}
	newDesc = strings.TrimSpace(newDesc)

	if emitter != nil {
		emitter.ReflectionDone(gepa.ReflectionPayload{CandidateID: parent.Candidate.ID, Tool: tool.Name, OldDesc: tool.Description, NewDesc: newDesc})
	}

	return parent.Candidate.WithToolDescription(newID, tool.Name, newDesc), nil
}

func (m *Mutator) complete(ctx context.Context, model, prompt string) (string, error) {
	release, err := m.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return m.gw.TextCompletion(ctx, model, prompt, 256)
}

func renderFailurePrompt(tool gepa.Tool, candidate gepa.Candidate, failure gepa.EvalResult, query string) (string, error) {
	type otherTool struct{ Name, Description string }
	var others []otherTool
	for _, t := range candidate.Tools {
		if t.Name != tool.Name {
			others = append(others, otherTool{t.Name, t.Description})
		}
	}

	selected := failure.SelectedToolNameOrNull
	if selected == "" {
		selected = "(no tool; the model replied with plain text)"
	}

	var sb strings.Builder
	err := failurePrompt.Execute(&sb, struct {
		ToolName            string
		CurrentDescription  string
		OtherTools          []otherTool
		Query               string
		ExpectedTool        string
		SelectedTool        string
	}{
		ToolName:           tool.Name,
		CurrentDescription: tool.Description,
		OtherTools:         others,
		Query:              query,
		ExpectedTool:       failure.ExpectedToolName,
		SelectedTool:       selected,
	})
	return sb.String(), err
}

func queryFor(testCases []gepa.TestCase, testCaseID string) string {
	for _, tc := range testCases {
		if tc.ID == testCaseID {
			return tc.Query
		}
	}
	return ""
}

func noOp(parent gepa.Candidate, newID string) gepa.Candidate {
	tools := make([]gepa.Tool, len(parent.Tools))
	copy(tools, parent.Tools)
	return gepa.Candidate{ID: newID, Tools: tools}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
