// Package gepa provides the domain types shared by the GEPA (Genetic-Pareto)
// tool-description optimizer: tools, test cases, candidates, evaluation
// results, and the progress-event contract that drives replay and live
// streaming.
package gepa

import "encoding/json"

// Tool is a callable function exposed to an LLM. Name is unique within a
// run; Description is the only field the optimizer ever rewrites.
type Tool struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	ServerID    string          `json:"server_id,omitempty"`
}

// TestCase is a natural-language query labelled with the single tool that
// should be invoked. Immutable for the duration of a run.
type TestCase struct {
	ID                 string `json:"id"`
	Query              string `json:"query"`
	ExpectedToolName   string `json:"expected_tool_name"`
}

// Candidate is an ordered collection of Tools representing one alternative
// description assignment. Two candidates differ only in Description fields.
// Immutable once created.
type Candidate struct {
	ID    string `json:"id"`
	Tools []Tool `json:"tools"`
}

// ToolByName returns the tool with the given name, or false if absent.
func (c Candidate) ToolByName(name string) (Tool, bool) {
	for _, t := range c.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// AvgDescriptionLength is the per-candidate mean description length across
// its tools. Returns 0 for a candidate with no tools.
func (c Candidate) AvgDescriptionLength() float64 {
	if len(c.Tools) == 0 {
		return 0
	}
	total := 0
	for _, t := range c.Tools {
		total += len(t.Description)
	}
	return float64(total) / float64(len(c.Tools))
}

// WithToolDescription returns a copy of the candidate with a new ID and the
// named tool's description replaced. The original candidate is untouched.
func (c Candidate) WithToolDescription(newID, toolName, newDescription string) Candidate {
	tools := make([]Tool, len(c.Tools))
	copy(tools, c.Tools)
	for i := range tools {
		if tools[i].Name == toolName {
			tools[i].Description = newDescription
			break
		}
	}
	return Candidate{ID: newID, Tools: tools}
}

// EvalResult records the outcome of running one candidate against one test
// case. Correct is true iff the selected tool name matches the expected one.
type EvalResult struct {
	TestCaseID             string `json:"test_case_id"`
	SelectedToolNameOrNull string `json:"selected_tool_name,omitempty"`
	ExpectedToolName       string `json:"expected_tool_name"`
	Correct                bool   `json:"correct"`
}

// EvaluatedCandidate is a Candidate plus its accuracy, conciseness signal,
// and full per-test-case evaluation record.
type EvaluatedCandidate struct {
	Candidate             Candidate    `json:"candidate"`
	Accuracy              float64      `json:"accuracy"`
	AvgDescriptionLength  float64      `json:"avg_description_length"`
	Evaluations           []EvalResult `json:"evaluations"`
}

// ResultFor returns the cached EvalResult for a test case id, if present.
func (e EvaluatedCandidate) ResultFor(testCaseID string) (EvalResult, bool) {
	for _, r := range e.Evaluations {
		if r.TestCaseID == testCaseID {
			return r, true
		}
	}
	return EvalResult{}, false
}

// FailingResults returns every EvalResult with Correct == false.
func (e EvaluatedCandidate) FailingResults() []EvalResult {
	var out []EvalResult
	for _, r := range e.Evaluations {
		if !r.Correct {
			out = append(out, r)
		}
	}
	return out
}

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SelectionPolicy chooses which parent-selection distribution the scheduler
// uses; exactly one is fixed at run configuration time.
type SelectionPolicy string

const (
	SelectionDominance    SelectionPolicy = "dominance"
	SelectionGlobalScore  SelectionPolicy = "global_score"
)

// RunConfig holds the scheduler's recognized configuration options (§6).
type RunConfig struct {
	MaxEvaluations           int             `json:"max_evaluations" yaml:"max_evaluations"`
	SubsampleSize            int             `json:"subsample_size" yaml:"subsample_size"`
	MaxConcurrentEvaluations int             `json:"max_concurrent_evaluations" yaml:"max_concurrent_evaluations"`
	EvaluationModel          string          `json:"evaluation_model" yaml:"evaluation_model"`
	GenerationModel          string          `json:"generation_model" yaml:"generation_model"`
	MinAccuracy              float64         `json:"min_accuracy" yaml:"min_accuracy"`
	AccuracyWeight           float64         `json:"accuracy_weight" yaml:"accuracy_weight"`
	SelectionTemperature     float64         `json:"selection_temperature" yaml:"selection_temperature"`
	SelectionPolicy          SelectionPolicy `json:"selection_policy" yaml:"selection_policy"`
	// Seed bootstraps the run-scoped PRNG (internal/gepa/gepaprng). Two runs
	// with the same Seed and the same deterministic gateway stub produce
	// identical archives and event sequences (R2).
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultRunConfig returns the spec's documented defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxEvaluations:           500,
		SubsampleSize:            5,
		MaxConcurrentEvaluations: 3,
		MinAccuracy:              0,
		AccuracyWeight:           0.5,
		SelectionTemperature:     1.0,
		SelectionPolicy:          SelectionGlobalScore,
	}
}

// Run describes one optimization run's lifecycle and accounting.
type Run struct {
	ID             string    `json:"id"`
	StartedAt      int64     `json:"started_at"` // unix nanos; caller stamps it
	Status         RunStatus `json:"status"`
	Config         RunConfig `json:"config"`
	MaxEvaluations int       `json:"max_evaluations"`
	SubsampleSize  int       `json:"subsample_size"`
	BudgetConsumed int       `json:"budget_consumed"`
}
