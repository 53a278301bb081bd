package eval

import (
	"context"
	"testing"

	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/internal/gepa/gepaprng"
	"github.com/gepa-project/gepa/internal/gepa/rategate"
	"github.com/gepa-project/gepa/pkg/gepa"
)

func weatherMathCandidate() gepa.Candidate {
	return gepa.Candidate{
		ID: "baseline",
		Tools: []gepa.Tool{
			{Name: "weather", Description: "reports current temperature and forecast for a city"},
			{Name: "math", Description: "computes arithmetic expressions"},
		},
	}
}

func weatherMathTestCases() []gepa.TestCase {
	return []gepa.TestCase{
		{ID: "1", Query: "what is the temperature in Paris", ExpectedToolName: "weather"},
		{ID: "2", Query: "compute 2+2", ExpectedToolName: "math"},
	}
}

func TestEvaluateCandidateComputesAccuracy(t *testing.T) {
	e := New(&gateway.KeywordStub{}, rategate.New(3))
	ec, err := e.EvaluateCandidate(context.Background(), weatherMathCandidate(), weatherMathTestCases(), "stub-model", nil)
	if err != nil {
		t.Fatalf("EvaluateCandidate: %v", err)
	}
	if ec.Accuracy != 1.0 {
		t.Fatalf("Accuracy = %f, want 1.0", ec.Accuracy)
	}
	if len(ec.Evaluations) != 2 {
		t.Fatalf("len(Evaluations) = %d, want 2", len(ec.Evaluations))
	}
}

func TestEvaluateCandidateEmitsEvaluationEvents(t *testing.T) {
	var events []gepa.Event
	emitter := gepa.NewEmitter("run-1", gepa.SinkFunc(func(e gepa.Event) { events = append(events, e) }))
	e := New(&gateway.KeywordStub{}, rategate.New(3))
	_, err := e.EvaluateCandidate(context.Background(), weatherMathCandidate(), weatherMathTestCases(), "stub-model", emitter)
	if err != nil {
		t.Fatalf("EvaluateCandidate: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.Type != gepa.EventEvaluation || e.Evaluation == nil {
			t.Fatalf("unexpected event: %+v", e)
		}
	}
}

func TestEvaluateSubsampleCapsAtTestCaseCount(t *testing.T) {
	e := New(&gateway.KeywordStub{}, rategate.New(3))
	rng := gepaprng.New(1)
	subsample, ec, err := e.EvaluateSubsample(context.Background(), weatherMathCandidate(), weatherMathTestCases(), "stub-model", 10, rng, nil)
	if err != nil {
		t.Fatalf("EvaluateSubsample: %v", err)
	}
	if len(subsample) != 2 {
		t.Fatalf("len(subsample) = %d, want 2 (capped)", len(subsample))
	}
	if ec.Accuracy != 1.0 {
		t.Fatalf("Accuracy = %f, want 1.0", ec.Accuracy)
	}
}

func TestParentScoreOnSubsampleReadsCache(t *testing.T) {
	parent := gepa.EvaluatedCandidate{
		Evaluations: []gepa.EvalResult{
			{TestCaseID: "1", Correct: true},
			{TestCaseID: "2", Correct: false},
		},
	}
	subsample := []gepa.TestCase{{ID: "1"}, {ID: "2"}}
	if got := ParentScoreOnSubsample(parent, subsample); got != 0.5 {
		t.Fatalf("ParentScoreOnSubsample = %f, want 0.5", got)
	}
}

type erroringGateway struct{}

func (erroringGateway) Name() string { return "erroring" }
func (erroringGateway) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (gateway.ToolSelectionResult, error) {
	return gateway.ToolSelectionResult{}, context.DeadlineExceeded
}
func (erroringGateway) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	return "", context.DeadlineExceeded
}

func TestEvaluateCandidateDegradesCancellationToIncorrectRatherThanError(t *testing.T) {
	e := New(&gateway.KeywordStub{}, rategate.New(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ec, err := e.EvaluateCandidate(ctx, weatherMathCandidate(), weatherMathTestCases(), "stub-model", nil)
	if err != nil {
		t.Fatalf("EvaluateCandidate should not propagate ctx cancellation as an error: %v", err)
	}
	if ec.Accuracy != 0 {
		t.Fatalf("Accuracy = %f, want 0 (every gate acquire lost to the already-cancelled ctx)", ec.Accuracy)
	}
	if len(ec.Evaluations) != len(weatherMathTestCases()) {
		t.Fatalf("len(Evaluations) = %d, want %d", len(ec.Evaluations), len(weatherMathTestCases()))
	}
}

func TestEvaluateCandidateDegradesGatewayErrorToIncorrect(t *testing.T) {
	e := New(erroringGateway{}, rategate.New(3))
	ec, err := e.EvaluateCandidate(context.Background(), weatherMathCandidate(), weatherMathTestCases(), "stub-model", nil)
	if err != nil {
		t.Fatalf("EvaluateCandidate should not propagate gateway errors: %v", err)
	}
	if ec.Accuracy != 0 {
		t.Fatalf("Accuracy = %f, want 0 (all gateway calls errored)", ec.Accuracy)
	}
	for _, r := range ec.Evaluations {
		if r.Correct {
			t.Fatal("expected every result to be incorrect on gateway error")
		}
	}
}
