// Package eval implements the Evaluator (C2): run one candidate against a
// set of test cases through the LLM Gateway, under the concurrency gate,
// and produce an EvaluatedCandidate (spec.md §4.2). Fan-out shape mirrors
// the teacher's internal/agent/tool_exec.go concurrent tool dispatch,
// narrowed to a single gateway call per test case instead of a full tool
// execution pipeline.
package eval

import (
	"context"
	"sync"

	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/internal/gepa/gepaprng"
	"github.com/gepa-project/gepa/internal/gepa/rategate"
	"github.com/gepa-project/gepa/pkg/gepa"
)

// Evaluator runs candidates against test cases through a Gateway, fanning
// out one goroutine per test case bounded by a concurrency Gate.
type Evaluator struct {
	gw   gateway.Gateway
	gate *rategate.Gate
}

// New creates an Evaluator bound to gw and gate. Both must be non-nil.
func New(gw gateway.Gateway, gate *rategate.Gate) *Evaluator {
	return &Evaluator{gw: gw, gate: gate}
}

// EvaluateCandidate runs candidate against every test case in testCases
// under the model, emitting an evaluation event per test case. A gateway
// error or a null selection never aborts the run: it degrades to
// Correct=false, per spec.md §7's ProviderError containment rule. A
// cancelled ctx is handled the same way: Gate.Acquire can only fail because
// ctx is done, so an in-flight test case that loses the race against
// cancellation degrades to a null selection rather than aborting the whole
// evaluation. Cancellation itself is reported back to the caller only via
// ctx.Err(), never as a returned error.
func (e *Evaluator) EvaluateCandidate(ctx context.Context, candidate gepa.Candidate, testCases []gepa.TestCase, model string, emitter *gepa.Emitter) (gepa.EvaluatedCandidate, error) {
	results := make([]gepa.EvalResult, len(testCases))
	var wg sync.WaitGroup

	for i, tc := range testCases {
		wg.Add(1)
		go func(i int, tc gepa.TestCase) {
			defer wg.Done()
			release, err := e.gate.Acquire(ctx)
			if err != nil {
				results[i] = gepa.EvalResult{TestCaseID: tc.ID, ExpectedToolName: tc.ExpectedToolName, Correct: false}
				return
			}
			defer release()

			selected, correct := e.selectOne(ctx, candidate, tc, model)
			result := gepa.EvalResult{
				TestCaseID:             tc.ID,
				SelectedToolNameOrNull: selected,
				ExpectedToolName:       tc.ExpectedToolName,
				Correct:                correct,
			}
			results[i] = result

			if emitter != nil {
				emitter.Evaluation(gepa.EvaluationPayload{
					CandidateID: candidate.ID,
					TestCase:    tc,
					Result:      result,
				})
			}
		}(i, tc)
	}
	wg.Wait()

	return buildEvaluatedCandidate(candidate, results), nil
}

// EvaluateSubsample draws a uniform subsample of size min(subsampleSize,
// len(testCases)) without replacement and evaluates candidate on it,
// returning the accuracy on that subsample only.
func (e *Evaluator) EvaluateSubsample(ctx context.Context, candidate gepa.Candidate, testCases []gepa.TestCase, model string, subsampleSize int, rng *gepaprng.Rand, emitter *gepa.Emitter) ([]gepa.TestCase, gepa.EvaluatedCandidate, error) {
	if subsampleSize > len(testCases) {
		subsampleSize = len(testCases)
	}
	subsample := gepaprng.SampleWithoutReplacement(rng, testCases, subsampleSize)
	ec, err := e.EvaluateCandidate(ctx, candidate, subsample, model, emitter)
	return subsample, ec, err
}

// selectOne calls tool_selection for one test case and classifies the
// result. A ProviderError or a nil tool selection both yield a null
// selection, never an aborted evaluation.
func (e *Evaluator) selectOne(ctx context.Context, candidate gepa.Candidate, tc gepa.TestCase, model string) (selected string, correct bool) {
	result, err := e.gw.ToolSelection(ctx, model, tc.Query, candidate.Tools)
	if err != nil {
		return "", false
	}
	return result.SelectedToolName, result.SelectedToolName == tc.ExpectedToolName
}

func buildEvaluatedCandidate(candidate gepa.Candidate, results []gepa.EvalResult) gepa.EvaluatedCandidate {
	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	accuracy := 0.0
	if len(results) > 0 {
		accuracy = float64(correct) / float64(len(results))
	}
	return gepa.EvaluatedCandidate{
		Candidate:            candidate,
		Accuracy:             accuracy,
		AvgDescriptionLength: candidate.AvgDescriptionLength(),
		Evaluations:          results,
	}
}

// ParentScoreOnSubsample reads the parent's cached accuracy on exactly the
// test cases in subsample, from its own full EvaluatedCandidate — it is
// never recomputed (spec.md §4.2).
func ParentScoreOnSubsample(parent gepa.EvaluatedCandidate, subsample []gepa.TestCase) float64 {
	if len(subsample) == 0 {
		return 0
	}
	correct := 0
	for _, tc := range subsample {
		if r, ok := parent.ResultFor(tc.ID); ok && r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(subsample))
}
