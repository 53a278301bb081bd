package pareto

import (
	"testing"

	"github.com/gepa-project/gepa/internal/gepa/gepaprng"
	"github.com/gepa-project/gepa/pkg/gepa"
)

func evalResult(tc string, correct bool) gepa.EvalResult {
	return gepa.EvalResult{TestCaseID: tc, Correct: correct}
}

// TestParetoCoexistence reproduces S5: A correct on {1,2,3}, B correct on
// {1,2,4}, A length 100, B length 50. B should win ties 1 and 2 by being
// shorter; A keeps 3 alone, B keeps 4 alone.
func TestParetoCoexistence(t *testing.T) {
	idx := New()

	a := gepa.EvaluatedCandidate{
		Candidate:            gepa.Candidate{ID: "A"},
		AvgDescriptionLength: 100,
		Evaluations: []gepa.EvalResult{
			evalResult("1", true), evalResult("2", true), evalResult("3", true), evalResult("4", false),
		},
	}
	b := gepa.EvaluatedCandidate{
		Candidate:            gepa.Candidate{ID: "B"},
		AvgDescriptionLength: 50,
		Evaluations: []gepa.EvalResult{
			evalResult("1", true), evalResult("2", true), evalResult("3", false), evalResult("4", true),
		},
	}

	idx.Update(a)
	idx.Update(b)

	checkFront := func(tc string, want ...string) {
		t.Helper()
		front := idx.TaskFront(tc)
		if len(front) != len(want) {
			t.Fatalf("task_front[%s] = %v, want %v", tc, front, want)
		}
		seen := map[string]bool{}
		for _, id := range front {
			seen[id] = true
		}
		for _, w := range want {
			if !seen[w] {
				t.Fatalf("task_front[%s] = %v, want to contain %s", tc, front, w)
			}
		}
	}
	checkFront("3", "A")
	checkFront("4", "B")
	checkFront("1", "B")
	checkFront("2", "B")

	if got := idx.DominanceCount("A"); got != 1 {
		t.Fatalf("dominance_count[A] = %d, want 1", got)
	}
	if got := idx.DominanceCount("B"); got != 3 {
		t.Fatalf("dominance_count[B] = %d, want 3", got)
	}
}

// TestReinsertIsIdempotent reproduces R1: re-inserting the same
// EvaluatedCandidate is a no-op on the final state.
func TestReinsertIsIdempotent(t *testing.T) {
	idx := New()
	ec := gepa.EvaluatedCandidate{
		Candidate:            gepa.Candidate{ID: "only"},
		AvgDescriptionLength: 10,
		Evaluations:          []gepa.EvalResult{evalResult("1", true)},
	}
	idx.Update(ec)
	before := idx.DominanceCount("only")
	idx.Update(ec)
	after := idx.DominanceCount("only")
	if before != after {
		t.Fatalf("dominance count changed on reinsert: %d -> %d", before, after)
	}
	if len(idx.TaskFront("1")) != 1 {
		t.Fatalf("task_front grew on reinsert: %v", idx.TaskFront("1"))
	}
}

func TestSelectParentDominanceWeightedFallsBackUniformWhenNoPositiveCounts(t *testing.T) {
	idx := New()
	all := []gepa.EvaluatedCandidate{
		{Candidate: gepa.Candidate{ID: "x"}},
		{Candidate: gepa.Candidate{ID: "y"}},
	}
	rng := gepaprng.New(1)
	id, _, ok := idx.SelectParent(gepa.SelectionDominance, all, 1.0, 0, 0.5, rng)
	if !ok {
		t.Fatal("expected a selection")
	}
	if id != "x" && id != "y" {
		t.Fatalf("unexpected selection %q", id)
	}
}

func TestSelectParentGlobalScoreRelaxesAccuracyGateWhenNoneQualify(t *testing.T) {
	idx := New()
	all := []gepa.EvaluatedCandidate{
		{Candidate: gepa.Candidate{ID: "low"}, Accuracy: 0.1, AvgDescriptionLength: 10},
	}
	rng := gepaprng.New(2)
	id, score, ok := idx.SelectParent(gepa.SelectionGlobalScore, all, 1.0, 0.9, 0.5, rng)
	if !ok {
		t.Fatal("expected a selection even though nothing meets min_accuracy")
	}
	if id != "low" {
		t.Fatalf("SelectParent id = %q, want low", id)
	}
	if score <= 0 {
		t.Fatalf("global score = %f, want > 0", score)
	}
}

func TestSelectParentEmptyArchiveReturnsFalse(t *testing.T) {
	idx := New()
	_, _, ok := idx.SelectParent(gepa.SelectionGlobalScore, nil, 1.0, 0, 0.5, gepaprng.New(3))
	if ok {
		t.Fatal("expected ok=false for an empty archive")
	}
}
