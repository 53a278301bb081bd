// Package pareto implements the Per-task Pareto Index (C4): one Pareto
// front per test case plus dominance-count bookkeeping, and the two
// parent-selection policies over the archive (spec.md §4.4). Weighted
// sampling mirrors the teacher's capability-scoring style in
// internal/multiagent/capability_router.go, adapted to softmax-over-score
// sampling instead of top-k argmax.
package pareto

import (
	"math"
	"sync"

	"github.com/gepa-project/gepa/internal/gepa/gepaprng"
	"github.com/gepa-project/gepa/pkg/gepa"
)

// minTemperature is the floor spec.md §4.4 places on the temperature knob.
const minTemperature = 0.1

// candidateSnapshot is what the Index needs about an archived candidate to
// run dominance comparisons and selection scoring, independent of the
// Archive's own storage.
type candidateSnapshot struct {
	accuracy  float64
	avgLength float64
	evalByTC  map[string]gepa.EvalResult
}

// Index maintains, for every test case seen so far, the set of candidate
// ids not dominated on that test case, plus a dominance count per
// candidate equal to the number of fronts it belongs to.
type Index struct {
	mu        sync.Mutex
	fronts    map[string]map[string]bool // test case id -> set of candidate ids
	dominance map[string]int             // candidate id -> front count
	snapshots map[string]candidateSnapshot
	order     []string // candidate ids in the order first seen, for uniform fallback
}

// New creates an empty Pareto Index.
func New() *Index {
	return &Index{
		fronts:    make(map[string]map[string]bool),
		dominance: make(map[string]int),
		snapshots: make(map[string]candidateSnapshot),
	}
}

// dominates reports whether a dominates b on one task, per spec.md §4.4:
// a wins outright by being correct where b is wrong, or both are correct
// and a is strictly shorter.
func dominates(aCorrect, bCorrect bool, aLen, bLen float64) bool {
	if aCorrect && !bCorrect {
		return true
	}
	if aCorrect && bCorrect && aLen < bLen {
		return true
	}
	return false
}

// Update inserts ec into every task front it is not dominated on, removing
// any front member it dominates, and adjusts dominance counts accordingly.
// Returns true iff ec landed on at least one task front (the exact
// is_pareto signal, per DESIGN.md's resolution of the spec's "optimistic"
// open question).
func (idx *Index) Update(ec gepa.EvaluatedCandidate) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	id := ec.Candidate.ID
	snap := candidateSnapshot{
		accuracy:  ec.Accuracy,
		avgLength: ec.AvgDescriptionLength,
		evalByTC:  make(map[string]gepa.EvalResult, len(ec.Evaluations)),
	}
	for _, r := range ec.Evaluations {
		snap.evalByTC[r.TestCaseID] = r
	}
	if _, seen := idx.snapshots[id]; !seen {
		idx.order = append(idx.order, id)
	}
	idx.snapshots[id] = snap

	inserted := false
	for _, r := range ec.Evaluations {
		tc := r.TestCaseID
		front := idx.fronts[tc]
		if front == nil {
			front = make(map[string]bool)
			idx.fronts[tc] = front
		}

		dominated := false
		for memberID := range front {
			member := idx.snapshots[memberID]
			memberResult := member.evalByTC[tc]
			if dominates(memberResult.Correct, r.Correct, member.avgLength, snap.avgLength) {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}

		for memberID := range front {
			member := idx.snapshots[memberID]
			memberResult := member.evalByTC[tc]
			if dominates(r.Correct, memberResult.Correct, snap.avgLength, member.avgLength) {
				delete(front, memberID)
				idx.dominance[memberID]--
			}
		}
		front[id] = true
		idx.dominance[id]++
		inserted = true
	}

	return inserted
}

// DominanceCount returns the number of task fronts id currently belongs to.
func (idx *Index) DominanceCount(id string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.dominance[id]
}

// TaskFront returns a copy of the candidate ids on the front for testCaseID.
func (idx *Index) TaskFront(testCaseID string) []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	front := idx.fronts[testCaseID]
	out := make([]string, 0, len(front))
	for id := range front {
		out = append(out, id)
	}
	return out
}

// SelectParent implements both selection policies over the archived
// candidates described by allCandidates (the caller passes the Archive's
// current snapshot so the Index stays storage-agnostic). Returns the
// selected candidate id and its global score for the parent_selected event
// payload, or ok=false if the archive is empty.
func (idx *Index) SelectParent(
	policy gepa.SelectionPolicy,
	allCandidates []gepa.EvaluatedCandidate,
	temperature, minAccuracy, accuracyWeight float64,
	rng *gepaprng.Rand,
) (candidateID string, globalScore float64, ok bool) {
	if len(allCandidates) == 0 {
		return "", 0, false
	}

	switch policy {
	case gepa.SelectionDominance:
		return idx.selectDominanceWeighted(allCandidates, temperature, rng)
	default:
		return idx.selectGlobalScoreWeighted(allCandidates, temperature, minAccuracy, accuracyWeight, rng)
	}
}

func (idx *Index) selectDominanceWeighted(all []gepa.EvaluatedCandidate, temperature float64, rng *gepaprng.Rand) (string, float64, bool) {
	idx.mu.Lock()
	counts := make([]int, len(all))
	anyPositive := false
	for i, ec := range all {
		c := idx.dominance[ec.Candidate.ID]
		counts[i] = c
		if c > 0 {
			anyPositive = true
		}
	}
	idx.mu.Unlock()

	t := math.Max(minTemperature, temperature)
	if !anyPositive {
		i := rng.IntN(len(all))
		return all[i].Candidate.ID, globalScore(all[i], all, 0.5), true
	}

	weights := make([]float64, len(all))
	for i, c := range counts {
		weights[i] = math.Exp(float64(c) / t)
	}
	i := gepaprng.WeightedChoice(rng, weights)
	if i < 0 {
		i = rng.IntN(len(all))
	}
	return all[i].Candidate.ID, globalScore(all[i], all, 0.5), true
}

func (idx *Index) selectGlobalScoreWeighted(all []gepa.EvaluatedCandidate, temperature, minAccuracy, accuracyWeight float64, rng *gepaprng.Rand) (string, float64, bool) {
	t := math.Max(minTemperature, temperature)

	eligible := make([]gepa.EvaluatedCandidate, 0, len(all))
	for _, ec := range all {
		if ec.Accuracy >= minAccuracy {
			eligible = append(eligible, ec)
		}
	}
	if len(eligible) == 0 {
		eligible = all
	}

	scores := make([]float64, len(eligible))
	weights := make([]float64, len(eligible))
	for i, ec := range eligible {
		s := globalScore(ec, all, accuracyWeight)
		scores[i] = s
		weights[i] = math.Exp(s / t)
	}

	i := gepaprng.WeightedChoice(rng, weights)
	if i < 0 {
		i = rng.IntN(len(eligible))
	}
	return eligible[i].Candidate.ID, scores[i], true
}

// globalScore computes accuracy*alpha + conciseness*(1-alpha), where
// conciseness is the candidate's length relative to the longest archived
// candidate, clamped to [0,1]. Used both as the selection weight for the
// global_score policy and as the reported score in parent_selected for the
// dominance policy (where alpha is fixed at 0.5 for event-payload purposes
// only; it does not affect dominance-weighted sampling itself).
func globalScore(ec gepa.EvaluatedCandidate, all []gepa.EvaluatedCandidate, alpha float64) float64 {
	maxLen := 0.0
	for _, c := range all {
		if c.AvgDescriptionLength > maxLen {
			maxLen = c.AvgDescriptionLength
		}
	}
	conciseness := 1.0
	if maxLen > 0 {
		conciseness = 1 - ec.AvgDescriptionLength/maxLen
	}
	if conciseness < 0 {
		conciseness = 0
	}
	if conciseness > 1 {
		conciseness = 1
	}
	return ec.Accuracy*alpha + conciseness*(1-alpha)
}
