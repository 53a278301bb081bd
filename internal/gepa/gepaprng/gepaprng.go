// Package gepaprng provides the run-scoped pseudo-random source used by
// every randomized decision in the GEPA engine: subsampling test cases,
// weighted parent selection, failure/tool picking in the reflective
// mutator. Routing all of this through one explicit source (rather than
// math/rand's process-global one) makes a run reproducible given a seed,
// per spec.md §9 "Random sources".
package gepaprng

import (
	"math/rand/v2"
)

// Rand wraps a seeded generator. Not safe for concurrent use — the
// scheduler is the only caller, and it never calls into Rand concurrently
// with itself (§5: iterations are strictly serial).
type Rand struct {
	r *rand.Rand
}

// New creates a Rand seeded deterministically from seed. The same seed
// always produces the same sequence of draws.
func New(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a pseudo-random number in [0, n). Panics if n <= 0.
func (r *Rand) IntN(n int) int {
	return r.r.IntN(n)
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (r *Rand) Float64() float64 {
	return r.r.Float64()
}

// SampleWithoutReplacement draws min(k, len(ids)) distinct indices from
// [0, len(ids)) using a partial Fisher-Yates shuffle, and returns the
// corresponding slice of the input preserving draw order.
func SampleWithoutReplacement[T any](r *Rand, items []T, k int) []T {
	if k >= len(items) {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	if k <= 0 {
		return nil
	}
	pool := make([]T, len(items))
	copy(pool, items)
	out := make([]T, 0, k)
	for i := 0; i < k; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		out = append(out, pool[i])
	}
	return out
}

// WeightedChoice samples an index in [0, len(weights)) with probability
// proportional to weights[i]. All weights must be >= 0 and sum > 0; callers
// are expected to have filtered degenerate inputs (this function doesn't
// fall back silently, matching "no candidate has positive count" being the
// caller's responsibility per spec.md §4.4).
func WeightedChoice(r *Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	target := r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	// Floating point rounding can leave target == total; fall back to the
	// last positive-weight entry.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}
