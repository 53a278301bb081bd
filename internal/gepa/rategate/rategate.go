// Package rategate provides the process-wide concurrency gate described in
// spec.md §5: a single semaphore of width max_concurrent_evaluations that
// every LLM gateway call made by the Evaluator and the Mutator acquires
// before calling out, and releases when done. It bounds how many calls are
// in flight; it does not enforce any ordering (the spec does not require
// FIFO, only the width bound).
package rategate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate bounds concurrent LLM gateway calls to a fixed width.
type Gate struct {
	sem *semaphore.Weighted
}

// New creates a Gate allowing up to width calls in flight simultaneously.
// width <= 0 is treated as 1 (a gate must always admit forward progress).
func New(width int) *Gate {
	if width <= 0 {
		width = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(width))}
}

// Acquire blocks until a slot is available or ctx is done, whichever comes
// first. Callers must call the returned release func exactly once when
// they're done with the slot (typically via defer).
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	return func() { g.sem.Release(1) }, nil
}
