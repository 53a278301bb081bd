// Package archive implements the Archive (C3): the unbounded, append-only
// store of evaluated candidates with lineage described in spec.md §4.3.
// Mirrors the teacher's append-only tape recorder shape (insertion order
// preserved, never mutated in place, never evicted).
package archive

import (
	"sync"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// entry pairs an EvaluatedCandidate with its optional parent id and the
// order it was inserted in.
type entry struct {
	candidate gepa.EvaluatedCandidate
	parentID  string
	hasParent bool
}

// Archive is a mutex-protected, insertion-ordered map from candidate id to
// EvaluatedCandidate. It never rejects an Add and never removes an entry;
// deduplication is the Scheduler's responsibility by construction.
type Archive struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]entry
}

// New creates an empty Archive.
func New() *Archive {
	return &Archive{entries: make(map[string]entry)}
}

// Add inserts ec under its candidate id, recording parentID if the
// candidate has one (the baseline does not). Returns the 1-based insertion
// index (== Size() after the insert), matching the spec's archive_index.
func (a *Archive) Add(ec gepa.EvaluatedCandidate, parentID string, hasParent bool) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := ec.Candidate.ID
	if _, exists := a.entries[id]; !exists {
		a.order = append(a.order, id)
	}
	a.entries[id] = entry{candidate: ec, parentID: parentID, hasParent: hasParent}
	return len(a.order)
}

// Get returns the EvaluatedCandidate for id, if archived.
func (a *Archive) Get(id string) (gepa.EvaluatedCandidate, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[id]
	return e.candidate, ok
}

// Size returns the number of archived candidates.
func (a *Archive) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

// All returns every archived candidate in insertion order.
func (a *Archive) All() []gepa.EvaluatedCandidate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]gepa.EvaluatedCandidate, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.entries[id].candidate)
	}
	return out
}

// ParentOf returns the parent candidate id for id, if one was recorded.
func (a *Archive) ParentOf(id string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[id]
	if !ok || !e.hasParent {
		return "", false
	}
	return e.parentID, true
}
