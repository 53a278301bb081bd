package store

import (
	"context"
	"testing"
	"time"

	"github.com/gepa-project/gepa/internal/gepa/archive"
	"github.com/gepa-project/gepa/pkg/gepa"
)

func sampleEvent(seq uint64, t gepa.EventType) gepa.Event {
	return gepa.Event{
		Version:  1,
		Type:     t,
		Time:     time.Unix(0, 0).UTC(),
		Sequence: seq,
		RunID:    "run-1",
	}
}

func TestSaveAndLoadEventsPreservesOrder(t *testing.T) {
	s, err := New(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	events := []gepa.Event{
		sampleEvent(1, gepa.EventOptimizationStart),
		sampleEvent(2, gepa.EventIterationStart),
		sampleEvent(3, gepa.EventIterationDone),
	}
	for _, e := range events {
		if err := s.SaveEvent(ctx, "run-1", e); err != nil {
			t.Fatalf("SaveEvent: %v", err)
		}
	}

	loaded, err := s.LoadEvents(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 events, got %d", len(loaded))
	}
	for i, e := range loaded {
		if e.Sequence != events[i].Sequence || e.Type != events[i].Type {
			t.Errorf("event %d: expected seq=%d type=%s, got seq=%d type=%s", i, events[i].Sequence, events[i].Type, e.Sequence, e.Type)
		}
	}
}

func TestLoadEventsScopedToRunID(t *testing.T) {
	s, err := New(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.SaveEvent(ctx, "run-1", sampleEvent(1, gepa.EventOptimizationStart))
	_ = s.SaveEvent(ctx, "run-2", sampleEvent(1, gepa.EventOptimizationStart))

	loaded, err := s.LoadEvents(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 event for run-1, got %d", len(loaded))
	}
}

func TestLoadEventsEmptyForUnknownRun(t *testing.T) {
	s, err := New(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadEvents(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no events, got %d", len(loaded))
	}
}

func TestSaveArchiveSnapshotIsIdempotentPerRun(t *testing.T) {
	s, err := New(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	a := archive.New()
	a.Add(gepa.EvaluatedCandidate{Candidate: gepa.Candidate{ID: "c1"}, Accuracy: 0.8}, "", false)

	if err := s.SaveArchiveSnapshot(ctx, "run-1", a); err != nil {
		t.Fatalf("first SaveArchiveSnapshot: %v", err)
	}
	a.Add(gepa.EvaluatedCandidate{Candidate: gepa.Candidate{ID: "c2"}, Accuracy: 0.9}, "c1", true)
	if err := s.SaveArchiveSnapshot(ctx, "run-1", a); err != nil {
		t.Fatalf("second SaveArchiveSnapshot: %v", err)
	}

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_snapshots WHERE run_id = ?`, "run-1")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("counting snapshots: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one snapshot row per run, got %d", count)
	}
}
