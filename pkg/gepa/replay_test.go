package gepa

import "testing"

func TestReplayFoldsAccuracyTimeline(t *testing.T) {
	events := []Event{
		{Type: EventOptimizationStart, OptimizationStart: &OptimizationStartPayload{RunID: "r1"}},
		{Type: EventCandidateDone, CandidateDone: &CandidateDonePayload{
			CandidateID: "baseline", Accuracy: 0.5, Status: CandidateAccepted,
		}},
		{Type: EventCandidateDone, CandidateDone: &CandidateDonePayload{
			CandidateID: "c2", Accuracy: 0.4, Status: CandidateRejected, RejectionReason: "below parent",
		}},
		{Type: EventCandidateDone, CandidateDone: &CandidateDonePayload{
			CandidateID: "c3", Accuracy: 0.8, Status: CandidateAccepted,
		}},
		{Type: EventOptimizationComplete, OptimizationComplete: &OptimizationCompletePayload{
			RunID: "r1", ArchiveSize: 2, BudgetConsumed: 42, Accepted: 2, Rejected: 1,
		}},
	}

	state := Replay(events)

	if state.RunID != "r1" {
		t.Errorf("RunID = %q, want r1", state.RunID)
	}
	if state.Status != RunStatusCompleted {
		t.Errorf("Status = %q, want completed", state.Status)
	}
	if len(state.AccuracyTimeline) != 2 {
		t.Fatalf("AccuracyTimeline = %v, want 2 entries (rejections don't count)", state.AccuracyTimeline)
	}
	if state.AccuracyTimeline[0] != 0.5 || state.AccuracyTimeline[1] != 0.8 {
		t.Errorf("AccuracyTimeline = %v, want [0.5 0.8]", state.AccuracyTimeline)
	}
	if state.Accepted != 2 || state.Rejected != 1 {
		t.Errorf("Accepted=%d Rejected=%d, want 2/1", state.Accepted, state.Rejected)
	}
	if len(state.Candidates) != 3 {
		t.Errorf("Candidates has %d entries, want 3", len(state.Candidates))
	}
}

func TestReplayMarksFailedOnErrorEvent(t *testing.T) {
	events := []Event{
		{Type: EventOptimizationStart, OptimizationStart: &OptimizationStartPayload{RunID: "r1"}},
		{Type: EventError, ErrorPayload: &ErrorEventPayload{Message: "archive corrupted"}},
	}
	state := Replay(events)
	if state.Status != RunStatusFailed {
		t.Errorf("Status = %q, want failed", state.Status)
	}
	if len(state.Errors) != 1 || state.Errors[0] != "archive corrupted" {
		t.Errorf("Errors = %v", state.Errors)
	}
}
