package gepa

// ReplayState is the reconstructed view of a run derived purely from its
// event stream, with no side effects. It is the "fold" described in §9's
// design notes: accuracy-over-time, archive size over time, and
// accept/reject counts.
type ReplayState struct {
	RunID          string
	Status         RunStatus
	BudgetConsumed int
	ArchiveSize    int
	Accepted       int
	Rejected       int
	Iteration      int

	// AccuracyTimeline records the best accuracy seen in the archive after
	// each accepted candidate, in event order.
	AccuracyTimeline []float64

	// Candidates indexes the last known tool_descriptions/accuracy/avg_length
	// reported for every candidate_done event, by candidate id.
	Candidates map[string]CandidateDonePayload

	// Errors collects every error event's message, in order.
	Errors []string
}

// Replay folds a stored or streamed event slice into a ReplayState. It is a
// pure function: the same events always produce the same state, and it
// never mutates its input.
func Replay(events []Event) *ReplayState {
	state := &ReplayState{
		Status:     RunStatusRunning,
		Candidates: make(map[string]CandidateDonePayload),
	}

	bestAccuracy := 0.0
	haveBest := false

	for _, e := range events {
		switch e.Type {
		case EventOptimizationStart:
			if e.OptimizationStart != nil {
				state.RunID = e.OptimizationStart.RunID
			}
		case EventIterationStart:
			if e.IterationStart != nil {
				state.Iteration = e.IterationStart.Iteration
				state.BudgetConsumed = e.IterationStart.BudgetConsumed
			}
		case EventCandidateDone:
			if p := e.CandidateDone; p != nil {
				state.Candidates[p.CandidateID] = *p
				if p.Status == CandidateAccepted {
					if !haveBest || p.Accuracy > bestAccuracy {
						bestAccuracy = p.Accuracy
						haveBest = true
					}
					state.AccuracyTimeline = append(state.AccuracyTimeline, bestAccuracy)
				}
			}
		case EventArchiveUpdate:
			if p := e.ArchiveUpdate; p != nil {
				state.ArchiveSize = p.ArchiveSize
				state.BudgetConsumed = p.BudgetConsumed
				state.Accepted = p.Accepted
				state.Rejected = p.Rejected
			}
		case EventIterationDone:
			if p := e.IterationDone; p != nil {
				state.Iteration = p.Iteration
				state.BudgetConsumed = p.BudgetConsumed
				state.ArchiveSize = p.ArchiveSize
			}
		case EventOptimizationComplete:
			if p := e.OptimizationComplete; p != nil {
				state.RunID = p.RunID
				state.ArchiveSize = p.ArchiveSize
				state.BudgetConsumed = p.BudgetConsumed
				state.Accepted = p.Accepted
				state.Rejected = p.Rejected
				state.Status = RunStatusCompleted
			}
		case EventError:
			if p := e.ErrorPayload; p != nil {
				state.Errors = append(state.Errors, p.Message)
				state.Status = RunStatusFailed
			}
		}
	}

	return state
}
