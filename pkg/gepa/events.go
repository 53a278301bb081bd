package gepa

import "time"

// Event is the unified progress-event model for a GEPA run. It drives live
// streaming (internal/collab/httpstream), durable replay (Replay in
// replay.go), and the internal/collab/store persistence layer.
//
// Design mirrors the teacher's agent-event model: a single Type
// discriminator, optional payload pointers (exactly one populated per Type),
// and a monotonic Sequence for total ordering within a run.
type Event struct {
	Version  int       `json:"version"`
	Type     EventType `json:"type"`
	Time     time.Time `json:"time"`
	Sequence uint64    `json:"seq"`
	RunID    string    `json:"run_id"`

	OptimizationStart  *OptimizationStartPayload  `json:"optimization_start,omitempty"`
	IterationStart     *IterationStartPayload     `json:"iteration_start,omitempty"`
	ParentSelected     *ParentSelectedPayload     `json:"parent_selected,omitempty"`
	MutationStart      *MutationStartPayload      `json:"mutation_start,omitempty"`
	Reflection         *ReflectionPayload         `json:"reflection,omitempty"`
	Evaluation         *EvaluationPayload         `json:"evaluation,omitempty"`
	SubsampleEval      *SubsampleEvalPayload      `json:"subsample_eval,omitempty"`
	CandidateDone      *CandidateDonePayload      `json:"candidate_done,omitempty"`
	OffspringAccepted  *OffspringAcceptedPayload  `json:"offspring_accepted,omitempty"`
	OffspringRejected  *OffspringRejectedPayload  `json:"offspring_rejected,omitempty"`
	ArchiveUpdate      *ArchiveUpdatePayload      `json:"archive_update,omitempty"`
	IterationDone      *IterationDonePayload      `json:"iteration_done,omitempty"`
	OptimizationComplete *OptimizationCompletePayload `json:"optimization_complete,omitempty"`
	ErrorPayload       *ErrorEventPayload         `json:"error,omitempty"`
}

// EventType identifies the kind of progress event. Names and payload keys
// are the stable contract from spec.md §6 — do not rename.
type EventType string

const (
	EventOptimizationStart    EventType = "optimization_start"
	EventIterationStart       EventType = "iteration_start"
	EventParentSelected       EventType = "parent_selected"
	EventMutationStart        EventType = "mutation_start"
	EventReflectionStart      EventType = "reflection_start"
	EventReflectionDone       EventType = "reflection_done"
	EventEvaluation           EventType = "evaluation"
	EventSubsampleEval        EventType = "subsample_eval"
	EventCandidateDone        EventType = "candidate_done"
	EventOffspringAccepted    EventType = "offspring_accepted"
	EventOffspringRejected    EventType = "offspring_rejected"
	EventArchiveUpdate        EventType = "archive_update"
	EventIterationDone        EventType = "iteration_done"
	EventOptimizationComplete EventType = "optimization_complete"
	EventError                EventType = "error"
)

type OptimizationStartPayload struct {
	RunID string `json:"run_id"`
}

type IterationStartPayload struct {
	Iteration      int `json:"iteration"`
	BudgetConsumed int `json:"budget_consumed"`
}

type ParentSelectedPayload struct {
	CandidateID string  `json:"candidate_id"`
	Iteration   int     `json:"iteration"`
	GlobalScore float64 `json:"global_score"`
}

type MutationStartPayload struct {
	CandidateID string `json:"candidate_id"`
}

// ReflectionPayload backs both reflection_start and reflection_done; Failure
// is only set for reflection_start in failure-directed mode, and
// OldDesc/NewDesc are only set for reflection_done.
type ReflectionPayload struct {
	CandidateID string      `json:"candidate_id"`
	Tool        string      `json:"tool"`
	Failure     *EvalResult `json:"failure,omitempty"`
	OldDesc     string      `json:"old_desc,omitempty"`
	NewDesc     string      `json:"new_desc,omitempty"`
}

type EvaluationPayload struct {
	CandidateID string     `json:"candidate_id"`
	TestCase    TestCase   `json:"test_case"`
	Result      EvalResult `json:"result"`
}

type SubsampleEvalPayload struct {
	OffspringID    string  `json:"offspring_id"`
	Iteration      int     `json:"iteration"`
	OffspringScore float64 `json:"offspring_score"`
	ParentScore    float64 `json:"parent_score"`
	SubsampleSize  int     `json:"subsample_size"`
}

// CandidateStatus is the accepted/rejected outcome reported on candidate_done.
type CandidateStatus string

const (
	CandidateAccepted CandidateStatus = "accepted"
	CandidateRejected CandidateStatus = "rejected"
)

type CandidateDonePayload struct {
	CandidateID      string          `json:"candidate_id"`
	Iteration        int             `json:"iteration"`
	ToolDescriptions map[string]string `json:"tool_descriptions"`
	Accuracy         float64         `json:"accuracy"`
	AvgLength        float64         `json:"avg_length"`
	IsPareto         bool            `json:"is_pareto"`
	Status           CandidateStatus `json:"status"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	ParentID         string          `json:"parent_id,omitempty"`
}

type OffspringAcceptedPayload struct {
	CandidateID  string  `json:"candidate_id"`
	Accuracy     float64 `json:"accuracy"`
	AvgLength    float64 `json:"avg_length"`
	ArchiveIndex int     `json:"archive_index"`
	ParentID     string  `json:"parent_id"`
	Iteration    int     `json:"iteration"`
}

type OffspringRejectedPayload struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
	Iteration   int    `json:"iteration"`
}

type ArchiveUpdatePayload struct {
	ArchiveSize    int `json:"archive_size"`
	BudgetConsumed int `json:"budget_consumed"`
	Accepted       int `json:"accepted"`
	Rejected       int `json:"rejected"`
}

type IterationDonePayload struct {
	Iteration      int `json:"iteration"`
	BudgetConsumed int `json:"budget_consumed"`
	ArchiveSize    int `json:"archive_size"`
}

type OptimizationCompletePayload struct {
	RunID          string `json:"run_id"`
	ArchiveSize    int    `json:"archive_size"`
	BudgetConsumed int    `json:"budget_consumed"`
	Accepted       int    `json:"accepted"`
	Rejected       int    `json:"rejected"`
}

type ErrorEventPayload struct {
	Message string `json:"message"`
}
