// Package scheduler implements the GEPA Scheduler (C6): the main loop that
// selects a parent, mutates it, filters the offspring via subsample
// evaluation, fully evaluates survivors, archives them, and emits the
// progress events defined in spec.md §6. Structurally grounded on the
// teacher's AgenticLoop.Run driving state through explicit phases
// (internal/agent/loop.go), narrowed from a streaming chat turn to a
// budget-bounded evolutionary search.
package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gepa-project/gepa/internal/gepa/archive"
	"github.com/gepa-project/gepa/internal/gepa/eval"
	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/internal/gepa/gepaprng"
	"github.com/gepa-project/gepa/internal/gepa/mutator"
	"github.com/gepa-project/gepa/internal/gepa/pareto"
	"github.com/gepa-project/gepa/internal/gepa/rategate"
	"github.com/gepa-project/gepa/pkg/gepa"
)

const acceptanceEpsilon = 1e-3

// Scheduler owns the Archive and PerTaskPareto for one run and drives the
// main GEPA loop. It is not safe for concurrent use from multiple
// goroutines; it is itself the single logical task described in spec.md §5.
type Scheduler struct {
	config    gepa.RunConfig
	tools     []gepa.Tool
	testCases []gepa.TestCase
	emitter   *gepa.Emitter

	archive *archive.Archive
	pareto  *pareto.Index
	eval    *eval.Evaluator
	mutate  *mutator.Mutator
	rng     *gepaprng.Rand

	budgetConsumed int
	acceptedCount  int
	rejectedCount  int
	iteration      int
	cancelled      bool
}

// New validates config and test_cases and constructs a Scheduler. Returns
// *gepa.ConfigError for any precondition violation; no events are emitted
// for a ConfigError (spec.md §4.6, §7).
func New(runID string, tools []gepa.Tool, testCases []gepa.TestCase, gw gateway.Gateway, config gepa.RunConfig, sink gepa.Sink) (*Scheduler, error) {
	if len(testCases) == 0 {
		return nil, gepa.NewConfigError("test_cases must not be empty")
	}
	if config.MaxEvaluations < 1 {
		return nil, gepa.NewConfigError("max_evaluations must be >= 1, got %d", config.MaxEvaluations)
	}
	if config.SubsampleSize < 1 {
		return nil, gepa.NewConfigError("subsample_size must be >= 1, got %d", config.SubsampleSize)
	}
	if config.MaxConcurrentEvaluations < 1 {
		return nil, gepa.NewConfigError("max_concurrent_evaluations must be >= 1, got %d", config.MaxConcurrentEvaluations)
	}
	if config.MinAccuracy < 0 || config.MinAccuracy > 1 {
		return nil, gepa.NewConfigError("min_accuracy must be in [0,1], got %f", config.MinAccuracy)
	}
	for _, tc := range testCases {
		found := false
		for _, t := range tools {
			if t.Name == tc.ExpectedToolName {
				found = true
				break
			}
		}
		if !found {
			return nil, gepa.NewConfigError("test case %q expects unknown tool %q", tc.ID, tc.ExpectedToolName)
		}
	}

	gate := rategate.New(config.MaxConcurrentEvaluations)
	return &Scheduler{
		config:    config,
		tools:     tools,
		testCases: testCases,
		emitter:   gepa.NewEmitter(runID, sink),
		archive:   archive.New(),
		pareto:    pareto.New(),
		eval:      eval.New(gw, gate),
		mutate:    mutator.New(gw, gate),
		rng:       gepaprng.New(config.Seed),
	}, nil
}

// Cancel requests cooperative cancellation, honored at the next iteration
// or evaluation boundary. The run still completes cleanly.
func (s *Scheduler) Cancel() { s.cancelled = true }

// Run drives the scheduler to completion: baseline evaluation, then the
// main loop until budget exhaustion or cancellation, emitting every event
// in spec.md §6 in the order spec.md §5 requires. Returns the final
// Archive. An InternalError from archive/pareto/scheduler logic is
// reported via an error event and RunStatus failed, but Run itself returns
// the error too so the caller can surface it.
func (s *Scheduler) Run(ctx context.Context) (*archive.Archive, error) {
	runErr := s.runLoop(ctx)
	if runErr != nil {
		s.emitter.Error(runErr.Error())
	}
	return s.archive, runErr
}

func (s *Scheduler) runLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = gepa.NewInternalError("scheduler panicked", fmt.Errorf("%v", r))
		}
	}()

	s.emitter.OptimizationStart(gepa.OptimizationStartPayload{RunID: s.runID()})

	baseline := gepa.Candidate{ID: newCandidateID(), Tools: s.tools}
	baselineEC, err := s.eval.EvaluateCandidate(ctx, baseline, s.testCases, s.config.EvaluationModel, s.emitter)
	if err != nil {
		return gepa.NewInternalError("baseline evaluation failed", err)
	}
	s.budgetConsumed += len(s.testCases)

	if ctx.Err() != nil {
		s.cancelled = true
	} else {
		s.archive.Add(baselineEC, "", false)
		s.pareto.Update(baselineEC)
		s.acceptedCount++

		s.emitter.CandidateDone(gepa.CandidateDonePayload{
			CandidateID:      baseline.ID,
			ToolDescriptions: descriptionsByName(baseline),
			Accuracy:         baselineEC.Accuracy,
			AvgLength:        baselineEC.AvgDescriptionLength,
			IsPareto:         true,
			Status:           gepa.CandidateAccepted,
		})
		s.emitArchiveUpdate()
	}

	// ctx.Done() is checked at the top of every iteration: a cancelled run
	// exits the loop cleanly instead of surfacing cancellation as an error.
	for s.budgetConsumed < s.config.MaxEvaluations && !s.cancelled && ctx.Err() == nil {
		if err := s.iterate(ctx); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		s.cancelled = true
	}

	s.emitter.OptimizationComplete(gepa.OptimizationCompletePayload{
		RunID:          s.runID(),
		ArchiveSize:    s.archive.Size(),
		BudgetConsumed: s.budgetConsumed,
		Accepted:       s.acceptedCount,
		Rejected:       s.rejectedCount,
	})
	return nil
}

func (s *Scheduler) iterate(ctx context.Context) error {
	s.iteration++
	s.emitter.IterationStart(gepa.IterationStartPayload{Iteration: s.iteration, BudgetConsumed: s.budgetConsumed})

	all := s.archive.All()
	parentID, globalScore, ok := s.pareto.SelectParent(s.config.SelectionPolicy, all, s.config.SelectionTemperature, s.config.MinAccuracy, s.config.AccuracyWeight, s.rng)
	if !ok {
		s.cancelled = true
		return nil
	}
	parent, ok := s.archive.Get(parentID)
	if !ok {
		return gepa.NewInternalError("selected parent not found in archive", fmt.Errorf("id=%s", parentID))
	}
	s.emitter.ParentSelected(gepa.ParentSelectedPayload{CandidateID: parentID, Iteration: s.iteration, GlobalScore: globalScore})

	s.emitter.MutationStart(gepa.MutationStartPayload{CandidateID: parentID})
	offspringID := newCandidateID()
	offspringCandidate, err := s.mutate.Mutate(ctx, parent, s.testCases, s.config.GenerationModel, offspringID, s.rng, s.emitter)
	if err != nil {
		return gepa.NewInternalError("mutation failed", err)
	}

	if ctx.Err() != nil {
		s.cancelled = true
		return nil
	}

	subsample, offspringSubEC, err := s.eval.EvaluateSubsample(ctx, offspringCandidate, s.testCases, s.config.EvaluationModel, s.config.SubsampleSize, s.rng, s.emitter)
	if err != nil {
		return gepa.NewInternalError("subsample evaluation failed", err)
	}
	s.budgetConsumed += len(subsample)
	parentScore := eval.ParentScoreOnSubsample(parent, subsample)

	s.emitter.SubsampleEval(gepa.SubsampleEvalPayload{
		OffspringID:    offspringID,
		Iteration:      s.iteration,
		OffspringScore: offspringSubEC.Accuracy,
		ParentScore:    parentScore,
		SubsampleSize:  len(subsample),
	})

	if reason, rejected := s.shouldReject(offspringSubEC.Accuracy, parentScore); rejected {
		s.rejectedCount++
		s.emitter.CandidateDone(gepa.CandidateDonePayload{
			CandidateID:      offspringID,
			Iteration:        s.iteration,
			ToolDescriptions: descriptionsByName(offspringCandidate),
			Accuracy:         offspringSubEC.Accuracy,
			AvgLength:        offspringCandidate.AvgDescriptionLength(),
			IsPareto:         false,
			Status:           gepa.CandidateRejected,
			RejectionReason:  reason,
			ParentID:         parentID,
		})
		s.emitter.OffspringRejected(gepa.OffspringRejectedPayload{CandidateID: offspringID, Reason: reason, Iteration: s.iteration})
		s.emitArchiveUpdate()
		s.emitter.IterationDone(gepa.IterationDonePayload{Iteration: s.iteration, BudgetConsumed: s.budgetConsumed, ArchiveSize: s.archive.Size()})
		return nil
	}

	// Between the subsample and full evaluation steps: a survivor that is
	// about to consume a full evaluation pass still honors cancellation
	// first.
	if ctx.Err() != nil {
		s.cancelled = true
		return nil
	}

	fullEC, err := s.eval.EvaluateCandidate(ctx, offspringCandidate, s.testCases, s.config.EvaluationModel, s.emitter)
	if err != nil {
		return gepa.NewInternalError("full evaluation failed", err)
	}
	s.budgetConsumed += len(s.testCases)

	if s.config.MinAccuracy > 0 && fullEC.Accuracy < s.config.MinAccuracy {
		s.rejectedCount++
		reason := fmt.Sprintf("accuracy %.4f is below min_accuracy floor %.4f", fullEC.Accuracy, s.config.MinAccuracy)
		s.emitter.CandidateDone(gepa.CandidateDonePayload{
			CandidateID:      offspringID,
			Iteration:        s.iteration,
			ToolDescriptions: descriptionsByName(offspringCandidate),
			Accuracy:         fullEC.Accuracy,
			AvgLength:        fullEC.AvgDescriptionLength,
			IsPareto:         false,
			Status:           gepa.CandidateRejected,
			RejectionReason:  reason,
			ParentID:         parentID,
		})
		s.emitter.OffspringRejected(gepa.OffspringRejectedPayload{CandidateID: offspringID, Reason: reason, Iteration: s.iteration})
		s.emitArchiveUpdate()
		s.emitter.IterationDone(gepa.IterationDonePayload{Iteration: s.iteration, BudgetConsumed: s.budgetConsumed, ArchiveSize: s.archive.Size()})
		return nil
	}

	archiveIndex := s.archive.Add(fullEC, parentID, true)
	isPareto := s.pareto.Update(fullEC)
	s.acceptedCount++

	s.emitter.CandidateDone(gepa.CandidateDonePayload{
		CandidateID:      offspringID,
		Iteration:        s.iteration,
		ToolDescriptions: descriptionsByName(offspringCandidate),
		Accuracy:         fullEC.Accuracy,
		AvgLength:        fullEC.AvgDescriptionLength,
		IsPareto:         isPareto,
		Status:           gepa.CandidateAccepted,
		ParentID:         parentID,
	})
	s.emitter.OffspringAccepted(gepa.OffspringAcceptedPayload{
		CandidateID:  offspringID,
		Accuracy:     fullEC.Accuracy,
		AvgLength:    fullEC.AvgDescriptionLength,
		ArchiveIndex: archiveIndex,
		ParentID:     parentID,
		Iteration:    s.iteration,
	})
	s.emitArchiveUpdate()
	s.emitter.IterationDone(gepa.IterationDonePayload{Iteration: s.iteration, BudgetConsumed: s.budgetConsumed, ArchiveSize: s.archive.Size()})
	return nil
}

// shouldReject implements spec.md §4.6 step 5's acceptance predicate.
func (s *Scheduler) shouldReject(offspringScore, parentScore float64) (reason string, rejected bool) {
	if offspringScore < parentScore-acceptanceEpsilon {
		return fmt.Sprintf("subsample score %.4f below parent score %.4f minus epsilon", offspringScore, parentScore), true
	}
	if offspringScore < s.config.MinAccuracy {
		return fmt.Sprintf("subsample score %.4f below min_accuracy floor %.4f", offspringScore, s.config.MinAccuracy), true
	}
	return "", false
}

func (s *Scheduler) emitArchiveUpdate() {
	s.emitter.ArchiveUpdate(gepa.ArchiveUpdatePayload{
		ArchiveSize:    s.archive.Size(),
		BudgetConsumed: s.budgetConsumed,
		Accepted:       s.acceptedCount,
		Rejected:       s.rejectedCount,
	})
}

func (s *Scheduler) runID() string {
	return s.emitter.RunID()
}

func descriptionsByName(c gepa.Candidate) map[string]string {
	out := make(map[string]string, len(c.Tools))
	for _, t := range c.Tools {
		out[t.Name] = t.Description
	}
	return out
}

func newCandidateID() string {
	return uuid.NewString()
}
