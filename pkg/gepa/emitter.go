package gepa

import (
	"sync/atomic"
	"time"
)

// Sink receives emitted events. Implementations must be safe for concurrent
// use: evaluation events in particular may arrive from several goroutines
// fanned out by the Evaluator.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(e Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// NopSink discards every event. Used when a caller doesn't care about
// progress (e.g. a one-shot CLI run with only a final summary).
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink fans one event out to several sinks, e.g. a live stream and a
// durable store.
type MultiSink []Sink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Emitter stamps and dispatches GEPA progress events for one run. Sequence
// numbers are monotonic and safe for concurrent emission.
type Emitter struct {
	runID    string
	sequence uint64
	sink     Sink
}

// NewEmitter creates an emitter for runID. A nil sink is replaced by NopSink.
func NewEmitter(runID string, sink Sink) *Emitter {
	if sink == nil {
		sink = NopSink{}
	}
	return &Emitter{runID: runID, sink: sink}
}

// RunID returns the run id this emitter stamps onto every event.
func (e *Emitter) RunID() string { return e.runID }

func (e *Emitter) nextSeq() uint64 {
	return atomic.AddUint64(&e.sequence, 1)
}

func (e *Emitter) base(t EventType) Event {
	return Event{
		Version:  1,
		Type:     t,
		Time:     time.Now(),
		Sequence: e.nextSeq(),
		RunID:    e.runID,
	}
}

func (e *Emitter) OptimizationStart(p OptimizationStartPayload) {
	ev := e.base(EventOptimizationStart)
	ev.OptimizationStart = &p
	e.sink.Emit(ev)
}

func (e *Emitter) IterationStart(p IterationStartPayload) {
	ev := e.base(EventIterationStart)
	ev.IterationStart = &p
	e.sink.Emit(ev)
}

func (e *Emitter) ParentSelected(p ParentSelectedPayload) {
	ev := e.base(EventParentSelected)
	ev.ParentSelected = &p
	e.sink.Emit(ev)
}

func (e *Emitter) MutationStart(p MutationStartPayload) {
	ev := e.base(EventMutationStart)
	ev.MutationStart = &p
	e.sink.Emit(ev)
}

func (e *Emitter) ReflectionStart(p ReflectionPayload) {
	ev := e.base(EventReflectionStart)
	ev.Reflection = &p
	e.sink.Emit(ev)
}

func (e *Emitter) ReflectionDone(p ReflectionPayload) {
	ev := e.base(EventReflectionDone)
	ev.Reflection = &p
	e.sink.Emit(ev)
}

func (e *Emitter) Evaluation(p EvaluationPayload) {
	ev := e.base(EventEvaluation)
	ev.Evaluation = &p
	e.sink.Emit(ev)
}

func (e *Emitter) SubsampleEval(p SubsampleEvalPayload) {
	ev := e.base(EventSubsampleEval)
	ev.SubsampleEval = &p
	e.sink.Emit(ev)
}

func (e *Emitter) CandidateDone(p CandidateDonePayload) {
	ev := e.base(EventCandidateDone)
	ev.CandidateDone = &p
	e.sink.Emit(ev)
}

func (e *Emitter) OffspringAccepted(p OffspringAcceptedPayload) {
	ev := e.base(EventOffspringAccepted)
	ev.OffspringAccepted = &p
	e.sink.Emit(ev)
}

func (e *Emitter) OffspringRejected(p OffspringRejectedPayload) {
	ev := e.base(EventOffspringRejected)
	ev.OffspringRejected = &p
	e.sink.Emit(ev)
}

func (e *Emitter) ArchiveUpdate(p ArchiveUpdatePayload) {
	ev := e.base(EventArchiveUpdate)
	ev.ArchiveUpdate = &p
	e.sink.Emit(ev)
}

func (e *Emitter) IterationDone(p IterationDonePayload) {
	ev := e.base(EventIterationDone)
	ev.IterationDone = &p
	e.sink.Emit(ev)
}

func (e *Emitter) OptimizationComplete(p OptimizationCompletePayload) {
	ev := e.base(EventOptimizationComplete)
	ev.OptimizationComplete = &p
	e.sink.Emit(ev)
}

func (e *Emitter) Error(message string) {
	ev := e.base(EventError)
	ev.ErrorPayload = &ErrorEventPayload{Message: message}
	e.sink.Emit(ev)
}
