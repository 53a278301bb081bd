package observability

import "github.com/gepa-project/gepa/pkg/gepa"

// MetricsSink adapts GEPAMetrics to gepa.Sink so a scheduler can feed its
// progress events straight into the Prometheus series without the caller
// threading metric calls through every stage of the search loop.
type MetricsSink struct {
	runID   string
	metrics *GEPAMetrics
}

// NewMetricsSink returns a Sink that records the events of runID onto metrics.
func NewMetricsSink(runID string, metrics *GEPAMetrics) *MetricsSink {
	return &MetricsSink{runID: runID, metrics: metrics}
}

func (s *MetricsSink) Emit(e gepa.Event) {
	switch e.Type {
	case gepa.EventIterationDone:
		if p := e.IterationDone; p != nil {
			s.metrics.BudgetConsumed.WithLabelValues(s.runID).Set(float64(p.BudgetConsumed))
			s.metrics.ArchiveSize.WithLabelValues(s.runID).Set(float64(p.ArchiveSize))
		}
	case gepa.EventOffspringAccepted:
		s.metrics.AcceptedTotal.WithLabelValues(s.runID).Inc()
	case gepa.EventOffspringRejected:
		reason := "unknown"
		if p := e.OffspringRejected; p != nil && p.Reason != "" {
			reason = p.Reason
		}
		s.metrics.RejectedTotal.WithLabelValues(s.runID, reason).Inc()
	case gepa.EventMutationStart:
		s.metrics.MutationsTotal.WithLabelValues(s.runID, "mutation").Inc()
	case gepa.EventReflectionStart:
		s.metrics.MutationsTotal.WithLabelValues(s.runID, "reflection").Inc()
	}
}
