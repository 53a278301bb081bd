package observability

import "github.com/prometheus/client_golang/prometheus"

// GEPAMetrics narrows Metrics to the counters a GEPA run actually produces:
// budget consumption, archive growth, acceptance/rejection, and gateway
// call latency. Registered independently of Metrics so a process running
// only the optimizer doesn't pull in channel/session/webhook series it
// never populates.
type GEPAMetrics struct {
	BudgetConsumed   *prometheus.GaugeVec
	ArchiveSize      *prometheus.GaugeVec
	AcceptedTotal    *prometheus.CounterVec
	RejectedTotal    *prometheus.CounterVec
	GatewayCallDur   *prometheus.HistogramVec
	MutationsTotal   *prometheus.CounterVec
}

// NewGEPAMetrics creates and registers the GEPA metric series.
func NewGEPAMetrics() *GEPAMetrics {
	return &GEPAMetrics{
		BudgetConsumed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gepa_budget_consumed",
				Help: "Test-case-equivalent evaluations consumed so far in the current run.",
			},
			[]string{"run_id"},
		),
		ArchiveSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gepa_archive_size",
				Help: "Number of candidates currently archived.",
			},
			[]string{"run_id"},
		),
		AcceptedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gepa_offspring_accepted_total",
				Help: "Total offspring candidates accepted into the archive.",
			},
			[]string{"run_id"},
		),
		RejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gepa_offspring_rejected_total",
				Help: "Total offspring candidates rejected by the acceptance gate.",
			},
			[]string{"run_id", "reason"},
		),
		GatewayCallDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gepa_gateway_call_duration_seconds",
				Help:    "Latency of LLM gateway calls made by the Evaluator and Mutator.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gepa_mutations_total",
				Help: "Total mutation attempts, labelled by mode.",
			},
			[]string{"run_id", "mode"},
		),
	}
}

// MustRegister registers every series on reg (typically
// prometheus.DefaultRegisterer).
func (m *GEPAMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.BudgetConsumed,
		m.ArchiveSize,
		m.AcceptedTotal,
		m.RejectedTotal,
		m.GatewayCallDur,
		m.MutationsTotal,
	)
}
