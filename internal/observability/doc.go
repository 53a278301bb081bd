// Package observability provides the logging, metrics, and tracing used to
// watch a GEPA run from the outside: how fast its budget is burning, how
// its archive is growing, and where time goes in each gateway call.
//
// # Overview
//
// The package covers the three pillars of observability:
//
//  1. Metrics - GEPA-specific Prometheus series (GEPAMetrics)
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed tracing across gateway, store, and stream
//
// # Metrics
//
// GEPAMetrics tracks budget consumption, archive size, acceptance and
// rejection counts, mutation attempts, and gateway call latency. A
// MetricsSink adapts it to gepa.Sink so the scheduler's event stream feeds
// the series directly, with no metrics calls scattered through the search
// loop itself.
//
// Example usage:
//
//	metrics := observability.NewGEPAMetrics()
//	metrics.MustRegister(prometheus.DefaultRegisterer)
//
//	sink := gepa.MultiSink{
//	    observability.NewMetricsSink(runID, metrics),
//	    otherSinks...,
//	}
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic run ID and request ID correlation from context
//   - Sensitive data redaction (API keys, tokens, secrets)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = observability.AddRunID(ctx, runID)
//	logger.Info(ctx, "starting iteration", "budget_consumed", consumed)
//
//	logger.Error(ctx, "gateway call failed",
//	    "error", err,
//	    "api_key", apiKey, // automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to follow a request across the
// components that serve a run:
//   - TraceLLMRequest spans each gateway.Instrumented call
//   - TraceDatabaseQuery spans each collab/store SQLite operation
//   - TraceHTTPRequest spans each collab/httpstream SSE/websocket connection
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "gepa",
//	    Endpoint:    otelEndpoint, // empty disables export
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceLLMRequest(ctx, gw.Name(), model)
//	defer span.End()
//	if err != nil {
//	    tracer.RecordError(span, err)
//	}
//
// # Context Propagation
//
//	ctx = observability.AddRunID(ctx, runID)
//	ctx = observability.AddRequestID(ctx, requestID)
//
//	// IDs automatically appear in logs
//	logger.Info(ctx, "iteration done") // includes run_id, request_id
//
//	// Spans inherit context
//	ctx, span := tracer.Start(ctx, "operation")
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, OpenAI, generic)
//   - Passwords and secrets
//   - JWT and bearer tokens
//   - Custom patterns via LogConfig.RedactPatterns
//
// # Performance
//
// Metrics use lock-free Prometheus counters, logging runs through slog,
// and tracing supports sampling to bound overhead on long runs.
//
// # Configuration
//
//	metrics := observability.NewGEPAMetrics()
//	metrics.MustRegister(prometheus.DefaultRegisterer)
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:          os.Getenv("LOG_LEVEL"),
//	    Format:         "json",
//	    RedactPatterns: []string{`custom-secret-\d+`},
//	})
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:  "gepa",
//	    Endpoint:     os.Getenv("OTEL_ENDPOINT"),
//	    SamplingRate: 0.1,
//	})
//	defer shutdown(context.Background())
//
// # Testing
//
//   - Metrics can be verified with prometheus/client_golang/prometheus/testutil
//   - Logging can write to a bytes.Buffer via LogConfig.Output for assertions
//   - Tracing works with no endpoint configured, which disables export
//
// # Best Practices
//
//  1. Always propagate context to enable run_id/request_id correlation
//  2. Use defer for span.End() to ensure spans are closed
//  3. Record errors on both metrics and traces
//  4. Prefer the gepa.Sink stream over ad hoc metrics calls for run state
//  5. Set appropriate sampling rates for long-running optimizations
//
// # Further Reading
//
//   - Prometheus best practices: https://prometheus.io/docs/practices/naming/
//   - OpenTelemetry specification: https://opentelemetry.io/docs/specs/otel/
//   - slog documentation: https://pkg.go.dev/log/slog
package observability
