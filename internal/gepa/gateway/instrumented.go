package gateway

import (
	"context"
	"time"

	"github.com/gepa-project/gepa/internal/observability"
	"github.com/gepa-project/gepa/pkg/gepa"
)

// Instrumented wraps a Gateway with metrics and tracing, following the same
// wrap-don't-reimplement shape as BaseProvider's retry helper: callers get a
// Gateway back, so the Evaluator and Mutator don't need to know tracing
// exists.
type Instrumented struct {
	Gateway
	metrics *observability.GEPAMetrics
	tracer  *observability.Tracer
}

// Instrument wraps gw so every call records GatewayCallDur and, if tracer is
// non-nil, emits a span. Either metrics or tracer may be nil to disable that
// half of the instrumentation.
func Instrument(gw Gateway, metrics *observability.GEPAMetrics, tracer *observability.Tracer) Gateway {
	return &Instrumented{Gateway: gw, metrics: metrics, tracer: tracer}
}

func (g *Instrumented) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (ToolSelectionResult, error) {
	start := time.Now()
	if g.tracer == nil {
		result, err := g.Gateway.ToolSelection(ctx, model, query, tools)
		g.record("tool_selection", start, err)
		return result, err
	}
	spanCtx, span := g.tracer.TraceLLMRequest(ctx, g.Gateway.Name(), model)
	g.tracer.SetAttributes(span, "llm.operation", "tool_selection")
	result, err := g.Gateway.ToolSelection(spanCtx, model, query, tools)
	if err != nil {
		g.tracer.RecordError(span, err)
	}
	span.End()
	g.record("tool_selection", start, err)
	return result, err
}

func (g *Instrumented) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	start := time.Now()
	if g.tracer == nil {
		text, err := g.Gateway.TextCompletion(ctx, model, prompt, maxOutputTokens)
		g.record("text_completion", start, err)
		return text, err
	}
	spanCtx, span := g.tracer.TraceLLMRequest(ctx, g.Gateway.Name(), model)
	g.tracer.SetAttributes(span, "llm.operation", "text_completion")
	text, err := g.Gateway.TextCompletion(spanCtx, model, prompt, maxOutputTokens)
	if err != nil {
		g.tracer.RecordError(span, err)
	}
	span.End()
	g.record("text_completion", start, err)
	return text, err
}

func (g *Instrumented) record(operation string, start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	g.metrics.GatewayCallDur.WithLabelValues(g.Gateway.Name(), operation).Observe(time.Since(start).Seconds())
}
