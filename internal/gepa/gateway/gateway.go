// Package gateway implements the LLM Gateway (C1): a uniform adapter over
// chat+tools and plain-text LLM calls, as specified in spec.md §4.1.
//
// Concrete backends (Anthropic, OpenAI, Bedrock) live alongside a
// deterministic Stub used by tests and the default CLI invocation. All of
// them satisfy the Gateway interface and share BaseProvider's retry helper
// and the ProviderError/FailoverReason classification in errors.go.
package gateway

import (
	"context"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// ToolSelectionResult is the Gateway's answer to tool_selection: the name of
// the first tool the model chose (or empty if the model produced text
// without a tool call) plus the arguments it supplied, if any.
type ToolSelectionResult struct {
	SelectedToolName string
	Arguments        map[string]any
}

// Gateway is the uniform LLM adapter the Evaluator and Mutator call
// through. Implementations must use deterministic decoding (temperature 0)
// for ToolSelection and must neuter tool execution: any execute callback
// returns an empty success immediately, real side effects are never
// invoked.
type Gateway interface {
	// ToolSelection presents tools to the model alongside query as a single
	// user turn and returns the tool it selected, or a zero-value result if
	// the model replied with plain text. Fails with *ProviderError on
	// transport/protocol errors.
	ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (ToolSelectionResult, error)

	// TextCompletion is a one-shot prompt returning the assistant's text.
	// Fails with *ProviderError, which is propagated (never swallowed) —
	// the Mutator is responsible for turning it into a no-op mutation.
	TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error)

	// Name identifies the backend for logging/metrics (e.g. "anthropic").
	Name() string
}
