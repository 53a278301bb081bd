package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// AnthropicConfig configures an Anthropic-backed Gateway.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
}

// AnthropicGateway implements Gateway against Anthropic's Messages API. Tool
// execution is neutered by construction: the gateway only ever reads the
// first tool_use block from the response, it never invokes one.
type AnthropicGateway struct {
	BaseProvider
	client anthropic.Client
}

// NewAnthropicGateway constructs a Gateway backed by the Anthropic SDK.
func NewAnthropicGateway(config AnthropicConfig) (*AnthropicGateway, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic gateway: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &AnthropicGateway{
		BaseProvider: NewBaseProvider("anthropic", config.MaxRetries, config.RetryDelay),
		client:       anthropic.NewClient(opts...),
	}, nil
}

func (g *AnthropicGateway) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (ToolSelectionResult, error) {
	anthropicTools, err := convertTools(tools)
	if err != nil {
		return ToolSelectionResult{}, NewProviderError(g.Name(), model, err)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   1024,
		Temperature: anthropic.Float(0),
		Tools:       anthropicTools,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	}

	var message *anthropic.Message
	err = g.Retry(ctx, func(err error) bool { return IsRetryable(err) }, func() error {
		msg, callErr := g.client.Messages.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		message = msg
		return nil
	})
	if err != nil {
		return ToolSelectionResult{}, NewProviderError(g.Name(), model, err)
	}

	for _, block := range message.Content {
		if use, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			var args map[string]any
			_ = json.Unmarshal(use.Input, &args)
			return ToolSelectionResult{SelectedToolName: use.Name, Arguments: args}, nil
		}
	}
	return ToolSelectionResult{}, nil
}

func (g *AnthropicGateway) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	if maxOutputTokens <= 0 {
		maxOutputTokens = 512
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxOutputTokens),
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var message *anthropic.Message
	err := g.Retry(ctx, func(err error) bool { return IsRetryable(err) }, func() error {
		msg, callErr := g.client.Messages.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		message = msg
		return nil
	})
	if err != nil {
		return "", NewProviderError(g.Name(), model, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

func convertTools(tools []gepa.Tool) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("invalid input_schema for tool %s: %w", t.Name, err)
			}
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropic.String(t.Description)
		}
		result = append(result, toolParam)
	}
	return result, nil
}
