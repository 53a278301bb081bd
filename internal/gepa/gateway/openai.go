package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// OpenAIConfig configures an OpenAI-backed Gateway.
type OpenAIConfig struct {
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIGateway implements Gateway against the Chat Completions API.
type OpenAIGateway struct {
	BaseProvider
	client *openai.Client
}

// NewOpenAIGateway constructs a Gateway backed by the go-openai client.
func NewOpenAIGateway(config OpenAIConfig) *OpenAIGateway {
	return &OpenAIGateway{
		BaseProvider: NewBaseProvider("openai", config.MaxRetries, config.RetryDelay),
		client:       openai.NewClient(config.APIKey),
	}
}

func (g *OpenAIGateway) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (ToolSelectionResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Tools: convertOpenAITools(tools),
	}

	var resp openai.ChatCompletionResponse
	err := g.Retry(ctx, func(err error) bool { return IsRetryable(err) }, func() error {
		r, callErr := g.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return ToolSelectionResult{}, NewProviderError(g.Name(), model, err)
	}
	if len(resp.Choices) == 0 {
		return ToolSelectionResult{}, nil
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return ToolSelectionResult{}, nil
	}
	var args map[string]any
	_ = json.Unmarshal([]byte(calls[0].Function.Arguments), &args)
	return ToolSelectionResult{SelectedToolName: calls[0].Function.Name, Arguments: args}, nil
}

func (g *OpenAIGateway) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0,
		MaxTokens:   maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var resp openai.ChatCompletionResponse
	err := g.Retry(ctx, func(err error) bool { return IsRetryable(err) }, func() error {
		r, callErr := g.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", NewProviderError(g.Name(), model, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func convertOpenAITools(tools []gepa.Tool) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		var params any
		if len(t.InputSchema) > 0 {
			_ = json.Unmarshal(t.InputSchema, &params)
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return result
}
