package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/document"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// BedrockConfig configures a Bedrock-backed Gateway via the Converse API.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	MaxRetries      int
	RetryDelay      time.Duration
}

// BedrockGateway implements Gateway against Bedrock's Converse API.
type BedrockGateway struct {
	BaseProvider
	client *bedrockruntime.Client
}

// NewBedrockGateway constructs a Gateway backed by the AWS Bedrock runtime.
func NewBedrockGateway(cfg BedrockConfig) (*BedrockGateway, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(context.Background(), config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock gateway: failed to load AWS config: %w", err)
	}

	return &BedrockGateway{
		BaseProvider: NewBaseProvider("bedrock", cfg.MaxRetries, cfg.RetryDelay),
		client:       bedrockruntime.NewFromConfig(awsCfg),
	}, nil
}

func (g *BedrockGateway) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (ToolSelectionResult, error) {
	toolConfig, err := convertBedrockTools(tools)
	if err != nil {
		return ToolSelectionResult{}, NewProviderError(g.Name(), model, err)
	}

	temperature := float32(0)
	req := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: query}},
			},
		},
		ToolConfig:      toolConfig,
		InferenceConfig: &types.InferenceConfiguration{Temperature: aws.Float32(temperature)},
	}

	var out *bedrockruntime.ConverseOutput
	err = g.Retry(ctx, func(err error) bool { return IsRetryable(err) }, func() error {
		o, callErr := g.client.Converse(ctx, req)
		if callErr != nil {
			return callErr
		}
		out = o
		return nil
	})
	if err != nil {
		return ToolSelectionResult{}, NewProviderError(g.Name(), model, err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ToolSelectionResult{}, nil
	}
	for _, block := range msg.Value.Content {
		if use, ok := block.(*types.ContentBlockMemberToolUse); ok {
			args := documentToMap(use.Value.Input)
			return ToolSelectionResult{SelectedToolName: aws.ToString(use.Value.Name), Arguments: args}, nil
		}
	}
	return ToolSelectionResult{}, nil
}

func (g *BedrockGateway) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	if maxOutputTokens <= 0 {
		maxOutputTokens = 512
	}
	temperature := float32(0)
	req := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(temperature),
			MaxTokens:   aws.Int32(int32(maxOutputTokens)),
		},
	}

	var out *bedrockruntime.ConverseOutput
	err := g.Retry(ctx, func(err error) bool { return IsRetryable(err) }, func() error {
		o, callErr := g.client.Converse(ctx, req)
		if callErr != nil {
			return callErr
		}
		out = o
		return nil
	})
	if err != nil {
		return "", NewProviderError(g.Name(), model, err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", nil
	}
	var text string
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	return text, nil
}

func convertBedrockTools(tools []gepa.Tool) (*types.ToolConfiguration, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		var schemaDoc document.Interface
		if len(t.InputSchema) > 0 {
			var raw map[string]any
			if err := json.Unmarshal(t.InputSchema, &raw); err != nil {
				return nil, fmt.Errorf("invalid input_schema for tool %s: %w", t.Name, err)
			}
			schemaDoc = document.NewLazyDocument(raw)
		}
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: schemaDoc},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}, nil
}

func documentToMap(doc document.Interface) map[string]any {
	if doc == nil {
		return nil
	}
	var out map[string]any
	_ = doc.UnmarshalSmithyDocument(&out)
	return out
}
