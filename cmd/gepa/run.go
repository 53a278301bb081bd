package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/internal/gepa/gepaconfig"
	"github.com/gepa-project/gepa/internal/gepa/scheduler"
	"github.com/gepa-project/gepa/internal/observability"
	"github.com/gepa-project/gepa/pkg/gepa"
)

type runFlags struct {
	configPath string
	toolsPath  string
	testsPath  string
	backend    string
	logLevel   string
	logFormat  string
	seed       uint64
}

func newRunCommand() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a GEPA optimization against a tool inventory and test set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimization(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML or JSON5 run config ($include supported)")
	cmd.Flags().StringVar(&flags.toolsPath, "tools", "", "path to a JSON array of tools")
	cmd.Flags().StringVar(&flags.testsPath, "tests", "", "path to a JSON array of test cases")
	cmd.Flags().StringVar(&flags.backend, "backend", "stub", "gateway backend: stub, anthropic, openai, bedrock")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "PRNG seed for reproducible runs")
	_ = cmd.MarkFlagRequired("tools")
	_ = cmd.MarkFlagRequired("tests")
	return cmd
}

func runOptimization(ctx context.Context, flags *runFlags) error {
	logger := observability.NewLogger(observability.LogConfig{Level: flags.logLevel, Format: flags.logFormat})

	tools, err := readTools(flags.toolsPath)
	if err != nil {
		return fmt.Errorf("reading tools: %w", err)
	}
	testCases, err := readTestCases(flags.testsPath)
	if err != nil {
		return fmt.Errorf("reading test cases: %w", err)
	}

	config := gepa.DefaultRunConfig()
	if flags.configPath != "" {
		config, err = gepaconfig.Load(flags.configPath)
		if err != nil {
			return err
		}
	}
	config.Seed = flags.seed

	gw, err := buildGateway(flags.backend)
	if err != nil {
		return err
	}

	runID := newRunID()
	ctx = observability.AddRunID(ctx, runID)
	sink := gepa.SinkFunc(func(e gepa.Event) {
		logger.Info(ctx, "gepa event", "type", e.Type, "seq", e.Sequence)
	})

	sched, err := scheduler.New(runID, tools, testCases, gw, config, sink)
	if err != nil {
		return err
	}

	archv, err := sched.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info(ctx, "optimization complete", "run_id", runID, "archive_size", archv.Size())
	best := bestByAccuracy(archv.All())
	if best != nil {
		fmt.Printf("best candidate: id=%s accuracy=%.4f avg_length=%.1f\n", best.Candidate.ID, best.Accuracy, best.AvgDescriptionLength)
	}
	return nil
}

func buildGateway(backend string) (gateway.Gateway, error) {
	switch backend {
	case "", "stub":
		return &gateway.KeywordStub{}, nil
	case "anthropic":
		return gateway.NewAnthropicGateway(gateway.AnthropicConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")})
	case "openai":
		return gateway.NewOpenAIGateway(gateway.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}), nil
	case "bedrock":
		return gateway.NewBedrockGateway(gateway.BedrockConfig{Region: os.Getenv("AWS_REGION")})
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func readTools(path string) ([]gepa.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tools []gepa.Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

func readTestCases(path string) ([]gepa.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []gepa.TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func bestByAccuracy(candidates []gepa.EvaluatedCandidate) *gepa.EvaluatedCandidate {
	var best *gepa.EvaluatedCandidate
	for i := range candidates {
		c := &candidates[i]
		if best == nil || c.Accuracy > best.Accuracy || (c.Accuracy == best.Accuracy && c.AvgDescriptionLength < best.AvgDescriptionLength) {
			best = c
		}
	}
	return best
}
