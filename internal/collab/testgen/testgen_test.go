package testgen

import (
	"context"
	"testing"

	"github.com/gepa-project/gepa/internal/gepa/gateway"
	"github.com/gepa-project/gepa/pkg/gepa"
)

type fakeGateway struct {
	completion string
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) ToolSelection(ctx context.Context, model, query string, tools []gepa.Tool) (gateway.ToolSelectionResult, error) {
	return gateway.ToolSelectionResult{}, nil
}

func (f *fakeGateway) TextCompletion(ctx context.Context, model, prompt string, maxOutputTokens int) (string, error) {
	return f.completion, nil
}

func weatherMathTools() []gepa.Tool {
	return []gepa.Tool{
		{Name: "get_weather", Description: "Look up the current weather for a location"},
		{Name: "add", Description: "Add two numbers"},
	}
}

func TestGenerateParsesJSONArrayResponse(t *testing.T) {
	gw := &fakeGateway{completion: `[
		{"query": "what's the weather in Boston?", "expected_tool_name": "get_weather"},
		{"query": "what is 2 plus 2?", "expected_tool_name": "add"}
	]`}
	gen := NewLLMGenerator(gw, "test-model")

	cases, err := gen.Generate(context.Background(), weatherMathTools(), 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 test cases, got %d", len(cases))
	}
	if cases[0].ExpectedToolName != "get_weather" || cases[1].ExpectedToolName != "add" {
		t.Errorf("unexpected labels: %+v", cases)
	}
}

func TestGenerateDropsHallucinatedToolNames(t *testing.T) {
	gw := &fakeGateway{completion: `[
		{"query": "what's the weather?", "expected_tool_name": "get_weather"},
		{"query": "tell me a joke", "expected_tool_name": "tell_joke"}
	]`}
	gen := NewLLMGenerator(gw, "test-model")

	cases, err := gen.Generate(context.Background(), weatherMathTools(), 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected the hallucinated tool_name to be dropped, got %d cases", len(cases))
	}
	if cases[0].ExpectedToolName != "get_weather" {
		t.Errorf("expected the remaining case to reference get_weather, got %q", cases[0].ExpectedToolName)
	}
}

func TestGenerateToleratesSurroundingProse(t *testing.T) {
	gw := &fakeGateway{completion: "Sure, here you go:\n[{\"query\": \"what's 3 times 4\", \"expected_tool_name\": \"add\"}]\nHope that helps!"}
	gen := NewLLMGenerator(gw, "test-model")

	cases, err := gen.Generate(context.Background(), weatherMathTools(), 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 test case, got %d", len(cases))
	}
}

func TestGenerateZeroReturnsNil(t *testing.T) {
	gw := &fakeGateway{}
	gen := NewLLMGenerator(gw, "test-model")
	cases, err := gen.Generate(context.Background(), weatherMathTools(), 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if cases != nil {
		t.Errorf("expected nil cases for n=0, got %+v", cases)
	}
}
