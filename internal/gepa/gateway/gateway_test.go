package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/gepa-project/gepa/pkg/gepa"
)

func TestKeywordStubPicksHighestOverlap(t *testing.T) {
	tools := []gepa.Tool{
		{Name: "search_docs", Description: "search the documentation pages"},
		{Name: "search_web", Description: "search the public web"},
	}
	stub := &KeywordStub{}
	result, err := stub.ToolSelection(context.Background(), "stub-model", "find documentation about the API", tools)
	if err != nil {
		t.Fatalf("ToolSelection: %v", err)
	}
	if result.SelectedToolName != "search_docs" {
		t.Fatalf("SelectedToolName = %q, want search_docs", result.SelectedToolName)
	}
}

func TestKeywordStubTiesBreakToFirstTool(t *testing.T) {
	tools := []gepa.Tool{
		{Name: "first", Description: "search"},
		{Name: "second", Description: "search"},
	}
	stub := &KeywordStub{}
	result, err := stub.ToolSelection(context.Background(), "stub-model", "anything at all", tools)
	if err != nil {
		t.Fatalf("ToolSelection: %v", err)
	}
	if result.SelectedToolName != "first" {
		t.Fatalf("SelectedToolName = %q, want first (tie broken to first tool)", result.SelectedToolName)
	}
}

func TestBaseProviderRetryGivesUpOnNonRetryableError(t *testing.T) {
	bp := NewBaseProvider("test", 3, 0)
	calls := 0
	err := bp.Retry(context.Background(), func(error) bool { return false }, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on non-retryable error)", calls)
	}
}

func TestBaseProviderRetriesRetryableError(t *testing.T) {
	bp := NewBaseProvider("test", 3, 0)
	calls := 0
	err := bp.Retry(context.Background(), func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestClassifyErrorRateLimit(t *testing.T) {
	if got := ClassifyError(errors.New("429 too many requests")); got != FailoverRateLimit {
		t.Fatalf("ClassifyError = %v, want %v", got, FailoverRateLimit)
	}
}

func TestProviderErrorIsRetryable(t *testing.T) {
	err := NewProviderError("stub", "m1", errors.New("rate limit exceeded"))
	if !IsRetryable(err) {
		t.Fatal("expected rate-limited ProviderError to be retryable")
	}
}
