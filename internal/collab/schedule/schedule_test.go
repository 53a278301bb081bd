package schedule

import (
	"context"
	"errors"
	"testing"
)

func TestNewRejectsEmptyCronExpr(t *testing.T) {
	_, err := New(Config{}, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected an error for an empty cron expression")
	}
}

func TestNewRejectsInvalidCronExpr(t *testing.T) {
	_, err := New(Config{CronExpr: "not a cron expression"}, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestNewRejectsNilRunFunc(t *testing.T) {
	_, err := New(Config{CronExpr: "@daily"}, nil)
	if err == nil {
		t.Fatal("expected an error for a nil run function")
	}
}

func TestNewAcceptsDescriptorExpression(t *testing.T) {
	trig, err := New(Config{CronExpr: "@daily"}, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if trig == nil {
		t.Fatal("expected a non-nil Trigger")
	}
}

func TestFireReportsRunFuncError(t *testing.T) {
	called := false
	trig, err := New(Config{CronExpr: "@daily"}, func(ctx context.Context) error {
		called = true
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	trig.fire(context.Background())
	if !called {
		t.Fatal("expected the run function to be invoked")
	}
}
