package gepaconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gepa-project/gepa/pkg/gepa"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "max_evaluations: 100\n")
	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.MaxEvaluations != 100 {
		t.Fatalf("MaxEvaluations = %d, want 100", config.MaxEvaluations)
	}
	if config.SubsampleSize != 5 {
		t.Fatalf("SubsampleSize = %d, want default 5", config.SubsampleSize)
	}
}

func TestLoadResolvesInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "subsample_size: 8\nselection_policy: dominance\n")
	path := writeFile(t, dir, "run.yaml", "$include: base.yaml\nmax_evaluations: 50\n")
	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.SubsampleSize != 8 {
		t.Fatalf("SubsampleSize = %d, want 8 (from base)", config.SubsampleSize)
	}
	if config.MaxEvaluations != 50 {
		t.Fatalf("MaxEvaluations = %d, want 50 (overriding base)", config.MaxEvaluations)
	}
	if config.SelectionPolicy != gepa.SelectionDominance {
		t.Fatalf("SelectionPolicy = %q, want dominance", config.SelectionPolicy)
	}
}

func TestLoadRejectsInvalidRange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "max_evaluations: 0\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected ConfigError for max_evaluations: 0")
	}
	if _, ok := err.(*gepa.ConfigError); !ok {
		t.Fatalf("err = %T, want *gepa.ConfigError", err)
	}
}

func TestValidateRejectsUnknownSelectionPolicy(t *testing.T) {
	config := gepa.DefaultRunConfig()
	config.SelectionPolicy = "unknown"
	if err := Validate(config); err == nil {
		t.Fatal("expected error for unknown selection_policy")
	}
}
