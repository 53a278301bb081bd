// Package gepaconfig loads a RunConfig from YAML or JSON5 files, resolving
// $include directives the same way the teacher's internal/config loader
// does, and validates it into spec.md §6's recognized option set.
package gepaconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/gepa-project/gepa/pkg/gepa"
)

const includeKey = "$include"

// Load reads path (YAML or JSON5), resolves $include directives relative
// to the including file, merges onto spec.md's documented defaults, and
// validates the result. Returns *gepa.ConfigError on any problem, per
// spec.md §7 (config errors are fatal and raised before the loop starts).
func Load(path string) (gepa.RunConfig, error) {
	if strings.TrimSpace(path) == "" {
		return gepa.RunConfig{}, gepa.NewConfigError("config path is required")
	}
	raw, err := loadRawRecursive(path, map[string]bool{})
	if err != nil {
		return gepa.RunConfig{}, gepa.NewConfigError("loading %s: %v", path, err)
	}

	config := gepa.DefaultRunConfig()
	if err := applyRaw(&config, raw); err != nil {
		return gepa.RunConfig{}, gepa.NewConfigError("%s: %v", path, err)
	}
	if err := Validate(config); err != nil {
		return gepa.RunConfig{}, err
	}
	return config, nil
}

// Validate enforces the numeric ranges spec.md §6 documents for each
// recognized option.
func Validate(c gepa.RunConfig) error {
	if c.MaxEvaluations < 1 {
		return gepa.NewConfigError("max_evaluations must be >= 1, got %d", c.MaxEvaluations)
	}
	if c.SubsampleSize < 1 {
		return gepa.NewConfigError("subsample_size must be >= 1, got %d", c.SubsampleSize)
	}
	if c.MaxConcurrentEvaluations < 1 {
		return gepa.NewConfigError("max_concurrent_evaluations must be >= 1, got %d", c.MaxConcurrentEvaluations)
	}
	if c.MinAccuracy < 0 || c.MinAccuracy > 1 {
		return gepa.NewConfigError("min_accuracy must be in [0,1], got %f", c.MinAccuracy)
	}
	if c.AccuracyWeight < 0 || c.AccuracyWeight > 1 {
		return gepa.NewConfigError("accuracy_weight must be in [0,1], got %f", c.AccuracyWeight)
	}
	if c.SelectionTemperature <= 0 {
		return gepa.NewConfigError("selection_temperature must be > 0, got %f", c.SelectionTemperature)
	}
	switch c.SelectionPolicy {
	case gepa.SelectionDominance, gepa.SelectionGlobalScore:
	default:
		return gepa.NewConfigError("unknown selection_policy %q", c.SelectionPolicy)
	}
	return nil
}

func loadRawRecursive(path string, seen map[string]bool) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[absPath] {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	seen[absPath] = true
	defer delete(seen, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))
	raw, err := parseRawBytes([]byte(expanded), absPath)
	if err != nil {
		return nil, err
	}

	includeVal, hasInclude := raw[includeKey]
	if !hasInclude {
		return raw, nil
	}
	incPath, ok := includeVal.(string)
	if !ok {
		return nil, fmt.Errorf("$include in %s must be a string path", absPath)
	}
	if !filepath.IsAbs(incPath) {
		incPath = filepath.Join(filepath.Dir(absPath), incPath)
	}
	base, err := loadRawRecursive(incPath, seen)
	if err != nil {
		return nil, err
	}
	delete(raw, includeKey)
	for k, v := range raw {
		base[k] = v
	}
	return base, nil
}

func parseRawBytes(data []byte, pathHint string) (map[string]any, error) {
	raw := map[string]any{}
	ext := strings.ToLower(filepath.Ext(pathHint))
	if ext == ".json" || ext == ".json5" {
		if err := json5.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func applyRaw(config *gepa.RunConfig, raw map[string]any) error {
	encoded, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(encoded, config)
}
