// Package schemacheck validates a Tool's input_schema and, given that
// schema, the arguments a gateway claims a candidate selected. Grounded on
// the teacher's internal/gateway/ws_schema.go: compile once into a cache
// keyed by name, then validate parsed JSON against the compiled schema.
package schemacheck

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gepa-project/gepa/pkg/gepa"
)

// Registry compiles and caches a jsonschema.Schema per tool name so a
// schema shared across many candidates' evaluations is only compiled once.
type Registry struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// ValidateTools checks that every tool in candidate carries a well-formed
// JSON Schema document, failing fast before a run ever calls a gateway with
// it. A tool with no InputSchema is accepted: the schema is optional.
func (r *Registry) ValidateTools(tools []gepa.Tool) error {
	for _, t := range tools {
		if len(t.InputSchema) == 0 {
			continue
		}
		if _, err := r.compile(t.Name, t.InputSchema); err != nil {
			return fmt.Errorf("schemacheck: tool %q: %w", t.Name, err)
		}
	}
	return nil
}

// ValidateArguments checks raw (a gateway's reported tool-call arguments)
// against tool's input_schema. A tool with no schema accepts any arguments.
func (r *Registry) ValidateArguments(tool gepa.Tool, raw json.RawMessage) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	schema, err := r.compile(tool.Name, tool.InputSchema)
	if err != nil {
		return fmt.Errorf("schemacheck: tool %q: %w", tool.Name, err)
	}

	var payload any
	if len(raw) == 0 {
		payload = map[string]any{}
	} else if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("schemacheck: tool %q: arguments not valid JSON: %w", tool.Name, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("schemacheck: tool %q: arguments failed schema validation: %w", tool.Name, err)
	}
	return nil
}

func (r *Registry) compile(name string, schemaDoc json.RawMessage) (*jsonschema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if schema, ok := r.schemas[name]; ok {
		return schema, nil
	}
	compiled, err := jsonschema.CompileString(name, string(schemaDoc))
	if err != nil {
		return nil, err
	}
	r.schemas[name] = compiled
	return compiled, nil
}
