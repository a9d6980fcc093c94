/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/

// Package schema validates declarative plan documents against the embedded
// JSON Schemas before the planner ever sees them.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/projpatch/internal/assets"
)

// Result holds the validation outcome.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is a single schema violation.
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Validator wraps a compiled schema for repeated validation.
type Validator struct {
	schema *gojsonschema.Schema
}

var (
	registry = make(map[string]*gojsonschema.Schema)
	regMu    sync.Mutex
)

// Embedded returns a validator for a named embedded schema, compiling and
// caching it on first use.
func Embedded(name string) (*Validator, error) {
	regMu.Lock()
	defer regMu.Unlock()
	if sch, ok := registry[name]; ok {
		return &Validator{schema: sch}, nil
	}
	data, ok := assets.GetSchema(name)
	if !ok {
		return nil, fmt.Errorf("embedded schema %s not found", name)
	}
	sch, err := compileSchemaBytes(data)
	if err != nil {
		return nil, err
	}
	registry[name] = sch
	return &Validator{schema: sch}, nil
}

// NewValidatorFromBytes compiles schema bytes (JSON or YAML) into a
// reusable validator.
func NewValidatorFromBytes(schemaBytes []byte) (*Validator, error) {
	sch, err := compileSchemaBytes(schemaBytes)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: sch}, nil
}

// compileSchemaBytes accepts YAML or JSON schema text; YAML is converted to
// canonical JSON for the loader.
func compileSchemaBytes(schemaBytes []byte) (*gojsonschema.Schema, error) {
	var tmp any
	if err := yaml.Unmarshal(schemaBytes, &tmp); err == nil {
		jb, jerr := json.Marshal(tmp)
		if jerr != nil {
			return nil, fmt.Errorf("failed to encode schema to JSON: %w", jerr)
		}
		schemaBytes = jb
	}
	sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return sch, nil
}

// ValidateBytes parses YAML/JSON bytes and validates them against the
// compiled schema.
func (v *Validator) ValidateBytes(dataBytes []byte) (*Result, error) {
	if v == nil || v.schema == nil {
		return nil, fmt.Errorf("validator not initialised")
	}
	var data any
	if err := yaml.Unmarshal(dataBytes, &data); err != nil {
		if err := json.Unmarshal(dataBytes, &data); err != nil {
			return nil, fmt.Errorf("failed to parse data bytes (YAML/JSON): %w", err)
		}
	}
	jb, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize data: %w", err)
	}
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(jb))
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	out := &Result{Valid: res.Valid()}
	for _, e := range res.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Path:    e.Field(),
			Message: e.Description(),
		})
	}
	return out, nil
}
