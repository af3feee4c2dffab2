// Package schemas checks documents read from disk or received over HTTP
// against the embedded JSON Schemas.
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	schemafiles "github.com/jonathan/monitoring-deck/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// Violation is one rule a document broke, located by its JSON path.
type Violation struct {
	Path   string
	Reason string
}

// ValidationError lists every violation a document produced.
type ValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Path+": "+v.Reason)
	}
	name := e.Schema
	if name == "" {
		name = "schema"
	}
	return fmt.Sprintf("document does not match %s (%s)", name, strings.Join(parts, "; "))
}

// SchemaError means the schema itself could not be used.
type SchemaError struct {
	Schema string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s unusable: %v", e.Schema, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// compile returns the embedded schema, compiling it on first use.
func compile(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[name]; ok {
		return s, nil
	}
	content, err := schemafiles.Read(name)
	if err != nil {
		return nil, &SchemaError{Schema: name, Err: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, &SchemaError{Schema: name, Err: err}
	}
	compiled[name] = s
	return s, nil
}

// Validate checks a JSON document against one of the embedded schemas.
func Validate(schemaName string, document []byte) error {
	s, err := compile(schemaName)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	return violations(schemaName, result)
}

// ValidateValue marshals v to JSON first, for documents that arrive as YAML.
func ValidateValue(schemaName string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal document for validation: %w", err)
	}
	return Validate(schemaName, data)
}

// ValidateFile validates a JSON file on disk against an embedded schema.
func ValidateFile(schemaName, jsonPath string) error {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}
	return Validate(schemaName, data)
}

// ValidateJSONString checks a document against an ad hoc schema. Nothing is cached.
func ValidateJSONString(schemaContent, jsonContent string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewStringLoader(jsonContent),
	)
	if err != nil {
		return &SchemaError{Schema: "inline", Err: err}
	}
	return violations("", result)
}

func violations(schemaName string, result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{Schema: schemaName}
	for _, desc := range result.Errors() {
		path := desc.Field()
		if path == "" || path == "(root)" {
			path = "$"
		}
		ve.Violations = append(ve.Violations, Violation{Path: path, Reason: desc.Description()})
	}
	return ve
}
