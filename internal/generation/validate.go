package generation

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache caches compiled JSON schemas by modal schema id.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// ValidatePayload validates a raw synthesizer payload against the modal
// schema's structural descriptor. Returns an error wrapping
// ErrInvalidResponse on any structural failure.
func ValidatePayload(schemaName string, definition map[string]any, raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: payload is not valid JSON: %v", ErrInvalidResponse, err)
	}

	compiled, err := getCompiledSchema(schemaName, definition)
	if err != nil {
		return fmt.Errorf("%w: compile schema %q: %v", ErrInvalidConfig, schemaName, err)
	}

	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}

// getCompiledSchema returns a cached compiled schema or compiles and
// caches it. Modal schema definitions are immutable after registry load,
// so caching by id is safe.
func getCompiledSchema(name string, definition map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not raw
	// bytes. Marshal then unmarshal to get a clean representation.
	defBytes, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
