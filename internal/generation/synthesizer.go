package generation

import (
	"context"
	"encoding/json"
)

// SynthesisRequest is the bounded specification sent to the external
// content synthesizer: the rendered prompt plus the structural shape the
// response must take.
type SynthesisRequest struct {
	// Prompt is the rendered generation prompt.
	Prompt string

	// SchemaName identifies the modal schema, used for caching compiled
	// validators and for diagnostics.
	SchemaName string

	// ResponseSchema is the JSON Schema document the response payload
	// must satisfy.
	ResponseSchema map[string]any
}

// Synthesizer defines the boundary to the external content synthesizer.
// Implementations return the raw structured payload; callers must not
// assume semantic correctness beyond what ValidatePayload checks.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (json.RawMessage, error)
}
