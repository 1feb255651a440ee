package llm

import (
	"context"
	"encoding/json"
)

// TextRequest is an unstructured generation request.
type TextRequest struct {
	Prompt    string
	MaxTokens int
}

// StructuredRequest asks the oracle for a JSON document matching Schema.
type StructuredRequest struct {
	SchemaName   string
	Schema       json.RawMessage
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// ModelProvider is the capability the turn scheduler consumes from the
// oracle. GenerateStructured returns the raw JSON document; validating it
// against the schema is the caller's job.
type ModelProvider interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}
