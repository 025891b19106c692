package llm

import (
	"context"
	"encoding/json"
)

// Invoker performs one structured model call.
type Invoker interface {
	// Name returns the provider name
	Name() string

	// Invoke sends req and returns the schema-checked JSON object the model produced.
	// It makes exactly one outbound request and never retries.
	Invoke(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}

// StructuredRequest is a system instruction, a user message and the schema
// the answer must satisfy.
type StructuredRequest struct {
	System string
	User   string
	Schema *Schema

	// Label tags log lines; it is never sent.
	Label string
}

// Usage tracks token usage
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
