package ports

import (
	"context"
	"errors"
)

// ErrOutputTooLong is returned by LLMClient.Call when the completion would
// have been truncated by the model's token cap. The extractor recovers from
// this by splitting the chunk and retrying each half (see services.ExtractionService).
var ErrOutputTooLong = errors.New("llm: output too long")

// CallOptions configures one structured-response LLM call.
type CallOptions struct {
	Temperature    float32
	MaxTokens      int
	SkipValidation bool
	// Scope is a free-form label the transport may use for routing/metrics
	// (e.g. "fact_extraction", "opinion_extraction"); the core never
	// branches on it.
	Scope string
}

// LLMClient is the structured-response LLM transport contract. Callers pass
// a system+user message pair and get back the raw JSON text the model
// produced; the core does its own lenient parsing on top. Transport errors
// propagate verbatim; a distinct ErrOutputTooLong signals a recoverable
// truncation rather than a hard failure.
type LLMClient interface {
	Call(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (string, error)
}
