package domain

import "context"

// Embedder turns text into a vector. The credential travels with each call
// because the host supplies it on every hook invocation; an empty apiKey lets
// the implementation fall back to its own configured key.
type Embedder interface {
	Embed(ctx context.Context, text, apiKey string) (EmbeddingResult, error)
}

// EmbeddingResult is one vector plus the tokens the provider billed for it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prepends a fixed instruction to every query before embedding,
// for models trained with query-side instructions.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner. An empty instruction makes it a pass-through.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed delegates with the instruction prepended. Errors pass through unwrapped.
func (e *InstructionEmbedder) Embed(ctx context.Context, text, apiKey string) (EmbeddingResult, error) {
	if e.instruction == "" {
		return e.inner.Embed(ctx, text, apiKey) //nolint:wrapcheck // transparent decorator
	}
	return e.inner.Embed(ctx, e.instruction+text, apiKey) //nolint:wrapcheck // transparent decorator
}
