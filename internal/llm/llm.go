// Package llm provides a provider-agnostic language-model client interface
// used by priceowl's semantic matching strategy.
package llm

import "context"

// Provider abstracts a language-model API behind a single synchronous
// completion method.
type Provider interface {
	// Complete sends a prompt to the model and returns the response.
	// Implementations must respect context cancellation and deadlines.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request describes a single completion request.
type Request struct {
	// System sets the system instruction for the completion.
	System string

	// Prompt is the user message to send.
	Prompt string

	// Model overrides the provider's default model. If empty, the provider
	// uses its configured default.
	Model string

	// MaxTokens limits the response length. If zero, the provider uses its
	// own default.
	MaxTokens int

	// Temperature controls randomness. If nil, the provider uses its default.
	// Grouping requests pass 0 for reproducible output.
	Temperature *float64
}

// Response holds the result of a completion call.
type Response struct {
	// Content is the text returned by the model.
	Content string

	// Model is the model that actually served the request.
	Model string

	// Usage reports token consumption.
	Usage Usage
}

// Usage tracks input and output token counts for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
