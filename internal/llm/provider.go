// Package llm abstracts generative model backends behind a narrow
// Provider interface so the rest of the system never depends on a
// specific vendor SDK.
package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
