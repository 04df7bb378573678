package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// StreamProvider is implemented by providers that can deliver a
// completion incrementally. Events are sent in arrival order; the
// channel is closed after the terminal event.
type StreamProvider interface {
	Provider
	CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}
