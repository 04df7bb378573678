package llm

import (
	"context"
	"fmt"
	"os"
)

// unavailableProvider is installed when no credential is configured.
// Every call fails with ErrUnavailable instead of the process
// refusing to start: the rest of the app keeps working on saved and
// shared cases.
type unavailableProvider struct {
	reason string
}

func (u *unavailableProvider) Name() string { return "unavailable" }

func (u *unavailableProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, u.reason)
}

func (u *unavailableProvider) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, u.reason)
}

// NewProvider creates an LLM provider for the given provider type and
// model. Supported types: "openai", "ollama". A missing API key does
// not fail construction; it yields a provider whose calls report the
// service as unavailable.
func NewProvider(providerType string, model string) (StreamProvider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return &unavailableProvider{reason: "OPENAI_API_KEY environment variable is not set"}, nil
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
