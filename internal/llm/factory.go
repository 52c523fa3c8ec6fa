package llm

import (
	"fmt"
	"os"
)

// NewProvider creates a new LLM provider based on the given provider
// type and model. Supported provider types: "openai", "ollama", "mock".
func NewProvider(providerType string, model string) (Provider, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "ollama":
		return NewOllamaProvider(os.Getenv("OLLAMA_HOST"), model), nil

	case "mock":
		return NewMockProvider(""), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
