package factory

import (
	"fmt"

	"recall-be/pkg/llm"
	"recall-be/pkg/llm/ollama"
)

// NewLLMProvider returns nil without error for provider "none"; callers then fall
// back to their deterministic behavior.
func NewLLMProvider(providerType, modelName, baseURL string) (llm.StreamingProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
