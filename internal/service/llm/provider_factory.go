package llm

import (
	"fmt"

	"neurostudy/internal/config"
	"neurostudy/internal/domain"
	domainllm "neurostudy/internal/domain/services/llm"
	"neurostudy/internal/service/llm/adapters"
	"neurostudy/internal/service/llm/providers/anthropic"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// ProviderFactory creates LLM provider instances
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// GetProvider returns a provider instance for the given provider name
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "lorem" - Offline provider for development (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.Provider, error) {
	switch providerName {
	case ProviderAnthropic:
		return f.createAnthropicProvider()
	case ProviderLorem:
		return adapters.NewLoremAdapter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider: %s", domain.ErrValidation, providerName)
	}
}

// createAnthropicProvider creates an Anthropic provider instance. A missing
// key is reported as unavailable so callers can tell it from a failed call.
func (f *ProviderFactory) createAnthropicProvider() (domainllm.Provider, error) {
	if f.config.AnthropicAPIKey == "" {
		return nil, &domain.UnavailableError{Message: "ANTHROPIC_API_KEY is not set"}
	}

	provider, err := anthropic.NewProvider(f.config.AnthropicAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}

	return provider, nil
}
