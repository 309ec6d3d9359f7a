package llm

import (
	"fmt"
	"log/slog"

	"neurostudy/internal/config"
)

// SetupProviders initializes the provider factory and registry for routing.
// The default model is DEFAULT_PROVIDER/DEFAULT_MODEL.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	providerFactory := NewProviderFactory(cfg)

	defaultModel := cfg.DefaultModel
	if cfg.DefaultProvider != "" {
		defaultModel = cfg.DefaultProvider + "/" + cfg.DefaultModel
	}

	registry := NewProviderRegistry(providerFactory, defaultModel)
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	if cfg.AnthropicAPIKey != "" {
		logger.Info("provider available", "name", ProviderAnthropic, "models", "claude-*")
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set - generation with Anthropic models will be unavailable")
	}
	logger.Info("provider available", "name", ProviderLorem, "models", "lorem-*")

	logger.Info("provider registry initialized", "default_model", defaultModel)

	return registry, nil
}
