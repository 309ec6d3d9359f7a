package llm

import (
	"fmt"
	"sync"

	domainllm "neurostudy/internal/domain/services/llm"
)

// ProviderRegistry routes model strings to providers and caches the instances.
type ProviderRegistry struct {
	factory      *ProviderFactory
	defaultModel string
	cache        map[string]domainllm.Provider
	mu           sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(factory *ProviderFactory, defaultModel string) *ProviderRegistry {
	return &ProviderRegistry{
		factory:      factory,
		defaultModel: defaultModel,
		cache:        make(map[string]domainllm.Provider),
	}
}

// GetProvider returns the provider for the given provider name.
// Failed creations are not cached, so setting a key later takes effect.
func (r *ProviderRegistry) GetProvider(provider string) (domainllm.Provider, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	r.mu.RLock()
	if cached, exists := r.cache[provider]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have created it while we waited for the lock
	if cached, exists := r.cache[provider]; exists {
		return cached, nil
	}

	p, err := r.factory.GetProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", provider, err)
	}

	r.cache[provider] = p
	return p, nil
}

// Resolve returns the provider and bare model name for model. An empty model
// resolves to the configured default.
func (r *ProviderRegistry) Resolve(model string) (domainllm.Provider, string, error) {
	if model == "" {
		model = r.defaultModel
	}

	info, err := ParseModel(model)
	if err != nil {
		return nil, "", err
	}

	p, err := r.GetProvider(info.Provider)
	if err != nil {
		return nil, "", err
	}
	return p, info.Model, nil
}

// DefaultModel returns the model used when a request names none.
func (r *ProviderRegistry) DefaultModel() string {
	return r.defaultModel
}

// Validate checks if the factory is properly configured.
// Should be called at startup to fail fast if misconfigured.
func (r *ProviderRegistry) Validate() error {
	if r.factory == nil {
		return fmt.Errorf("provider factory is not configured")
	}
	if _, err := ParseModel(r.defaultModel); err != nil {
		return fmt.Errorf("default model: %w", err)
	}
	return nil
}
