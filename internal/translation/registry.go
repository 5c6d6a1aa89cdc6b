package translation

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	// ProviderEnvVar selects the default translation provider.
	ProviderEnvVar = "TRANSLATION_PROVIDER"
	// DefaultProviderName is used when TRANSLATION_PROVIDER is unset.
	DefaultProviderName = "local"
)

// Registry holds the providers a job can translate through. Lookups are
// case-insensitive; an empty name resolves the configured default.
type Registry struct {
	byName      map[string]Provider
	defaultName string
}

func NewRegistry(defaultProvider string) *Registry {
	name := normalizeProviderName(defaultProvider)
	if name == "" {
		name = DefaultProviderName
	}
	return &Registry{
		byName:      make(map[string]Provider),
		defaultName: name,
	}
}

// NewRegistryFromEnv assembles the provider set from environment
// configuration. The local provider is always registered; the OpenAI
// provider joins when OPENAI_API_KEY is set. When the requested default is
// not registered the registry falls back to the local provider, then to any
// registered provider.
func NewRegistryFromEnv() *Registry {
	registry := NewRegistry(os.Getenv(ProviderEnvVar))
	_ = registry.Register(NewLocalProviderFromEnv())
	if provider := NewOpenAIProviderFromEnv(); provider != nil {
		_ = registry.Register(provider)
	}

	if !registry.has(registry.defaultName) {
		registry.defaultName = DefaultProviderName
	}
	if !registry.has(registry.defaultName) {
		for name := range registry.byName {
			registry.defaultName = name
			break
		}
	}

	return registry
}

func (r *Registry) has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Register adds one provider under its normalized name, replacing any
// previous provider with that name.
func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.byName[name] = provider
	return nil
}

// Provider resolves a provider by name; an empty name resolves the default.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if len(r.byName) == 0 {
		return nil, fmt.Errorf("no translation providers are registered")
	}

	resolved := normalizeProviderName(name)
	if resolved == "" {
		resolved = r.defaultName
	}
	if provider, ok := r.byName[resolved]; ok {
		return provider, nil
	}

	return nil, fmt.Errorf("translation provider %q is not registered (available: %s)", resolved, strings.Join(r.ProviderNames(), ", "))
}

func (r *Registry) DefaultProvider() string {
	if r == nil {
		return ""
	}
	return r.defaultName
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
