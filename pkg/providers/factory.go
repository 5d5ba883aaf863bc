package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tabletalk-io/tabletalk/pkg/config"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type providerFactory struct {
	build    func(cfg *config.Config) (LLMProvider, error)
	validate func(cfg *config.Config) error
}

var (
	factoryMu sync.RWMutex
	factories = map[string]providerFactory{}
)

func init() {
	RegisterFactory(ProviderAnthropic,
		func(cfg *config.Config) (LLMProvider, error) {
			return newAnthropicProvider(
				cfg.Providers.Anthropic.APIKey,
				cfg.Providers.Anthropic.APIBase,
				cfg.Responder.Model,
			)
		},
		func(cfg *config.Config) error {
			if strings.TrimSpace(cfg.Providers.Anthropic.APIKey) == "" {
				return fmt.Errorf("providers.anthropic.api_key is required")
			}
			return nil
		},
	)

	RegisterFactory(ProviderOpenAI,
		func(cfg *config.Config) (LLMProvider, error) {
			apiBase := cfg.Providers.OpenAI.APIBase
			if strings.TrimSpace(apiBase) == "" {
				apiBase = "https://api.openai.com/v1"
			}
			model := cfg.Responder.Model
			if strings.TrimSpace(model) == "" {
				model = "gpt-4o"
			}
			return newChatCompletionsProvider(
				ProviderOpenAI,
				apiBase,
				cfg.Providers.OpenAI.APIKey,
				model,
				cfg.Providers.OpenAI.Proxy,
			)
		},
		func(cfg *config.Config) error {
			if strings.TrimSpace(cfg.Providers.OpenAI.APIKey) == "" {
				return fmt.Errorf("providers.openai.api_key is required")
			}
			return nil
		},
	)
}

func RegisterFactory(name string, build func(cfg *config.Config) (LLMProvider, error), validate func(cfg *config.Config) error) {
	name = NormalizeProviderName(name)
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[name] = providerFactory{build: build, validate: validate}
}

func SupportedProviders() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	providers := make([]string, 0, len(factories))
	for name := range factories {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

func NormalizeProviderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderAnthropic
	}
	return name
}

func ActiveProviderName(cfg *config.Config) string {
	if cfg == nil {
		return ProviderAnthropic
	}
	return NormalizeProviderName(cfg.Responder.Provider)
}

func ValidateProviderConfig(cfg *config.Config) error {
	factory, _, err := getFactory(cfg)
	if err != nil {
		return err
	}
	if factory.validate == nil {
		return nil
	}
	return factory.validate(cfg)
}

func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	factory, _, err := getFactory(cfg)
	if err != nil {
		return nil, err
	}
	return factory.build(cfg)
}

func getFactory(cfg *config.Config) (providerFactory, string, error) {
	name := ActiveProviderName(cfg)

	factoryMu.RLock()
	factory, ok := factories[name]
	factoryMu.RUnlock()
	if !ok {
		return providerFactory{}, name, fmt.Errorf("unsupported provider %q: supported providers are %s", name, strings.Join(SupportedProviders(), ", "))
	}
	return factory, name, nil
}
