package llmfactory

import (
	"slices"

	"github.com/effective-security/x/configloader"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
	// DefaultProvider names the provider used when no preference applies.
	// If empty, the first configured provider is the default.
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// ChatModels maps a chat surface to the models to prefer, in order.
	// Use `default: [<model_name>]` as the fallback mapping.
	ChatModels map[string][]string `json:"chat_models" yaml:"chat_models"`
}

// ProviderConfig describes one model provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name"`
	// APIType specifies the provider adapter to use: ANTHROPIC|OPENAI
	APIType string `json:"api_type" yaml:"api_type"`
	// APIKey may reference an environment variable, e.g. ${ANTHROPIC_API_KEY},
	// expanded at load time. If empty, the adapter falls back to its own
	// environment variable.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the provider endpoint, for proxies and gateways.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Organization specifies which organization's quota and billing should be
	// used when making API requests.
	Organization string   `json:"organization,omitempty" yaml:"organization,omitempty"`
	DefaultModel string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	Models       []string `json:"models,omitempty" yaml:"models,omitempty"`
}

// FindModel returns the first preferred model this provider serves, or the
// provider's default model when none matches.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.Models, model) {
			return model
		}
	}
	return c.DefaultModel
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
