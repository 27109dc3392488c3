package llmfactory

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms/anthropic"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms/openai"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory creates and caches chat models from provider configuration.
type Factory interface {
	// DefaultModel returns the default provider's default model.
	DefaultModel() (llms.Model, error)
	// ModelByName returns the first preferred model served by any configured
	// provider; when none matches, it falls back to the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// ChatModel returns the model mapped to a chat surface, e.g. "storefront"
	// or "customer_account". Surfaces without a mapping use the `default`
	// mapping, then the preferred models, then the default provider.
	ChatModel(surface string, preferredModels ...string) (llms.Model, error)
}

// Load returns a Factory configured from the given file location.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	chatModels      map[string][]string
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:        cfg,
		byName:     make(map[string]llms.Model),
		chatModels: make(map[string][]string),
	}

	for k, v := range cfg.ChatModels {
		f.chatModels[k] = slices.Clone(v)
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}

	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

// CreateLLM constructs a model client for the given provider configuration.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	provType := strings.ToUpper(cfg.APIType)
	switch provType {
	case "ANTHROPIC":
		return newAnthropic(cfg, preferredModels...)
	case "OPENAI", "OPEN_AI":
		return newOpenAI(cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", provType)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []anthropic.Option
	model := cfg.FindModel(preferredModels...)
	opts = append(opts, anthropic.WithModel(model))

	if cfg.APIKey != "" {
		opts = append(opts, anthropic.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	model := cfg.FindModel(preferredModels...)
	opts = append(opts, openai.WithModel(model))

	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Organization != "" {
		opts = append(opts, openai.WithOrganization(cfg.Organization))
	}
	return openai.New(opts...)
}

// DefaultModel returns the default provider's default model.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}

	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if slices.Contains(cfg.Models, modelName) {
				model, err := NewLLM(cfg, modelNames...)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.APIType,
						"models", modelNames,
						"err", err)
					continue
				}

				logger.KV(xlog.DEBUG,
					"status", "created_llm",
					"type", cfg.APIType,
					"name", cfg.Name,
					"model", modelName)

				f.byName[modelName] = model
				return model, nil
			}
		}
	}
	return f.DefaultModel()
}

// ChatModel returns the model configured for a chat surface.
func (f *factory) ChatModel(surface string, preferredModels ...string) (llms.Model, error) {
	if modelNames, ok := f.chatModels[surface]; ok {
		return f.ModelByName(modelNames...)
	}

	if modelNames, ok := f.chatModels["default"]; ok {
		return f.ModelByName(modelNames...)
	}

	return f.ModelByName(preferredModels...)
}
