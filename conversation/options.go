package conversation

import (
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
)

const (
	// DefaultMaxTurns bounds the generate/dispatch iterations of one run.
	DefaultMaxTurns = 16
	// DefaultMaxToolCalls bounds the total tool dispatches of one run.
	DefaultMaxToolCalls = 32
	// DefaultMaxContentSize bounds the accumulated request content bytes.
	DefaultMaxContentSize = 1 << 20

	// maxEmptyRetries bounds consecutive empty provider responses.
	maxEmptyRetries = 3
	// maxConsecutiveNotFound bounds successive turns requesting only
	// unknown tools.
	maxConsecutiveNotFound = 3
)

// Option mutates the loop configuration.
type Option func(*Config)

// Config carries the run budgets and call parameters of a Loop.
type Config struct {
	// SystemPrompt seeds the history as the system turn when non-empty.
	SystemPrompt string
	// Catalog is the merged tool catalog advertised to the model.
	Catalog []llms.Tool
	// MaxTurns bounds the generate/dispatch iterations of one run.
	MaxTurns int
	// MaxToolCalls bounds the total tool dispatches of one run.
	MaxToolCalls int
	// MaxContentSize bounds the accumulated request content in bytes.
	MaxContentSize uint64
	// CallOptions are appended to every generation call after the loop's
	// own streaming and tool options.
	CallOptions []llms.CallOption
}

// NewConfig builds a Config with defaults applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxTurns:       DefaultMaxTurns,
		MaxToolCalls:   DefaultMaxToolCalls,
		MaxContentSize: DefaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithSystemPrompt sets the system prompt seeded at the head of history.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) {
		c.SystemPrompt = prompt
	}
}

// WithCatalog sets the tool catalog advertised to the model.
func WithCatalog(catalog []llms.Tool) Option {
	return func(c *Config) {
		c.Catalog = catalog
	}
}

// WithMaxTurns overrides the iteration bound.
func WithMaxTurns(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxTurns = n
		}
	}
}

// WithMaxToolCalls overrides the total tool dispatch bound.
func WithMaxToolCalls(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxToolCalls = n
		}
	}
}

// WithMaxContentSize overrides the accumulated content byte bound.
func WithMaxContentSize(n uint64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxContentSize = n
		}
	}
}

// WithCallOptions appends provider call options applied to every
// generation call, e.g. llms.WithMaxTokens or llms.WithTemperature.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(c *Config) {
		c.CallOptions = append(c.CallOptions, opts...)
	}
}
