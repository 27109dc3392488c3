package llms

import (
	"context"
)

// ProviderType is the type of LLM provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic Messages API provider.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderOpenAI is the OpenAI Chat Completions provider.
	ProviderOpenAI ProviderType = "OPENAI"
)

// Model is the interface chat models implement.
type Model interface {
	// GetName returns the model name, as sent to the provider.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate one conversation turn from a
	// sequence of messages. Streaming callbacks, tool definitions and sampling
	// parameters are passed via options.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling
	CapabilityToolCallStreaming

	// System prompt support
	CapabilitySystemPrompt

	// Multimodal input
	CapabilityVision
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderAnthropic: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolCallStreaming |
		CapabilitySystemPrompt |
		CapabilityVision,

	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolCallStreaming |
		CapabilitySystemPrompt |
		CapabilityVision,
}

// ProviderCapabilities returns the capability mask for a provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports reports whether the provider supports the given capability.
func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
