// Package llmfactory provides configuration-driven construction of chat
// models, selecting the provider adapter (Anthropic, OpenAI) and model per
// chat surface.
package llmfactory
