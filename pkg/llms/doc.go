// Package llms defines the model-facing types of the conversation core:
// chat messages with polymorphic content parts (text, tool calls, tool
// results), call options including streaming callbacks, and the Model
// interface providers implement.
//
// Each subpackage contains one provider adapter mapping this surface onto
// the provider's SDK.
package llms
