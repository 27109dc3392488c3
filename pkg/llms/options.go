package llms

import (
	"context"

	"github.com/invopop/jsonschema"
)

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is a set of options for calling models.
// Not all models support all options.
type CallOptions struct {
	// Model is the model to use.
	Model string `json:"model"`
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens"`
	// Temperature is the temperature for sampling, between 0 and 1.
	Temperature float64 `json:"temperature"`
	// TopP is the cumulative probability for top-p sampling.
	TopP float64 `json:"top_p"`
	// StopWords is a list of words to stop on.
	StopWords []string `json:"stop_words"`
	// StreamingFunc is a function to be called for each text fragment
	// received from the stream. Returning an error stops the stream.
	StreamingFunc func(ctx context.Context, chunk []byte) error `json:"-"`
	// StreamHandler receives the full set of stream callbacks (text,
	// content-block completion, tool use, message completion).
	StreamHandler StreamHandler `json:"-"`
	// Tools is a list of tools the model may call.
	Tools []Tool `json:"tools,omitempty"`
	// ToolChoice directs the model's tool selection: "auto", "none", or a
	// specific tool reference.
	ToolChoice any `json:"tool_choice"`
	// Metadata is provider-specific request metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Tool is a tool the model may invoke, by definition exposed to the provider.
type Tool struct {
	// Type is the type of the tool, currently always "function".
	Type string `json:"type"`
	// Function is the definition of the tool.
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition is a definition of a tool that can be called by the model.
type FunctionDefinition struct {
	// Name is the name of the tool.
	Name string `json:"name"`
	// Description is a description of the tool.
	Description string `json:"description"`
	// Parameters is the JSON schema of the tool's input.
	Parameters *jsonschema.Schema `json:"parameters,omitempty"`
}

// ToolChoice directs the model to call a specific tool.
type ToolChoice struct {
	// Type is the type of the tool, currently always "function".
	Type string `json:"type"`
	// Function is the referenced tool.
	Function *FunctionReference `json:"function,omitempty"`
}

// FunctionReference names a tool.
type FunctionReference struct {
	// Name is the name of the tool.
	Name string `json:"name"`
}

// WithModel specifies which model name to use.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens specifies the max number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature specifies the model temperature.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithTopP specifies the cumulative probability for top-p sampling.
func WithTopP(topP float64) CallOption {
	return func(o *CallOptions) {
		o.TopP = topP
	}
}

// WithStopWords specifies a list of words to stop generation on.
func WithStopWords(stopWords []string) CallOption {
	return func(o *CallOptions) {
		o.StopWords = stopWords
	}
}

// WithStreamingFunc specifies the streaming function to use.
func WithStreamingFunc(streamingFunc func(ctx context.Context, chunk []byte) error) CallOption {
	return func(o *CallOptions) {
		o.StreamingFunc = streamingFunc
	}
}

// WithStreamHandler specifies the stream callback handler. Providers that
// support tool-call streaming invoke it in arrival order.
func WithStreamHandler(h StreamHandler) CallOption {
	return func(o *CallOptions) {
		o.StreamHandler = h
	}
}

// WithTools specifies the tools available to the model.
func WithTools(tools []Tool) CallOption {
	return func(o *CallOptions) {
		o.Tools = tools
	}
}

// WithToolChoice specifies the tool selection directive.
func WithToolChoice(choice any) CallOption {
	return func(o *CallOptions) {
		o.ToolChoice = choice
	}
}

// WithMetadata specifies provider-specific request metadata.
func WithMetadata(metadata map[string]any) CallOption {
	return func(o *CallOptions) {
		o.Metadata = metadata
	}
}
