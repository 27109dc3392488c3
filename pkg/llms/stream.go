package llms

import "context"

// StreamHandler receives turn events from a provider as the stream arrives.
// Callbacks are invoked in strict arrival order from a single goroutine:
// text chunks precede the completion of their owning message, and a tool-use
// callback precedes the final response that carries the call.
type StreamHandler interface {
	// OnText is called for each text fragment as it streams.
	OnText(ctx context.Context, chunk string)
	// OnContentBlockDone is called when a text content block completes,
	// with the full accumulated block.
	OnContentBlockDone(ctx context.Context, block string)
	// OnToolUse is called when the model requests a tool invocation, after
	// the call's input JSON has been fully accumulated.
	OnToolUse(ctx context.Context, call ToolCall)
	// OnMessageDone is called when a generated message carrying text content
	// completes. Messages consisting solely of tool calls do not fire it.
	OnMessageDone(ctx context.Context, msg Message)
}

// StreamHandlerFuncs adapts plain functions to a StreamHandler.
// Nil functions are skipped.
type StreamHandlerFuncs struct {
	Text             func(ctx context.Context, chunk string)
	ContentBlockDone func(ctx context.Context, block string)
	ToolUse          func(ctx context.Context, call ToolCall)
	MessageDone      func(ctx context.Context, msg Message)
}

// OnText implements StreamHandler.
func (h StreamHandlerFuncs) OnText(ctx context.Context, chunk string) {
	if h.Text != nil {
		h.Text(ctx, chunk)
	}
}

// OnContentBlockDone implements StreamHandler.
func (h StreamHandlerFuncs) OnContentBlockDone(ctx context.Context, block string) {
	if h.ContentBlockDone != nil {
		h.ContentBlockDone(ctx, block)
	}
}

// OnToolUse implements StreamHandler.
func (h StreamHandlerFuncs) OnToolUse(ctx context.Context, call ToolCall) {
	if h.ToolUse != nil {
		h.ToolUse(ctx, call)
	}
}

// OnMessageDone implements StreamHandler.
func (h StreamHandlerFuncs) OnMessageDone(ctx context.Context, msg Message) {
	if h.MessageDone != nil {
		h.MessageDone(ctx, msg)
	}
}
