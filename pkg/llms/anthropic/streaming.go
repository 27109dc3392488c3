package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cockroachdb/errors"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
)

// GenerateStreamingContent consumes the Anthropic streaming API and
// drives the caller's stream callbacks in arrival order:
//   - each text delta fires OnText,
//   - a completed text block fires OnContentBlockDone with the full block,
//   - a completed tool_use block fires OnToolUse once its input JSON is
//     fully assembled,
//   - a message that produced any text fires OnMessageDone at the end.
//
// The final ContentResponse carries the accumulated text and tool calls
// with the stop reason reported by the message_delta event.
func GenerateStreamingContent(ctx context.Context, o *LLM, params anthropic.MessageNewParams, opts *llms.CallOptions) (*llms.ContentResponse, error) {
	stream := o.Client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	handler := opts.StreamHandler

	var content strings.Builder
	var block strings.Builder
	var toolCalls []llms.ToolCall
	var currentToolCall *llms.ToolCall
	var stopReason string
	var inputTokens, outputTokens int64

	for stream.Next() {
		event := stream.Current()

		switch evt := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			inputTokens = evt.Message.Usage.InputTokens
		case anthropic.ContentBlockStartEvent:
			switch started := evt.ContentBlock.AsAny().(type) {
			case anthropic.ToolUseBlock:
				currentToolCall = &llms.ToolCall{
					ID:   started.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name: started.Name,
					},
				}
			case anthropic.TextBlock:
				block.Reset()
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				content.WriteString(delta.Text)
				block.WriteString(delta.Text)
				if handler != nil {
					handler.OnText(ctx, delta.Text)
				}
				if opts.StreamingFunc != nil {
					if err := opts.StreamingFunc(ctx, []byte(delta.Text)); err != nil {
						return nil, errors.Wrap(err, "anthropic: streaming function error")
					}
				}
			case anthropic.InputJSONDelta:
				if currentToolCall != nil {
					currentToolCall.FunctionCall.Arguments += delta.PartialJSON
				}
			}
		case anthropic.ContentBlockStopEvent:
			switch {
			case currentToolCall != nil:
				if currentToolCall.FunctionCall.Arguments == "" {
					currentToolCall.FunctionCall.Arguments = "{}"
				}
				toolCalls = append(toolCalls, *currentToolCall)
				if handler != nil {
					handler.OnToolUse(ctx, *currentToolCall)
				}
				currentToolCall = nil
			case block.Len() > 0:
				if handler != nil {
					handler.OnContentBlockDone(ctx, block.String())
				}
				block.Reset()
			}
		case anthropic.MessageDeltaEvent:
			stopReason = string(evt.Delta.StopReason)
			outputTokens = evt.Usage.OutputTokens
		}
	}

	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "anthropic: streaming error")
	}

	if handler != nil && content.Len() > 0 {
		handler.OnMessageDone(ctx, llms.MessageFromTextParts(llms.RoleAI, content.String()))
	}

	usage := map[string]any{
		"InputTokens":  inputTokens,
		"OutputTokens": outputTokens,
		"TotalTokens":  inputTokens + outputTokens,
	}

	var choices []*llms.ContentChoice
	if content.Len() > 0 {
		choices = append(choices, &llms.ContentChoice{
			Content:        content.String(),
			StopReason:     stopReason,
			GenerationInfo: usage,
		})
	}

	if len(toolCalls) > 0 {
		choice := &llms.ContentChoice{
			ToolCalls:  toolCalls,
			StopReason: stopReason,
		}
		if len(choices) == 0 {
			choice.GenerationInfo = usage
		}
		choices = append(choices, choice)
	}

	return &llms.ContentResponse{
		Choices: choices,
	}, nil
}
