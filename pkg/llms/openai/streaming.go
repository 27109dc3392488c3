package openai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/openai/openai-go/v3"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
)

// GenerateStreamingContent generates a chat completion over a streaming
// connection, accumulating the full response while firing stream callbacks
// in arrival order:
//
//   - OnText for every text delta as it arrives
//   - OnContentBlockDone when the message content finishes
//   - OnToolUse for each tool call, once its arguments are fully accumulated
//   - OnMessageDone for the completed message when it carries text
func GenerateStreamingContent(ctx context.Context, o *LLM, params openai.ChatCompletionNewParams, opts *llms.CallOptions) (*llms.ContentResponse, error) {
	// Usage arrives on the final chunk only when explicitly requested.
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := o.Client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	handler := opts.StreamHandler

	var content strings.Builder
	var toolCalls []llms.ToolCall

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				content.WriteString(delta)
				if handler != nil {
					handler.OnText(ctx, delta)
				}
				if opts.StreamingFunc != nil {
					if err := opts.StreamingFunc(ctx, []byte(delta)); err != nil {
						return nil, errors.Wrap(err, "openai: streaming function error")
					}
				}
			}
		}

		if block, ok := acc.JustFinishedContent(); ok && block != "" {
			if handler != nil {
				handler.OnContentBlockDone(ctx, block)
			}
		}

		if call, ok := acc.JustFinishedToolCall(); ok {
			arguments := call.Arguments
			if arguments == "" {
				arguments = "{}"
			}
			toolCall := llms.ToolCall{
				ID:   call.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      call.Name,
					Arguments: arguments,
				},
			}
			toolCalls = append(toolCalls, toolCall)
			if handler != nil {
				handler.OnToolUse(ctx, toolCall)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "openai: streaming error")
	}

	if handler != nil && content.Len() > 0 {
		handler.OnMessageDone(ctx, llms.MessageFromTextParts(llms.RoleAI, content.String()))
	}

	stopReason := ""
	if len(acc.Choices) > 0 {
		stopReason = normalizeFinishReason(string(acc.Choices[0].FinishReason))
	}
	usage := map[string]any{
		"InputTokens":  acc.Usage.PromptTokens,
		"OutputTokens": acc.Usage.CompletionTokens,
		"TotalTokens":  acc.Usage.TotalTokens,
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

	if len(choices) == 0 {
		return nil, errors.New("openai: no response choices")
	}

	return &llms.ContentResponse{
		Choices: choices,
	}, nil
}
