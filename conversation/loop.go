package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llmutils"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/metricskey"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/stream"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/tools"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "conversation")

// ToolDispatcher executes one named tool invocation and always returns a
// structured result; recoverable failures are folded into the result.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) tools.Result
}

// Loop drives one conversation against the model: exactly one generation
// call per iteration, tool dispatches between iterations, until the model
// stops with end_turn. The loop is sequential per conversation; events are
// published in the order they occur.
type Loop struct {
	model      llms.Model
	dispatcher ToolDispatcher
	publisher  stream.Publisher
	messages   store.MessageStore
	cfg        *Config
}

// NewLoop creates a loop over the model and its collaborators. A nil
// publisher discards events; dispatcher and messages must be non-nil.
func NewLoop(model llms.Model, dispatcher ToolDispatcher, publisher stream.Publisher, messages store.MessageStore, opts ...Option) *Loop {
	if publisher == nil {
		publisher = stream.NewNoop()
	}
	return &Loop{
		model:      model,
		dispatcher: dispatcher,
		publisher:  publisher,
		messages:   messages,
		cfg:        NewConfig(opts...),
	}
}

// Run executes the conversation for one user message: seeds the history
// from the store, appends and persists the user turn, then generates until
// the terminal stop reason. The returned error is a *SessionError for
// loop-fatal failures or the context error on cancellation; recoverable
// tool failures never surface here.
func (l *Loop) Run(ctx context.Context, userMessage string) error {
	convID := chatmodel.GetConversationID(ctx)
	if convID == "" {
		return &SessionError{Reason: "conversation context missing"}
	}
	if userMessage == "" {
		return &SessionError{ConversationID: convID, Reason: "empty user message"}
	}

	started := time.Now()
	defer metricskey.PerfConversationRun.MeasureSince(started, chatmodel.GetShopDomain(ctx))

	turns, err := l.messages.History(ctx, convID)
	if err != nil {
		return &SessionError{ConversationID: convID, Reason: "history load failed", Err: err}
	}

	history := make([]llms.Message, 0, len(turns)+2)
	if l.cfg.SystemPrompt != "" {
		history = append(history, llms.MessageFromTextParts(llms.RoleSystem, l.cfg.SystemPrompt))
	}
	history = append(history, Rehydrate(turns)...)

	userMsg := llms.MessageFromTextParts(llms.RoleHuman, userMessage)
	history = append(history, userMsg)

	p := newPersister(ctx, l.messages, convID)
	defer p.Close()
	p.Save(userMsg)

	return l.generate(ctx, convID, history, p)
}

func (l *Loop) generate(ctx context.Context, convID string, history []llms.Message, p *persister) error {
	provider := string(l.model.GetProviderType())
	modelName := l.model.GetName()

	callOpts := []llms.CallOption{
		llms.WithStreamHandler(llms.StreamHandlerFuncs{
			Text: func(ctx context.Context, chunk string) {
				l.publish(ctx, stream.Chunk(chunk))
			},
			ContentBlockDone: func(ctx context.Context, block string) {
				l.publish(ctx, stream.ContentBlockComplete(block))
			},
		}),
	}
	if len(l.cfg.Catalog) > 0 {
		callOpts = append(callOpts, llms.WithTools(l.cfg.Catalog))
	}
	callOpts = append(callOpts, l.cfg.CallOptions...)

	var acc products
	var totalToolCalls, emptyRetries, consecutiveNotFound int

	for turn := 0; ; turn++ {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if turn >= l.cfg.MaxTurns {
			return &SessionError{ConversationID: convID,
				Reason: fmt.Sprintf("turn limit %d exceeded", l.cfg.MaxTurns)}
		}
		if size := llmutils.CountMessagesContentSize(history); size > l.cfg.MaxContentSize {
			return &SessionError{ConversationID: convID,
				Reason: fmt.Sprintf("content size %d exceeds limit %d", size, l.cfg.MaxContentSize)}
		}

		llmStarted := time.Now()
		resp, err := l.model.GenerateContent(ctx, history, callOpts...)
		metricskey.PerfLLMCall.MeasureSince(llmStarted, provider, modelName)
		if err != nil {
			return &SessionError{ConversationID: convID, Reason: "generation failed", Err: err}
		}
		metricskey.StatsLLMTurnsGenerated.IncrCounter(1, provider, modelName)
		tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), provider, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), provider, modelName)

		if len(resp.Choices) == 0 {
			emptyRetries++
			if emptyRetries >= maxEmptyRetries {
				return &SessionError{ConversationID: convID,
					Reason: fmt.Sprintf("empty response after %d attempts", emptyRetries)}
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "empty_response",
				"conversation_id", convID,
				"retry", emptyRetries,
			)
			continue
		}
		emptyRetries = 0

		var stopReason string
		var toolCalls []llms.ToolCall
		for _, choice := range resp.Choices {
			stopReason = values.StringsCoalesce(choice.StopReason, stopReason)
			if choice.Content != "" {
				msg := llms.MessageFromTextParts(llms.RoleAI, choice.Content)
				history = append(history, msg)
				p.Save(msg)
				l.publish(ctx, stream.MessageComplete())
			}
			if len(choice.ToolCalls) > 0 {
				calls := normalizeToolCalls(choice.ToolCalls)
				msg := llms.MessageFromToolCalls(llms.RoleAI, calls...)
				history = append(history, msg)
				p.Save(msg)
				toolCalls = append(toolCalls, calls...)
			}
		}

		if len(toolCalls) == 0 {
			if stopReason == llms.StopReasonEndTurn {
				break
			}
			// Non-terminal stop without tool calls, e.g. max_tokens:
			// re-enter generation to continue the truncated turn.
			logger.ContextKV(ctx, xlog.DEBUG,
				"reason", "non_terminal_stop",
				"conversation_id", convID,
				"stop_reason", stopReason,
			)
			continue
		}

		notFound := 0
		for _, call := range toolCalls {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			l.publish(ctx, stream.ToolUse(toolUseMessage(call)))
			res := l.dispatcher.Dispatch(ctx, call.FunctionCall.Name, json.RawMessage(call.FunctionCall.Arguments))
			l.publish(ctx, stream.NewMessage())

			if res.Failed() {
				if res.Err.Type == tools.ErrorTypeNotFound {
					notFound++
				}
			} else {
				acc.Collect(res.Content)
			}

			msg := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       call.FunctionCall.Name,
				Content:    res.LLMContent(),
			})
			history = append(history, msg)
			p.Save(msg)
		}

		totalToolCalls += len(toolCalls)
		if totalToolCalls > l.cfg.MaxToolCalls {
			return &SessionError{ConversationID: convID,
				Reason: fmt.Sprintf("tool call limit %d exceeded", l.cfg.MaxToolCalls)}
		}
		if notFound == len(toolCalls) {
			consecutiveNotFound += notFound
			if consecutiveNotFound > maxConsecutiveNotFound {
				return &SessionError{ConversationID: convID,
					Reason: "model keeps requesting unknown tools"}
			}
		} else {
			consecutiveNotFound = 0
		}
	}

	l.publish(ctx, stream.EndTurn())
	if !acc.Empty() {
		l.publish(ctx, stream.ProductResults(acc.JSON()))
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"conversation_id", convID,
		"status", "end_turn",
		"tool_calls", totalToolCalls,
	)
	return nil
}

// publish forwards one event unless the request is already canceled.
// Delivery failure is the transport's concern: it is logged and the loop
// moves on.
func (l *Loop) publish(ctx context.Context, evt stream.Event) {
	if ctx.Err() != nil {
		return
	}
	if err := l.publisher.Publish(ctx, evt); err != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"reason", "publish_failed",
			"event", string(evt.Type),
			"err", err.Error(),
		)
	}
}

// normalizeToolCalls fills the fields some providers omit: a call id
// derived from name and position, and the "function" type. Calls without a
// function payload are dropped.
func normalizeToolCalls(calls []llms.ToolCall) []llms.ToolCall {
	out := make([]llms.ToolCall, 0, len(calls))
	for i, call := range calls {
		if call.FunctionCall == nil {
			continue
		}
		if call.ID == "" {
			call.ID = fmt.Sprintf("%s_%d", call.FunctionCall.Name, i)
		}
		call.Type = values.StringsCoalesce(call.Type, "function")
		out = append(out, call)
	}
	return out
}

// toolUseMessage renders the human-readable description published with a
// tool_use event.
func toolUseMessage(call llms.ToolCall) string {
	return fmt.Sprintf("Using tool: %s", call.FunctionCall.Name)
}
