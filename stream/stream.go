// Package stream delivers conversation progress to the end client as a
// strictly ordered sequence of typed events. Publishers are thin sinks:
// they perform no buffering beyond what the transport requires and no
// acknowledgment; delivery failure is the transport's concern.
package stream

import (
	"context"
	"encoding/json"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "stream")

// EventType identifies the payload shape of an Event.
type EventType string

const (
	// EventID announces the server-assigned conversation id. Always first.
	EventID EventType = "id"
	// EventChunk carries a streamed fragment of assistant text.
	EventChunk EventType = "chunk"
	// EventToolUse announces that the assistant is invoking a tool.
	EventToolUse EventType = "tool_use"
	// EventNewMessage marks the start of a new assistant message after a tool round.
	EventNewMessage EventType = "new_message"
	// EventMessageComplete marks the end of a text-bearing assistant message.
	EventMessageComplete EventType = "message_complete"
	// EventContentBlockComplete carries one finished content block.
	EventContentBlockComplete EventType = "content_block_complete"
	// EventEndTurn marks the terminal assistant turn.
	EventEndTurn EventType = "end_turn"
	// EventProductResults carries products accumulated from tool results.
	EventProductResults EventType = "product_results"
	// EventError is the single terminal failure event for a session.
	EventError EventType = "error"
)

// Event is one push-channel frame. Exactly one payload field is set
// besides Type; the zero fields are omitted on the wire.
type Event struct {
	Type           EventType       `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Chunk          string          `json:"chunk,omitempty"`
	ToolUseMessage string          `json:"tool_use_message,omitempty"`
	ContentBlock   string          `json:"content_block,omitempty"`
	Products       json.RawMessage `json:"products,omitempty"`
	Error          string          `json:"error,omitempty"`
}

func ID(conversationID string) Event {
	return Event{Type: EventID, ConversationID: conversationID}
}

func Chunk(text string) Event {
	return Event{Type: EventChunk, Chunk: text}
}

func ToolUse(message string) Event {
	return Event{Type: EventToolUse, ToolUseMessage: message}
}

func NewMessage() Event {
	return Event{Type: EventNewMessage}
}

func MessageComplete() Event {
	return Event{Type: EventMessageComplete}
}

func ContentBlockComplete(block string) Event {
	return Event{Type: EventContentBlockComplete, ContentBlock: block}
}

func EndTurn() Event {
	return Event{Type: EventEndTurn}
}

func ProductResults(products json.RawMessage) Event {
	return Event{Type: EventProductResults, Products: products}
}

func Error(message string) Event {
	return Event{Type: EventError, Error: message}
}

// Publisher is an ordered event sink. Publish calls must not be
// reordered or coalesced; Close is idempotent.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// ensure that the publishers implement the correct interfaces
var (
	_ Publisher = (*Noop)(nil)
	_ Publisher = (*Multi)(nil)
	_ Publisher = (*Logger)(nil)
	_ Publisher = (*Buffer)(nil)
	_ Publisher = (*SSEPublisher)(nil)
)

// Noop discards all events.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) Publish(context.Context, Event) error { return nil }
func (*Noop) Close() error                         { return nil }

// Multi forwards each event to multiple publishers in order.
type Multi struct {
	publishers []Publisher
}

func NewMulti(publishers ...Publisher) *Multi {
	return &Multi{publishers: publishers}
}

func (m *Multi) Add(p Publisher) {
	m.publishers = append(m.publishers, p)
}

// Publish forwards to every publisher and returns the first error.
// Later publishers still receive the event so that diagnostic sinks
// keep a complete trace when the client-facing sink fails.
func (m *Multi) Publish(ctx context.Context, evt Event) error {
	var first error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Multi) Close() error {
	var first error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Logger writes each event to the package log at DEBUG.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (*Logger) Publish(ctx context.Context, evt Event) error {
	logger.ContextKV(ctx, xlog.DEBUG,
		"event", string(evt.Type),
		"conversation_id", evt.ConversationID,
	)
	return nil
}

func (*Logger) Close() error { return nil }
