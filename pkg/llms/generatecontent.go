package llms

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnexpectedRole is returned when a message role is of an unexpected type.
var ErrUnexpectedRole = errors.New("unexpected role")

// Role is the type of chat message.
type Role string

const (
	// RoleAI is a message produced by the model.
	RoleAI Role = "ai"
	// RoleHuman is a message sent by the end user.
	RoleHuman Role = "human"
	// RoleSystem is the system prompt.
	RoleSystem Role = "system"
	// RoleGeneric is a message with no specific sender.
	RoleGeneric Role = "generic"
	// RoleTool is a tool-result message.
	RoleTool Role = "tool"
)

// Stop reasons reported by providers at the end of a generated turn.
// StopReasonEndTurn is the terminal value: the conversation loop keeps
// iterating until the last choice carries it.
const (
	StopReasonEndTurn      = "end_turn"
	StopReasonToolUse      = "tool_use"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonStopSequence = "stop_sequence"
)

// Message is one turn sent to or produced by a model. It has a role and a
// sequence of content parts: text, tool calls requested by the model, and
// tool results fed back to it.
type Message struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// TextPart creates TextContent from a given string.
func TextPart(s string) TextContent {
	return TextContent{Text: s}
}

// BinaryPart creates a new BinaryContent from the given MIME type (e.g.
// "image/png") and binary data.
func BinaryPart(mime string, data []byte) BinaryContent {
	return BinaryContent{
		MIMEType: mime,
		Data:     data,
	}
}

// ImageURLPart creates a new ImageURLContent from the given URL.
func ImageURLPart(url string) ImageURLContent {
	return ImageURLContent{
		URL: url,
	}
}

// ContentPart is an interface all parts of content have to implement.
type ContentPart interface {
	isPart()
}

// TextContent is content with some text.
type TextContent struct {
	Text string `json:"text"`
}

func (tc TextContent) String() string {
	return tc.Text
}

func (TextContent) isPart() {}

// ImageURLContent is content with an URL pointing to an image.
type ImageURLContent struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"` // e.g. "low", "high"
}

func (iuc ImageURLContent) String() string {
	return iuc.URL
}

func (ImageURLContent) isPart() {}

// BinaryContent is content holding some binary data with a MIME type.
type BinaryContent struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

func (bc BinaryContent) String() string {
	base64Encoded := base64.StdEncoding.EncodeToString(bc.Data)
	return "data:" + bc.MIMEType + ";base64," + base64Encoded
}

func (BinaryContent) isPart() {}

// FunctionCall is the name and arguments of a tool call.
type FunctionCall struct {
	// The name of the tool to call.
	Name string `json:"name"`
	// The arguments to pass to the tool, as a JSON string.
	Arguments string `json:"arguments"`
}

// ToolCall is a call to a tool, as requested by the model, that should be
// routed to the owning backend.
type ToolCall struct {
	// ID is the unique identifier of the tool call.
	ID string `json:"id"`
	// Type is the type of the tool call. Typically "function".
	Type string `json:"type"`
	// FunctionCall is the call to be executed.
	FunctionCall *FunctionCall `json:"function,omitempty"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), input: %s", tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
}

func (ToolCall) isPart() {}

// ToolCallResponse is the result of a dispatched tool call, fed back to the
// model on the next turn.
type ToolCallResponse struct {
	// ToolCallID is the ID of the tool call this response is for.
	ToolCallID string `json:"tool_call_id"`
	// Name is the name of the tool that was called.
	Name string `json:"name"`
	// Content is the textual content of the response.
	Content string `json:"content"`
}

func (tc ToolCallResponse) String() string {
	return fmt.Sprintf("ToolCallResponse: %s (%s), response size: %d", tc.ToolCallID, tc.Name, len(tc.Content))
}

func (ToolCallResponse) isPart() {}

// ContentResponse is the response returned by a GenerateContent call.
type ContentResponse struct {
	Choices []*ContentChoice
}

// ContentChoice is one of the response choices returned by GenerateContent.
type ContentChoice struct {
	// Content is the textual content of a response.
	Content string `json:"content"`

	// StopReason is the reason the model stopped generating output.
	StopReason string `json:"stop_reason"`

	// GenerationInfo is arbitrary information the model adds to the response,
	// such as token usage.
	GenerationInfo map[string]any `json:"generation_info"`

	// ToolCalls is a list of tool calls the model asks to invoke.
	ToolCalls []ToolCall `json:"tool_calls"`
}

// StoppedForToolUse reports whether the choice ended because the model
// requested tool execution.
func (c *ContentChoice) StoppedForToolUse() bool {
	return c.StopReason == StopReasonToolUse || len(c.ToolCalls) > 0
}

// MessageFromParts creates a Message with a role and a list of parts.
func MessageFromParts(role Role, parts ...ContentPart) Message {
	return Message{
		Role:  role,
		Parts: parts,
	}
}

// MessageFromTextParts creates a Message with a role and a list of text parts.
func MessageFromTextParts(role Role, parts ...string) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(parts)),
	}
	for _, part := range parts {
		result.Parts = append(result.Parts, TextPart(part))
	}
	return result
}

// MessageFromToolCalls creates a Message with a role and a list of tool calls.
func MessageFromToolCalls(role Role, toolCalls ...ToolCall) Message {
	result := Message{
		Role:  role,
		Parts: make([]ContentPart, 0, len(toolCalls)),
	}
	for _, toolCall := range toolCalls {
		result.Parts = append(result.Parts, ToolCall{
			ID:   toolCall.ID,
			Type: toolCall.Type,
			FunctionCall: &FunctionCall{
				Name:      toolCall.FunctionCall.Name,
				Arguments: toolCall.FunctionCall.Arguments,
			},
		})
	}
	return result
}

// MessageFromToolResponse creates a Message with a role and a tool response.
func MessageFromToolResponse(role Role, toolResponse ToolCallResponse) Message {
	return MessageFromParts(role, ToolCallResponse{
		ToolCallID: toolResponse.ToolCallID,
		Name:       toolResponse.Name,
		Content:    toolResponse.Content,
	})
}

// GetContent renders the message parts as a single human-readable string.
func (m Message) GetContent() string {
	var buf strings.Builder
	lastNewLine := true
	for _, p := range m.Parts {
		if !lastNewLine {
			buf.WriteString("\n")
		}
		switch typ := p.(type) {
		case TextContent:
			buf.WriteString(typ.Text)
			lastNewLine = strings.HasSuffix(typ.Text, "\n")
		case ImageURLContent:
			buf.WriteString("URL: ")
			buf.WriteString(typ.URL)
			lastNewLine = false
		case BinaryContent:
			buf.WriteString("Binary: ")
			buf.WriteString(typ.MIMEType)
			buf.WriteString("\n")
			buf.WriteString(base64.StdEncoding.EncodeToString(typ.Data))
			lastNewLine = false
		case ToolCall:
			buf.WriteString("Tool Call: ")
			js, _ := json.Marshal(typ)
			buf.Write(js)
			buf.WriteString("\n")
			lastNewLine = true
		case ToolCallResponse:
			buf.WriteString("Response: ")
			js, _ := json.Marshal(typ)
			buf.Write(js)
			buf.WriteString("\n")
			lastNewLine = true
		}
	}
	if !lastNewLine {
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToolCallParts returns the tool calls requested in the message, if any.
func (m Message) ToolCallParts() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// TextParts returns the concatenated text parts of the message.
func (m Message) TextParts() string {
	var buf strings.Builder
	for _, p := range m.Parts {
		if tc, ok := p.(TextContent); ok {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(tc.Text)
		}
	}
	return buf.String()
}
