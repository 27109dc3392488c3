// Package llmutils holds small helpers for model payloads: salvaging JSON
// from prose-wrapped output and sizing message content for loop budgets.
package llmutils

import (
	"bytes"
	"encoding/json"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/effective-security/x/values"
)

// CleanJSON extracts the JSON value from a payload that may wrap it in
// prose or markdown fences, e.g. "Here you go:\n```json\n{...}\n```".
// Everything before the first opening brace or bracket and after the last
// closing one is trimmed; a payload without either is returned unchanged.
func CleanJSON(bs []byte) []byte {
	if start := jsonStart(bs); start > 0 {
		bs = bs[start:]
	}
	if end := jsonEnd(bs); end >= 0 {
		bs = bs[:end+1]
	}
	return bs
}

func jsonStart(bs []byte) int {
	obj := bytes.IndexByte(bs, '{')
	arr := bytes.IndexByte(bs, '[')
	switch {
	case obj < 0:
		return arr
	case arr < 0:
		return obj
	}
	return min(obj, arr)
}

func jsonEnd(bs []byte) int {
	return max(bytes.LastIndexByte(bs, '}'), bytes.LastIndexByte(bs, ']'))
}

// ToJSON marshals without error handling, for log and persistence values
// known to marshal.
func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

// CountMessagesContentSize sums the content bytes of a message history.
// The loop checks it against its content budget before each generation.
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, msg := range msgs {
		size += uint64(len(msg.Role))
		for _, part := range msg.Parts {
			size += partSize(part)
		}
	}
	return size
}

func partSize(part llms.ContentPart) uint64 {
	switch p := part.(type) {
	case llms.TextContent:
		return uint64(len(p.Text))
	case llms.ImageURLContent:
		return uint64(len(p.URL) + len(p.Detail))
	case llms.BinaryContent:
		return uint64(len(p.MIMEType) + len(p.Data))
	case llms.ToolCall:
		n := len(p.ID) + len(p.Type)
		if p.FunctionCall != nil {
			n += len(p.FunctionCall.Name) + len(p.FunctionCall.Arguments)
		}
		return uint64(n)
	case llms.ToolCallResponse:
		return uint64(len(p.ToolCallID) + len(p.Name) + len(p.Content))
	}
	return 0
}

// CountTokens extracts token usage from the response generation info.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	for _, choice := range resp.Choices {
		ma := values.MapAny(choice.GenerationInfo)
		in += ma.Int64("InputTokens")
		out += ma.Int64("OutputTokens")
		total += ma.Int64("TotalTokens")
	}
	return
}
