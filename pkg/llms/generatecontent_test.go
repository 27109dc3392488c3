package llms_test

import (
	"testing"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	mc := llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c")
	assert.Equal(t, llms.RoleHuman, mc.Role)
	require.Len(t, mc.Parts, 3)
	assert.Equal(t, "a\nb\nc", mc.TextParts())
	assert.Equal(t, "a\nb\nc\n", mc.GetContent())
}

func TestMessageFromToolCalls(t *testing.T) {
	t.Parallel()
	msg := llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "toolu_01",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "search_products",
			Arguments: `{"query":"red shoes"}`,
		},
	})
	assert.Equal(t, llms.RoleAI, msg.Role)
	calls := msg.ToolCallParts()
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_01", calls[0].ID)
	assert.Equal(t, "search_products", calls[0].FunctionCall.Name)
	assert.Empty(t, msg.TextParts())
}

func TestMessageFromToolResponse(t *testing.T) {
	t.Parallel()
	msg := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "toolu_01",
		Name:       "search_products",
		Content:    `{"products":[]}`,
	})
	assert.Equal(t, llms.RoleTool, msg.Role)
	require.Len(t, msg.Parts, 1)
	resp, ok := msg.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "search_products", resp.Name)
}

func TestStoppedForToolUse(t *testing.T) {
	t.Parallel()
	choice := &llms.ContentChoice{StopReason: llms.StopReasonEndTurn}
	assert.False(t, choice.StoppedForToolUse())

	choice = &llms.ContentChoice{StopReason: llms.StopReasonToolUse}
	assert.True(t, choice.StoppedForToolUse())

	// Some providers report tool calls without a dedicated stop reason.
	choice = &llms.ContentChoice{
		StopReason: llms.StopReasonEndTurn,
		ToolCalls: []llms.ToolCall{
			{ID: "toolu_01", Type: "function", FunctionCall: &llms.FunctionCall{Name: "x"}},
		},
	}
	assert.True(t, choice.StoppedForToolUse())
}
