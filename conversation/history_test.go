package conversation_test

import (
	"encoding/json"
	"testing"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/conversation"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Rehydrate_StructuredText(t *testing.T) {
	msgs := conversation.Rehydrate([]store.Turn{
		{Role: llms.RoleHuman, Content: `{"role":"human","text":"any red shoes?"}`},
		{Role: llms.RoleAI, Content: `{"role":"ai","text":"A few, yes."}`},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.RoleHuman, msgs[0].Role)
	assert.Equal(t, "any red shoes?", msgs[0].GetContent())
	assert.Equal(t, llms.RoleAI, msgs[1].Role)
	assert.Equal(t, "A few, yes.", msgs[1].GetContent())
}

func Test_Rehydrate_ToolRoundTrip(t *testing.T) {
	call := llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "search_products",
			Arguments: `{"query":"red shoes"}`,
		},
	})
	result := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "call_1",
		Name:       "search_products",
		Content:    `{"products":[]}`,
	})

	callJSON, err := json.Marshal(call)
	require.NoError(t, err)
	resultJSON, err := json.Marshal(result)
	require.NoError(t, err)

	msgs := conversation.Rehydrate([]store.Turn{
		{Role: llms.RoleAI, Content: string(callJSON)},
		{Role: llms.RoleTool, Content: string(resultJSON)},
	})
	require.Len(t, msgs, 2)

	require.Len(t, msgs[0].Parts, 1)
	tc, ok := msgs[0].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, "search_products", tc.FunctionCall.Name)
	assert.JSONEq(t, `{"query":"red shoes"}`, tc.FunctionCall.Arguments)

	require.Len(t, msgs[1].Parts, 1)
	tr, ok := msgs[1].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", tr.ToolCallID)
	assert.Equal(t, `{"products":[]}`, tr.Content)
}

func Test_Rehydrate_RawText(t *testing.T) {
	msgs := conversation.Rehydrate([]store.Turn{
		{Role: llms.RoleAI, Content: "We have a few options."},
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, llms.RoleAI, msgs[0].Role)
	assert.Equal(t, "We have a few options.", msgs[0].GetContent())
}

func Test_Rehydrate_ForeignJSON(t *testing.T) {
	// A JSON object that is not a message keeps the persisted role and is
	// carried as text.
	raw := `{"products":[{"title":"Red Runner"}]}`
	msgs := conversation.Rehydrate([]store.Turn{
		{Role: llms.RoleTool, Content: raw},
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, llms.RoleTool, msgs[0].Role)
	assert.Equal(t, raw, msgs[0].GetContent())
}

func Test_Rehydrate_DamagedRow(t *testing.T) {
	// A write interrupted mid-row must degrade, never panic or drop the
	// turn.
	msgs := conversation.Rehydrate([]store.Turn{
		{Role: llms.RoleAI, Content: `{"role":"ai","text":"I found the Red`},
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, llms.RoleAI, msgs[0].Role)
	assert.Contains(t, msgs[0].GetContent(), "I found the Red")
}

func Test_Rehydrate_Empty(t *testing.T) {
	assert.Empty(t, conversation.Rehydrate(nil))
}
