package llms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageMarshalJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		msg  Message
		js   string
	}{
		{
			name: "single text collapses",
			msg:  MessageFromTextParts(RoleHuman, "find me red shoes"),
			js:   `{"role":"human","text":"find me red shoes"}`,
		},
		{
			name: "multiple text parts",
			msg:  MessageFromTextParts(RoleAI, "a", "b"),
			js:   `{"role":"ai","parts":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`,
		},
		{
			name: "tool call",
			msg: MessageFromToolCalls(RoleAI, ToolCall{
				ID:   "toolu_01",
				Type: "function",
				FunctionCall: &FunctionCall{
					Name:      "search_products",
					Arguments: `{"query":"red shoes"}`,
				},
			}),
			js: `{"role":"ai","parts":[{"type":"tool_call","tool_call":{"id":"toolu_01","type":"function","function":{"name":"search_products","arguments":"{\"query\":\"red shoes\"}"}}}]}`,
		},
		{
			name: "tool response",
			msg: MessageFromToolResponse(RoleTool, ToolCallResponse{
				ToolCallID: "toolu_01",
				Name:       "search_products",
				Content:    `{"products":[]}`,
			}),
			js: `{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"toolu_01","name":"search_products","content":"{\"products\":[]}"}}]}`,
		},
		{
			name: "binary",
			msg:  MessageFromParts(RoleHuman, BinaryPart("image/png", []byte{0x00, 0x01, 0x02})),
			js:   `{"role":"human","parts":[{"type":"binary","binary":{"data":"AAEC","mime_type":"image/png"}}]}`,
		},
		{
			name: "image url",
			msg:  MessageFromParts(RoleHuman, ImageURLPart("https://example.com/shoe.png")),
			js:   `{"role":"human","parts":[{"type":"image_url","image_url":{"url":"https://example.com/shoe.png"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.js, string(got))

			// Persisted content must round-trip.
			var back Message
			err = json.Unmarshal(got, &back)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, back)
		})
	}
}

func TestMessageUnmarshalErrors(t *testing.T) {
	t.Parallel()

	var msg Message
	err := json.Unmarshal([]byte(`{"role":"ai","parts":[{"type":"nope"}]}`), &msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown content type")

	err = json.Unmarshal([]byte(`{"role":"ai","parts":[{"type":"tool_call"}]}`), &msg)
	require.Error(t, err)

	// Typed part decode enforces required identifiers.
	var resp ToolCallResponse
	err = json.Unmarshal([]byte(`{"type":"tool_response","tool_response":{"name":"x","content":"y"}}`), &resp)
	require.Error(t, err)
}

func TestToolCallUnmarshalMissingFunction(t *testing.T) {
	t.Parallel()

	// Some providers omit the function body on malformed turns; decode must
	// still yield a usable ToolCall.
	var tc ToolCall
	err := json.Unmarshal([]byte(`{"type":"tool_call","tool_call":{"id":"toolu_02","type":"function"}}`), &tc)
	require.NoError(t, err)
	assert.Equal(t, "toolu_02", tc.ID)
	require.NotNil(t, tc.FunctionCall)
	assert.Empty(t, tc.FunctionCall.Name)
}
