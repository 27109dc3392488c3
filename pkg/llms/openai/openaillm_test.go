package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms/openai"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		opts        []openai.Option
		wantErr     bool
		errContains string
	}{
		{
			name:        "missing token",
			opts:        []openai.Option{openai.WithModel("gpt-4o")},
			wantErr:     true,
			errContains: "missing API key",
		},
		{
			name:        "missing model",
			opts:        []openai.Option{openai.WithToken("fake-token")},
			wantErr:     true,
			errContains: "model is required",
		},
		{
			name: "valid configuration",
			opts: []openai.Option{
				openai.WithToken("fake-token"),
				openai.WithModel("gpt-4o"),
			},
		},
		{
			name: "with custom base URL",
			opts: []openai.Option{
				openai.WithToken("fake-token"),
				openai.WithModel("gpt-4o"),
				openai.WithBaseURL("https://gateway.example.com/v1"),
			},
		},
		{
			name: "with organization",
			opts: []openai.Option{
				openai.WithToken("fake-token"),
				openai.WithModel("gpt-4o"),
				openai.WithOrganization("org-123"),
			},
		},
		{
			name: "with custom HTTP client",
			opts: []openai.Option{
				openai.WithToken("fake-token"),
				openai.WithModel("gpt-4o"),
				openai.WithHTTPClient(&http.Client{}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "missing token" {
				originalToken := os.Getenv("OPENAI_API_KEY")
				os.Unsetenv("OPENAI_API_KEY")
				defer func() {
					if originalToken != "" {
						os.Setenv("OPENAI_API_KEY", originalToken)
					}
				}()
			}

			ollm, err := openai.New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, ollm)
			} else {
				require.NoError(t, err)
				require.NotNil(t, ollm)
				assert.NotNil(t, ollm.Client)
				assert.Equal(t, "gpt-4o", ollm.GetName())
				assert.Equal(t, llms.ProviderOpenAI, ollm.GetProviderType())
			}
		})
	}
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		messages     []llms.Message
		wantMessages int
		wantErr      bool
		errContains  string
	}{
		{
			name: "system human and AI",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleSystem, "You are a shopping assistant."),
				llms.MessageFromTextParts(llms.RoleHuman, "find me red shoes"),
				llms.MessageFromTextParts(llms.RoleAI, "Here are some options."),
			},
			wantMessages: 3,
		},
		{
			name: "AI message with tool call",
			messages: []llms.Message{
				llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
					ID:   "call_01",
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      "search_products",
						Arguments: `{"query":"red shoes"}`,
					},
				}),
			},
			wantMessages: 1,
		},
		{
			name: "tool response message",
			messages: []llms.Message{
				llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
					ToolCallID: "call_01",
					Name:       "search_products",
					Content:    `{"products":[]}`,
				}),
			},
			wantMessages: 1,
		},
		{
			name: "empty messages are skipped",
			messages: []llms.Message{
				{Role: llms.RoleHuman},
				llms.MessageFromTextParts(llms.RoleHuman, "hello"),
			},
			wantMessages: 1,
		},
		{
			name: "unsupported binary content",
			messages: []llms.Message{
				llms.MessageFromParts(llms.RoleHuman,
					llms.TextPart("see attached"),
					llms.BinaryContent{MIMEType: "application/pdf", Data: []byte("fake-pdf-data")},
				),
			},
			wantErr:     true,
			errContains: "unsupported binary content type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			messages, err := openai.ProcessMessages(tt.messages)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
				assert.Len(t, messages, tt.wantMessages)
			}
		})
	}
}

func TestToTools(t *testing.T) {
	t.Parallel()

	var params jsonschema.Schema
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "object",
		"properties": {"query": {"type": "string", "description": "Search terms"}},
		"required": ["query"]
	}`), &params))

	tools, err := openai.ToTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "search_products",
				Description: "Search the product catalog",
				Parameters:  &params,
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: "get_cart",
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, tools, 2)

	first := tools[0].OfFunction
	require.NotNil(t, first)
	assert.Equal(t, "search_products", first.Function.Name)
	assert.Equal(t, "Search the product catalog", first.Function.Description.Value)
	assert.Contains(t, first.Function.Parameters, "properties")
	assert.Equal(t, []any{"query"}, first.Function.Parameters["required"])

	second := tools[1].OfFunction
	require.NotNil(t, second)
	assert.Equal(t, "get_cart", second.Function.Name)
	assert.Equal(t, "object", second.Function.Parameters["type"], "parameterless tools get an empty object schema")

	empty, err := openai.ToTools(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGenerateContent_NonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model               string `json:"model"`
			MaxCompletionTokens int64  `json:"max_completion_tokens"`
			Messages            []struct {
				Role string `json:"role"`
			} `json:"messages"`
			Tools []struct {
				Type     string `json:"type"`
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tools"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.EqualValues(t, openai.DefaultMaxTokens, req.MaxCompletionTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}
		if assert.Len(t, req.Tools, 1) {
			assert.Equal(t, "function", req.Tools[0].Type)
			assert.Equal(t, "search_products", req.Tools[0].Function.Name)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-01",
			"object": "chat.completion",
			"created": 1756000000,
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_01",
						"type": "function",
						"function": {"name": "search_products", "arguments": "{\"query\":\"red shoes\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30}
		}`)
	}))
	defer srv.Close()

	ollm, err := openai.New(
		openai.WithToken("fake-token"),
		openai.WithModel("gpt-4o"),
		openai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	var params jsonschema.Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":"object","properties":{"query":{"type":"string"}}}`), &params))

	resp, err := ollm.GenerateContent(context.Background(),
		[]llms.Message{
			llms.MessageFromTextParts(llms.RoleSystem, "You are a shopping assistant."),
			llms.MessageFromTextParts(llms.RoleHuman, "find me red shoes"),
		},
		llms.WithTools([]llms.Tool{
			{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        "search_products",
					Description: "Search the product catalog",
					Parameters:  &params,
				},
			},
		}),
	)
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, llms.StopReasonToolUse, choice.StopReason, "tool_calls finish reason is normalized")
	assert.True(t, choice.StoppedForToolUse())
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "call_01", choice.ToolCalls[0].ID)
	assert.Equal(t, "search_products", choice.ToolCalls[0].FunctionCall.Name)
	assert.JSONEq(t, `{"query":"red shoes"}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.EqualValues(t, 20, choice.GenerationInfo["InputTokens"])
	assert.EqualValues(t, 10, choice.GenerationInfo["OutputTokens"])
	assert.EqualValues(t, 30, choice.GenerationInfo["TotalTokens"])
}

func sseChunk(data string) string {
	return fmt.Sprintf("data: %s\n\n", data)
}

func TestGenerateContent_StreamingText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream        bool `json:"stream"`
			StreamOptions struct {
				IncludeUsage bool `json:"include_usage"`
			} `json:"stream_options"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.True(t, req.StreamOptions.IncludeUsage)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w,
			sseChunk(`{"id":"chatcmpl-02","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}`),
			sseChunk(`{"id":"chatcmpl-02","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"Here are "},"finish_reason":null}]}`),
			sseChunk(`{"id":"chatcmpl-02","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"red shoes."},"finish_reason":null}]}`),
			sseChunk(`{"id":"chatcmpl-02","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`),
			sseChunk(`{"id":"chatcmpl-02","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[],"usage":{"prompt_tokens":9,"completion_tokens":12,"total_tokens":21}}`),
			sseChunk(`[DONE]`),
		)
	}))
	defer srv.Close()

	ollm, err := openai.New(
		openai.WithToken("fake-token"),
		openai.WithModel("gpt-4o"),
		openai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	var events []string
	handler := llms.StreamHandlerFuncs{
		Text: func(_ context.Context, chunk string) {
			events = append(events, "text:"+chunk)
		},
		ContentBlockDone: func(_ context.Context, block string) {
			events = append(events, "block:"+block)
		},
		MessageDone: func(_ context.Context, msg llms.Message) {
			events = append(events, "done:"+msg.GetContent())
		},
	}

	resp, err := ollm.GenerateContent(context.Background(),
		[]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "find me red shoes")},
		llms.WithStreamHandler(handler),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"text:Here are ",
		"text:red shoes.",
		"block:Here are red shoes.",
		"done:Here are red shoes.",
	}, events)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Here are red shoes.", resp.Choices[0].Content)
	assert.Equal(t, llms.StopReasonEndTurn, resp.Choices[0].StopReason, "stop finish reason is normalized")
	assert.EqualValues(t, 9, resp.Choices[0].GenerationInfo["InputTokens"])
	assert.EqualValues(t, 12, resp.Choices[0].GenerationInfo["OutputTokens"])
	assert.EqualValues(t, 21, resp.Choices[0].GenerationInfo["TotalTokens"])
}

func TestGenerateContent_StreamingToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w,
			sseChunk(`{"id":"chatcmpl-03","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_02","type":"function","function":{"name":"search_products","arguments":""}}]},"finish_reason":null}]}`),
			sseChunk(`{"id":"chatcmpl-03","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"query\":"}}]},"finish_reason":null}]}`),
			sseChunk(`{"id":"chatcmpl-03","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"red shoes\"}"}}]},"finish_reason":null}]}`),
			sseChunk(`{"id":"chatcmpl-03","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`),
			sseChunk(`{"id":"chatcmpl-03","object":"chat.completion.chunk","created":1756000000,"model":"gpt-4o","choices":[],"usage":{"prompt_tokens":15,"completion_tokens":8,"total_tokens":23}}`),
			sseChunk(`[DONE]`),
		)
	}))
	defer srv.Close()

	ollm, err := openai.New(
		openai.WithToken("fake-token"),
		openai.WithModel("gpt-4o"),
		openai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	var toolEvents []string
	handler := llms.StreamHandlerFuncs{
		ToolUse: func(_ context.Context, call llms.ToolCall) {
			toolEvents = append(toolEvents, call.ID+":"+call.FunctionCall.Name+":"+call.FunctionCall.Arguments)
		},
		MessageDone: func(_ context.Context, msg llms.Message) {
			toolEvents = append(toolEvents, "done")
		},
	}

	resp, err := ollm.GenerateContent(context.Background(),
		[]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "find me red shoes")},
		llms.WithStreamHandler(handler),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{`call_02:search_products:{"query":"red shoes"}`}, toolEvents,
		"tool-only turns do not fire the message-done callback")

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Empty(t, choice.Content)
	assert.Equal(t, llms.StopReasonToolUse, choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "call_02", choice.ToolCalls[0].ID)
	assert.JSONEq(t, `{"query":"red shoes"}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.EqualValues(t, 23, choice.GenerationInfo["TotalTokens"])
}
