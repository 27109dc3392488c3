// Package openai adapts the official OpenAI Go SDK to the llms.Model
// interface, including streaming chat completions with tool use.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
)

var (
	ErrMissingToken           = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
	ErrInvalidContentType     = errors.New("openai: invalid content type")
	ErrUnsupportedMessageType = errors.New("openai: unsupported message type")
)

const (
	TokenEnvVarName = "OPENAI_API_KEY" //nolint:gosec

	DefaultMaxTokens = 2 * 16384
)

// Options configure the OpenAI client.
type Options struct {
	Token        string
	Model        string
	BaseURL      string
	Organization string
	HttpClient   option.HTTPClient
}

type Option func(*Options)

// WithToken passes the OpenAI API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the OpenAI model to the client.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the OpenAI base URL to the client, for proxies and
// OpenAI-compatible gateways. If not set, the default base URL is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization ID to the client.
func WithOrganization(organization string) Option {
	return func(opts *Options) {
		opts.Organization = organization
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set, the default value
// is http.DefaultClient.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HttpClient = client
	}
}

// LLM is an OpenAI chat model client.
type LLM struct {
	Client  *openai.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new OpenAI LLM client using the official OpenAI SDK.
//
// Required configuration:
//   - API token (via WithToken option or OPENAI_API_KEY env var)
//   - Model (via WithModel option)
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		HttpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("openai: model is required")
	}

	c, err := newClient(options)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create client")
	}
	return &LLM{
		Client:  c,
		Options: options,
	}, nil
}

func newClient(options *Options) (*openai.Client, error) {
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(5 * time.Minute),
	}

	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}

	if options.Organization != "" {
		sdkOpts = append(sdkOpts, option.WithOrganization(options.Organization))
	}

	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	client := openai.NewClient(sdkOpts...)

	return &client, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface. When a StreamHandler or
// StreamingFunc is set, the response is generated over a streaming
// connection and callbacks fire in arrival order.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model: o.Options.Model,
	}
	for _, opt := range options {
		opt(&opts)
	}
	return GenerateMessagesContent(ctx, o, messages, &opts)
}

// GenerateMessagesContent generates content using the OpenAI chat
// completions API with processed messages. Finish reasons are normalized
// to the provider independent stop reasons before they reach callers.
func GenerateMessagesContent(ctx context.Context, o *LLM, messages []llms.Message, opts *llms.CallOptions) (*llms.ContentResponse, error) {
	chatMessages, err := ProcessMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(opts.Model),
		Messages:            chatMessages,
		MaxCompletionTokens: openai.Int(values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens)),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.StopWords,
		}
	}
	if len(opts.Tools) > 0 {
		tools, err := ToTools(opts.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}
	if opts.ToolChoice != nil {
		choice, err := toToolChoice(opts.ToolChoice)
		if err != nil {
			return nil, err
		}
		params.ToolChoice = choice
	}

	if opts.StreamHandler != nil || opts.StreamingFunc != nil {
		return GenerateStreamingContent(ctx, o, params, opts)
	}

	result, err := o.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create completion")
	}
	if len(result.Choices) == 0 {
		return nil, errors.New("openai: no response choices")
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: normalizeFinishReason(string(c.FinishReason)),
			GenerationInfo: map[string]any{
				"ID":    result.ID,
				"Index": int(c.Index),
			},
		}
		for _, call := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   call.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
		if i == 0 {
			// Usage goes on the first choice only so token accounting does
			// not double-count multi-choice responses.
			choice.GenerationInfo["InputTokens"] = result.Usage.PromptTokens
			choice.GenerationInfo["OutputTokens"] = result.Usage.CompletionTokens
			choice.GenerationInfo["TotalTokens"] = result.Usage.TotalTokens
		}
		choices[i] = choice
	}

	return &llms.ContentResponse{
		Choices: choices,
	}, nil
}

// normalizeFinishReason maps OpenAI finish reasons onto the provider
// independent stop reasons the conversation loop drives on.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "stop":
		return llms.StopReasonEndTurn
	case "tool_calls", "function_call":
		return llms.StopReasonToolUse
	case "length":
		return llms.StopReasonMaxTokens
	default:
		return reason
	}
}

func toToolChoice(choice any) (openai.ChatCompletionToolChoiceOptionUnionParam, error) {
	switch c := choice.(type) {
	case string:
		switch c {
		case "auto", "":
			return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}, nil
		case "any", "required":
			// Anthropic's "any" is OpenAI's "required".
			return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}, nil
		case "none":
			return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}, nil
		default:
			return openai.ChatCompletionToolChoiceOptionUnionParam{}, errors.Errorf("openai: unsupported tool choice: %q", c)
		}
	case llms.ToolChoice:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: c.Function.Name,
				},
			},
		}, nil
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{}, errors.Errorf("openai: unsupported tool choice type: %T", choice)
	}
}

// ToTools converts generic tool definitions to OpenAI function tools,
// carrying the JSON schema parameters over the SDK's open map form. A tool
// with no parameters gets an empty object schema.
func ToTools(tools []llms.Tool) ([]openai.ChatCompletionToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	sdkTools := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		params, err := schemaToMap(tool.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "openai: tool %q", tool.Function.Name)
		}
		fn := openai.FunctionDefinitionParam{
			Name:       tool.Function.Name,
			Parameters: params,
		}
		if tool.Function.Description != "" {
			fn.Description = openai.String(tool.Function.Description)
		}
		sdkTools[i] = openai.ChatCompletionFunctionTool(fn)
	}
	return sdkTools, nil
}

func schemaToMap(schema *jsonschema.Schema) (openai.FunctionParameters, error) {
	if schema == nil {
		return openai.FunctionParameters{"type": "object"}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool schema")
	}
	var params openai.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tool schema")
	}
	return params, nil
}

// ProcessMessages converts generic messages to OpenAI chat messages.
// System prompts stay in the message list, and tool responses become
// tool-role messages keyed by the originating call ID.
func ProcessMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	chatMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		switch msg.Role {
		case llms.RoleSystem:
			textContent, ok := msg.Parts[0].(llms.TextContent)
			if !ok {
				return nil, errors.WithMessagef(ErrInvalidContentType, "openai: for system message")
			}
			chatMessages = append(chatMessages, openai.SystemMessage(textContent.Text))
		case llms.RoleHuman:
			chatMessage, err := handleHumanMessage(msg)
			if err != nil {
				return nil, errors.WithMessage(err, "openai: failed to handle human message")
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleAI, llms.RoleGeneric:
			chatMessage, err := handleAIMessage(msg)
			if err != nil {
				return nil, errors.WithMessage(err, "openai: failed to handle AI message")
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleTool:
			for _, part := range msg.Parts {
				toolCallResponse, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.WithMessagef(ErrInvalidContentType, "openai: for tool message part type: %T", part)
				}
				chatMessages = append(chatMessages, openai.ToolMessage(toolCallResponse.Content, toolCallResponse.ToolCallID))
			}
		default:
			return nil, errors.WithMessagef(ErrUnsupportedMessageType, "openai: %v", msg.Role)
		}
	}
	return chatMessages, nil
}

// handleHumanMessage converts a human message to the OpenAI user message
// format. Image binary content is inlined as a base64 data URL.
func handleHumanMessage(msg llms.Message) (openai.ChatCompletionMessageParamUnion, error) {
	if len(msg.Parts) == 1 {
		if p, ok := msg.Parts[0].(llms.TextContent); ok {
			return openai.UserMessage(p.Text), nil
		}
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			parts = append(parts, openai.TextContentPart(p.Text))
		case llms.BinaryContent:
			if !strings.HasPrefix(p.MIMEType, "image/") {
				return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("unsupported binary content type: %s", p.MIMEType)
			}
			dataURL := fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}))
		default:
			return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("unsupported human message part type: %T", part)
		}
	}

	if len(parts) == 0 {
		return openai.ChatCompletionMessageParamUnion{}, errors.New("no valid content in human message")
	}

	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}, nil
}

// handleAIMessage converts an assistant message, including tool calls, to
// the OpenAI assistant message format.
func handleAIMessage(msg llms.Message) (openai.ChatCompletionMessageParamUnion, error) {
	var assistant openai.ChatCompletionAssistantMessageParam
	var text strings.Builder

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			text.WriteString(p.Text)
		case llms.ToolCall:
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: p.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("unsupported AI message part type: %T", part)
		}
	}

	if text.Len() == 0 && len(assistant.ToolCalls) == 0 {
		return openai.ChatCompletionMessageParamUnion{}, errors.New("no valid content in AI message")
	}
	if text.Len() > 0 {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(text.String()),
		}
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}
