// Package anthropic adapts the official Anthropic SDK to the llms.Model
// interface, including streaming generation with tool use.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
)

var (
	ErrMissingToken           = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrInvalidContentType     = errors.New("anthropic: invalid content type")
	ErrUnsupportedMessageType = errors.New("anthropic: unsupported message type")
	ErrUnsupportedContentType = errors.New("anthropic: unsupported content type")
)

const (
	TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec

	DefaultMaxTokens = 4096
)

// Options configure the Anthropic client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HttpClient option.HTTPClient

	// If supplied, the 'anthropic-beta' header will be added to the request with the given value.
	AnthropicBetaHeader string
}

type Option func(*Options)

// WithToken passes the Anthropic API token to the client. If not set, the token
// is read from the ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the Anthropic model to the client.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes the Anthropic base URL to the client.
// If not set, the default base URL is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set, the default value
// is http.DefaultClient.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HttpClient = client
	}
}

// WithAnthropicBetaHeader adds the Anthropic Beta header to support extended options.
func WithAnthropicBetaHeader(value string) Option {
	return func(opts *Options) {
		opts.AnthropicBetaHeader = value
	}
}

// LLM is an Anthropic chat model client.
type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Anthropic LLM client using the official Anthropic SDK.
//
// Required configuration:
//   - API token (via WithToken option or ANTHROPIC_API_KEY env var)
//   - Model (via WithModel option)
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		BaseURL:    "https://api.anthropic.com",
		HttpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	c, err := newClient(options)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create client")
	}
	return &LLM{
		Client:  c,
		Options: options,
	}, nil
}

func newClient(options *Options) (*anthropic.Client, error) {
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(5 * time.Minute),
	}

	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}

	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	if options.AnthropicBetaHeader != "" {
		sdkOpts = append(sdkOpts, option.WithHeader("anthropic-beta", options.AnthropicBetaHeader))
	}

	client := anthropic.NewClient(sdkOpts...)

	return &client, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
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

// GenerateMessagesContent generates content using the Anthropic API with
// processed messages. It separates system prompts from conversation
// messages, converts tools to the Anthropic format, and routes to the
// streaming path when callbacks are requested.
func GenerateMessagesContent(ctx context.Context, o *LLM, messages []llms.Message, opts *llms.CallOptions) (*llms.ContentResponse, error) {
	sdkMessages, systemPrompt, err := ProcessMessages(messages)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to process messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}

	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}

	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}

	if len(opts.StopWords) > 0 {
		params.StopSequences = opts.StopWords
	}

	if tools := ToTools(opts.Tools); len(tools) > 0 {
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

	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}

	choices := make([]*llms.ContentChoice, len(result.Content))
	for i, contentBlock := range result.Content {
		choice := &llms.ContentChoice{
			StopReason: string(result.StopReason),
			GenerationInfo: map[string]any{
				"ID":    result.ID,
				"Index": i,
			},
		}
		switch content := contentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			choice.Content = content.Text
		case anthropic.ToolUseBlock:
			argumentsJSON, err := json.Marshal(content.Input)
			if err != nil {
				return nil, errors.Wrap(err, "anthropic: failed to marshal tool use arguments")
			}
			choice.ToolCalls = []llms.ToolCall{
				{
					ID:   content.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      content.Name,
						Arguments: string(argumentsJSON),
					},
				},
			}
		default:
			return nil, errors.WithMessagef(ErrUnsupportedContentType, "anthropic: %T", content)
		}
		// Usage goes on the first choice only so token accounting
		// does not double-count multi-block responses.
		if i == 0 {
			choice.GenerationInfo["InputTokens"] = result.Usage.InputTokens
			choice.GenerationInfo["OutputTokens"] = result.Usage.OutputTokens
			choice.GenerationInfo["TotalTokens"] = result.Usage.InputTokens + result.Usage.OutputTokens
		}
		choices[i] = choice
	}

	return &llms.ContentResponse{
		Choices: choices,
	}, nil
}

func toToolChoice(choice any) (anthropic.ToolChoiceUnionParam, error) {
	switch c := choice.(type) {
	case string:
		switch c {
		case "auto", "":
			return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}, nil
		case "any":
			return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}, nil
		case "none":
			return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}, nil
		default:
			return anthropic.ToolChoiceUnionParam{}, errors.Errorf("anthropic: unsupported tool choice: %q", c)
		}
	case llms.ToolChoice:
		return anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: c.Function.Name},
		}, nil
	default:
		return anthropic.ToolChoiceUnionParam{}, errors.Errorf("anthropic: unsupported tool choice type: %T", choice)
	}
}

// ToTools converts generic tool definitions to Anthropic SDK tool
// parameters, mapping ordered JSON schema properties into the input
// schema. A tool with no parameters gets an empty object schema.
func ToTools(tools []llms.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	sdkTools := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: "object",
		}
		if params := tool.Function.Parameters; params != nil {
			if params.Properties != nil {
				properties := make(map[string]any)
				for pair := params.Properties.Oldest(); pair != nil; pair = pair.Next() {
					properties[pair.Key] = pair.Value
				}
				inputSchema.Properties = properties
			}
			if len(params.Required) > 0 {
				inputSchema.Required = params.Required
			}
		}

		sdkTools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Function.Name,
				Description: anthropic.String(tool.Function.Description),
				InputSchema: inputSchema,
			},
		}
	}
	return sdkTools
}

// ProcessMessages converts generic messages to Anthropic SDK message
// parameters. System messages are extracted and returned as a separate
// system prompt; tool responses become user messages carrying tool
// result blocks, per the Anthropic wire format.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, string, error) {
	chatMessages := make([]anthropic.MessageParam, 0, len(messages))
	systemPrompt := ""
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		switch msg.Role {
		case llms.RoleSystem:
			content, err := HandleSystemMessage(msg)
			if err != nil {
				return nil, "", errors.Wrap(err, "anthropic: failed to handle system message")
			}
			if systemPrompt != "" {
				systemPrompt += "\n" + content
			} else {
				systemPrompt = content
			}
		case llms.RoleHuman:
			chatMessage, err := HandleHumanMessage(msg)
			if err != nil {
				return nil, "", errors.Wrap(err, "anthropic: failed to handle human message")
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleAI, llms.RoleGeneric:
			chatMessage, err := HandleAIMessage(msg)
			if err != nil {
				return nil, "", errors.Wrap(err, "anthropic: failed to handle AI message")
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleTool:
			chatMessage, err := HandleToolMessage(msg)
			if err != nil {
				return nil, "", errors.WithMessage(err, "anthropic: failed to handle tool message")
			}
			chatMessages = append(chatMessages, chatMessage)
		default:
			return nil, "", errors.WithMessagef(ErrUnsupportedMessageType, "anthropic: %v", msg.Role)
		}
	}
	return chatMessages, systemPrompt, nil
}

// HandleSystemMessage extracts text content from a system message.
func HandleSystemMessage(msg llms.Message) (string, error) {
	if textContent, ok := msg.Parts[0].(llms.TextContent); ok {
		return textContent.Text, nil
	}
	return "", errors.WithMessagef(ErrInvalidContentType, "anthropic: for system message")
}

// HandleHumanMessage converts a human message to the Anthropic user
// message format. Image binary content is base64-encoded inline.
func HandleHumanMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			contents = append(contents, anthropic.NewTextBlock(p.Text))
		case llms.BinaryContent:
			if strings.HasPrefix(p.MIMEType, "image/") {
				encodedData := base64.StdEncoding.EncodeToString(p.Data)
				contents = append(contents, anthropic.NewImageBlockBase64(p.MIMEType, encodedData))
			} else {
				return anthropic.MessageParam{}, errors.Errorf("anthropic: unsupported binary content type: %s", p.MIMEType)
			}
		default:
			return anthropic.MessageParam{}, errors.Errorf("anthropic: unsupported human message part type: %T", part)
		}
	}

	if len(contents) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in human message")
	}

	return anthropic.NewUserMessage(contents...), nil
}

// HandleAIMessage converts an assistant message, including tool calls,
// to the Anthropic assistant message format. Tool call arguments are
// validated as JSON before conversion.
func HandleAIMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.ToolCall:
			var inputJSON json.RawMessage
			if err := json.Unmarshal([]byte(p.FunctionCall.Arguments), &inputJSON); err != nil {
				return anthropic.MessageParam{}, errors.Wrap(err, "anthropic: failed to unmarshal tool call arguments")
			}

			contents = append(contents, anthropic.NewToolUseBlock(
				p.ID,
				inputJSON,
				p.FunctionCall.Name,
			))
		case llms.TextContent:
			contents = append(contents, anthropic.NewTextBlock(p.Text))
		default:
			return anthropic.MessageParam{}, errors.Errorf("anthropic: unsupported AI message part type: %T", part)
		}
	}

	if len(contents) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in AI message")
	}

	return anthropic.NewAssistantMessage(contents...), nil
}

// HandleToolMessage converts tool response messages to the Anthropic
// user message format with tool result blocks.
func HandleToolMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion

	for _, part := range msg.Parts {
		if toolCallResponse, ok := part.(llms.ToolCallResponse); ok {
			contents = append(contents, anthropic.NewToolResultBlock(
				toolCallResponse.ToolCallID,
				toolCallResponse.Content,
				false, // isError
			))
		} else {
			return anthropic.MessageParam{}, errors.WithMessagef(ErrInvalidContentType, "anthropic: for tool message part type: %T", part)
		}
	}

	if len(contents) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in tool message")
	}

	return anthropic.NewUserMessage(contents...), nil
}
