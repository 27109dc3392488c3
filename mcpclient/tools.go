package mcpclient

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ToolDefinition is one tool advertised in a tools/list result.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// UnmarshalJSON accepts both inputSchema and input_schema spellings;
// providers differ on which one they emit.
func (d *ToolDefinition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		CamelSchema json.RawMessage `json:"inputSchema"`
		SnakeSchema json.RawMessage `json:"input_schema"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	d.Name = raw.Name
	d.Description = raw.Description
	d.InputSchema = raw.CamelSchema
	if len(d.InputSchema) == 0 {
		d.InputSchema = raw.SnakeSchema
	}
	return nil
}

// Content is one entry of a tools/call result content array.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type listToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type listToolsResult struct {
	Tools      []ToolDefinition `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// ListTools fetches the provider's tool catalog, following pagination
// cursors until exhausted.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var defs []ToolDefinition
	cursor := ""
	for {
		var params any
		if cursor != "" {
			params = listToolsParams{Cursor: cursor}
		}
		resp, err := c.Call(ctx, MethodListTools, params)
		if err != nil {
			return nil, err
		}
		var res listToolsResult
		if err := json.Unmarshal(resp.Result, &res); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal tools/list result")
		}
		defs = append(defs, res.Tools...)
		if res.NextCursor == "" || res.NextCursor == cursor {
			return defs, nil
		}
		cursor = res.NextCursor
	}
}

// CallTool invokes a named tool with raw JSON arguments and returns the
// concatenated text content of the result. A result flagged isError is
// returned as an error carrying the text.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	resp, err := c.Call(ctx, MethodCallTool, callToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}
	var res callToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		return "", errors.Wrapf(err, "failed to unmarshal tools/call result: %s", name)
	}
	var parts []string
	for _, item := range res.Content {
		if item.Type == "text" {
			parts = append(parts, item.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		return "", errors.Newf("tool %q reported an error: %s", name, text)
	}
	return text, nil
}
