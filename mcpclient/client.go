// Package mcpclient implements a minimal JSON-RPC 2.0 client for MCP tool
// providers: one stateless HTTP POST per call, with transport and protocol
// failures classified into distinct error types.
package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "mcpclient")

const jsonRPCVersion = "2.0"

// JSON-RPC methods understood by MCP tool providers.
const (
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"
)

// bodySnippetLimit caps how much of an unparseable response body is carried
// in a ProtocolError.
const bodySnippetLimit = 512

// Client issues JSON-RPC calls to a single MCP endpoint. It performs no
// retries; callers own failure policy.
type Client struct {
	endpoint      string
	httpClient    *http.Client
	headers       map[string]string
	atomicCounter int64
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		headers:    map[string]string{},
	}
}

// WithHTTPClient sets the HTTP client to use.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// WithHeader adds a static header sent with every request.
func (c *Client) WithHeader(name, value string) *Client {
	c.headers[name] = value
	return c
}

// WithBearerToken sets the Authorization header for authenticated endpoints.
func (c *Client) WithBearerToken(token string) *Client {
	return c.WithHeader("Authorization", "Bearer "+token)
}

// Endpoint returns the endpoint URL the client was created with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a decoded JSON-RPC response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Call sends one JSON-RPC request and decodes the response envelope.
// Failures are classified: a non-2xx status as *HTTPError, a 2xx body that
// does not decode as *ProtocolError, an error object in the envelope as
// *RPCError.
func (c *Client) Call(ctx context.Context, method string, params any) (*Response, error) {
	id := atomic.AddInt64(&c.atomicCounter, 1)
	body, err := json.Marshal(request{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"endpoint", c.endpoint,
		"method", method,
		"id", id,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to call %s", method)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{
			Status: resp.StatusCode,
			Body:   string(raw),
		}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ProtocolError{
			Status:      resp.StatusCode,
			Location:    responseLocation(resp),
			BodySnippet: snippet(raw),
		}
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return &out, nil
}

// responseLocation reports where an unexpected response actually came from:
// the Location header when the server set one, otherwise the final request
// URL after any redirects.
func responseLocation(resp *http.Response) string {
	if loc := resp.Header.Get("Location"); loc != "" {
		return loc
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return ""
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLimit {
		return string(body[:bodySnippetLimit])
	}
	return string(body)
}
