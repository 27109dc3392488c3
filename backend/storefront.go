package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/mcpclient"
)

// Storefront is the public, unauthenticated tool provider of a shop.
type Storefront struct {
	client  *mcpclient.Client
	enabled bool
}

var _ Backend = (*Storefront)(nil)

// NewStorefront creates a storefront backend for the given MCP endpoint.
func NewStorefront(endpoint string) *Storefront {
	return &Storefront{
		client:  mcpclient.NewClient(endpoint),
		enabled: true,
	}
}

// WithHTTPClient sets the HTTP client to use.
func (b *Storefront) WithHTTPClient(client *http.Client) *Storefront {
	b.client.WithHTTPClient(client)
	return b
}

// WithEnabled toggles participation in discovery and dispatch.
func (b *Storefront) WithEnabled(enabled bool) *Storefront {
	b.enabled = enabled
	return b
}

func (b *Storefront) Name() string {
	return StorefrontName
}

func (b *Storefront) Authenticated() bool {
	return false
}

func (b *Storefront) Enabled() bool {
	return b.enabled
}

func (b *Storefront) ListTools(ctx context.Context) ([]mcpclient.ToolDefinition, error) {
	return b.client.ListTools(ctx)
}

func (b *Storefront) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	return b.client.CallTool(ctx, name, args)
}
