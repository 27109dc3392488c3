// Package backend models the remote MCP tool providers a conversation can
// reach: the public storefront endpoint and the authenticated
// customer-account endpoint.
package backend

import (
	"context"
	"encoding/json"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/mcpclient"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "backend")

// Well-known backend names.
const (
	StorefrontName = "storefront"
	CustomerName   = "customer_account"
)

// Backend is one remote MCP tool provider.
type Backend interface {
	// Name identifies the backend in logs, metrics and dispatch.
	Name() string
	// Authenticated reports whether calls carry a customer credential.
	// Authenticated backends win tool-name collisions on dispatch.
	Authenticated() bool
	// Enabled reports whether the backend participates in discovery.
	Enabled() bool
	// ListTools fetches the advertised tool catalog.
	ListTools(ctx context.Context) ([]mcpclient.ToolDefinition, error)
	// CallTool invokes a tool by name with raw JSON arguments.
	CallTool(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// StorefrontEndpoint returns the public MCP endpoint of a shop.
func StorefrontEndpoint(shopDomain string) string {
	return "https://" + shopDomain + "/api/mcp"
}
