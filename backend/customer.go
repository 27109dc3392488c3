package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/mcpclient"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// Customer is the authenticated customer-account tool provider. The bearer
// credential is resolved lazily from the token store, keyed by the
// conversation id carried in the context, and memoized for the lifetime of
// the instance. A missing token is not an error: calls proceed
// unauthenticated and the provider answers 401, which the dispatcher turns
// into a re-authorization prompt.
type Customer struct {
	client  *mcpclient.Client
	tokens  store.TokenStore
	enabled bool

	mu    sync.Mutex
	token string
}

var _ Backend = (*Customer)(nil)

// NewCustomer creates a customer-account backend for the given MCP endpoint.
func NewCustomer(endpoint string, tokens store.TokenStore) *Customer {
	return &Customer{
		client:  mcpclient.NewClient(endpoint),
		tokens:  tokens,
		enabled: true,
	}
}

// WithHTTPClient sets the HTTP client to use.
func (b *Customer) WithHTTPClient(client *http.Client) *Customer {
	b.client.WithHTTPClient(client)
	return b
}

// WithEnabled toggles participation in discovery and dispatch.
func (b *Customer) WithEnabled(enabled bool) *Customer {
	b.enabled = enabled
	return b
}

func (b *Customer) Name() string {
	return CustomerName
}

func (b *Customer) Authenticated() bool {
	return true
}

func (b *Customer) Enabled() bool {
	return b.enabled
}

func (b *Customer) ListTools(ctx context.Context) ([]mcpclient.ToolDefinition, error) {
	b.resolveToken(ctx)
	return b.client.ListTools(ctx)
}

func (b *Customer) CallTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	b.resolveToken(ctx)
	return b.client.CallTool(ctx, name, args)
}

// resolveToken loads the customer token on first use. Once a token is known
// every subsequent call carries it.
func (b *Customer) resolveToken(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.token != "" || b.tokens == nil {
		return
	}

	conversationID := chatmodel.GetConversationID(ctx)
	if conversationID == "" {
		return
	}

	token, err := b.tokens.GetToken(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "token_lookup",
				"conversation_id", conversationID,
				"err", err.Error(),
			)
		}
		return
	}

	b.token = token
	b.client.WithBearerToken(token)
}
