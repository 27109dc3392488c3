// Package shopapi reaches the shop's plain HTTP surfaces outside MCP: the
// well-known discovery document that locates the customer-account MCP
// endpoint, and the authorization service that mints customer sign-in URLs.
package shopapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "shopapi")

// WellKnownPath is the discovery document path on the shop origin.
const WellKnownPath = "/.well-known/customer-account-api"

// maxResponseBody caps how much of a shop API response body is read.
const maxResponseBody = 1 << 20

// DiscoveryEndpoint returns the discovery document URL of a shop.
func DiscoveryEndpoint(shopDomain string) string {
	return "https://" + shopDomain + WellKnownPath
}

// Discovery resolves the customer-account MCP endpoint of a shop from its
// discovery document. Resolved endpoints are cached per conversation, so one
// conversation fetches the document at most once.
type Discovery struct {
	accounts   store.AccountURLStore
	httpClient *http.Client
	baseURL    string
}

// NewDiscovery creates a discovery client caching through the given store.
// A nil store disables caching.
func NewDiscovery(accounts store.AccountURLStore) *Discovery {
	return &Discovery{
		accounts:   accounts,
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient sets the HTTP client to use.
func (d *Discovery) WithHTTPClient(client *http.Client) *Discovery {
	d.httpClient = client
	return d
}

// WithBaseURL overrides the shop origin the discovery document is fetched
// from. When empty, the origin is derived from the shop domain.
func (d *Discovery) WithBaseURL(baseURL string) *Discovery {
	d.baseURL = baseURL
	return d
}

type discoveryDocument struct {
	AccountURL string `json:"account_url"`
}

// AccountURL returns the customer-account MCP endpoint of the shop,
// preferring the conversation's cached value. Cache failures degrade to a
// fresh fetch; they never fail the resolution.
func (d *Discovery) AccountURL(ctx context.Context, shopDomain string) (string, error) {
	conversationID := chatmodel.GetConversationID(ctx)
	if d.accounts != nil && conversationID != "" {
		url, err := d.accounts.GetAccountURL(ctx, conversationID)
		if err == nil && url != "" {
			return url, nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "account_url_lookup",
				"conversation_id", conversationID,
				"err", err.Error(),
			)
		}
	}

	url, err := d.fetch(ctx, shopDomain)
	if err != nil {
		return "", err
	}

	if d.accounts != nil && conversationID != "" {
		if err := d.accounts.StoreAccountURL(ctx, conversationID, url); err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "account_url_store",
				"conversation_id", conversationID,
				"err", err.Error(),
			)
		}
	}
	return url, nil
}

func (d *Discovery) fetch(ctx context.Context, shopDomain string) (string, error) {
	endpoint := DiscoveryEndpoint(shopDomain)
	if d.baseURL != "" {
		endpoint = d.baseURL + WellKnownPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create discovery request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", errors.WithMessagef(err, "failed to fetch discovery document for %s", shopDomain)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", errors.Wrap(err, "failed to read discovery document")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Newf("discovery for %s returned status %d", shopDomain, resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", errors.Wrapf(err, "invalid discovery document for %s", shopDomain)
	}
	if doc.AccountURL == "" {
		return "", errors.Newf("discovery document for %s has no account_url", shopDomain)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"shop", shopDomain,
		"account_url", doc.AccountURL,
	)
	return doc.AccountURL, nil
}
