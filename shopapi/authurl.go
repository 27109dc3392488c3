package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/tools"
	"github.com/cockroachdb/errors"
)

// AuthURLClient requests customer sign-in URLs from the shop authorization
// service.
type AuthURLClient struct {
	endpoint   string
	httpClient *http.Client
}

var _ tools.AuthURLProvider = (*AuthURLClient)(nil)

// NewAuthURLClient creates a client for the given authorization endpoint.
func NewAuthURLClient(endpoint string) *AuthURLClient {
	return &AuthURLClient{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient sets the HTTP client to use.
func (c *AuthURLClient) WithHTTPClient(client *http.Client) *AuthURLClient {
	c.httpClient = client
	return c
}

type authURLRequest struct {
	ConversationID string `json:"conversation_id"`
	ShopID         string `json:"shop_id"`
}

type authURLResponse struct {
	URL string `json:"url"`
}

// GenerateAuthURL implements tools.AuthURLProvider.
func (c *AuthURLClient) GenerateAuthURL(ctx context.Context, conversationID, shopID string) (string, error) {
	body, err := json.Marshal(authURLRequest{
		ConversationID: conversationID,
		ShopID:         shopID,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.WithMessage(err, "failed to call authorization service")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", errors.Wrap(err, "failed to read authorization response")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Newf("authorization service returned status %d", resp.StatusCode)
	}

	var out authURLResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "invalid authorization response")
	}
	if out.URL == "" {
		return "", errors.New("authorization response has no url")
	}
	return out.URL, nil
}
