// Package store defines the persistence surfaces a conversation needs:
// ordered message history, customer access tokens, and discovered
// customer-account endpoints. Implementations are provided for memory,
// Redis and SQLite.
package store

import (
	"context"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "store")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Turn is one persisted conversation turn. Content is the marshaled
// llms.Message JSON, or raw text for legacy rows.
type Turn struct {
	Role    llms.Role `json:"role"`
	Content string    `json:"content"`
}

// MessageStore persists conversation history in append order.
type MessageStore interface {
	// SaveMessage appends one turn to the conversation.
	SaveMessage(ctx context.Context, conversationID string, role llms.Role, content string) error
	// History returns all persisted turns in append order. An unknown
	// conversation yields an empty history, not an error.
	History(ctx context.Context, conversationID string) ([]Turn, error)
}

// TokenStore holds customer access tokens keyed by conversation.
type TokenStore interface {
	// GetToken returns the stored token, or ErrNotFound.
	GetToken(ctx context.Context, conversationID string) (string, error)
	// SetToken stores the token for the conversation.
	SetToken(ctx context.Context, conversationID, token string) error
}

// AccountURLStore caches discovered customer-account endpoints keyed by
// conversation.
type AccountURLStore interface {
	// GetAccountURL returns the cached endpoint, or ErrNotFound.
	GetAccountURL(ctx context.Context, conversationID string) (string, error)
	// StoreAccountURL caches the endpoint for the conversation.
	StoreAccountURL(ctx context.Context, conversationID, url string) error
}

// Store bundles the persistence surfaces of a conversation.
type Store interface {
	MessageStore
	TokenStore
	AccountURLStore
}
