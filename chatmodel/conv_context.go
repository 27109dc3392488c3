package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ConvContext is the per-conversation identity threaded through the core:
// the conversation ID and the shop the conversation is scoped to. Stores,
// the tool dispatcher and the auth-URL generator read it from the request
// context instead of taking identity parameters.
type ConvContext interface {
	// GetConversationID returns the conversation ID.
	GetConversationID() string
	// GetShopDomain returns the shop domain the conversation runs against,
	// e.g. "demo.myshopify.com".
	GetShopDomain() string
	// GetShopID returns the shop identity used for re-authorization flows.
	GetShopID() string
	// GetMetadata retrieves metadata by key.
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key.
	SetMetadata(key string, value any)
}

type convContext struct {
	conversationID string
	shopDomain     string
	shopID         string
	metadata       sync.Map
}

func (c *convContext) GetConversationID() string {
	return c.conversationID
}

func (c *convContext) GetShopDomain() string {
	return c.shopDomain
}

func (c *convContext) GetShopID() string {
	return c.shopID
}

func (c *convContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *convContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewConvContext creates a ConvContext. An empty conversationID is replaced
// with a server-generated one.
func NewConvContext(conversationID, shopDomain, shopID string) ConvContext {
	return &convContext{
		conversationID: values.StringsCoalesce(conversationID, NewConversationID()),
		shopDomain:     shopDomain,
		shopID:         shopID,
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithConvContext returns a new context with the ConvContext value.
func WithConvContext(ctx context.Context, convCtx ConvContext) context.Context {
	return context.WithValue(ctx, keyContext, convCtx)
}

// GetConvContext retrieves the ConvContext from the context, or nil.
func GetConvContext(ctx context.Context) ConvContext {
	if v, ok := ctx.Value(keyContext).(ConvContext); ok {
		return v
	}
	return nil
}

// GetConversationID retrieves the conversation ID from the provided context.
// If the context does not carry a ConvContext, it returns an empty string.
func GetConversationID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ConvContext); ok {
		return v.GetConversationID()
	}
	return ""
}

// GetShopDomain retrieves the shop domain from the provided context.
func GetShopDomain(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ConvContext); ok {
		return v.GetShopDomain()
	}
	return ""
}

// GetShopID retrieves the shop ID from the provided context.
func GetShopID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ConvContext); ok {
		return v.GetShopID()
	}
	return ""
}

// NewConversationID generates a new conversation ID using the flake ID
// generator.
func NewConversationID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
