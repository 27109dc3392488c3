package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/backend"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/mcpclient"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// ErrorType classifies a failed tool call in a Result.
type ErrorType string

const (
	// ErrorTypeAuthRequired signals the customer must re-authorize account
	// access; Data embeds the authorization URL.
	ErrorTypeAuthRequired ErrorType = "auth_required"
	// ErrorTypeInternalError covers transport, protocol and provider
	// failures.
	ErrorTypeInternalError ErrorType = "internal_error"
	// ErrorTypeNotFound signals the tool is not in the catalog.
	ErrorTypeNotFound ErrorType = "not_found"
)

// CallError is the structured failure payload of a Result.
type CallError struct {
	Type ErrorType `json:"type"`
	Data string    `json:"data"`
}

// Result is the outcome of one dispatched tool call: success content or a
// structured, recoverable error. Dispatch never raises past this type.
type Result struct {
	Content string     `json:"content,omitempty"`
	Err     *CallError `json:"error,omitempty"`
}

// Failed reports whether the call produced an error result.
func (r Result) Failed() bool {
	return r.Err != nil
}

// LLMContent renders the result as tool-response content for the next model
// turn. Errors are rendered as their JSON shape so the model can react to
// the error type.
func (r Result) LLMContent() string {
	if r.Err == nil {
		return r.Content
	}
	data, err := json.Marshal(r.Err)
	if err != nil {
		return string(ErrorTypeInternalError)
	}
	return string(data)
}

// AuthURLProvider generates a customer re-authorization URL for a
// conversation.
type AuthURLProvider interface {
	GenerateAuthURL(ctx context.Context, conversationID, shopID string) (string, error)
}

// AuthURLFunc adapts a function to AuthURLProvider.
type AuthURLFunc func(ctx context.Context, conversationID, shopID string) (string, error)

// GenerateAuthURL implements AuthURLProvider.
func (f AuthURLFunc) GenerateAuthURL(ctx context.Context, conversationID, shopID string) (string, error) {
	return f(ctx, conversationID, shopID)
}

// Dispatcher routes named tool invocations to the owning backend.
type Dispatcher struct {
	registry *Registry
	authURLs AuthURLProvider
}

// NewDispatcher creates a dispatcher over a discovered registry. authURLs
// may be nil when no authenticated backend is configured.
func NewDispatcher(registry *Registry, authURLs AuthURLProvider) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		authURLs: authURLs,
	}
}

// Dispatch executes one tool invocation. An unknown name fails fast without
// a network call. A 401 from an authenticated backend degrades to an
// auth_required result carrying a re-authorization URL. Every other failure
// folds into an internal_error result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) Result {
	b, ok := d.registry.Resolve(name)
	if !ok {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "tool_not_found", "tool", name)
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		return Result{Err: &CallError{
			Type: ErrorTypeNotFound,
			Data: fmt.Sprintf("tool %q is not available", name),
		}}
	}

	started := time.Now()
	content, err := b.CallTool(ctx, name, args)
	metricskey.PerfToolDispatch.MeasureSince(started, name, b.Name())

	if err == nil {
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name, b.Name())
		return Result{Content: content}
	}

	if b.Authenticated() && mcpclient.IsStatus(err, http.StatusUnauthorized) {
		return d.authRequired(ctx, name, b)
	}

	logger.ContextKV(ctx, xlog.WARNING,
		"reason", "tool_call_failed",
		"tool", name,
		"backend", b.Name(),
		"err", err.Error(),
	)
	metricskey.StatsToolCallsFailed.IncrCounter(1, name, b.Name())
	return Result{Err: &CallError{
		Type: ErrorTypeInternalError,
		Data: err.Error(),
	}}
}

// authRequired converts a 401 into a structured re-authorization prompt for
// the model. The 401 itself never escapes.
func (d *Dispatcher) authRequired(ctx context.Context, name string, b backend.Backend) Result {
	logger.ContextKV(ctx, xlog.WARNING,
		"reason", "tool_auth_required",
		"tool", name,
		"backend", b.Name(),
	)
	metricskey.StatsToolAuthRecoveries.IncrCounter(1, name, b.Name())

	msg := "Customer authorization is required before this tool can be used."
	if d.authURLs != nil {
		url, err := d.authURLs.GenerateAuthURL(ctx,
			chatmodel.GetConversationID(ctx), chatmodel.GetShopID(ctx))
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "auth_url",
				"tool", name,
				"err", err.Error(),
			)
		} else {
			msg = fmt.Sprintf(
				"Customer authorization is required. Ask the customer to sign in at %s and then retry.", url)
		}
	}
	return Result{Err: &CallError{
		Type: ErrorTypeAuthRequired,
		Data: msg,
	}}
}
