// Package chat wires one conversation request end to end: it validates the
// request, establishes the conversation identity, constructs the
// per-conversation tool backends, discovers the merged catalog, and runs
// the conversation loop, translating a fatal loop failure into one
// terminal error event on the stream.
package chat

//go:generate mockgen -destination=../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms Model

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/backend"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/conversation"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llmfactory"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/metricskey"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/prompts"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/shopapi"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/stream"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/tools"
)

var logger = xlog.NewPackageLogger("github.com/ShindoSensei/commercenext-mcp-agentv2", "chat")

// terminalErrorMessage is the only failure text shown to the end user;
// the underlying cause stays in the logs.
const terminalErrorMessage = "The assistant ran into an unexpected problem and had to stop. Please try again."

// Request is one user message addressed to a shop's assistant.
type Request struct {
	// ConversationID continues an existing conversation. When empty, the
	// service generates one and announces it in the `id` stream event.
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message" validate:"required,max=4000"`
	ShopDomain     string `json:"shop_domain" validate:"required,fqdn"`
	ShopID         string `json:"shop_id,omitempty"`
	ShopName       string `json:"shop_name,omitempty"`
	// PromptVariant selects the assistant persona; unknown or empty falls
	// back to the standard storefront variant.
	PromptVariant string `json:"prompt_variant,omitempty" validate:"omitempty,oneof=standard customer_account"`
}

// Service runs conversations. It is safe for concurrent use: all mutable
// per-conversation state (backends, catalogs, cached credentials) is
// constructed inside Run.
type Service struct {
	models    llmfactory.Factory
	storage   store.Store
	discovery *shopapi.Discovery
	authURLs  tools.AuthURLProvider
	validate  *validator.Validate

	httpClient         *http.Client
	storefrontEndpoint string
	customerEnabled    bool
	loopOpts           []conversation.Option
}

// NewService creates a conversation service over the given model factory,
// storage, and authorization-URL provider.
func NewService(models llmfactory.Factory, storage store.Store, authURLs tools.AuthURLProvider) *Service {
	return &Service{
		models:          models,
		storage:         storage,
		discovery:       shopapi.NewDiscovery(storage),
		authURLs:        authURLs,
		validate:        validator.New(),
		customerEnabled: true,
	}
}

// WithHTTPClient sets the HTTP client used for backend and discovery calls.
func (s *Service) WithHTTPClient(client *http.Client) *Service {
	s.httpClient = client
	s.discovery.WithHTTPClient(client)
	return s
}

// WithDiscovery replaces the customer-account discovery client.
func (s *Service) WithDiscovery(d *shopapi.Discovery) *Service {
	s.discovery = d
	return s
}

// WithStorefrontEndpoint overrides the storefront MCP endpoint. When empty,
// the endpoint is derived from the shop domain.
func (s *Service) WithStorefrontEndpoint(endpoint string) *Service {
	s.storefrontEndpoint = endpoint
	return s
}

// WithCustomerAccounts toggles the authenticated customer-account backend.
func (s *Service) WithCustomerAccounts(enabled bool) *Service {
	s.customerEnabled = enabled
	return s
}

// WithLoopOptions appends options applied to every conversation loop.
func (s *Service) WithLoopOptions(opts ...conversation.Option) *Service {
	s.loopOpts = append(s.loopOpts, opts...)
	return s
}

// Run executes one conversation turn exchange: it publishes the `id` event,
// discovers the tool catalog, and drives the loop until the model ends its
// turn. It returns the conversation id and the loop error, if any; before
// returning a loop error it publishes one terminal `error` event, unless
// the request context is already canceled. The publisher is not closed;
// its owner closes it.
func (s *Service) Run(ctx context.Context, req *Request, pub stream.Publisher) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", errors.WithMessage(err, "invalid request")
	}
	if pub == nil {
		pub = stream.NewNoop()
	}

	conversationID := values.StringsCoalesce(req.ConversationID, chatmodel.NewConversationID())
	ctx = chatmodel.WithConvContext(ctx,
		chatmodel.NewConvContext(conversationID, req.ShopDomain, req.ShopID))

	fp := xxhash.New()
	_, _ = fp.WriteString(conversationID)
	_, _ = fp.WriteString("\n")
	_, _ = fp.WriteString(req.Message)
	logger.ContextKV(ctx, xlog.DEBUG,
		"session_id", uuid.NewString(),
		"conversation_id", conversationID,
		"shop", req.ShopDomain,
		"request_fp", strconv.FormatUint(fp.Sum64(), 16),
	)
	metricskey.StatsConversationsStarted.IncrCounter(1, req.ShopDomain)

	if err := pub.Publish(ctx, stream.ID(conversationID)); err != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"reason", "publish_failed",
			"event", "id",
			"err", err.Error(),
		)
	}

	registry := tools.Discover(ctx, s.backends(ctx, req)...)
	dispatcher := tools.NewDispatcher(registry, s.authURLs)

	variant := req.PromptVariant
	systemPrompt, err := prompts.SystemPrompt(variant, prompts.Vars{
		"shop_domain": req.ShopDomain,
		"shop_name":   values.StringsCoalesce(req.ShopName, req.ShopDomain),
		"date":        time.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return conversationID, s.fail(ctx, pub, req.ShopDomain,
			errors.WithMessage(err, "system prompt"))
	}

	model, err := s.models.ChatModel(variant)
	if err != nil {
		return conversationID, s.fail(ctx, pub, req.ShopDomain,
			errors.WithMessage(err, "no chat model"))
	}

	opts := []conversation.Option{
		conversation.WithSystemPrompt(systemPrompt),
		conversation.WithCatalog(registry.LLMTools()),
	}
	opts = append(opts, s.loopOpts...)
	loop := conversation.NewLoop(model, dispatcher, pub, s.storage, opts...)

	if err := loop.Run(ctx, req.Message); err != nil {
		return conversationID, s.fail(ctx, pub, req.ShopDomain, err)
	}
	return conversationID, nil
}

// backends constructs the per-conversation tool backends. The storefront
// backend is always present; the customer-account backend is added when
// enabled and its MCP endpoint resolves. A failed resolution degrades to a
// storefront-only session, mirroring how catalog discovery degrades.
func (s *Service) backends(ctx context.Context, req *Request) []backend.Backend {
	storefront := backend.NewStorefront(
		values.StringsCoalesce(s.storefrontEndpoint, backend.StorefrontEndpoint(req.ShopDomain)))
	if s.httpClient != nil {
		storefront.WithHTTPClient(s.httpClient)
	}
	out := []backend.Backend{storefront}

	if !s.customerEnabled {
		return out
	}
	accountURL, err := s.discovery.AccountURL(ctx, req.ShopDomain)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "customer_backend_unavailable",
			"shop", req.ShopDomain,
			"err", err.Error(),
		)
		return out
	}
	customer := backend.NewCustomer(accountURL, s.storage)
	if s.httpClient != nil {
		customer.WithHTTPClient(s.httpClient)
	}
	return append(out, customer)
}

// fail records a session-fatal failure and publishes the terminal error
// event, unless the client is already gone.
func (s *Service) fail(ctx context.Context, pub stream.Publisher, shop string, err error) error {
	metricskey.StatsConversationsFailed.IncrCounter(1, shop)
	logger.ContextKV(ctx, xlog.ERROR,
		"reason", "session_failed",
		"shop", shop,
		"err", err.Error(),
	)
	if ctx.Err() == nil {
		if perr := pub.Publish(ctx, stream.Error(terminalErrorMessage)); perr != nil {
			logger.ContextKV(ctx, xlog.DEBUG,
				"reason", "publish_failed",
				"event", "error",
				"err", perr.Error(),
			)
		}
	}
	return err
}
