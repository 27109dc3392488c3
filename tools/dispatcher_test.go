package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/mcpclient"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convContext() context.Context {
	return chatmodel.WithConvContext(context.Background(),
		chatmodel.NewConvContext("conv_42", "demo.myshopify.com", "shop_7"))
}

func testAuthURLs(t *testing.T) tools.AuthURLProvider {
	return tools.AuthURLFunc(func(_ context.Context, conversationID, shopID string) (string, error) {
		assert.Equal(t, "conv_42", conversationID)
		assert.Equal(t, "shop_7", shopID)
		return fmt.Sprintf("https://auth.example.com/authorize?conversation_id=%s&shop_id=%s",
			conversationID, shopID), nil
	})
}

func Test_Dispatch_Success(t *testing.T) {
	storefront := &fakeBackend{
		name:    "storefront",
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("search_products", "Search")},
		callOut: `{"products":[{"title":"Red Runner"}]}`,
	}
	reg := tools.Discover(context.Background(), storefront)
	d := tools.NewDispatcher(reg, nil)

	res := d.Dispatch(convContext(), "search_products", json.RawMessage(`{"query":"red shoes"}`))
	assert.False(t, res.Failed())
	assert.Contains(t, res.Content, "Red Runner")
	assert.Equal(t, res.Content, res.LLMContent())
	assert.Equal(t, "search_products", storefront.lastTool)
	assert.JSONEq(t, `{"query":"red shoes"}`, string(storefront.lastArgs))
}

func Test_Dispatch_NotFound(t *testing.T) {
	storefront := &fakeBackend{
		name:    "storefront",
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("search_products", "Search")},
	}
	reg := tools.Discover(context.Background(), storefront)
	d := tools.NewDispatcher(reg, nil)

	res := d.Dispatch(convContext(), "update_cart", json.RawMessage(`{}`))
	require.True(t, res.Failed())
	assert.Equal(t, tools.ErrorTypeNotFound, res.Err.Type)
	assert.Contains(t, res.Err.Data, "update_cart")
	assert.Equal(t, 0, storefront.callCalls, "unknown tools must not reach any backend")
}

func Test_Dispatch_CollisionRoutesToAuthenticated(t *testing.T) {
	storefront := &fakeBackend{
		name:    "storefront",
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("search_products", "Public")},
		callOut: "public",
	}
	customer := &fakeBackend{
		name:    "customer_account",
		auth:    true,
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("search_products", "Personalized")},
		callOut: "personalized",
	}
	reg := tools.Discover(context.Background(), storefront, customer)
	d := tools.NewDispatcher(reg, nil)

	res := d.Dispatch(convContext(), "search_products", json.RawMessage(`{}`))
	assert.False(t, res.Failed())
	assert.Equal(t, "personalized", res.Content)
	assert.Equal(t, 1, customer.callCalls)
	assert.Equal(t, 0, storefront.callCalls)
}

func Test_Dispatch_AuthRequired(t *testing.T) {
	customer := &fakeBackend{
		name:    "customer_account",
		auth:    true,
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("get_orders", "Orders")},
		callErr: &mcpclient.HTTPError{Status: http.StatusUnauthorized, Body: "unauthorized"},
	}
	reg := tools.Discover(context.Background(), customer)
	d := tools.NewDispatcher(reg, testAuthURLs(t))

	res := d.Dispatch(convContext(), "get_orders", json.RawMessage(`{}`))
	require.True(t, res.Failed())
	assert.Equal(t, tools.ErrorTypeAuthRequired, res.Err.Type)
	assert.Contains(t, res.Err.Data,
		"https://auth.example.com/authorize?conversation_id=conv_42&shop_id=shop_7")

	var payload struct {
		Type string `json:"type"`
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.LLMContent()), &payload))
	assert.Equal(t, "auth_required", payload.Type)
	assert.Contains(t, payload.Data, "https://auth.example.com/authorize")
}

func Test_Dispatch_AuthURLFailure(t *testing.T) {
	customer := &fakeBackend{
		name:    "customer_account",
		auth:    true,
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("get_orders", "Orders")},
		callErr: &mcpclient.HTTPError{Status: http.StatusUnauthorized},
	}
	reg := tools.Discover(context.Background(), customer)
	d := tools.NewDispatcher(reg, tools.AuthURLFunc(
		func(context.Context, string, string) (string, error) {
			return "", &mcpclient.HTTPError{Status: 502}
		}))

	res := d.Dispatch(convContext(), "get_orders", json.RawMessage(`{}`))
	require.True(t, res.Failed())
	assert.Equal(t, tools.ErrorTypeAuthRequired, res.Err.Type, "a failed URL lookup still recovers as auth_required")
	assert.NotEmpty(t, res.Err.Data)
}

func Test_Dispatch_UnauthorizedFromPublicBackend(t *testing.T) {
	storefront := &fakeBackend{
		name:    "storefront",
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("search_products", "Search")},
		callErr: &mcpclient.HTTPError{Status: http.StatusUnauthorized},
	}
	reg := tools.Discover(context.Background(), storefront)
	d := tools.NewDispatcher(reg, testAuthURLs(t))

	res := d.Dispatch(convContext(), "search_products", json.RawMessage(`{}`))
	require.True(t, res.Failed())
	assert.Equal(t, tools.ErrorTypeInternalError, res.Err.Type,
		"auth recovery applies to authenticated backends only")
}

func Test_Dispatch_InternalError(t *testing.T) {
	storefront := &fakeBackend{
		name:    "storefront",
		enabled: true,
		defs:    []mcpclient.ToolDefinition{def("search_products", "Search")},
		callErr: &mcpclient.ProtocolError{Status: 200, Location: "https://cdn.example.com/maintenance", BodySnippet: "<html>"},
	}
	reg := tools.Discover(context.Background(), storefront)
	d := tools.NewDispatcher(reg, nil)

	res := d.Dispatch(convContext(), "search_products", json.RawMessage(`{}`))
	require.True(t, res.Failed())
	assert.Equal(t, tools.ErrorTypeInternalError, res.Err.Type)
	assert.Contains(t, res.Err.Data, "invalid response")
}
