package shopapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/shopapi"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
)

func convContext() context.Context {
	return chatmodel.WithConvContext(context.Background(),
		chatmodel.NewConvContext("conv_42", "demo.myshopify.com", "shop_7"))
}

func Test_Discovery_FetchAndCache(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		assert.Equal(t, shopapi.WellKnownPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"account_url": "https://account.demo.myshopify.com/api/mcp",
		})
	}))
	defer srv.Close()

	storage := store.NewMemoryStore()
	d := shopapi.NewDiscovery(storage).WithBaseURL(srv.URL)

	ctx := convContext()
	url, err := d.AccountURL(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "https://account.demo.myshopify.com/api/mcp", url)
	assert.Equal(t, 1, fetches)

	// Second resolution is served from the conversation cache.
	url, err = d.AccountURL(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "https://account.demo.myshopify.com/api/mcp", url)
	assert.Equal(t, 1, fetches)

	cached, err := storage.GetAccountURL(ctx, "conv_42")
	require.NoError(t, err)
	assert.Equal(t, url, cached)
}

func Test_Discovery_NoConversationContext(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(map[string]string{"account_url": "https://a.example.com/mcp"})
	}))
	defer srv.Close()

	d := shopapi.NewDiscovery(store.NewMemoryStore()).WithBaseURL(srv.URL)

	// Without a conversation id there is nothing to key the cache on.
	for range 2 {
		url, err := d.AccountURL(context.Background(), "demo.myshopify.com")
		require.NoError(t, err)
		assert.Equal(t, "https://a.example.com/mcp", url)
	}
	assert.Equal(t, 2, fetches)
}

func Test_Discovery_Failures(t *testing.T) {
	tcases := []struct {
		name    string
		handler http.HandlerFunc
		errMsg  string
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			errMsg: "status 500",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
			errMsg: "invalid discovery document",
		},
		{
			name: "missing account_url",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			errMsg: "no account_url",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			d := shopapi.NewDiscovery(nil).WithBaseURL(srv.URL)
			_, err := d.AccountURL(convContext(), "demo.myshopify.com")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func Test_AuthURLClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req struct {
			ConversationID string `json:"conversation_id"`
			ShopID         string `json:"shop_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "conv_42", req.ConversationID)
		assert.Equal(t, "shop_7", req.ShopID)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": "https://auth.example.com/authorize?c=conv_42",
		})
	}))
	defer srv.Close()

	c := shopapi.NewAuthURLClient(srv.URL)
	url, err := c.GenerateAuthURL(context.Background(), "conv_42", "shop_7")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/authorize?c=conv_42", url)
}

func Test_AuthURLClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := shopapi.NewAuthURLClient(srv.URL)
	_, err := c.GenerateAuthURL(context.Background(), "conv_42", "shop_7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
