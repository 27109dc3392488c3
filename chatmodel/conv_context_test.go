package chatmodel_test

import (
	"context"
	"testing"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ConvContext(t *testing.T) {
	t.Parallel()

	cc := chatmodel.NewConvContext("conv-123", "demo.myshopify.com", "shop-1")
	assert.Equal(t, "conv-123", cc.GetConversationID())
	assert.Equal(t, "demo.myshopify.com", cc.GetShopDomain())
	assert.Equal(t, "shop-1", cc.GetShopID())

	_, ok := cc.GetMetadata("channel")
	assert.False(t, ok)
	cc.SetMetadata("channel", "web")
	v, ok := cc.GetMetadata("channel")
	require.True(t, ok)
	assert.Equal(t, "web", v)

	ctx := chatmodel.WithConvContext(context.Background(), cc)
	assert.Equal(t, cc, chatmodel.GetConvContext(ctx))
	assert.Equal(t, "conv-123", chatmodel.GetConversationID(ctx))
	assert.Equal(t, "demo.myshopify.com", chatmodel.GetShopDomain(ctx))
	assert.Equal(t, "shop-1", chatmodel.GetShopID(ctx))
}

func Test_ConvContext_Empty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, chatmodel.GetConvContext(ctx))
	assert.Empty(t, chatmodel.GetConversationID(ctx))
	assert.Empty(t, chatmodel.GetShopDomain(ctx))
	assert.Empty(t, chatmodel.GetShopID(ctx))
}

func Test_NewConversationID(t *testing.T) {
	t.Parallel()

	// Empty ID gets a server-generated one.
	cc := chatmodel.NewConvContext("", "demo.myshopify.com", "shop-1")
	require.NotEmpty(t, cc.GetConversationID())

	id1 := chatmodel.NewConversationID()
	id2 := chatmodel.NewConversationID()
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}
