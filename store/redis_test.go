package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/cockroachdb/errors"
	"github.com/docker/docker/api/types/container"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscon "github.com/testcontainers/testcontainers-go/modules/redis"
)

func Test_RedisStore(t *testing.T) {
	ctx := context.Background()
	redisContainer, err := rediscon.Run(ctx, "redis:7",
		testcontainers.WithConfigModifier(func(config *container.Config) {
			config.Env = []string{
				"ALLOW_EMPTY_PASSWORD=yes",
			}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, redisContainer.Terminate(ctx))
	})

	state, err := redisContainer.State(ctx)
	require.NoError(t, err)
	require.True(t, state.Running)

	host, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)

	options, err := redis.ParseURL(host)
	require.NoError(t, err)

	client := redis.NewClient(options)
	rs := client.Ping(ctx)
	require.NoError(t, rs.Err(), "failed to connect to Redis")

	root := fmt.Sprintf("test-%d", time.Now().Unix())
	st := store.NewRedisStore(client, root)

	convID := "conv1"

	hist, err := st.History(ctx, convID)
	require.NoError(t, err)
	assert.Empty(t, hist)

	require.NoError(t, st.SaveMessage(ctx, convID, llms.RoleHuman, `{"role":"human","text":"find me red shoes"}`))
	require.NoError(t, st.SaveMessage(ctx, convID, llms.RoleAI, `{"role":"ai","text":"On it."}`))

	hist, err = st.History(ctx, convID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, llms.RoleHuman, hist[0].Role)
	assert.Contains(t, hist[0].Content, "red shoes")
	assert.Equal(t, llms.RoleAI, hist[1].Role)

	// the persisted window stays bounded
	for i := 0; i < 60; i++ {
		require.NoError(t, st.SaveMessage(ctx, convID, llms.RoleAI, fmt.Sprintf("turn %d", i)))
	}
	hist, err = st.History(ctx, convID)
	require.NoError(t, err)
	assert.Len(t, hist, 50)
	assert.Equal(t, "turn 59", hist[len(hist)-1].Content)

	_, err = st.GetToken(ctx, convID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, st.SetToken(ctx, convID, "shcat_xyz"))
	token, err := st.GetToken(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, "shcat_xyz", token)

	ttl, err := client.TTL(ctx, root+"/convstore/"+convID+"/token").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0, "token key must expire")

	_, err = st.GetAccountURL(ctx, convID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, st.StoreAccountURL(ctx, convID, "https://shop.example.com/customer/mcp"))
	url, err := st.GetAccountURL(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/customer/mcp", url)
}
