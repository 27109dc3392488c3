package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the Store interface using Redis as the backend.
// The keys namespace is organized as follows:
// - `/<prefix>/convstore/<conversationID>/messages` list of turn JSON
// - `/<prefix>/convstore/<conversationID>/token` customer access token
// - `/<prefix>/convstore/<conversationID>/account_url` discovered endpoint

// maxHistoryTurns bounds the persisted window per conversation.
const maxHistoryTurns = 50

// tokenTTL bounds how long a customer token stays resolvable.
const tokenTTL = time.Hour

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(conversationID string) string {
	return path.Join(m.prefix, "convstore", conversationID, "messages")
}

func (m *redisStore) tokenKey(conversationID string) string {
	return path.Join(m.prefix, "convstore", conversationID, "token")
}

func (m *redisStore) accountURLKey(conversationID string) string {
	return path.Join(m.prefix, "convstore", conversationID, "account_url")
}

func (m *redisStore) SaveMessage(ctx context.Context, conversationID string, role llms.Role, content string) error {
	data, err := json.Marshal(Turn{Role: role, Content: content})
	if err != nil {
		return errors.Wrap(err, "failed to marshal turn")
	}

	key := m.messagesKey(conversationID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	// Keep only the most recent turns
	pipe.LTrim(ctx, key, -maxHistoryTurns, -1)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store turn in Redis")
	}
	return nil
}

func (m *redisStore) History(ctx context.Context, conversationID string) ([]Turn, error) {
	key := m.messagesKey(conversationID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read history from Redis")
	}

	var turns []Turn
	for _, item := range data {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"reason", "unmarshal turn",
				"conversation_id", conversationID,
				"err", err.Error(),
			)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (m *redisStore) GetToken(ctx context.Context, conversationID string) (string, error) {
	token, err := m.client.Get(ctx, m.tokenKey(conversationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "failed to get token from Redis")
	}
	return token, nil
}

func (m *redisStore) SetToken(ctx context.Context, conversationID, token string) error {
	err := m.client.Set(ctx, m.tokenKey(conversationID), token, tokenTTL).Err()
	if err != nil {
		return errors.Wrap(err, "failed to store token in Redis")
	}
	return nil
}

func (m *redisStore) GetAccountURL(ctx context.Context, conversationID string) (string, error) {
	url, err := m.client.Get(ctx, m.accountURLKey(conversationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "failed to get account URL from Redis")
	}
	return url, nil
}

func (m *redisStore) StoreAccountURL(ctx context.Context, conversationID, url string) error {
	err := m.client.Set(ctx, m.accountURLKey(conversationID), url, 0).Err()
	if err != nil {
		return errors.Wrap(err, "failed to store account URL in Redis")
	}
	return nil
}
