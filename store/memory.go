package store

import (
	"context"
	"sync"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
)

type inMemory struct {
	mu       sync.RWMutex
	messages map[string][]Turn
	tokens   map[string]string
	accounts map[string]string
}

// NewMemoryStore returns a mutex-guarded in-process Store.
func NewMemoryStore() Store {
	return &inMemory{
		messages: make(map[string][]Turn),
		tokens:   make(map[string]string),
		accounts: make(map[string]string),
	}
}

func (m *inMemory) SaveMessage(_ context.Context, conversationID string, role llms.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[conversationID] = append(m.messages[conversationID], Turn{
		Role:    role,
		Content: content,
	})
	return nil
}

func (m *inMemory) History(_ context.Context, conversationID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.messages[conversationID]
	if len(turns) == 0 {
		return nil, nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *inMemory) GetToken(_ context.Context, conversationID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[conversationID]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

func (m *inMemory) SetToken(_ context.Context, conversationID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[conversationID] = token
	return nil
}

func (m *inMemory) GetAccountURL(_ context.Context, conversationID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, ok := m.accounts[conversationID]
	if !ok {
		return "", ErrNotFound
	}
	return url, nil
}

func (m *inMemory) StoreAccountURL(_ context.Context, conversationID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[conversationID] = url
	return nil
}
