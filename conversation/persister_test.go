package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore fails writes on demand and rejects canceled contexts, so
// detachment from the request context is observable.
type recordingStore struct {
	failing bool
	turns   []store.Turn
}

func (s *recordingStore) SaveMessage(ctx context.Context, _ string, role llms.Role, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failing {
		return errors.New("disk full")
	}
	s.turns = append(s.turns, store.Turn{Role: role, Content: content})
	return nil
}

func (s *recordingStore) History(context.Context, string) ([]store.Turn, error) {
	return s.turns, nil
}

func Test_Persister_Order(t *testing.T) {
	s := &recordingStore{}
	p := newPersister(context.Background(), s, "conv_42")

	for i := 0; i < 50; i++ {
		p.Save(llms.MessageFromTextParts(llms.RoleHuman, fmt.Sprintf("message %d", i)))
	}
	p.Close()

	require.Len(t, s.turns, 50)
	for i, turn := range s.turns {
		assert.Equal(t, llms.RoleHuman, turn.Role)
		assert.Contains(t, turn.Content, fmt.Sprintf("message %d", i))
	}
}

func Test_Persister_SurvivesRequestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &recordingStore{}
	p := newPersister(ctx, s, "conv_42")

	cancel()
	p.Save(llms.MessageFromTextParts(llms.RoleAI, "queued after disconnect"))
	p.Close()

	require.Len(t, s.turns, 1)
	assert.Contains(t, s.turns[0].Content, "queued after disconnect")
}

func Test_Persister_FailuresDoNotStopDraining(t *testing.T) {
	s := &recordingStore{failing: true}
	p := newPersister(context.Background(), s, "conv_42")

	p.Save(llms.MessageFromTextParts(llms.RoleHuman, "first"))
	p.Save(llms.MessageFromTextParts(llms.RoleAI, "second"))
	p.Close()

	assert.Empty(t, s.turns)
}

func Test_Persister_CloseIdempotent(t *testing.T) {
	p := newPersister(context.Background(), &recordingStore{}, "conv_42")
	p.Close()
	p.Close()
}

func Test_Products_Collect(t *testing.T) {
	var acc products
	assert.True(t, acc.Empty())

	acc.Collect(`{"products":[{"title":"Red Runner"},{"title":"Crimson Court"}]}`)
	acc.Collect("Results:\n```json\n{\"products\":[{\"title\":\"Scarlet Slip-on\"}]}\n```")
	require.False(t, acc.Empty())

	assert.JSONEq(t,
		`[{"title":"Red Runner"},{"title":"Crimson Court"},{"title":"Scarlet Slip-on"}]`,
		string(acc.JSON()))
}

func Test_Products_IgnoresNonProductPayloads(t *testing.T) {
	var acc products
	acc.Collect("plain text result")
	acc.Collect(`{"orders":[{"id":"o_1"}]}`)
	acc.Collect(`{"products":"sold out"}`)
	acc.Collect(`{"products":{"title":"not an array"}}`)
	assert.True(t, acc.Empty())
	assert.JSONEq(t, `[]`, string(acc.JSON()))
}

func Test_Products_PreservesElementShape(t *testing.T) {
	var acc products
	acc.Collect(`{"products":[{"title":"Red Runner","variants":[{"size":"42","price":"79.00"}]}]}`)
	assert.JSONEq(t,
		`[{"title":"Red Runner","variants":[{"size":"42","price":"79.00"}]}]`,
		string(acc.JSON()))
}
