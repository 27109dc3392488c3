package conversation

import (
	"context"
	"sync"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llms"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/llmutils"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/metricskey"
	"github.com/ShindoSensei/commercenext-mcp-agentv2/store"
	"github.com/effective-security/xlog"
)

// persistBuffer is the number of turn writes that may be pending before
// Save applies backpressure. Writes are never dropped.
const persistBuffer = 64

// persister applies turn writes in submission order on a single goroutine
// so the loop never blocks on storage. A failed write is logged and
// counted, never raised; order is preserved by the single writer.
type persister struct {
	ctx            context.Context
	messages       store.MessageStore
	conversationID string

	queue chan persistedTurn
	once  sync.Once
	done  chan struct{}
}

type persistedTurn struct {
	role    llms.Role
	content string
}

// newPersister starts the write goroutine. The write context is detached
// from the request's cancellation so queued turns still land after the
// client disconnects, but keeps its values for log correlation.
func newPersister(ctx context.Context, messages store.MessageStore, conversationID string) *persister {
	p := &persister{
		ctx:            context.WithoutCancel(ctx),
		messages:       messages,
		conversationID: conversationID,
		queue:          make(chan persistedTurn, persistBuffer),
		done:           make(chan struct{}),
	}
	go p.run()
	return p
}

// Save enqueues one turn, serialized as llms.Message JSON.
func (p *persister) Save(msg llms.Message) {
	p.queue <- persistedTurn{
		role:    msg.Role,
		content: llmutils.ToJSON(msg),
	}
}

// Close drains pending writes and stops the goroutine. Idempotent.
func (p *persister) Close() {
	p.once.Do(func() {
		close(p.queue)
	})
	<-p.done
}

func (p *persister) run() {
	defer close(p.done)
	for t := range p.queue {
		if err := p.messages.SaveMessage(p.ctx, p.conversationID, t.role, t.content); err != nil {
			logger.ContextKV(p.ctx, xlog.WARNING,
				"reason", "turn_persist_failed",
				"conversation_id", p.conversationID,
				"role", string(t.role),
				"err", err.Error(),
			)
			metricskey.StatsTurnsPersistFailed.IncrCounter(1, string(t.role))
			continue
		}
		metricskey.StatsTurnsPersisted.IncrCounter(1, string(t.role))
	}
}
