package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/ShindoSensei/commercenext-mcp-agentv2/pkg/metricskey"
	"github.com/cockroachdb/errors"
)

// SSEPublisher writes events to an HTTP response as Server-Sent Events,
// one `data:` frame per event, flushed immediately. Safe for use from a
// single producer; the mutex only guards Publish against Close.
type SSEPublisher struct {
	w       http.ResponseWriter
	flusher http.Flusher

	lock   sync.Mutex
	closed bool
}

// NewSSEPublisher prepares w for event streaming and writes the SSE
// response headers. It fails if the writer cannot flush incrementally.
func NewSSEPublisher(w http.ResponseWriter) (*SSEPublisher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &SSEPublisher{w: w, flusher: flusher}, nil
}

func (p *SSEPublisher) Publish(ctx context.Context, evt Event) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.closed {
		return errors.New("publisher is closed")
	}
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return errors.WithMessagef(err, "failed to encode %s event", evt.Type)
	}
	if _, err := fmt.Fprintf(p.w, "data: %s\n\n", body); err != nil {
		return errors.WithMessagef(err, "failed to write %s event", evt.Type)
	}
	p.flusher.Flush()

	metricskey.StatsStreamEventsPublished.IncrCounter(1, string(evt.Type))
	return nil
}

func (p *SSEPublisher) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.closed = true
	return nil
}
