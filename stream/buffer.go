package stream

import (
	"context"
	"sync"
)

// Buffer is an ordered in-memory sink for tests and non-push callers.
type Buffer struct {
	lock   sync.Mutex
	events []Event
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (p *Buffer) Publish(_ context.Context, evt Event) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *Buffer) Close() error { return nil }

// Events returns a copy of everything published so far, in order.
func (p *Buffer) Events() []Event {
	p.lock.Lock()
	defer p.lock.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the published event types, in order.
func (p *Buffer) Types() []EventType {
	p.lock.Lock()
	defer p.lock.Unlock()
	out := make([]EventType, len(p.events))
	for i, evt := range p.events {
		out[i] = evt.Type
	}
	return out
}
