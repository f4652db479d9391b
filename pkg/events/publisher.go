package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pitabwire/frame/queue"
	"github.com/rs/xid"
)

// Publisher stamps outcome events into envelopes, fans them out to
// in-process subscribers and publishes them on frame's queue. Without a
// queue manager it only serves local subscribers.
type Publisher struct {
	queue    queue.Manager
	source   string
	queueRef string

	mu      sync.RWMutex
	subs    map[string]*subscription
	dropped atomic.Int64
}

type subscription struct {
	ch    chan Envelope
	types []EventType
}

func (s *subscription) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// NewPublisher creates a publisher for queueRef on the given queue manager.
func NewPublisher(queueMgr queue.Manager, source string, queueRef string) *Publisher {
	return &Publisher{
		queue:    queueMgr,
		source:   source,
		queueRef: queueRef,
		subs:     make(map[string]*subscription),
	}
}

// NewLocalPublisher creates a publisher with only in-process subscribers.
func NewLocalPublisher(source string) *Publisher {
	return NewPublisher(nil, source, "")
}

// Emit wraps data in an envelope and delivers it. Local delivery never
// blocks: a subscriber whose buffer is full misses the event.
func (p *Publisher) Emit(ctx context.Context, eventType EventType, sessionID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		ID:        xid.New().String(),
		Type:      eventType,
		Source:    p.source,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	p.mu.RLock()
	for id, sub := range p.subs {
		if !sub.wants(eventType) {
			continue
		}
		select {
		case sub.ch <- envelope:
		default:
			p.dropped.Add(1)
			slog.Warn("events: subscriber buffer full, dropping",
				slog.String("subscriber", id), slog.String("event_type", string(eventType)))
		}
	}
	p.mu.RUnlock()

	if p.queue == nil {
		return nil
	}
	if err := p.queue.Publish(ctx, p.queueRef, envelope); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Subscribe registers a local subscriber for the given types, or for every
// type when none are named. Reusing an id replaces and closes the previous
// channel.
func (p *Publisher) Subscribe(id string, bufSize int, types ...EventType) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = 64
	}
	sub := &subscription{ch: make(chan Envelope, bufSize), types: types}

	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.subs[id]; ok {
		close(old.ch)
	}
	p.subs[id] = sub
	return sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sub, ok := p.subs[id]; ok {
		close(sub.ch)
		delete(p.subs, id)
	}
}

// Close removes every local subscriber.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, sub := range p.subs {
		close(sub.ch)
		delete(p.subs, id)
	}
}

// Dropped reports how many local deliveries were skipped.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}
