package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// queueBound is the per-consumer channel capacity beyond which new
// events are dropped rather than delivered, so one slow SSE subscriber
// cannot block the orchestrator goroutine (spec §4.14, §5).
const queueBound = 256

// Consumer is a bus subscription: a channel of events plus a running
// count of events dropped because the channel was full.
type Consumer struct {
	ch      chan Event
	dropped atomic.Uint64
}

// Events returns the channel to range over.
func (c *Consumer) Events() <-chan Event { return c.ch }

// Dropped returns how many events this consumer has missed.
func (c *Consumer) Dropped() uint64 { return c.dropped.Load() }

// Bus fans out one session's events to many consumers in the producer's
// emission order. Grounded on the teacher's sse Message pool plus
// core/broker's Producer/Consumer naming, collapsed into a single
// in-process type since spec §4.14 requires fan-out, not a durable
// external queue (see DESIGN.md for the dropped Pulsar/Kafka deps).
type Bus struct {
	sessionID string
	mu        sync.RWMutex
	consumers map[*Consumer]struct{}
	seq       atomic.Uint64
	snapshot  func() []Event // assembles late-joiner state snapshot
}

// NewBus creates a bus for one session. snapshot, if non-nil, is called
// when a new consumer subscribes and its events are delivered before
// any live event, per spec §4.14's late-joiner contract.
func NewBus(sessionID string, snapshot func() []Event) *Bus {
	return &Bus{
		sessionID: sessionID,
		consumers: make(map[*Consumer]struct{}),
		snapshot:  snapshot,
	}
}

// Subscribe registers a new consumer, first delivering the session's
// current state snapshot (if configured) and then any live events.
func (b *Bus) Subscribe() *Consumer {
	c := &Consumer{ch: make(chan Event, queueBound)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.snapshot != nil {
		for _, e := range b.snapshot() {
			select {
			case c.ch <- e:
			default:
				c.dropped.Add(1)
			}
		}
	}
	b.consumers[c] = struct{}{}
	return c
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Bus) Unsubscribe(c *Consumer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.consumers[c]; ok {
		delete(b.consumers, c)
		close(c.ch)
	}
}

// Publish delivers an event to every current consumer in FIFO order
// relative to this call. Slow consumers have the event dropped and
// counted rather than blocking the publisher.
func (b *Bus) Publish(kind Kind, payload any) {
	e := Event{
		SessionID: b.sessionID,
		Kind:      kind,
		Seq:       b.seq.Add(1),
		At:        time.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.consumers {
		select {
		case c.ch <- e:
		default:
			c.dropped.Add(1)
		}
	}
}

// Close unsubscribes and closes every remaining consumer, used when a
// session reaches a terminal phase.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.consumers {
		close(c.ch)
		delete(b.consumers, c)
	}
}
