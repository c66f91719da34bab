package event

import (
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles an event.
type Handler func(Event)

// subscription represents a registered event handler.
type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// recentCapacity bounds the ring buffer a freshly-connected /subscribe
// websocket client is backfilled from (see Recent): enough to give a late
// joiner a sense of what just happened, not a durable log — history.jsonl
// is that.
const recentCapacity = 50

// Bus is a synchronous pub-sub event dispatcher for Claudia's own
// "category.action" event types (task.*, session.*, undo.*; see
// doc.go). Beyond exact-type and wildcard subscriptions, it supports
// subscribing to a whole category — every Store mutation publishes one
// of these, and the Coordinator's websocket hub consumes them without
// coupling to the Store's internals. history.jsonl is not a subscriber:
// the Store appends it itself inside each mutation.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
	categorySubs  map[string][]subscription // "task"/"session"/"undo" -> subscriptions
	nextID        atomic.Uint64

	recentMu sync.Mutex
	recent   []Event
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[string][]subscription),
		categorySubs:  make(map[string][]subscription),
	}
}

// Subscribe registers a handler for a specific event type, e.g.
// "task.claimed". Returns a subscription ID that can be used to
// unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.generateID()
	sub := subscription{id: id, eventType: eventType, handler: handler}
	b.subscriptions[eventType] = append(b.subscriptions[eventType], sub)
	return id
}

// SubscribeCategory registers a handler for every event type in a
// category ("task", "session", or "undo" per the EventType naming
// convention), regardless of the specific action. Returns a
// subscription ID that can be used to unsubscribe.
func (b *Bus) SubscribeCategory(category string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.generateID()
	sub := subscription{id: id, eventType: category, handler: handler}
	b.categorySubs[category] = append(b.categorySubs[category], sub)
	return id
}

// SubscribeAll registers a handler for all event types.
// The handler will be called for every published event.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	for category, subs := range b.categorySubs {
		for i, sub := range subs {
			if sub.id == id {
				b.categorySubs[category] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Category returns the part of an eventType before the first ".", e.g.
// "task" for "task.claimed". Matches the naming convention every event
// in types.go follows.
func Category(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i >= 0 {
		return eventType[:i]
	}
	return eventType
}

// Publish dispatches an event to all registered handlers and records it
// in the recent-events ring buffer (see Recent). Specific handlers
// (subscribed to this exact event type) run first, then category
// handlers, then wildcard handlers (subscribed via SubscribeAll). Within
// each group, handlers run in registration order. If a handler panics,
// the panic is logged, recovered, and publishing continues to the
// remaining handlers.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	eventType := event.EventType()
	category := Category(eventType)

	specificSubs := make([]subscription, len(b.subscriptions[eventType]))
	copy(specificSubs, b.subscriptions[eventType])

	categorySubs := make([]subscription, len(b.categorySubs[category]))
	copy(categorySubs, b.categorySubs[category])

	wildcardSubs := make([]subscription, len(b.subscriptions["*"]))
	copy(wildcardSubs, b.subscriptions["*"])
	b.mu.RUnlock()

	for _, sub := range specificSubs {
		b.safeCall(sub.handler, event)
	}
	for _, sub := range categorySubs {
		b.safeCall(sub.handler, event)
	}
	for _, sub := range wildcardSubs {
		b.safeCall(sub.handler, event)
	}

	b.recordRecent(event)
}

func (b *Bus) recordRecent(event Event) {
	b.recentMu.Lock()
	defer b.recentMu.Unlock()
	b.recent = append(b.recent, event)
	if len(b.recent) > recentCapacity {
		b.recent = b.recent[len(b.recent)-recentCapacity:]
	}
}

// Recent returns up to the last recentCapacity published events, oldest
// first. The Coordinator's /subscribe handler uses this to backfill a
// newly connected websocket client with recent activity instead of
// leaving it with no context until the next mutation.
func (b *Bus) Recent() []Event {
	b.recentMu.Lock()
	defer b.recentMu.Unlock()
	out := make([]Event, len(b.recent))
	copy(out, b.recent)
	return out
}

// safeCall invokes a handler and recovers from any panics.
// Panics are logged with stack traces to aid debugging while ensuring
// one misbehaving handler cannot block event delivery to other handlers.
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for event %s: %v\n%s",
				event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// generateID creates a unique subscription ID, formatted like the
// Store's own task-NNN/tmpl-NNN allocation scheme rather than a compact
// base-26 string.
func (b *Bus) generateID() string {
	return fmt.Sprintf("sub-%03d", b.nextID.Add(1))
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = make(map[string][]subscription)
	b.categorySubs = make(map[string][]subscription)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	for _, subs := range b.categorySubs {
		count += len(subs)
	}
	return count
}
