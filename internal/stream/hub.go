// Package stream implements the in-process fan-out of newly captured
// requests to live viewers. One hub per process; subscribers are transient
// per-connection resources with bounded queues. Delivery is at-most-once:
// recency is worth more than completeness for a live debugging view, so a
// slow subscriber loses its oldest undelivered events, never the newest.
package stream

import (
	"encoding/json"
	"sync"
)

// Message is one event queued for a subscriber.
type Message struct {
	Event string
	Data  json.RawMessage
}

// Subscriber is a live viewer session. C delivers messages in publish order
// modulo drop-oldest eviction. Once unsubscribed, the ID is never reused.
type Subscriber struct {
	ID int64
	C  chan Message
}

// Hub maintains per-endpoint subscriber registries with bounded delivery
// queues. The registry map is the only shared mutable state; all access goes
// through Subscribe, Unsubscribe, Publish and Close.
type Hub struct {
	queueSize int

	mu          sync.Mutex
	subscribers map[string]map[int64]*Subscriber
	nextID      int64
}

// NewHub creates a hub whose subscribers each get a queue of queueSize
// undelivered messages. queueSize must be positive.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		panic("stream: queue size must be positive")
	}
	return &Hub{
		queueSize:   queueSize,
		subscribers: make(map[string]map[int64]*Subscriber),
	}
}

// Subscribe registers a new subscriber for an endpoint.
func (h *Hub) Subscribe(endpointID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscriber{
		ID: h.nextID,
		C:  make(chan Message, h.queueSize),
	}

	set, ok := h.subscribers[endpointID]
	if !ok {
		set = make(map[int64]*Subscriber)
		h.subscribers[endpointID] = set
	}
	set[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber. Unknown IDs are a no-op, so cleanup paths
// may call it unconditionally. An endpoint's set entry is dropped once empty.
func (h *Hub) Unsubscribe(endpointID string, subscriberID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subscribers[endpointID]
	if !ok {
		return
	}
	delete(set, subscriberID)
	if len(set) == 0 {
		delete(h.subscribers, endpointID)
	}
}

// Publish fans an event out to every current subscriber of the endpoint.
// It never blocks and never fails: a full queue evicts its oldest message to
// make room, and if a concurrent enqueue races the freed slot away the event
// is dropped for that subscriber only. No subscribers means no work.
func (h *Hub) Publish(endpointID string, event string, data json.RawMessage) {
	h.mu.Lock()
	set := h.subscribers[endpointID]
	if len(set) == 0 {
		h.mu.Unlock()
		return
	}
	// Snapshot so enqueueing happens without the registry lock; a stalled
	// subscriber must not delay delivery to the others.
	targets := make([]*Subscriber, 0, len(set))
	for _, sub := range set {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	msg := Message{Event: event, Data: data}
	for _, sub := range targets {
		select {
		case sub.C <- msg:
			continue
		default:
		}

		// Queue full: drop the oldest undelivered message, then retry once.
		select {
		case <-sub.C:
		default:
		}
		select {
		case sub.C <- msg:
		default:
			// Lost the race to a concurrent enqueue; drop for this subscriber.
		}
	}
}

// Close drops all subscriber state. Process shutdown only; per-connection
// teardown goes through Unsubscribe.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = make(map[string]map[int64]*Subscriber)
}

// SubscriberCount reports the number of live subscribers for an endpoint.
func (h *Hub) SubscriberCount(endpointID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[endpointID])
}
