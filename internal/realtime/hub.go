// Package realtime fans chat messages out to live subscribers of a counselling
// session. Hub is the in-process fan-out; PGBroker layers Postgres
// LISTEN/NOTIFY on top of it so every API instance sees every message.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one chat message as delivered to subscribers.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Broker is what the HTTP layer publishes to and streams from.
type Broker interface {
	Publish(ctx context.Context, m Message) error
	Subscribe(sessionID uuid.UUID) (<-chan Message, func())
}

// subscriberBuffer is how many undelivered messages a subscriber may hold
// before new ones are dropped for it.
const subscriberBuffer = 16

// Hub delivers messages to subscribers in the same process. Delivery never
// blocks the publisher: a subscriber whose buffer is full misses the message.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan Message]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Message]struct{})}
}

var _ Broker = (*Hub)(nil)

// Publish delivers m to every current subscriber of m.SessionID.
func (h *Hub) Publish(_ context.Context, m Message) error {
	h.deliver(m)
	return nil
}

// deliver returns the number of subscribers the message reached.
func (h *Hub) deliver(m Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for ch := range h.subs[m.SessionID] {
		select {
		case ch <- m:
			n++
		default:
		}
	}
	return n
}

// Subscribe registers a subscriber for sessionID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(sessionID uuid.UUID) (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan Message]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscribers for sessionID.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
