// Package chat holds the message write path, the realtime change feed, and
// the per-match chat session.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one message-insert notification on the change feed.
type Event struct {
	MessageID uuid.UUID `json:"message_id"`
	MatchID   uuid.UUID `json:"match_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Feed delivers message-insert events to subscriptions filtered by match.
// Delivery is at-least-once per open subscription and in-order within one
// subscription; nothing is delivered across a disconnect, so consumers must
// reconcile with a full fetch before trusting the live tail. A subscription
// that cannot keep up is closed rather than skipped, so the consumer sees
// the disconnect and re-opens instead of silently missing events.
type Feed interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, matchID uuid.UUID) (<-chan Event, func(), error)
}

const subscriberBuffer = 64

type subscriber struct {
	ch   chan Event
	once sync.Once
}

func (s *subscriber) shutdown() {
	s.once.Do(func() { close(s.ch) })
}

// Hub is the in-process Feed: direct fan-out to channel subscribers. It
// serves single-node deployments and tests; RedisFeed is the cross-instance
// implementation.
type Hub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[int64]*subscriber
	next int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[int64]*subscriber)}
}

func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.MatchID == uuid.Nil {
		return nil
	}

	var lagging []*subscriber

	h.mu.Lock()
	for id, sub := range h.subs[event.MatchID] {
		select {
		case sub.ch <- event:
		default:
			// Full buffer: the consumer is not draining. Evict it so the
			// closed channel tells the client to re-open and reconcile.
			delete(h.subs[event.MatchID], id)
			lagging = append(lagging, sub)
		}
	}
	if len(h.subs[event.MatchID]) == 0 {
		delete(h.subs, event.MatchID)
	}
	h.mu.Unlock()

	for _, sub := range lagging {
		sub.shutdown()
	}

	return nil
}

func (h *Hub) Subscribe(_ context.Context, matchID uuid.UUID) (<-chan Event, func(), error) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[matchID] == nil {
		h.subs[matchID] = make(map[int64]*subscriber)
	}
	h.subs[matchID][id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[matchID], id)
		if len(h.subs[matchID]) == 0 {
			delete(h.subs, matchID)
		}
		h.mu.Unlock()
		sub.shutdown()
	}

	return sub.ch, cancel, nil
}
