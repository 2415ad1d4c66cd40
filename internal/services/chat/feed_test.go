package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

func TestHubFanOutFiltersByMatch(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	matchA := uuid.New()
	matchB := uuid.New()

	subA1, cancelA1, err := hub.Subscribe(ctx, matchA)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelA1()
	subA2, cancelA2, err := hub.Subscribe(ctx, matchA)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelA2()
	subB, cancelB, err := hub.Subscribe(ctx, matchB)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelB()

	event := Event{MessageID: uuid.New(), MatchID: matchA, SenderID: userX, Content: "hey"}
	if err := hub.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, sub := range []<-chan Event{subA1, subA2} {
		select {
		case got := <-sub:
			if got.MessageID != event.MessageID {
				t.Fatalf("unexpected event: %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive the event")
		}
	}

	select {
	case got := <-subB:
		t.Fatalf("event leaked across matches: %+v", got)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	matchID := uuid.New()

	sub, cancel, err := hub.Subscribe(context.Background(), matchID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	cancel()

	if _, open := <-sub; open {
		t.Fatalf("expected closed channel after cancel")
	}

	// Publishing after the last cancel must not panic or block.
	if err := hub.Publish(context.Background(), Event{MessageID: uuid.New(), MatchID: matchID}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestHubClosesLaggingSubscriber(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	matchID := uuid.New()

	lagging, cancelLagging, err := hub.Subscribe(ctx, matchID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Never drained: the buffer fills, then the next publish evicts it.
	for i := 0; i < subscriberBuffer+1; i++ {
		if err := hub.Publish(ctx, Event{MessageID: uuid.New(), MatchID: matchID}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	received := 0
	for range lagging {
		received++
	}
	if received != subscriberBuffer {
		t.Fatalf("expected the buffered %d events then a close, got %d", subscriberBuffer, received)
	}

	// Cancel after the hub-side close must not panic.
	cancelLagging()

	// A fresh subscription on the same match still receives.
	sub, cancel, err := hub.Subscribe(ctx, matchID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	event := Event{MessageID: uuid.New(), MatchID: matchID}
	if err := hub.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case got := <-sub:
		if got.MessageID != event.MessageID {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("fresh subscriber did not receive the event")
	}
}

func TestRedisFeedRoundTrip(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer srv.Close()

	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	defer client.Close()

	feed := NewRedisFeed(client, nil)
	ctx := context.Background()
	matchID := uuid.New()

	sub, cancel, err := feed.Subscribe(ctx, matchID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	event := Event{
		MessageID: uuid.New(),
		MatchID:   matchID,
		SenderID:  userX,
		Content:   "over the wire",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := feed.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-sub:
		if got.MessageID != event.MessageID || got.Content != event.Content {
			t.Fatalf("unexpected event: %+v", got)
		}
		if !got.CreatedAt.Equal(event.CreatedAt) {
			t.Fatalf("created_at mangled: got %v want %v", got.CreatedAt, event.CreatedAt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered over redis")
	}
}
