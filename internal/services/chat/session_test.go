package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/glimmerapp/backend/internal/domain/model"
)

type backendStub struct {
	history []model.Message
	hub     *Hub

	sendErr  error
	sendSeen []string
}

func (b *backendStub) History(context.Context, uuid.UUID, uuid.UUID, int) ([]model.Message, error) {
	out := make([]model.Message, len(b.history))
	copy(out, b.history)
	return out, nil
}

func (b *backendStub) Send(_ context.Context, matchID, senderID uuid.UUID, content string) (model.Message, error) {
	b.sendSeen = append(b.sendSeen, content)
	if b.sendErr != nil {
		return model.Message{}, b.sendErr
	}
	return model.Message{
		ID:        uuid.New(),
		MatchID:   matchID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (b *backendStub) Subscribe(ctx context.Context, matchID, _ uuid.UUID) (<-chan Event, func(), error) {
	return b.hub.Subscribe(ctx, matchID)
}

func eventFor(msg model.Message) Event {
	return Event{
		MessageID: msg.ID,
		MatchID:   msg.MatchID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func waitForMessages(t *testing.T, s *Session, want int) []model.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msgs := s.Messages()
		if len(msgs) >= want {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, have %d", want, len(s.Messages()))
	return nil
}

func TestSessionDeduplicatesOverlapBetweenFetchAndTail(t *testing.T) {
	matchID := uuid.New()
	m1 := model.Message{ID: uuid.New(), MatchID: matchID, SenderID: userX, Content: "first"}
	m2 := model.Message{ID: uuid.New(), MatchID: matchID, SenderID: userY, Content: "second"}
	m3 := model.Message{ID: uuid.New(), MatchID: matchID, SenderID: userY, Content: "third"}

	backend := &backendStub{history: []model.Message{m1, m2}, hub: NewHub()}

	session, err := OpenSession(context.Background(), backend, matchID, userX)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer session.Close()

	if session.State() != StateActive {
		t.Fatalf("expected active session, got %q", session.State())
	}

	// The live tail redelivers m2, then brings the new m3.
	if err := backend.hub.Publish(context.Background(), eventFor(m2)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := backend.hub.Publish(context.Background(), eventFor(m3)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs := waitForMessages(t, session, 3)
	if len(msgs) != 3 {
		t.Fatalf("expected exactly 3 messages, got %d", len(msgs))
	}
	for i, want := range []uuid.UUID{m1.ID, m2.ID, m3.ID} {
		if msgs[i].ID != want {
			t.Fatalf("message %d: got %s, want %s", i, msgs[i].ID, want)
		}
	}
}

func TestSessionKeepsDraftOnFailedSend(t *testing.T) {
	matchID := uuid.New()
	backend := &backendStub{hub: NewHub(), sendErr: errors.New("store is down")}

	session, err := OpenSession(context.Background(), backend, matchID, userX)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "hi there"); err == nil {
		t.Fatalf("expected send error")
	}
	if session.Draft() != "hi there" {
		t.Fatalf("draft lost after failed send: %q", session.Draft())
	}
	if session.State() != StateActive {
		t.Fatalf("expected active state after failed send, got %q", session.State())
	}
	if len(session.Messages()) != 0 {
		t.Fatalf("failed send must not append a message")
	}

	// Retry succeeds and clears the draft.
	backend.sendErr = nil
	if err := session.Send(context.Background(), session.Draft()); err != nil {
		t.Fatalf("retry send: %v", err)
	}
	if session.Draft() != "" {
		t.Fatalf("draft should be cleared after successful send")
	}

	msgs := session.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hi there" {
		t.Fatalf("unexpected messages after retry: %+v", msgs)
	}
}

func TestSessionAbsorbsOwnFeedEcho(t *testing.T) {
	matchID := uuid.New()
	backend := &backendStub{hub: NewHub()}

	session, err := OpenSession(context.Background(), backend, matchID, userX)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer session.Close()

	if err := session.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}

	// The feed echoes the same message back; dedup keeps the count at one.
	if err := backend.hub.Publish(context.Background(), eventFor(msgs[0])); err != nil {
		t.Fatalf("publish: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := len(session.Messages()); got != 1 {
		t.Fatalf("feed echo duplicated the message: %d", got)
	}
}

func TestSessionCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	matchID := uuid.New()
	backend := &backendStub{hub: NewHub()}

	session, err := OpenSession(context.Background(), backend, matchID, userX)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	session.Close()
	session.Close()

	late := model.Message{ID: uuid.New(), MatchID: matchID, SenderID: userY, Content: "late"}
	if err := backend.hub.Publish(context.Background(), eventFor(late)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := len(session.Messages()); got != 0 {
		t.Fatalf("closed session must not receive events, got %d", got)
	}

	if err := session.Send(context.Background(), "after close"); err == nil {
		t.Fatalf("expected error sending on a closed session")
	}
}
