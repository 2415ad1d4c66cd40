package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/glimmerapp/backend/internal/domain/model"
)

type SessionState string

const (
	StateLoading        SessionState = "loading"
	StateActive         SessionState = "active"
	StateSending        SessionState = "sending"
	StateErrorTransient SessionState = "error_transient"
)

// Backend is what a session needs from the chat service.
type Backend interface {
	History(ctx context.Context, matchID, requesterID uuid.UUID, limit int) ([]model.Message, error)
	Send(ctx context.Context, matchID, senderID uuid.UUID, content string) (model.Message, error)
	Subscribe(ctx context.Context, matchID, requesterID uuid.UUID) (<-chan Event, func(), error)
}

// Session is the per-match chat coordinator: one full ordered fetch, then a
// live tail, with every inbound event deduplicated by message id. The fetch
// and the subscription can race and deliver the same row; the id set makes
// each message appear exactly once regardless of the interleaving.
type Session struct {
	backend Backend
	matchID uuid.UUID
	userID  uuid.UUID

	mu       sync.Mutex
	state    SessionState
	messages []model.Message
	seen     map[uuid.UUID]struct{}
	draft    string
	cancel   func()
	closed   bool
}

// OpenSession fetches history and attaches the live tail. On fetch failure
// no subscription is left behind.
func OpenSession(ctx context.Context, backend Backend, matchID, userID uuid.UUID) (*Session, error) {
	if backend == nil {
		return nil, fmt.Errorf("chat backend is required")
	}
	if matchID == uuid.Nil || userID == uuid.Nil {
		return nil, ErrValidation
	}

	s := &Session{
		backend: backend,
		matchID: matchID,
		userID:  userID,
		state:   StateLoading,
		seen:    make(map[uuid.UUID]struct{}),
	}

	history, err := backend.History(ctx, matchID, userID, 0)
	if err != nil {
		s.state = StateErrorTransient
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	for _, msg := range history {
		s.messages = append(s.messages, msg)
		s.seen[msg.ID] = struct{}{}
	}

	events, cancel, err := backend.Subscribe(ctx, matchID, userID)
	if err != nil {
		s.state = StateErrorTransient
		return nil, fmt.Errorf("open chat subscription: %w", err)
	}
	s.cancel = cancel
	s.state = StateActive

	go s.consume(events)

	return s, nil
}

func (s *Session) consume(events <-chan Event) {
	for event := range events {
		s.append(event)
	}
}

// append applies one inbound feed event: dedup by id, then pure append.
func (s *Session) append(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, ok := s.seen[event.MessageID]; ok {
		return
	}

	s.seen[event.MessageID] = struct{}{}
	s.messages = append(s.messages, model.Message{
		ID:        event.MessageID,
		MatchID:   event.MatchID,
		SenderID:  event.SenderID,
		Content:   event.Content,
		CreatedAt: event.CreatedAt,
	})
}

// Send validates and submits the draft. On failure the draft is kept so the
// user can resubmit; on success the message lands in the local sequence
// immediately (the feed echo is absorbed by dedup).
func (s *Session) Send(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session is closed")
	}
	s.state = StateSending
	s.draft = content
	s.mu.Unlock()

	msg, err := s.backend.Send(ctx, s.matchID, s.userID, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return err
	}
	s.state = StateActive
	if err != nil {
		return err
	}

	s.draft = ""
	if _, ok := s.seen[msg.ID]; !ok {
		s.seen[msg.ID] = struct{}{}
		s.messages = append(s.messages, msg)
	}
	return nil
}

// Close releases the subscription. Safe to call more than once; no state
// changes happen after it returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Messages returns a copy of the displayed sequence.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Draft returns the preserved input after a failed send.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
