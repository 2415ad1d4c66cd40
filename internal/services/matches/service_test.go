package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
)

var (
	viewer = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	peerA  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	peerB  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

type matchStoreStub struct {
	records   []pgrepo.MatchProfileRecord
	match     *pgrepo.MatchRecord
	listCalls int
}

func (s *matchStoreStub) GetByID(_ context.Context, matchID uuid.UUID) (pgrepo.MatchRecord, error) {
	if s.match != nil && s.match.ID == matchID {
		return *s.match, nil
	}
	return pgrepo.MatchRecord{}, pgrepo.ErrMatchNotFound
}

func (s *matchStoreStub) ListWithProfilesForUser(_ context.Context, _ uuid.UUID, _ int) ([]pgrepo.MatchProfileRecord, error) {
	s.listCalls++
	out := make([]pgrepo.MatchProfileRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

type messageStoreStub struct {
	summaries    map[uuid.UUID]pgrepo.MessageSummary
	summaryCalls int
	lastIDs      []uuid.UUID
}

func (s *messageStoreStub) SummariesByMatchIDs(_ context.Context, matchIDs []uuid.UUID, _ uuid.UUID) (map[uuid.UUID]pgrepo.MessageSummary, error) {
	s.summaryCalls++
	s.lastIDs = matchIDs
	return s.summaries, nil
}

func TestListAggregatesInTwoRoundTrips(t *testing.T) {
	now := time.Now().UTC()
	matchWithChat := pgrepo.MatchProfileRecord{
		MatchID:     uuid.New(),
		OtherID:     peerA,
		DisplayName: "Ana",
		Bio:         "gardener",
		PhotoURL:    "https://cdn.example.com/a.jpg",
		CreatedAt:   now,
	}
	silentMatch := pgrepo.MatchProfileRecord{
		MatchID:     uuid.New(),
		OtherID:     peerB,
		DisplayName: "Bea",
		CreatedAt:   now.Add(-time.Hour),
	}

	latestID := uuid.New()
	matchStore := &matchStoreStub{records: []pgrepo.MatchProfileRecord{matchWithChat, silentMatch}}
	messageStore := &messageStoreStub{summaries: map[uuid.UUID]pgrepo.MessageSummary{
		matchWithChat.MatchID: {
			MatchID:       matchWithChat.MatchID,
			LatestID:      latestID,
			LatestSender:  peerA,
			LatestContent: "see you tomorrow",
			LatestAt:      now,
			FromPeerCount: 4,
		},
	}}

	svc := NewService(Dependencies{MatchStore: matchStore, MessageStore: messageStore})

	items, err := svc.List(context.Background(), viewer, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if matchStore.listCalls != 1 || messageStore.summaryCalls != 1 {
		t.Fatalf("expected exactly 2 store round-trips, got %d + %d",
			matchStore.listCalls, messageStore.summaryCalls)
	}
	if len(messageStore.lastIDs) != 2 {
		t.Fatalf("summary query should cover all listed matches, got %d ids", len(messageStore.lastIDs))
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.MatchID != matchWithChat.MatchID || first.DisplayName != "Ana" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.LatestMessage == nil {
		t.Fatalf("expected latest message on first item")
	}
	if first.LatestMessage.ID != latestID || first.LatestMessage.Content != "see you tomorrow" {
		t.Fatalf("unexpected latest message: %+v", first.LatestMessage)
	}
	if first.UnreadCount != 4 {
		t.Fatalf("unexpected unread count: %d", first.UnreadCount)
	}

	second := items[1]
	if second.MatchID != silentMatch.MatchID {
		t.Fatalf("unexpected second item: %+v", second)
	}
	if second.LatestMessage != nil {
		t.Fatalf("silent match must have no latest message")
	}
	if second.UnreadCount != 0 {
		t.Fatalf("silent match must have zero unread, got %d", second.UnreadCount)
	}
}

func TestListEmpty(t *testing.T) {
	matchStore := &matchStoreStub{}
	messageStore := &messageStoreStub{}
	svc := NewService(Dependencies{MatchStore: matchStore, MessageStore: messageStore})

	items, err := svc.List(context.Background(), viewer, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}
	if messageStore.summaryCalls != 0 {
		t.Fatalf("no summary query should run for an empty match list")
	}
}

func TestListRejectsNilUser(t *testing.T) {
	svc := NewService(Dependencies{MatchStore: &matchStoreStub{}, MessageStore: &messageStoreStub{}})
	if _, err := svc.List(context.Background(), uuid.Nil, 50); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetUnknownMatch(t *testing.T) {
	svc := NewService(Dependencies{MatchStore: &matchStoreStub{}, MessageStore: &messageStoreStub{}})
	if _, err := svc.Get(context.Background(), uuid.New(), viewer); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestGetChecksParticipation(t *testing.T) {
	match := pgrepo.MatchRecord{ID: uuid.New(), LowID: viewer, HighID: peerA, CreatedAt: time.Now().UTC()}
	svc := NewService(Dependencies{
		MatchStore:   &matchStoreStub{match: &match},
		MessageStore: &messageStoreStub{},
	})

	got, err := svc.Get(context.Background(), match.ID, viewer)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != match.ID || got.LowID != viewer || got.HighID != peerA {
		t.Fatalf("unexpected match: %+v", got)
	}

	if _, err := svc.Get(context.Background(), match.ID, peerB); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}
