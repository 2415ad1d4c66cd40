package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	pgrepo "github.com/glimmerapp/backend/internal/repo/postgres"
	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	chatsvc "github.com/glimmerapp/backend/internal/services/chat"
)

func injectIdentity(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newChatWSServer(t *testing.T, match pgrepo.MatchRecord, userID uuid.UUID, readDeadline time.Duration) *httptest.Server {
	t.Helper()

	svc := chatsvc.NewService(chatsvc.Dependencies{
		MatchStore:   &chatMatchStoreStub{match: match},
		MessageStore: &chatMessageStoreStub{},
		Feed:         chatsvc.NewHub(),
	})
	h := NewChatWSHandler(svc, nil)
	h.readDeadline = readDeadline

	r := chi.NewRouter()
	r.With(injectIdentity(userID)).Get("/matches/{matchID}/ws", h.Handle)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func dialChatWS(t *testing.T, ts *httptest.Server, matchID uuid.UUID) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/matches/" + matchID.String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChatWSStaysOpenWhileMessagesFlow(t *testing.T) {
	match := pgrepo.MatchRecord{ID: uuid.New(), LowID: actorID, HighID: targetID, CreatedAt: time.Now().UTC()}
	ts := newChatWSServer(t, match, actorID, 500*time.Millisecond)
	conn := dialChatWS(t, ts, match.ID)

	// Message frames alone must keep the connection alive past the read
	// deadline; no ping frames are sent during the whole exchange.
	for i := 0; i < 5; i++ {
		time.Sleep(200 * time.Millisecond)

		content := fmt.Sprintf("still here %d", i)
		if err := conn.WriteJSON(wsClientMessage{Type: "message", Content: content}); err != nil {
			t.Fatalf("write message %d: %v", i, err)
		}

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var got wsServerMessage
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read echo %d: %v", i, err)
		}
		if got.Type != "message" || got.Event == nil || got.Event.Content != content {
			t.Fatalf("unexpected frame %d: %+v", i, got)
		}
	}
}

func TestChatWSRejectsNonParticipantBeforeUpgrade(t *testing.T) {
	match := pgrepo.MatchRecord{ID: uuid.New(), LowID: actorID, HighID: targetID, CreatedAt: time.Now().UTC()}
	outsider := uuid.MustParse("44444444-4444-4444-4444-444444444444")
	ts := newChatWSServer(t, match, outsider, time.Minute)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/matches/" + match.ID.String() + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatalf("expected the upgrade to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected a plain 403 response, got %+v", resp)
	}
}
