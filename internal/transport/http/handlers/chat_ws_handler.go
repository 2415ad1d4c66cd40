package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	chatsvc "github.com/glimmerapp/backend/internal/services/chat"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin policy is enforced at the edge.
		return true
	},
}

const (
	wsReadLimit    = 64 * 1024
	wsReadDeadline = 90 * time.Second
)

// wsClientMessage is what the client sends over the socket.
type wsClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsServerMessage wraps outbound frames: either a chat event or an error.
type wsServerMessage struct {
	Type    string         `json:"type"`
	Event   *chatsvc.Event `json:"event,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

type ChatWSHandler struct {
	service      *chatsvc.Service
	logger       *zap.Logger
	readDeadline time.Duration
}

func NewChatWSHandler(service *chatsvc.Service, logger *zap.Logger) *ChatWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatWSHandler{service: service, logger: logger, readDeadline: wsReadDeadline}
}

// Handle upgrades the connection and bridges it to the match's change feed.
// The participant check runs before the upgrade so rejections stay plain HTTP.
func (h *ChatWSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID, ok := uuidFromURLParam(r, "matchID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	events, unsubscribe, err := h.service.Subscribe(r.Context(), matchID, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, chatsvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
		case errors.Is(err, chatsvc.ErrNotParticipant):
			writeForbidden(w, "NOT_PARTICIPANT", "you are not a participant of this match")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to open chat subscription")
		}
		return
	}
	defer unsubscribe()

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Writer: forward feed events to the socket.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			event := event
			if err := conn.WriteJSON(wsServerMessage{Type: "message", Event: &event}); err != nil {
				return
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readDeadline))
	})

	for {
		select {
		case <-done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		// Any inbound frame proves the client is alive.
		_ = conn.SetReadDeadline(time.Now().Add(h.readDeadline))

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "message":
			if _, err := h.service.Send(r.Context(), matchID, identity.UserID, msg.Content); err != nil {
				_ = conn.WriteJSON(wsErrorMessage(err))
			}
		case "ping":
			// Keepalive only; the read itself refreshed the deadline.
		default:
			// Unknown frame types are ignored.
		}
	}
}

func wsErrorMessage(err error) wsServerMessage {
	msg := wsServerMessage{Type: "error", Code: "INTERNAL_ERROR", Message: "failed to send message"}
	switch {
	case errors.Is(err, chatsvc.ErrValidation):
		msg.Code, msg.Message = "VALIDATION_ERROR", "invalid message"
	case errors.Is(err, chatsvc.ErrNotParticipant):
		msg.Code, msg.Message = "NOT_PARTICIPANT", "you are not a participant of this match"
	}
	return msg
}
