package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	chatsvc "github.com/glimmerapp/backend/internal/services/chat"
	ratesvc "github.com/glimmerapp/backend/internal/services/rate"
	"github.com/glimmerapp/backend/internal/transport/http/dto"
	httperrors "github.com/glimmerapp/backend/internal/transport/http/errors"
)

type MessagesHandler struct {
	service *chatsvc.Service
}

func NewMessagesHandler(service *chatsvc.Service) *MessagesHandler {
	return &MessagesHandler{service: service}
}

func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
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

	items, err := h.service.History(r.Context(), matchID, identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 0))
	if err != nil {
		writeChatError(w, err, "failed to load messages")
		return
	}

	responseItems := make([]dto.MessageResponse, 0, len(items))
	for _, msg := range items {
		responseItems = append(responseItems, dto.MessageResponse{
			ID:        msg.ID,
			MatchID:   msg.MatchID,
			SenderID:  msg.SenderID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{Items: responseItems})
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
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

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	msg, err := h.service.Send(r.Context(), matchID, identity.UserID, req.Content)
	if err != nil {
		writeChatError(w, err, "failed to send message")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MessageResponse{
		ID:        msg.ID,
		MatchID:   msg.MatchID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})
}

func writeChatError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, chatsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid chat request")
	case errors.Is(err, chatsvc.ErrMatchNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, chatsvc.ErrNotParticipant):
		writeForbidden(w, "NOT_PARTICIPANT", "you are not a participant of this match")
	default:
		if limitErr, ok := ratesvc.AsLimitError(err); ok {
			writeRateLimited(w, "RATE_LIMITED", "too many messages, slow down", limitErr.RetryAfterSec())
			return
		}
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}
