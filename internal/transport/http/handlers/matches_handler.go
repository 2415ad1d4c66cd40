package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	matchessvc "github.com/glimmerapp/backend/internal/services/matches"
	"github.com/glimmerapp/backend/internal/transport/http/dto"
	httperrors "github.com/glimmerapp/backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	items, err := h.service.List(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 100))
	if err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		}
		return
	}

	responseItems := make([]dto.MatchItemResponse, 0, len(items))
	for _, item := range items {
		responseItem := dto.MatchItemResponse{
			MatchID:     item.MatchID,
			OtherID:     item.OtherID,
			DisplayName: item.DisplayName,
			Bio:         item.Bio,
			PhotoURL:    item.PhotoURL,
			MatchedAt:   item.MatchedAt,
			UnreadCount: item.UnreadCount,
		}
		if item.LatestMessage != nil {
			responseItem.LatestMessage = &dto.LatestMessageResponse{
				ID:        item.LatestMessage.ID,
				SenderID:  item.LatestMessage.SenderID,
				Content:   item.LatestMessage.Content,
				CreatedAt: item.LatestMessage.CreatedAt,
			}
		}
		responseItems = append(responseItems, responseItem)
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: responseItems})
}

func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	matchID, ok := uuidFromURLParam(r, "matchID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	match, err := h.service.Get(r.Context(), matchID, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, matchessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid match request")
		case errors.Is(err, matchessvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
		case errors.Is(err, matchessvc.ErrNotParticipant):
			writeForbidden(w, "NOT_PARTICIPANT", "you are not a participant of this match")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load match")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchResponse{
		ID:        match.ID,
		LowID:     match.LowID,
		HighID:    match.HighID,
		CreatedAt: match.CreatedAt,
	})
}
