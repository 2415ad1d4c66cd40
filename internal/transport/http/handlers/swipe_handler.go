package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/glimmerapp/backend/internal/domain/enums"
	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	ratesvc "github.com/glimmerapp/backend/internal/services/rate"
	swipesvc "github.com/glimmerapp/backend/internal/services/swipes"
	"github.com/glimmerapp/backend/internal/transport/http/dto"
	httperrors "github.com/glimmerapp/backend/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.TargetID == uuid.Nil {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id is required")
		return
	}

	result, err := h.service.Swipe(r.Context(), identity.UserID, req.TargetID, enums.DecisionFromLike(req.Like))
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrSelfSwipe):
			writeBadRequest(w, "SELF_SWIPE", "swiping yourself is not allowed")
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrDuplicate):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "SWIPE_EXISTS",
				Message: "this pair was already swiped",
			})
		default:
			if limitErr, ok := ratesvc.AsLimitError(err); ok {
				writeRateLimited(w, "RATE_LIMITED", "too many swipes, slow down", limitErr.RetryAfterSec())
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to process swipe")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		OK:           true,
		MatchCreated: result.MatchCreated,
	})
}
