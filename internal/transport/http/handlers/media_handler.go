package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	mediasvc "github.com/glimmerapp/backend/internal/services/media"
	"github.com/glimmerapp/backend/internal/transport/http/dto"
	httperrors "github.com/glimmerapp/backend/internal/transport/http/errors"
)

const photoFormLimit = 12 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

func (h *MediaHandler) PhotoUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	if err := r.ParseMultipartForm(photoFormLimit); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "photo file is required")
		return
	}
	defer file.Close()

	photoURL, err := h.service.UploadProfilePhoto(r.Context(), identity.UserID, file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrUnsupportedImage):
			writeBadRequest(w, "UNSUPPORTED_IMAGE", "file is not a supported image")
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid photo upload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to upload photo")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PhotoUploadResponse{
		OK:       true,
		PhotoURL: photoURL,
	})
}
