package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pigmap/internal/httputil"
	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService // nil when no blob store is configured
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadURL handles POST /api/upload-url
// Returns a presigned URL for uploading marker media directly to R2.
func (h *MediaHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, "Media uploads are not configured")
		return
	}

	var req model.UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.ContentType) == "" {
		httputil.WriteBadRequest(w, "filename and contentType are required")
		return
	}

	res, err := h.mediaService.PresignUpload(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidMediaType):
			kind := model.MediaKindFromContentType(strings.ToLower(req.ContentType))
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidMediaType,
				fmt.Sprintf("Unsupported %s type. Allowed: %s", kind, strings.Join(model.AllowedContentTypes(kind), ", ")))
		case errors.Is(err, model.ErrFileTooLarge):
			kind := model.MediaKindFromContentType(strings.ToLower(req.ContentType))
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge,
				fmt.Sprintf("File size must be between 1 byte and %dMB for %s", model.MaxMediaSize[kind]>>20, kind))
		case errors.Is(err, model.ErrInvalidInput):
			writeValidation(w, err)
		default:
			logging.Component("media_handler").Error().Err(err).Msg("UploadURL FAILED")
			httputil.WriteInternalError(w, "Failed to create upload URL")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
