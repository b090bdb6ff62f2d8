package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pigmap/internal/httputil"
	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/service"
)

type UpvoteHandler struct {
	upvoteService *service.UpvoteService
}

func NewUpvoteHandler(upvoteService *service.UpvoteService) *UpvoteHandler {
	return &UpvoteHandler{upvoteService: upvoteService}
}

// Upvote handles POST /api/upvotes/:markerId
func (h *UpvoteHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	markerID := chi.URLParam(r, "markerId")

	var req model.UpvoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.upvoteService.Upvote(r.Context(), markerID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			writeValidation(w, err)
		case errors.Is(err, model.ErrMagicCodeRequired):
			httputil.WriteBadRequest(w, "magicCode is required")
		case errors.Is(err, model.ErrAlreadyUpvoted):
			httputil.WriteTooManyRequests(w, model.CodeAlreadyUpvoted, "Already upvoted this marker today")
		case errors.Is(err, model.ErrMarkerNotFound):
			httputil.WriteNotFound(w, "Marker not found")
		case errors.Is(err, model.ErrServiceUnavailable):
			logging.Component("upvote_handler").Error().Err(err).Str("marker", markerID).Msg("Upvote FAILED")
			httputil.WriteServiceUnavailable(w, "Upvoting is temporarily unavailable")
		default:
			logging.Component("upvote_handler").Error().Err(err).Str("marker", markerID).Msg("Upvote FAILED")
			httputil.WriteInternalError(w, "Failed to upvote marker")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
