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

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Create handles POST /api/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.commentService.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			writeValidation(w, err)
		case errors.Is(err, model.ErrMarkerNotFound):
			httputil.WriteNotFound(w, "Marker not found")
		default:
			logging.Component("comment_handler").Error().Err(err).Str("marker", req.MarkerID).Msg("Create FAILED")
			httputil.WriteInternalError(w, "Failed to add comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/comments/:markerId
// Returns the marker's comments, newest first.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	markerID := chi.URLParam(r, "markerId")

	comments, err := h.commentService.ListByMarker(r.Context(), markerID)
	if err != nil {
		logging.Component("comment_handler").Error().Err(err).Str("marker", markerID).Msg("List FAILED")
		httputil.WriteInternalError(w, "Failed to fetch comments")
		return
	}

	if comments == nil {
		comments = []model.Comment{}
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}
