package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pigmap/internal/httputil"
	"pigmap/internal/logging"
	"pigmap/internal/model"
	"pigmap/internal/moderation"
	"pigmap/internal/service"
)

// MagicCodeHeader carries the capability token on requests without a body.
const MagicCodeHeader = "X-Magic-Code"

type MarkerHandler struct {
	markerService *service.MarkerService
	moderator     *moderation.Moderator
}

func NewMarkerHandler(markerService *service.MarkerService, moderator *moderation.Moderator) *MarkerHandler {
	return &MarkerHandler{
		markerService: markerService,
		moderator:     moderator,
	}
}

// List handles GET /api/markers?filter=active|all
func (h *MarkerHandler) List(w http.ResponseWriter, r *http.Request) {
	markers, err := h.markerService.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			writeValidation(w, err)
		default:
			logging.Component("marker_handler").Error().Err(err).Msg("List FAILED")
			httputil.WriteInternalError(w, "Failed to fetch markers")
		}
		return
	}

	for i := range markers {
		markers[i] = markers[i].Public()
	}
	if markers == nil {
		markers = []model.Marker{}
	}
	httputil.WriteJSON(w, http.StatusOK, markers)
}

// Create handles POST /api/markers
// The response is the only place the marker's magic code is returned.
func (h *MarkerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateMarkerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	marker, err := h.markerService.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			writeValidation(w, err)
		default:
			logging.Component("marker_handler").Error().Err(err).Msg("Create FAILED")
			httputil.WriteInternalError(w, "Failed to create marker")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, model.CreateMarkerResponse{
		Success: true,
		ID:      marker.ID,
		Marker:  marker,
	})
}

// Delete handles DELETE /api/markers/:id with the creator's code in X-Magic-Code.
func (h *MarkerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.markerService.Delete(r.Context(), id, r.Header.Get(MagicCodeHeader))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMarkerNotFound):
			httputil.WriteNotFound(w, "Marker not found")
		case errors.Is(err, model.ErrUnauthorized):
			httputil.WriteForbidden(w, "Invalid magic code")
		default:
			logging.Component("marker_handler").Error().Err(err).Str("marker", id).Msg("Delete FAILED")
			httputil.WriteInternalError(w, "Failed to delete marker")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Report handles POST /api/markers/:id/report
func (h *MarkerHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	hidden, err := h.moderator.Report(r.Context(), id, req.MagicCode)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMagicCodeRequired):
			httputil.WriteBadRequest(w, "magicCode is required")
		case errors.Is(err, model.ErrAlreadyReported):
			httputil.WriteBadRequestWithCode(w, model.CodeAlreadyReported, "Marker already reported")
		case errors.Is(err, model.ErrMarkerNotFound):
			httputil.WriteNotFound(w, "Marker not found")
		case errors.Is(err, model.ErrServiceUnavailable):
			logging.Component("marker_handler").Error().Err(err).Str("marker", id).Msg("Report FAILED")
			httputil.WriteServiceUnavailable(w, "Reporting is temporarily unavailable")
		default:
			logging.Component("marker_handler").Error().Err(err).Str("marker", id).Msg("Report FAILED")
			httputil.WriteInternalError(w, "Failed to report marker")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.ReportResponse{Success: true, Hidden: hidden})
}
