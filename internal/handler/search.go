package handler

import (
	"errors"
	"net/http"

	"pigmap/internal/httputil"
	"pigmap/internal/model"
	"pigmap/internal/service"
)

type SearchHandler struct {
	searchService *service.SearchService
}

func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /api/search?q=
// The geocoder's result list is passed through unchanged.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.searchService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidInput):
			httputil.WriteBadRequest(w, `Query parameter "q" is required`)
		default:
			httputil.WriteInternalError(w, "Failed to search location")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(results)
}
