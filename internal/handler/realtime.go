package handler

import (
	"net/http"

	"pigmap/internal/httputil"
	"pigmap/internal/logging"
	"pigmap/internal/realtime"
)

type RealtimeHandler struct {
	registry *realtime.Registry
}

func NewRealtimeHandler(registry *realtime.Registry) *RealtimeHandler {
	return &RealtimeHandler{registry: registry}
}

// Connect handles GET /ws
// On a failed upgrade the upgrader has already written the HTTP error.
func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Accept(w, r)
	if err != nil {
		return
	}
	logging.Component("realtime_handler").Debug().Uint64("session", s.ID()).Str("remote", r.RemoteAddr).Msg("Connect OK")
}

// Stats handles GET /api/stats
func (h *RealtimeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.registry.Stats(r.Context())
	if err != nil {
		httputil.WriteServiceUnavailable(w, "Live updates are unavailable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}
