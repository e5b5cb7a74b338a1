package session

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterHTTP mounts the session control API on a chi router:
//
//	GET    /api/v1/status          — session summary and overlay counters
//	GET    /api/v1/selectors       — tracked selectors
//	POST   /api/v1/selectors       — add or replace a selector {"id","css"}
//	DELETE /api/v1/selectors/{id}  — stop tracking a selector
//	GET    /api/v1/events?limit=N  — recent refresh events (when logged)
func (s *Session) RegisterHTTP(r chi.Router) {
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/selectors", s.handleListSelectors)
	r.Post("/api/v1/selectors", s.handleAddSelector)
	r.Delete("/api/v1/selectors/{id}", s.handleRemoveSelector)
	r.Get("/api/v1/events", s.handleEvents)
}

func (s *Session) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Session) handleListSelectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Selectors())
}

func (s *Session) handleAddSelector(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID  string `json:"id"`
		CSS string `json:"css"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	id, err := s.AddSelector(req.ID, req.CSS)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Session) handleRemoveSelector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.RemoveSelector(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown selector id"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Session) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.Events(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
