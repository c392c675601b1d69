package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type Server struct {
	repo   *Repository
	cache  *searchCache
	rabbit *Rabbit
}

func NewServer(repo *Repository, rabbit *Rabbit) *Server {
	return &Server{repo: repo, cache: newSearchCache(SearchCacheSize), rabbit: rabbit}
}

func (s *Server) Register(mux *http.ServeMux) {
	// cada operación acepta el parámetro por path o por query; la
	// resolución vive en los helpers *From, no en el core.
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search/", s.handleSearch)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/info/", s.handleInfo)
	mux.HandleFunc("/decrement", s.handleDecrement)
	mux.HandleFunc("/decrement/", s.handleDecrement)
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/update/", s.handleUpdate)
	mux.HandleFunc("/health", s.handleHealth)
}

// itemIDFrom normaliza la entrada: primero path (/op/<id>), luego ?id=.
func itemIDFrom(r *http.Request, prefix string) (int64, bool) {
	if rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"); rest != "" {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return id, true
		}
		return 0, false
	}
	if v := r.URL.Query().Get("id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

func topicFrom(r *http.Request) string {
	if rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/search"), "/"); rest != "" {
		return rest
	}
	return r.URL.Query().Get("topic")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
		return
	}
	topic := strings.ToLower(strings.TrimSpace(topicFrom(r)))

	if items, ok := s.cache.Get(topic); ok {
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
		return
	}
	items, err := s.repo.Search(r.Context(), topic)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	s.cache.Add(topic, items)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
		return
	}
	id, ok := itemIDFrom(r, "/info")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_item_id_provided"})
		return
	}
	b, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDecrement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
		return
	}
	id, ok := itemIDFrom(r, "/decrement")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_item_id_provided"})
		return
	}

	remaining, err := s.repo.Decrement(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		decrementOutcomes.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	case errors.Is(err, ErrOutOfStock):
		decrementOutcomes.WithLabelValues("out_of_stock").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "out_of_stock"})
		return
	case err != nil:
		decrementOutcomes.WithLabelValues("error").Inc()
		log.Error().Err(err).Int64("item_id", id).Msg("decrement failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	decrementOutcomes.WithLabelValues("ok").Inc()
	log.Debug().Int64("item_id", id).Int64("remaining", remaining).Msg("decremented")

	if remaining == 0 {
		// best effort, nunca afecta la respuesta
		if err := s.rabbit.PublishJSON(RKStockDepleted, map[string]int64{"item_id": id}); err != nil {
			log.Warn().Err(err).Int64("item_id", id).Msg("publish stock.depleted failed")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item_id": id, "remaining": remaining})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
		return
	}
	id, ok := itemIDFrom(r, "/update")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_item_id_provided"})
		return
	}

	var p Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	b, err := s.repo.Update(r.Context(), id, p)
	switch {
	case errors.Is(err, ErrNoValidFields):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_valid_fields"})
		return
	case errors.Is(err, ErrNotFound):
		// el write con guarda fue un no-op; lo que falla es el read-back
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	case err != nil:
		log.Error().Err(err).Int64("item_id", id).Msg("update failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item_id": id, "new_data": b})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
