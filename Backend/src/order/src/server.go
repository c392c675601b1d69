package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type Server struct {
	repo    *Repository
	catalog *CatalogClient
	rabbit  *Rabbit
	dbPath  string
}

func NewServer(repo *Repository, catalog *CatalogClient, rabbit *Rabbit, dbPath string) *Server {
	return &Server{repo: repo, catalog: catalog, rabbit: rabbit, dbPath: dbPath}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/purchase", s.handlePurchase)
	mux.HandleFunc("/purchase/", s.handlePurchase)
	mux.HandleFunc("/orders/", s.handleGetOrder)
	mux.HandleFunc("/health", s.handleHealth)
}

func idFromPath(r *http.Request, prefix string) (int64, bool) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// handlePurchase es el workflow de dos pasos:
//  1. reservar stock en el catálogo (decrement remoto, timeout fijo, sin retry)
//  2. anotar la orden en el log local
//
// Si el paso 2 falla, el stock ya fue consumido y NO se restaura: no hay
// transacción compensatoria. El caller recibe db_insert_failed para que
// sepa que la orden no quedó registrada.
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	itemID, ok := idFromPath(r, "/purchase")
	if !ok {
		purchaseOutcomes.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "no_item_id_provided"})
		return
	}

	// (1) reserva
	res, err := s.catalog.Decrement(r.Context(), itemID)
	if err != nil {
		purchaseOutcomes.WithLabelValues("catalog_unreachable").Inc()
		log.Warn().Err(err).Int64("item_id", itemID).Msg("catalog unreachable")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"ok": false, "error": "catalog_unreachable", "detail": err.Error(),
		})
		return
	}
	if res.Status != http.StatusOK {
		// reenvía la respuesta del catálogo tal cual, marcada con su origen
		purchaseOutcomes.WithLabelValues("upstream_error").Inc()
		out := map[string]any{"ok": false, "from": "catalog"}
		var upstream map[string]any
		if err := json.Unmarshal(res.Body, &upstream); err != nil {
			upstream = map[string]any{"status": res.Status, "body": truncate(string(res.Body), 400)}
		}
		for k, v := range upstream {
			out[k] = v
		}
		writeJSON(w, res.Status, out)
		return
	}

	// (2) registro local, después de reservar
	orderID, err := s.repo.Insert(r.Context(), itemID)
	if err != nil {
		// inconsistencia conocida: stock ya decrementado, sin compensación
		purchaseOutcomes.WithLabelValues("db_insert_failed").Inc()
		log.Error().Err(err).Int64("item_id", itemID).Msg("order insert failed after reservation")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok": false, "error": "db_insert_failed", "detail": err.Error(),
		})
		return
	}

	purchaseOutcomes.WithLabelValues("ok").Inc()
	log.Info().Int64("order_id", orderID).Int64("item_id", itemID).Msg("order recorded")
	if err := s.rabbit.PublishJSON(RKOrderCreated, OrderCreatedPayload{OrderID: orderID, ItemID: itemID}); err != nil {
		log.Warn().Err(err).Int64("order_id", orderID).Msg("publish order.created failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item_id": itemID})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	orderID, ok := idFromPath(r, "/orders")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "no_order_id_provided"})
		return
	}
	o, err := s.repo.Get(r.Context(), orderID)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal_error"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := os.Stat(s.dbPath)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db_exists": err == nil})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
