package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed static/*
var staticFS embed.FS

// El gateway no tiene lógica de negocio: traduce /api/* a los dos
// servicios y normaliza cualquier respuesta no-JSON para que el
// navegador y el CLI siempre reciban JSON.
type Server struct {
	catalogURL string
	orderURL   string
	hc         *http.Client
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	_ = godotenv.Load()
	addr := getenv("GATEWAY_HTTP_ADDR", ":8082")
	s := &Server{
		catalogURL: strings.TrimRight(getenv("CATALOG_BASE_URL", "http://localhost:8080"), "/"),
		orderURL:   strings.TrimRight(getenv("ORDER_BASE_URL", "http://localhost:8081"), "/"),
		hc:         &http.Client{Timeout: 5 * time.Second},
	}
	log.Info().
		Str("addr", addr).
		Str("catalog", s.catalogURL).
		Str("order", s.orderURL).
		Msg("starting gateway")

	mux := http.NewServeMux()
	s.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/static/", http.FileServer(http.FS(staticFS)))

	srv := &http.Server{
		Addr:    addr,
		Handler: cors.Default().Handler(withRequestID(withLog(mux))),
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Warn().Msg("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Info().Msg("HTTP listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/info/", s.handleInfo)
	mux.HandleFunc("/api/buy/", s.handleBuy)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	q := url.Values{"topic": {r.URL.Query().Get("topic")}}
	s.relay(w, r, "catalog", http.MethodGet, s.catalogURL+"/search?"+q.Encode())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	id, ok := idFromPath(r, "/api/info")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "no_item_id_provided"})
		return
	}
	s.relay(w, r, "catalog", http.MethodGet, fmt.Sprintf("%s/info/%d", s.catalogURL, id))
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	id, ok := idFromPath(r, "/api/buy")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "no_item_id_provided"})
		return
	}
	s.relay(w, r, "order-service", http.MethodPost, fmt.Sprintf("%s/purchase/%d", s.orderURL, id))
}

// relay reenvía status y body del upstream tal cual cuando el body es
// JSON; si no lo es, lo envuelve, y si el upstream no responde devuelve
// 502. Nunca deja pasar un body que el cliente no pueda parsear.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, upstream, method, target string) {
	req, err := http.NewRequestWithContext(r.Context(), method, target, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal_error"})
		return
	}
	resp, err := s.hc.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("upstream", upstream).Msg("upstream unreachable")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"ok": false, "error": upstream + " unreachable", "detail": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"ok": false, "error": upstream + " unreachable", "detail": err.Error(),
		})
		return
	}

	if !json.Valid(body) {
		writeJSON(w, resp.StatusCode, map[string]any{
			"ok":       false,
			"upstream": upstream,
			"status":   resp.StatusCode,
			"body":     truncate(string(body), 400),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

func withLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", w.Header().Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
