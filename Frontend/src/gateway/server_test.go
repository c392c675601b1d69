package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(catalogURL, orderURL string) *http.ServeMux {
	s := &Server{
		catalogURL: catalogURL,
		orderURL:   orderURL,
		hc:         &http.Client{Timeout: 2 * time.Second},
	}
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, target string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "gateway always answers JSON")
	return rec.Code, out
}

func TestSearchRelay_PassesJSONThrough(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "distributed", r.URL.Query().Get("topic"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":{"Spring in the Pioneer Valley":3}}`))
	}))
	defer catalog.Close()

	mux := newTestGateway(catalog.URL, "http://localhost:0")
	code, out := do(t, mux, http.MethodGet, "/api/search?topic=distributed")
	assert.Equal(t, http.StatusOK, code)
	items := out["items"].(map[string]any)
	assert.EqualValues(t, 3, items["Spring in the Pioneer Valley"])
}

func TestInfoRelay_ForwardsStatus(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	}))
	defer catalog.Close()

	mux := newTestGateway(catalog.URL, "http://localhost:0")
	code, out := do(t, mux, http.MethodGet, "/api/info/42")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", out["error"])
}

func TestBuyRelay_PostsToOrderService(t *testing.T) {
	order := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/purchase/5", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"item_id":5}`))
	}))
	defer order.Close()

	mux := newTestGateway("http://localhost:0", order.URL)
	code, out := do(t, mux, http.MethodPost, "/api/buy/5")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["ok"])
	assert.EqualValues(t, 5, out["item_id"])
}

func TestRelay_NormalizesNonJSONBody(t *testing.T) {
	order := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>nginx error</html>"))
	}))
	defer order.Close()

	mux := newTestGateway("http://localhost:0", order.URL)
	code, out := do(t, mux, http.MethodPost, "/api/buy/1")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "order-service", out["upstream"])
	assert.EqualValues(t, http.StatusBadGateway, out["status"])
	assert.Equal(t, "<html>nginx error</html>", out["body"])
}

func TestRelay_UnreachableUpstreamIs502(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	mux := newTestGateway(dead.URL, dead.URL)
	code, out := do(t, mux, http.MethodGet, "/api/search?topic=x")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, false, out["ok"])
	assert.Equal(t, "catalog unreachable", out["error"])
	assert.NotEmpty(t, out["detail"])
}

func TestBuy_RequiresItemID(t *testing.T) {
	mux := newTestGateway("http://localhost:0", "http://localhost:0")

	code, out := do(t, mux, http.MethodPost, "/api/buy/")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "no_item_id_provided", out["error"])

	code, _ = do(t, mux, http.MethodGet, "/api/buy/3")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestHealth(t *testing.T) {
	mux := newTestGateway("http://localhost:0", "http://localhost:0")
	code, out := do(t, mux, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
}
