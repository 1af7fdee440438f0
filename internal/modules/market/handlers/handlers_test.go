package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/modules/market"
	testingpkg "github.com/dalia-app/dalia/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerFixture() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/emisoras", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"WALMEX": {"*": {"razon_social": "Wal-Mart de Mexico", "isin": "MX01WA000038", "bolsa": "BMV", "tipo_valor_id": "1", "estatus": "ACTIVA"}},
			"AMX": {"B": {"razon_social": "America Movil", "isin": "MX01AM050019", "bolsa": "BMV", "tipo_valor_id": "1", "estatus": "ACTIVA"}}
		}`))
	})
	mux.HandleFunc("/cotizaciones", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("emisora_serie") != "WALMEX" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"WALMEX": {"BMV": {"u": 58.31, "p": 58.1, "v": 1200, "f": "2025-01-10"}}}`))
	})
	mux.HandleFunc("/tasas", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Tasa_Objetivo": {"f": "2024-12-19", "t": 10.0}, "CETE 28": {"f": "2025-01-09", "t": 9.9}}`))
	})
	mux.HandleFunc("/financieros", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"flujo_operacion": 1500.5, "capex": -300}`))
	})
	mux.HandleFunc("/indices", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	return mux
}

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	provider := httptest.NewServer(providerFixture())
	t.Cleanup(provider.Close)

	db, cleanup := testingpkg.NewTestDB(t, "market")
	t.Cleanup(cleanup)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := databursatil.NewClient(provider.URL, "token", 5*time.Second, log)
	svc := market.NewService(
		market.NewIssuerRepository(db.Conn(), log),
		market.NewPriceRepository(db.Conn(), log),
		market.NewStatementRepository(db.Conn(), log),
		client,
		time.Second,
		log,
	)

	router := chi.NewRouter()
	NewHandler(svc, log).RegisterRoutes(router)
	return router
}

func serve(router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	router.ServeHTTP(w, req)
	return w
}

func TestIssuerEndpoints(t *testing.T) {
	router := setupRouter(t)

	w := serve(router, "POST", "/market/issuers/sync", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sync map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sync))
	assert.Equal(t, 2, sync["fetched"])

	w = serve(router, "GET", "/market/issuers?q=movil", "")
	require.Equal(t, http.StatusOK, w.Code)
	var issuers []IssuerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issuers))
	require.Len(t, issuers, 1)
	assert.Equal(t, "AMXB", issuers[0].Symbol)
	assert.Equal(t, "America Movil", issuers[0].Name)

	w = serve(router, "GET", "/market/issuers?q=zzz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestQuoteEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := serve(router, "GET", "/market/quotes/walmex", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var q QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	require.NotNil(t, q.Last)
	assert.InDelta(t, 58.31, *q.Last, 1e-9)

	w = serve(router, "GET", "/market/quotes/NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPassThroughEndpoints(t *testing.T) {
	router := setupRouter(t)

	w := serve(router, "GET", "/market/rates", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rates []RateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rates))
	require.Len(t, rates, 2)
	assert.Equal(t, "CETE 28", rates[0].Name)
	assert.Equal(t, "Tasa_Objetivo", rates[1].Name)

	// Provider errors map to 502
	w = serve(router, "GET", "/market/indices", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStatementEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := serve(router, "GET", "/market/statements/WALMEX/cash_flow?period=2025Q1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st StatementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.False(t, st.Cached)
	assert.InDelta(t, 1500.5, st.Concepts["flujo_operacion"], 1e-9)
	assert.InDelta(t, -300, st.Concepts["capex"], 1e-9)
	assert.Zero(t, st.Concepts["recompras"])

	w = serve(router, "GET", "/market/statements/WALMEX/cash_flow?period=2025Q1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Cached)

	w = serve(router, "GET", "/market/statements/WALMEX/balance?period=2025Q1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = serve(router, "GET", "/market/statements/WALMEX/income", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIntradaySyncValidation(t *testing.T) {
	router := setupRouter(t)
	w := serve(router, "POST", "/market/intraday/sync", `{"tickers": [], "days": 3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssetEndpoint(t *testing.T) {
	router := setupRouter(t)
	require.Equal(t, http.StatusOK, serve(router, "POST", "/market/issuers/sync", "").Code)

	w := serve(router, "GET", "/market/assets/WALMEX", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var asset AssetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &asset))
	require.NotNil(t, asset.Issuer)
	assert.Equal(t, "Wal-Mart de Mexico", asset.Issuer.Name)
	require.NotNil(t, asset.Quote)
	assert.Zero(t, asset.Samples)
	assert.Nil(t, asset.SMA20)
}
