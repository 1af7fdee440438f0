package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *chi.Mux {
	handler := NewHandler(zerolog.New(nil).Level(zerolog.Disabled))
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func post(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/ledger/evaluate", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleEvaluate(t *testing.T) {
	body := `{
		"transactions": [
			{"ticker": "walmex", "transaction_type": "BUY", "quantity": 10, "price": 100, "date": "2025-01-02"},
			{"ticker": "WALMEX", "transaction_type": "buy", "quantity": 10, "price": "200", "date": "2025-01-03"},
			{"ticker": "WALMEX", "transaction_type": "SELL", "quantity": 15, "price": 180, "date": "2025-01-04"},
			{"ticker": "AMXB", "transaction_type": "BUY", "quantity": 20, "price": 15, "date": "2025-01-04"}
		],
		"cash_movements": [
			{"flow_type": "DEPOSIT", "amount": 1000, "date": "2025-01-01"},
			{"flow_type": "BUY_COST", "amount": 1000, "date": "2025-01-02"},
			{"flow_type": "SELL_PROCEEDS", "amount": 2700, "date": "2025-01-04"}
		],
		"prices": {"WALMEX": 160}
	}`

	w := post(newRouter(), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp EvaluateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, 450.0, resp.RealizedPL)
	assert.Equal(t, 2700.0, resp.CashBalance)
	require.Len(t, resp.Positions, 2)

	amx := resp.Positions[0]
	assert.Equal(t, "AMXB", amx.Ticker)
	assert.Nil(t, amx.CurrentPrice)
	assert.Nil(t, amx.UnrealizedPL)

	walmex := resp.Positions[1]
	assert.Equal(t, "WALMEX", walmex.Ticker)
	assert.Equal(t, 5.0, walmex.Quantity)
	assert.Equal(t, 150.0, walmex.AvgCost)
	require.NotNil(t, walmex.UnrealizedPL)
	assert.Equal(t, 50.0, *walmex.UnrealizedPL)
}

func TestHandleEvaluate_Rejects(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"transactions": [`},
		{"unknown type", `{"transactions": [{"ticker": "A", "transaction_type": "HOLD", "quantity": 1, "price": 1, "date": "2025-01-01"}]}`},
		{"negative quantity", `{"transactions": [{"ticker": "A", "transaction_type": "BUY", "quantity": -1, "price": 1, "date": "2025-01-01"}]}`},
		{"bad date", `{"transactions": [{"ticker": "A", "transaction_type": "BUY", "quantity": 1, "price": 1, "date": "01/01/2025"}]}`},
		{"unknown flow", `{"cash_movements": [{"flow_type": "GIFT", "amount": 1, "date": "2025-01-01"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(router, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRouteIntegration(t *testing.T) {
	w := post(newRouter(), `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"positions":[],"realized_pl":0,"realized_by_ticker":{},"cash_balance":0}`, w.Body.String())
}
