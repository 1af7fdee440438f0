package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalia-app/dalia/internal/config"
	"github.com/dalia-app/dalia/internal/di"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cotizaciones" && r.URL.Query().Get("emisora_serie") == "WALMEX" {
			_, _ = w.Write([]byte(`{"WALMEX": {"BMV": {"u": 120, "p": 118.5, "v": 1000, "f": "2025-01-10"}}}`))
			return
		}
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(provider.Close)

	cfg := &config.Config{
		DataDir: t.TempDir(),
		Port:    0,
		DevMode: true,
		Market: &config.MarketConfig{
			BaseURL: provider.URL,
			Token:   "token",
			Timeout: 2 * time.Second,
		},
		Backup: &config.BackupConfig{},
	}

	log := zerolog.Nop()
	container, jobs, err := di.Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(container.Close)
	require.NoError(t, container.PortfolioService.EnsureUser(context.Background(), 1, "default"))

	s := New(Config{Log: log, Container: container, Jobs: jobs, DataDir: cfg.DataDir, DevMode: true})
	s.systemHandlers.cpuPercent = func() (float64, error) { return 12.5, nil }
	s.systemHandlers.memPercent = func() (float64, error) { return 40, nil }
	s.systemHandlers.diskFreeGB = func(string) (float64, error) { return 100, nil }
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "dalia", body["service"])
}

func TestPortfolioFlow(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/users/1/portfolios", `{"name": "Retiro"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	// Same name again returns the existing portfolio
	rec = do(t, s, http.MethodPost, "/api/users/1/portfolios", `{"name": "Retiro"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	base := "/api/portfolios/" + jsonID(p.ID)
	rec = do(t, s, http.MethodPost, base+"/cash", `{"flow_type": "DEPOSIT", "amount": "500", "date": "2025-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	buy := `{"ticker": "walmex", "transaction_type": "BUY", "quantity": "10", "price": "100", "transaction_date": "2025-01-02", "use_cash_from_portfolio": true}`
	rec = do(t, s, http.MethodPost, base+"/transactions", buy)
	assert.Equal(t, http.StatusConflict, rec.Code, "500 cash cannot pay for 1000")

	rec = do(t, s, http.MethodPost, base+"/cash", `{"flow_type": "DEPOSIT", "amount": "500", "date": "2025-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, s, http.MethodPost, base+"/transactions", buy)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, base+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		CashBalance    float64 `json:"cash_balance"`
		TotalCost      float64 `json:"total_cost"`
		PricedHoldings int     `json:"priced_holdings"`
		Holdings       []struct {
			Ticker       string   `json:"ticker"`
			CurrentPrice *float64 `json:"current_price"`
			UnrealizedPL *float64 `json:"unrealized_pl"`
		} `json:"holdings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 0.0, summary.CashBalance)
	assert.Equal(t, 1000.0, summary.TotalCost)
	assert.Equal(t, 1, summary.PricedHoldings)
	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "WALMEX", summary.Holdings[0].Ticker)
	require.NotNil(t, summary.Holdings[0].CurrentPrice)
	assert.Equal(t, 120.0, *summary.Holdings[0].CurrentPrice)
	assert.Equal(t, 200.0, *summary.Holdings[0].UnrealizedPL)

	rec = do(t, s, http.MethodGet, "/api/portfolios/999/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerEvaluateMounted(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/ledger/evaluate", `{"transactions": []}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 40.0, status.MemoryPercent)
	assert.Equal(t, 100.0, status.DiskFreeGB)
	require.Len(t, status.Databases, 2)
	assert.Equal(t, "ledger", status.Databases[0].Name)
	assert.Equal(t, "market", status.Databases[1].Name)
	assert.Contains(t, status.Jobs, "check_wal_checkpoints")
}

func TestTriggerJob(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/system/jobs/check_wal_checkpoints", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/system/jobs/ledger_backup", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "backups are not configured")

	// Issuer sync fails against the unavailable provider
	rec = do(t, s, http.MethodPost, "/api/system/jobs/issuer_sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
