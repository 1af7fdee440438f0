package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("quantity", "must be positive"), http.StatusBadRequest},
		{"insufficient position", &domain.InsufficientPositionError{Ticker: "AMXB"}, http.StatusBadRequest},
		{"insufficient funds", &domain.InsufficientFundsError{Required: decimal.NewFromInt(2), Available: decimal.NewFromInt(1)}, http.StatusConflict},
		{"not found", fmt.Errorf("transaction 9: %w", domain.ErrNotFound), http.StatusNotFound},
		{"upstream", domain.UpstreamErr("fetch", errors.New("timeout")), http.StatusBadGateway},
		{"store", domain.StoreErr("insert", errors.New("disk full")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestWriteDomainError_HidesInternalErrors(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	w := httptest.NewRecorder()
	WriteDomainError(w, log, domain.StoreErr("insert", errors.New("secret path /var/db")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	w = httptest.NewRecorder()
	WriteDomainError(w, log, domain.NewValidationError("ticker", "is required"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "validation", body.Code)
	assert.Contains(t, body.Error, "ticker is required")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"ana"}`))
	w := httptest.NewRecorder()
	assert.True(t, DecodeJSON(w, r, &v))
	assert.Equal(t, "ana", v.Name)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	w = httptest.NewRecorder()
	assert.False(t, DecodeJSON(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIDParam(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := IDParam(w, r, "id")
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, map[string]int64{"id": id})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/things/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())

	for _, bad := range []string{"/things/abc", "/things/0", "/things/-3"} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", bad, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}
