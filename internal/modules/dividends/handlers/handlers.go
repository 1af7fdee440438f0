// Package handlers provides HTTP handlers for dividends.
package handlers

import (
	"net/http"
	"time"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/dividends"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles dividend HTTP requests
type Handler struct {
	service *dividends.Service
	log     zerolog.Logger
}

// NewHandler creates a new dividend handler
func NewHandler(service *dividends.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "dividends").Logger(),
	}
}

// RegisterRoutes registers the dividend routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/dividends", h.HandleList)
	r.Post("/portfolios/{id}/dividends", h.HandleRegister)
	r.Get("/portfolios/{id}/dividends/totals", h.HandleTotals)
}

// DividendResponse is the API shape of a dividend record
type DividendResponse struct {
	ID             int64   `json:"id"`
	PortfolioID    int64   `json:"portfolio_id"`
	Ticker         string  `json:"ticker"`
	Amount         float64 `json:"amount"`
	PaymentDate    string  `json:"payment_date"`
	CashMovementID *int64  `json:"cash_movement_id"`
}

func toResponse(d dividends.DividendRecord) DividendResponse {
	return DividendResponse{
		ID:             d.ID,
		PortfolioID:    d.PortfolioID,
		Ticker:         d.Ticker,
		Amount:         d.Amount.InexactFloat64(),
		PaymentDate:    utils.FormatDate(d.PaymentDate),
		CashMovementID: d.CashMovementID,
	}
}

type registerBody struct {
	Ticker      string          `json:"ticker"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
}

// HandleRegister handles POST /api/portfolios/{id}/dividends
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	var body registerBody
	if !api.DecodeJSON(w, r, &body) {
		return
	}

	date := time.Now().UTC()
	if body.PaymentDate != "" {
		var err error
		if date, err = utils.ParseDate(body.PaymentDate); err != nil {
			api.WriteDomainError(w, h.log, domain.NewValidationError("payment_date", err.Error()))
			return
		}
	}

	record, err := h.service.Register(r.Context(), portfolioID, body.Ticker, body.Amount, date)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toResponse(record))
}

// HandleList handles GET /api/portfolios/{id}/dividends?ticker=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	records, err := h.service.List(r.Context(), portfolioID, r.URL.Query().Get("ticker"))
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make([]DividendResponse, 0, len(records))
	for _, d := range records {
		out = append(out, toResponse(d))
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// HandleTotals handles GET /api/portfolios/{id}/dividends/totals
func (h *Handler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	totals, err := h.service.Totals(r.Context(), portfolioID)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make(map[string]float64, len(totals))
	for ticker, total := range totals {
		out[ticker] = total.InexactFloat64()
	}
	api.WriteJSON(w, http.StatusOK, out)
}
