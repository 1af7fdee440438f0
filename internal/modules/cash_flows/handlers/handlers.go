// Package handlers provides HTTP handlers for cash movements.
package handlers

import (
	"net/http"
	"time"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles cash HTTP requests
type Handler struct {
	service *cash_flows.Service
	log     zerolog.Logger
}

// NewHandler creates a new cash handler
func NewHandler(service *cash_flows.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "cash_flows").Logger(),
	}
}

// CashMovementResponse is the API shape of a cash movement.
type CashMovementResponse struct {
	ID          int64   `json:"id"`
	PortfolioID int64   `json:"portfolio_id"`
	FlowType    string  `json:"type"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

func toResponse(m ledger.CashMovement) CashMovementResponse {
	return CashMovementResponse{
		ID:          m.ID,
		PortfolioID: m.PortfolioID,
		FlowType:    string(m.FlowType),
		Amount:      m.Amount.InexactFloat64(),
		Date:        utils.FormatDate(m.Date),
		Description: m.Description,
	}
}

type addMovementBody struct {
	FlowType    string          `json:"flow_type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

// HandleAddMovement handles POST /api/portfolios/{id}/cash
func (h *Handler) HandleAddMovement(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	var body addMovementBody
	if !api.DecodeJSON(w, r, &body) {
		return
	}

	flow, err := domain.ParseFlowType(body.FlowType)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	date := time.Now().UTC()
	if body.Date != "" {
		if date, err = utils.ParseDate(body.Date); err != nil {
			api.WriteDomainError(w, h.log, domain.NewValidationError("date", err.Error()))
			return
		}
	}

	m, err := h.service.AddMovement(r.Context(), cash_flows.AddMovementRequest{
		PortfolioID: portfolioID,
		FlowType:    flow,
		Amount:      body.Amount,
		Date:        date,
		Description: body.Description,
	})
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, toResponse(m))
}

// HandleListMovements handles GET /api/portfolios/{id}/cash
func (h *Handler) HandleListMovements(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	movements, err := h.service.List(r.Context(), portfolioID)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make([]CashMovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toResponse(m))
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// HandleGetBalance handles GET /api/portfolios/{id}/cash/balance
func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), portfolioID)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": portfolioID,
		"balance":      balance.InexactFloat64(),
	})
}

// HandleDeleteMovement handles DELETE /api/cash/{id}
func (h *Handler) HandleDeleteMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
