// Package handlers provides HTTP handlers for users, portfolios and portfolio views.
package handlers

import (
	"net/http"
	"time"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/dalia-app/dalia/internal/modules/portfolio"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.PortfolioService
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.PortfolioService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// UserResponse is the API shape of a user
type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// PortfolioResponse is the API shape of a portfolio
type PortfolioResponse struct {
	ID        int64  `json:"id"`
	PublicID  string `json:"public_id"`
	OwnerID   int64  `json:"owner_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// SlotResponse is one row of the slots view
type SlotResponse struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// HoldingResponse is one valued position. Price fields are null when the
// current price is unknown.
type HoldingResponse struct {
	Ticker              string   `json:"ticker"`
	Quantity            float64  `json:"quantity"`
	AvgCost             float64  `json:"avg_cost"`
	CostBasis           float64  `json:"cost_basis"`
	CurrentPrice        *float64 `json:"current_price"`
	MarketValue         *float64 `json:"market_value"`
	UnrealizedPL        *float64 `json:"unrealized_pl"`
	UnrealizedPLPercent *float64 `json:"unrealized_pl_percent"`
	RealizedPL          float64  `json:"realized_pl"`
}

// ProfitLossResponse is the P&L table
type ProfitLossResponse struct {
	Rows              []HoldingResponse `json:"rows"`
	TotalRealizedPL   float64           `json:"total_realized_pl"`
	TotalUnrealizedPL float64           `json:"total_unrealized_pl"`
}

// SummaryResponse is the portfolio summary
type SummaryResponse struct {
	Holdings          []HoldingResponse `json:"holdings"`
	CashBalance       float64           `json:"cash_balance"`
	TotalCost         float64           `json:"total_cost"`
	TotalValue        float64           `json:"total_value"`
	TotalUnrealizedPL float64           `json:"total_unrealized_pl"`
	TotalRealizedPL   float64           `json:"total_realized_pl"`
	PricedHoldings    int               `json:"priced_holdings"`
	UnpricedHoldings  int               `json:"unpriced_holdings"`
}

// CashFlowEntryResponse is one row of the cash history
type CashFlowEntryResponse struct {
	ID             int64   `json:"id"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Date           string  `json:"date"`
	Description    string  `json:"description"`
	RunningBalance float64 `json:"running_balance"`
}

func optional(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toUser(u portfolio.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt.Format(time.RFC3339)}
}

func toPortfolio(p portfolio.Portfolio) PortfolioResponse {
	return PortfolioResponse{
		ID:        p.ID,
		PublicID:  p.PublicID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toHoldings(rows []portfolio.ProfitLossRow) []HoldingResponse {
	out := make([]HoldingResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, HoldingResponse{
			Ticker:              row.Ticker,
			Quantity:            row.Quantity.InexactFloat64(),
			AvgCost:             row.AverageCost.InexactFloat64(),
			CostBasis:           row.CostBasis.InexactFloat64(),
			CurrentPrice:        optional(row.CurrentPrice),
			MarketValue:         optional(row.MarketValue),
			UnrealizedPL:        optional(row.UnrealizedPL),
			UnrealizedPLPercent: optional(row.UnrealizedPLPercent),
			RealizedPL:          row.RealizedPL.InexactFloat64(),
		})
	}
	return out
}

func toCashFlow(entries []ledger.CashFlowEntry) []CashFlowEntryResponse {
	out := make([]CashFlowEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, CashFlowEntryResponse{
			ID:             e.ID,
			Type:           string(e.FlowType),
			Amount:         e.Amount.InexactFloat64(),
			Date:           utils.FormatDate(e.Date),
			Description:    e.Description,
			RunningBalance: e.RunningBalance.InexactFloat64(),
		})
	}
	return out
}

type createUserBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleCreateUser handles POST /api/users
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserBody
	if !api.DecodeJSON(w, r, &body) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), body.Name, body.Email)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, toUser(user))
}

// HandleListUsers handles GET /api/users
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	api.WriteJSON(w, http.StatusOK, out)
}

type createPortfolioBody struct {
	Name string `json:"name"`
}

// HandleCreatePortfolio handles POST /api/users/{userID}/portfolios.
// Returns 201 for a new portfolio and 200 when the owner already had one with that name.
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := api.IDParam(w, r, "userID")
	if !ok {
		return
	}

	var body createPortfolioBody
	if !api.DecodeJSON(w, r, &body) {
		return
	}

	p, created, err := h.service.CreatePortfolio(r.Context(), ownerID, body.Name)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	api.WriteJSON(w, status, toPortfolio(p))
}

// HandleListPortfolios handles GET /api/users/{userID}/portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := api.IDParam(w, r, "userID")
	if !ok {
		return
	}

	portfolios, err := h.service.ListPortfolios(r.Context(), ownerID)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make([]PortfolioResponse, 0, len(portfolios))
	for _, p := range portfolios {
		out = append(out, toPortfolio(p))
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// HandleGetPortfolio handles GET /api/portfolios/{id}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetPortfolio(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toPortfolio(p))
}

// HandleDeletePortfolio handles DELETE /api/portfolios/{id}
func (h *Handler) HandleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePortfolio(r.Context(), id); err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSlots handles GET /api/portfolios/{id}/slots
func (h *Handler) HandleGetSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	slots, err := h.service.Slots(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{
			Ticker:   s.Ticker,
			Quantity: s.Quantity.InexactFloat64(),
			AvgCost:  s.AverageCost.InexactFloat64(),
		})
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// HandleGetHoldings handles GET /api/portfolios/{id}/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	tickers, err := h.service.Holdings(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, tickers)
}

// HandleGetProfitLoss handles GET /api/portfolios/{id}/profit-loss
func (h *Handler) HandleGetProfitLoss(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	pl, err := h.service.ProfitLoss(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ProfitLossResponse{
		Rows:              toHoldings(pl.Rows),
		TotalRealizedPL:   pl.TotalRealizedPL.InexactFloat64(),
		TotalUnrealizedPL: pl.TotalUnrealizedPL.InexactFloat64(),
	})
}

// HandleGetSummary handles GET /api/portfolios/{id}/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	s, err := h.service.Summary(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, SummaryResponse{
		Holdings:          toHoldings(s.Holdings),
		CashBalance:       s.CashBalance.InexactFloat64(),
		TotalCost:         s.TotalCost.InexactFloat64(),
		TotalValue:        s.TotalValue.InexactFloat64(),
		TotalUnrealizedPL: s.TotalUnrealizedPL.InexactFloat64(),
		TotalRealizedPL:   s.TotalRealizedPL.InexactFloat64(),
		PricedHoldings:    s.PricedCount,
		UnpricedHoldings:  s.UnpricedCount,
	})
}

// HandleGetCashHistory handles GET /api/portfolios/{id}/cash/history
func (h *Handler) HandleGetCashHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	entries, err := h.service.CashFlowHistory(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toCashFlow(entries))
}
