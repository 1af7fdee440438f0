// Package handlers provides HTTP handlers for asset transactions.
package handlers

import (
	"net/http"
	"time"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/dalia-app/dalia/internal/modules/trading"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradingHandlers contains HTTP handlers for trading API
type TradingHandlers struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(service *trading.Service, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// TransactionResponse is the API shape of an asset transaction
type TransactionResponse struct {
	ID          int64   `json:"id"`
	PortfolioID int64   `json:"portfolio_id"`
	Ticker      string  `json:"ticker"`
	Type        string  `json:"transaction_type"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
	Date        string  `json:"transaction_date"`
}

// SettlementResponse is the cash movement booked with a transaction
type SettlementResponse struct {
	ID          int64   `json:"id"`
	FlowType    string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// AddTransactionResponse is returned by POST /portfolios/{id}/transactions
type AddTransactionResponse struct {
	Transaction  TransactionResponse `json:"transaction"`
	CashMovement *SettlementResponse `json:"cash_movement"`
}

type addTransactionBody struct {
	Ticker               string          `json:"ticker"`
	Type                 string          `json:"transaction_type"`
	Quantity             decimal.Decimal `json:"quantity"`
	Price                decimal.Decimal `json:"price"`
	Date                 string          `json:"transaction_date"`
	UseCashFromPortfolio bool            `json:"use_cash_from_portfolio"`
}

func toResponse(tx ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		PortfolioID: tx.PortfolioID,
		Ticker:      tx.Ticker,
		Type:        string(tx.Type),
		Quantity:    tx.Quantity.InexactFloat64(),
		Price:       tx.Price.InexactFloat64(),
		Total:       tx.Amount().InexactFloat64(),
		Date:        utils.FormatDate(tx.Date),
	}
}

// HandleAddTransaction handles POST /api/portfolios/{id}/transactions
func (h *TradingHandlers) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	var body addTransactionBody
	if !api.DecodeJSON(w, r, &body) {
		return
	}

	txType, err := domain.ParseTransactionType(body.Type)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	date := time.Now().UTC()
	if body.Date != "" {
		if date, err = utils.ParseDate(body.Date); err != nil {
			api.WriteDomainError(w, h.log, domain.NewValidationError("transaction_date", err.Error()))
			return
		}
	}

	result, err := h.service.Add(r.Context(), trading.AddRequest{
		PortfolioID: portfolioID,
		Ticker:      body.Ticker,
		Type:        txType,
		Quantity:    body.Quantity,
		Price:       body.Price,
		Date:        date,
		UseCash:     body.UseCashFromPortfolio,
	})
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := AddTransactionResponse{Transaction: toResponse(result.Transaction)}
	if m := result.CashMovement; m != nil {
		resp.CashMovement = &SettlementResponse{
			ID:          m.ID,
			FlowType:    string(m.FlowType),
			Amount:      m.Amount.InexactFloat64(),
			Description: m.Description,
		}
	}

	api.WriteJSON(w, http.StatusCreated, resp)
}

// HandleListTransactions handles GET /api/portfolios/{id}/transactions
func (h *TradingHandlers) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	txs, err := h.service.List(r.Context(), portfolioID)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toResponse(tx))
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// HandleDeleteTransaction handles DELETE /api/transactions/{id}
func (h *TradingHandlers) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := api.IDParam(w, r, "id")
	if !ok {
		return
	}

	message, err := h.service.Delete(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
		"message": message,
	})
}
