// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler serves stateless ledger evaluations: the GUI posts a hypothetical
// history and gets positions and P&L back without touching any portfolio.
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "ledger").Logger(),
	}
}

// TransactionInput is one transaction of an evaluation request.
type TransactionInput struct {
	Ticker   string          `json:"ticker"`
	Type     string          `json:"transaction_type"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Date     string          `json:"date"`
}

// MovementInput is one cash movement of an evaluation request.
type MovementInput struct {
	FlowType    string          `json:"flow_type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

// EvaluateRequest is the body of POST /ledger/evaluate.
type EvaluateRequest struct {
	Transactions  []TransactionInput         `json:"transactions"`
	CashMovements []MovementInput            `json:"cash_movements"`
	Prices        map[string]decimal.Decimal `json:"prices"`
}

// EvaluatedPosition is a position with its valuation when a price was supplied.
type EvaluatedPosition struct {
	Ticker              string   `json:"ticker"`
	Quantity            float64  `json:"quantity"`
	AvgCost             float64  `json:"avg_cost"`
	CurrentPrice        *float64 `json:"current_price"`
	UnrealizedPL        *float64 `json:"unrealized_pl"`
	UnrealizedPLPercent *float64 `json:"unrealized_pl_percent"`
}

// EvaluateResponse is the result of an evaluation.
type EvaluateResponse struct {
	Positions        []EvaluatedPosition `json:"positions"`
	RealizedPL       float64             `json:"realized_pl"`
	RealizedByTicker map[string]float64  `json:"realized_by_ticker"`
	CashBalance      float64             `json:"cash_balance"`
}

// HandleEvaluate handles POST /api/ledger/evaluate
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	txs, err := toTransactions(req.Transactions)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	movements, err := toMovements(req.CashMovements)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	result, err := ledger.ComputePositions(txs)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := EvaluateResponse{
		Positions:        make([]EvaluatedPosition, 0, len(result.Positions)),
		RealizedPL:       result.RealizedPL.InexactFloat64(),
		RealizedByTicker: make(map[string]float64, len(result.RealizedByTicker)),
		CashBalance:      ledger.ComputeCashBalance(movements).InexactFloat64(),
	}
	for ticker, pl := range result.RealizedByTicker {
		resp.RealizedByTicker[ticker] = pl.InexactFloat64()
	}

	for _, ticker := range result.SortedTickers() {
		pos := result.Positions[ticker]
		row := EvaluatedPosition{
			Ticker:   ticker,
			Quantity: pos.Quantity.InexactFloat64(),
			AvgCost:  pos.AverageCost().InexactFloat64(),
		}
		if price, ok := req.Prices[ticker]; ok {
			pl := ledger.ComputeUnrealizedPL(pos, price)
			p, amount, pct := price.InexactFloat64(), pl.Amount.InexactFloat64(), pl.Percent.InexactFloat64()
			row.CurrentPrice, row.UnrealizedPL, row.UnrealizedPLPercent = &p, &amount, &pct
		}
		resp.Positions = append(resp.Positions, row)
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func toTransactions(in []TransactionInput) ([]ledger.Transaction, error) {
	out := make([]ledger.Transaction, 0, len(in))
	for i, t := range in {
		txType, err := domain.ParseTransactionType(t.Type)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		date, err := parseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
		out = append(out, ledger.Transaction{
			ID:       int64(i),
			Ticker:   utils.NormalizeTicker(t.Ticker),
			Type:     txType,
			Quantity: t.Quantity,
			Price:    t.Price,
			Date:     date,
		})
	}
	return out, nil
}

func toMovements(in []MovementInput) ([]ledger.CashMovement, error) {
	out := make([]ledger.CashMovement, 0, len(in))
	for i, m := range in {
		flow, err := domain.ParseFlowType(m.FlowType)
		if err != nil {
			return nil, fmt.Errorf("cash_movements[%d]: %w", i, err)
		}
		date, err := parseDate(m.Date)
		if err != nil {
			return nil, fmt.Errorf("cash_movements[%d]: %w", i, err)
		}
		mv := ledger.CashMovement{
			FlowType:    flow,
			Amount:      flow.SignedAmount(m.Amount),
			Date:        date,
			Description: m.Description,
		}
		if err := ledger.ValidateMovement(mv); err != nil {
			return nil, fmt.Errorf("cash_movements[%d]: %w", i, err)
		}
		out = append(out, mv)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", err.Error())
	}
	return t, nil
}
