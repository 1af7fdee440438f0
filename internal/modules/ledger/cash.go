package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/shopspring/decimal"
)

// ValidateMovement checks the flow type and that the amount carries the sign
// its flow type requires.
func ValidateMovement(m CashMovement) error {
	if !m.FlowType.Valid() {
		return domain.NewValidationError("flow_type", fmt.Sprintf("unknown flow type %q", m.FlowType))
	}
	if m.FlowType.Outflow() && m.Amount.IsPositive() {
		return domain.NewValidationError("amount", fmt.Sprintf("%s must not be positive", m.FlowType))
	}
	if !m.FlowType.Outflow() && m.Amount.IsNegative() {
		return domain.NewValidationError("amount", fmt.Sprintf("%s must not be negative", m.FlowType))
	}
	if m.Date.IsZero() {
		return domain.NewValidationError("date", "is required")
	}
	return nil
}

// ComputeCashBalance sums the signed amounts. Order does not matter.
func ComputeCashBalance(movements []CashMovement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		balance = balance.Add(m.Amount)
	}
	return balance
}

// SettleTradeAgainstCash builds the cash movement that pays for (BUY) or is
// received from (SELL) a trade.
func SettleTradeAgainstCash(tx Transaction) (CashMovement, error) {
	amount := tx.Amount()

	var flow domain.FlowType
	switch tx.Type {
	case domain.TransactionTypeBuy:
		flow = domain.FlowTypeBuyCost
		amount = amount.Neg()
	case domain.TransactionTypeSell:
		flow = domain.FlowTypeSellProceeds
	default:
		return CashMovement{}, domain.NewValidationError("transaction_type", fmt.Sprintf("must be BUY or SELL, got %q", tx.Type))
	}

	return CashMovement{
		PortfolioID: tx.PortfolioID,
		FlowType:    flow,
		Amount:      amount,
		Date:        tx.Date,
		Description: fmt.Sprintf("%s %s", tx.Type, tx.Ticker),
	}, nil
}

// CheckSufficientFunds fails with an InsufficientFundsError when cost exceeds balance.
func CheckSufficientFunds(balance, cost decimal.Decimal) error {
	if balance.LessThan(cost) {
		return &domain.InsufficientFundsError{Required: cost, Available: balance}
	}
	return nil
}

// CashFlowHistory orders movements chronologically (stable on equal dates)
// and attaches the running balance after each one.
func CashFlowHistory(movements []CashMovement) []CashFlowEntry {
	ordered := make([]CashMovement, len(movements))
	copy(ordered, movements)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	entries := make([]CashFlowEntry, 0, len(ordered))
	running := decimal.Zero
	for _, m := range ordered {
		running = running.Add(m.Amount)
		entries = append(entries, CashFlowEntry{CashMovement: m, RunningBalance: running})
	}
	return entries
}

// DividendMovement builds the cash movement that books a dividend payment.
func DividendMovement(portfolioID int64, ticker string, amount decimal.Decimal, date time.Time) CashMovement {
	return CashMovement{
		PortfolioID: portfolioID,
		FlowType:    domain.FlowTypeDividend,
		Amount:      amount.Abs(),
		Date:        date,
		Description: "Dividendo de " + ticker,
	}
}
