package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateTransaction rejects malformed transactions before they reach the engine or the store.
func ValidateTransaction(tx Transaction) error {
	if strings.TrimSpace(tx.Ticker) == "" {
		return domain.NewValidationError("ticker", "is required")
	}
	if !tx.Type.Valid() {
		return domain.NewValidationError("transaction_type", fmt.Sprintf("must be BUY or SELL, got %q", tx.Type))
	}
	if !tx.Quantity.IsPositive() {
		return domain.NewValidationError("quantity", "must be greater than zero")
	}
	if tx.Price.IsNegative() {
		return domain.NewValidationError("price", "must not be negative")
	}
	if tx.Date.IsZero() {
		return domain.NewValidationError("date", "is required")
	}
	return nil
}

// AverageCost returns cost basis divided by quantity, or zero for an empty position.
func (p Position) AverageCost() decimal.Decimal {
	if p.Quantity.Abs().LessThanOrEqual(Epsilon) {
		return decimal.Zero
	}
	return p.CostBasis.Div(p.Quantity)
}

// IsClosed reports whether the quantity is within Epsilon of zero.
func (p Position) IsClosed() bool {
	return p.Quantity.Abs().LessThanOrEqual(Epsilon)
}

// Buy adds quantity at price to the position.
func (p *Position) Buy(quantity, price decimal.Decimal) {
	p.Quantity = p.Quantity.Add(quantity)
	p.CostBasis = p.CostBasis.Add(quantity.Mul(price))
}

// Sell removes quantity at price from the position and returns the realized P&L
// of this sale: proceeds minus average cost before the sale times quantity sold.
// Selling against an empty position uses an average cost of zero.
func (p *Position) Sell(quantity, price decimal.Decimal) decimal.Decimal {
	avg := p.AverageCost()
	released := avg.Mul(quantity)
	realized := quantity.Mul(price).Sub(released)

	p.Quantity = p.Quantity.Sub(quantity)
	p.CostBasis = p.CostBasis.Sub(released)
	p.RealizedPL = p.RealizedPL.Add(realized)

	if p.IsClosed() {
		p.Quantity = decimal.Zero
		p.CostBasis = decimal.Zero
	}
	return realized
}

// Apply books a single transaction against the position.
func (p *Position) Apply(tx Transaction) decimal.Decimal {
	if tx.Type == domain.TransactionTypeSell {
		return p.Sell(tx.Quantity, tx.Price)
	}
	p.Buy(tx.Quantity, tx.Price)
	return decimal.Zero
}

// SortTransactions orders transactions by date ascending. The sort is stable so
// equal dates keep their storage order, which the average cost depends on.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
}

// Replay validates and applies every transaction in order, returning the
// running state of every ticker seen, including closed ones.
func Replay(txs []Transaction) (map[string]*Position, error) {
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	SortTransactions(ordered)

	book := make(map[string]*Position)
	for _, tx := range ordered {
		if err := ValidateTransaction(tx); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		pos, ok := book[tx.Ticker]
		if !ok {
			pos = &Position{Ticker: tx.Ticker}
			book[tx.Ticker] = pos
		}
		pos.Apply(tx)
	}
	return book, nil
}

// ComputePositions folds a transaction history into open positions and realized P&L.
// Closed positions are dropped from Positions but their realized P&L is kept.
func ComputePositions(txs []Transaction) (Result, error) {
	book, err := Replay(txs)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Positions:        make(map[string]Position),
		RealizedPL:       decimal.Zero,
		RealizedByTicker: make(map[string]decimal.Decimal, len(book)),
	}
	for ticker, pos := range book {
		result.RealizedByTicker[ticker] = pos.RealizedPL
		result.RealizedPL = result.RealizedPL.Add(pos.RealizedPL)
		if !pos.IsClosed() {
			result.Positions[ticker] = *pos
		}
	}
	return result, nil
}

// SortedTickers returns the tickers of the open positions in alphabetical order.
func (r Result) SortedTickers() []string {
	tickers := make([]string, 0, len(r.Positions))
	for t := range r.Positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// ComputeUnrealizedPL values a position at currentPrice.
// The percentage is zero when the invested amount is within Epsilon of zero.
func ComputeUnrealizedPL(pos Position, currentPrice decimal.Decimal) UnrealizedPL {
	avg := pos.AverageCost()
	pl := currentPrice.Sub(avg).Mul(pos.Quantity)

	invested := avg.Mul(pos.Quantity)
	pct := decimal.Zero
	if invested.GreaterThan(Epsilon) {
		pct = pl.Div(invested).Mul(hundred)
	}
	return UnrealizedPL{Amount: pl, Percent: pct}
}
