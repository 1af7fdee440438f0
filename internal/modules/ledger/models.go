// Package ledger folds a portfolio's transaction and cash history into
// positions, profit and loss, and cash balances.
//
// Everything in this package is a pure function of its inputs. Nothing is
// cached between calls and nothing touches the database.
package ledger

import (
	"time"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance below which a quantity or cost is treated as zero.
var Epsilon = decimal.New(1, -6)

// Transaction is a recorded BUY or SELL of a ticker.
type Transaction struct {
	ID          int64
	PortfolioID int64
	Ticker      string
	Type        domain.TransactionType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Date        time.Time
}

// Amount returns quantity × price.
func (t Transaction) Amount() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// CashMovement is a signed change to a portfolio's cash.
// Outflows (WITHDRAWAL, BUY_COST) carry negative amounts.
type CashMovement struct {
	ID          int64
	PortfolioID int64
	FlowType    domain.FlowType
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

// Position is the running state of one ticker.
type Position struct {
	Ticker     string
	Quantity   decimal.Decimal
	CostBasis  decimal.Decimal
	RealizedPL decimal.Decimal
}

// Result is the outcome of replaying a transaction history.
type Result struct {
	// Positions holds open positions only, keyed by ticker.
	Positions map[string]Position
	// RealizedPL is the total realized profit and loss over all tickers.
	RealizedPL decimal.Decimal
	// RealizedByTicker includes tickers whose positions are now closed.
	RealizedByTicker map[string]decimal.Decimal
}

// UnrealizedPL is the paper result of holding a position at a given price.
type UnrealizedPL struct {
	Amount  decimal.Decimal
	Percent decimal.Decimal
}

// CashFlowEntry is a cash movement with the balance right after it.
type CashFlowEntry struct {
	CashMovement
	RunningBalance decimal.Decimal
}
