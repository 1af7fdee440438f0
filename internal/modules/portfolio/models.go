package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// User owns portfolios
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Portfolio groups the transactions and cash of one owner.
// PublicID is a stable opaque identifier safe to hand to clients.
type Portfolio struct {
	ID        int64
	PublicID  string
	OwnerID   int64
	Name      string
	CreatedAt time.Time
}

// Slot is an open position as shown in the portfolio list
type Slot struct {
	Ticker      string
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
}

// ProfitLossRow is an open position valued at the current price.
// The price fields are nil when the price could not be fetched.
type ProfitLossRow struct {
	Ticker              string
	Quantity            decimal.Decimal
	AverageCost         decimal.Decimal
	CostBasis           decimal.Decimal
	CurrentPrice        *decimal.Decimal
	MarketValue         *decimal.Decimal
	UnrealizedPL        *decimal.Decimal
	UnrealizedPLPercent *decimal.Decimal
	RealizedPL          decimal.Decimal
}

// ProfitLoss is the P&L table of a portfolio
type ProfitLoss struct {
	Rows              []ProfitLossRow
	TotalRealizedPL   decimal.Decimal
	TotalUnrealizedPL decimal.Decimal
}

// Summary aggregates a portfolio's holdings and cash.
// Holdings without a price count at cost in TotalValue.
type Summary struct {
	Holdings          []ProfitLossRow
	CashBalance       decimal.Decimal
	TotalCost         decimal.Decimal
	TotalValue        decimal.Decimal
	TotalUnrealizedPL decimal.Decimal
	TotalRealizedPL   decimal.Decimal
	PricedCount       int
	UnpricedCount     int
}
