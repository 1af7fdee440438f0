package dividends

import (
	"time"

	"github.com/shopspring/decimal"
)

// DividendRecord is a dividend payment received by a portfolio.
// CashMovementID points at the DIVIDEND cash movement booked with it; it is
// nil when that movement was deleted afterwards.
type DividendRecord struct {
	ID             int64
	PortfolioID    int64
	Ticker         string
	Amount         decimal.Decimal
	PaymentDate    time.Time
	CashMovementID *int64
	CreatedAt      time.Time
}
