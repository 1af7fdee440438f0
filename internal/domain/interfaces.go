package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceProvider returns the current market price of a ticker.
// Implementations must bound their own latency and return an error wrapping
// ErrUpstreamUnavailable when no price can be obtained.
type PriceProvider interface {
	CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// IssuerCatalog answers whether a ticker is a known listed issuer.
// It breaks the dependency between trading and market.
type IssuerCatalog interface {
	// IsKnownTicker reports whether ticker is known. An empty catalog knows
	// every ticker so that trading works before the first issuer sync.
	IsKnownTicker(ctx context.Context, ticker string) (bool, error)
}

// PortfolioChecker reports whether a portfolio exists.
// Implemented by the portfolio repository; used by modules that write into a portfolio.
type PortfolioChecker interface {
	PortfolioExists(ctx context.Context, id int64) (bool, error)
}
