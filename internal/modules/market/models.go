package market

import (
	"time"

	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/shopspring/decimal"
)

// Issuer is a listed security in the local catalog
type Issuer struct {
	Ticker            string
	Series            string
	Name              string
	ISIN              string
	Exchange          string
	SecurityType      string
	SecurityTypeID    string
	Status            string
	SharesOutstanding *int64
	UpdatedAt         time.Time
}

// Symbol is the exchange symbol: ticker followed by series, without the "*" placeholder
func (i Issuer) Symbol() string {
	if i.Series == "" || i.Series == "*" {
		return i.Ticker
	}
	return i.Ticker + i.Series
}

// IntradayPrice is a stored intraday sample
type IntradayPrice struct {
	Ticker string
	Time   time.Time
	Price  decimal.Decimal
}

// Statement is one financial statement of a ticker for a quarter
type Statement struct {
	Ticker    string
	Period    string
	Kind      databursatil.StatementKind
	Concepts  map[string]decimal.Decimal
	FetchedAt time.Time
	Cached    bool
}

// SyncResult summarizes an issuer catalog sync
type SyncResult struct {
	Fetched           int
	Upserted          int
	DuplicatesRemoved int
}

// TapeItem is one entry of the ticker tape
type TapeItem struct {
	Symbol        string
	Label         string
	Last          float64
	ChangePercent float64
}

// Indicators are computed over stored intraday prices. Nil when there are
// not enough samples.
type Indicators struct {
	Samples    int
	SMA20      *float64
	RSI14      *float64
	Volatility *float64
}

// AssetDetails combines the catalog entry, the latest quote and indicators
type AssetDetails struct {
	Ticker     string
	Issuer     *Issuer
	Quote      *databursatil.Quote
	Indicators Indicators
}
