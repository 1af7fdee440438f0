package databursatil

import (
	"time"

	"github.com/shopspring/decimal"
)

// Issuer is one series of a listed issuer as returned by the emisoras endpoint
type Issuer struct {
	Ticker            string `json:"-"`
	Series            string `json:"-"`
	Name              string `json:"razon_social"`
	ISIN              string `json:"isin"`
	Exchange          string `json:"bolsa"`
	SecurityType      string `json:"tipo_valor"`
	SecurityTypeID    string `json:"tipo_valor_id"`
	Status            string `json:"estatus"`
	SharesOutstanding *int64 `json:"acciones_circulacion"`
}

// Quote is the latest quote of a ticker on one exchange.
// Fields missing from the response are nil.
type Quote struct {
	Ticker   string           `json:"-"`
	Exchange string           `json:"-"`
	Last     *decimal.Decimal `json:"u"`
	Average  *decimal.Decimal `json:"p"`
	Volume   *decimal.Decimal `json:"v"`
	Date     string           `json:"f"`
}

// IntradayPoint is one intraday price sample
type IntradayPoint struct {
	Ticker string
	Time   time.Time
	Price  decimal.Decimal
}

// TopChange is a gainer or loser
type TopChange struct {
	Ticker        string  `json:"e"`
	ChangePercent float64 `json:"c"`
	Date          string  `json:"f"`
	Last          float64 `json:"u"`
}

// TopAmount ranks by traded amount or volume
type TopAmount struct {
	Ticker string  `json:"e"`
	Amount float64 `json:"i"`
	Last   float64 `json:"u"`
}

// TopTrades ranks by number of trades
type TopTrades struct {
	Ticker string  `json:"e"`
	Trades int64   `json:"o"`
	Last   float64 `json:"u"`
}

// TopMovers is the top endpoint response. Missing categories are empty.
type TopMovers struct {
	Gainers []TopChange `json:"SUBEN"`
	Losers  []TopChange `json:"BAJAN"`
	Amount  []TopAmount `json:"IMPORTE"`
	Volume  []TopAmount `json:"VOLUMEN"`
	Trades  []TopTrades `json:"OPERACIONES"`
}

// IndexQuote is the quote of a market index
type IndexQuote struct {
	ChangePercent float64 `json:"c"`
	Change        float64 `json:"a"`
	Name          string  `json:"e"`
	Date          string  `json:"f"`
	Low           float64 `json:"m"`
	High          float64 `json:"x"`
	Open          float64 `json:"n"`
	Last          float64 `json:"u"`
	Volume        float64 `json:"v"`
	YTDPercent    float64 `json:"ytdp"`
}

// FxQuote is the quote of a currency pair
type FxQuote struct {
	ChangePercent float64 `json:"c"`
	Low           float64 `json:"m"`
	Last          float64 `json:"u"`
}

// Forex is the divisas endpoint response
type Forex struct {
	Timestamp string
	Pairs     map[string]FxQuote
}

// Rate is a reference interest rate
type Rate struct {
	Date  string  `json:"f"`
	Value float64 `json:"t"`
}

// StatementKind selects a financial statement
type StatementKind string

const (
	StatementCashFlow StatementKind = "cash_flow"
	StatementPosition StatementKind = "position"
	StatementIncome   StatementKind = "income"
)

// Valid reports whether k is a known statement kind
func (k StatementKind) Valid() bool {
	switch k {
	case StatementCashFlow, StatementPosition, StatementIncome:
		return true
	}
	return false
}

// providerParam is the financieros value the provider expects for k
func (k StatementKind) providerParam() string {
	switch k {
	case StatementCashFlow:
		return "flujos"
	case StatementPosition:
		return "posicion"
	default:
		return "resultado_trimestral"
	}
}
