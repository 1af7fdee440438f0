// Package databursatil provides a client for the DataBursatil market data REST API.
package databursatil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the production API root
	DefaultBaseURL = "https://api.databursatil.com/v2"

	userAgent        = "Mozilla/5.0 (X11; Linux x86_64)"
	intradayLayout   = "2006-01-02 15:04:05"
	maxResponseBytes = 32 << 20
)

// IndexTickers are the indices requested by Indices
var IndexTickers = []string{"IPC", "FTSEBIVA", "SP500", "DJIA"}

// ForexPairs are the currency pairs requested by Forex
var ForexPairs = []string{"USDMXN", "EURMXN"}

// Client for api.databursatil.com
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new DataBursatil client. Every request is bounded by timeout.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "databursatil").Logger(),
	}
}

// Issuers fetches the issuer catalog, one entry per ticker and series.
// Entries are sorted by ticker, then series.
func (c *Client) Issuers(ctx context.Context) ([]Issuer, error) {
	var raw map[string]map[string]json.RawMessage
	if err := c.get(ctx, "emisoras", nil, &raw); err != nil {
		return nil, err
	}

	issuers := make([]Issuer, 0, len(raw))
	for ticker, series := range raw {
		for serie, body := range series {
			var issuer Issuer
			if err := json.Unmarshal(body, &issuer); err != nil {
				c.log.Warn().Err(err).Str("ticker", ticker).Str("series", serie).Msg("Skipping malformed issuer")
				continue
			}
			issuer.Ticker = ticker
			issuer.Series = serie
			issuers = append(issuers, issuer)
		}
	}

	sort.Slice(issuers, func(i, j int) bool {
		if issuers[i].Ticker != issuers[j].Ticker {
			return issuers[i].Ticker < issuers[j].Ticker
		}
		return issuers[i].Series < issuers[j].Series
	})
	return issuers, nil
}

// Quotes fetches the latest quote of each ticker on the BMV
func (c *Client) Quotes(ctx context.Context, tickers []string) ([]Quote, error) {
	if len(tickers) == 0 {
		return nil, domain.NewValidationError("tickers", "at least one ticker is required")
	}

	params := url.Values{}
	params.Set("emisora_serie", strings.Join(tickers, ","))
	params.Set("concepto", "p,v,u")
	params.Set("bolsa", "bmv")

	var raw map[string]map[string]Quote
	if err := c.get(ctx, "cotizaciones", params, &raw); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(raw))
	for ticker, exchanges := range raw {
		for exchange, q := range exchanges {
			q.Ticker = ticker
			q.Exchange = exchange
			quotes = append(quotes, q)
		}
	}
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].Ticker != quotes[j].Ticker {
			return quotes[i].Ticker < quotes[j].Ticker
		}
		return quotes[i].Exchange < quotes[j].Exchange
	})
	return quotes, nil
}

// Intraday fetches hourly prices between from and to (inclusive dates)
func (c *Client) Intraday(ctx context.Context, tickers []string, from, to time.Time) ([]IntradayPoint, error) {
	if len(tickers) == 0 {
		return nil, domain.NewValidationError("tickers", "at least one ticker is required")
	}

	params := url.Values{}
	params.Set("emisora_serie", strings.Join(tickers, ","))
	params.Set("bolsa", "BMV")
	params.Set("intervalo", "1h")
	params.Set("inicio", from.Format("2006-01-02"))
	params.Set("final", to.Format("2006-01-02"))

	var raw map[string]map[string]json.Number
	if err := c.get(ctx, "intradia", params, &raw); err != nil {
		return nil, err
	}

	points := make([]IntradayPoint, 0)
	for ticker, samples := range raw {
		for stamp, value := range samples {
			ts, err := time.Parse(intradayLayout, stamp)
			if err != nil {
				c.log.Warn().Err(err).Str("ticker", ticker).Str("timestamp", stamp).Msg("Skipping intraday sample")
				continue
			}
			price, err := decimal.NewFromString(value.String())
			if err != nil {
				c.log.Warn().Err(err).Str("ticker", ticker).Msg("Skipping intraday sample")
				continue
			}
			points = append(points, IntradayPoint{Ticker: ticker, Time: ts, Price: price})
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Ticker != points[j].Ticker {
			return points[i].Ticker < points[j].Ticker
		}
		return points[i].Time.Before(points[j].Time)
	})
	return points, nil
}

// Top fetches the top 5 gainers, losers, amount, volume and trades of a session date
func (c *Client) Top(ctx context.Context, date time.Time) (TopMovers, error) {
	day := date.Format("2006-01-02")
	params := url.Values{}
	params.Set("variables", "suben,bajan,importe,volumen,operaciones")
	params.Set("bolsa", "BMV")
	params.Set("cantidad", "5")
	params.Set("mercado", "local")
	params.Set("inicio", day)
	params.Set("final", day)

	var top TopMovers
	if err := c.get(ctx, "top", params, &top); err != nil {
		return TopMovers{}, err
	}
	return top, nil
}

// Indices fetches the quotes of IndexTickers keyed by index
func (c *Client) Indices(ctx context.Context) (map[string]IndexQuote, error) {
	params := url.Values{}
	params.Set("ticker", strings.Join(IndexTickers, ","))

	var indices map[string]IndexQuote
	if err := c.get(ctx, "indices", params, &indices); err != nil {
		return nil, err
	}
	return indices, nil
}

// Forex fetches the quotes of ForexPairs
func (c *Client) Forex(ctx context.Context) (Forex, error) {
	params := url.Values{}
	params.Set("ticker", strings.Join(ForexPairs, ","))

	var raw map[string]json.RawMessage
	if err := c.get(ctx, "divisas", params, &raw); err != nil {
		return Forex{}, err
	}

	fx := Forex{Pairs: make(map[string]FxQuote, len(raw))}
	for key, body := range raw {
		if key == "t" {
			_ = json.Unmarshal(body, &fx.Timestamp)
			continue
		}
		var q FxQuote
		if err := json.Unmarshal(body, &q); err != nil {
			c.log.Warn().Err(err).Str("pair", key).Msg("Skipping malformed forex quote")
			continue
		}
		fx.Pairs[key] = q
	}
	return fx, nil
}

// Rates fetches the reference interest rates (CETES, TIIE, target rate) keyed by name
func (c *Client) Rates(ctx context.Context) (map[string]Rate, error) {
	var rates map[string]Rate
	if err := c.get(ctx, "tasas", nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// Financials fetches one financial statement of a ticker for a quarter.
// Concepts are flattened from the response and lower-cased; non-numeric
// values are skipped.
func (c *Client) Financials(ctx context.Context, ticker, period string, kind StatementKind) (map[string]decimal.Decimal, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", fmt.Sprintf("unknown statement kind %q", kind))
	}
	providerPeriod, err := ProviderPeriod(period)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("emisora", ticker)
	params.Set("periodo", providerPeriod)
	params.Set("financieros", kind.providerParam())

	var raw map[string]interface{}
	if err := c.get(ctx, "financieros", params, &raw, useNumber); err != nil {
		return nil, err
	}

	concepts := make(map[string]decimal.Decimal)
	flattenNumbers(raw, concepts)
	return concepts, nil
}

var periodPattern = regexp.MustCompile(`^(\d{4})Q([1-4])$`)

// NormalizePeriod upper-cases a quarter like "2025q1" and checks its shape
func NormalizePeriod(period string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(period))
	if !periodPattern.MatchString(p) {
		return "", domain.NewValidationError("period", fmt.Sprintf("must look like 2025Q1, got %q", period))
	}
	return p, nil
}

// ProviderPeriod converts "2025Q1" to the provider's "1T_2025"
func ProviderPeriod(period string) (string, error) {
	p, err := NormalizePeriod(period)
	if err != nil {
		return "", err
	}
	m := periodPattern.FindStringSubmatch(p)
	return m[2] + "T_" + m[1], nil
}

type decodeOption func(*json.Decoder)

func useNumber(d *json.Decoder) { d.UseNumber() }

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}, opts ...decodeOption) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.UpstreamErr("failed to build "+endpoint+" request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.log.Debug().Str("endpoint", endpoint).Msg("Requesting")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.UpstreamErr(endpoint+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.UpstreamErr(endpoint, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	for _, opt := range opts {
		opt(dec)
	}
	if err := dec.Decode(out); err != nil {
		return domain.UpstreamErr("failed to parse "+endpoint+" response", err)
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Dur("duration", time.Since(start)).
		Msg("Request completed")
	return nil
}

func flattenNumbers(v interface{}, out map[string]decimal.Decimal) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	for key, value := range obj {
		switch val := value.(type) {
		case json.Number:
			if d, err := decimal.NewFromString(val.String()); err == nil {
				out[strings.ToLower(key)] = d
			}
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
				out[strings.ToLower(key)] = d
			}
		case map[string]interface{}:
			flattenNumbers(val, out)
		}
	}
}
