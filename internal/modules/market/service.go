package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Gateway is the market data provider. *databursatil.Client implements it.
type Gateway interface {
	Issuers(ctx context.Context) ([]databursatil.Issuer, error)
	Quotes(ctx context.Context, tickers []string) ([]databursatil.Quote, error)
	Intraday(ctx context.Context, tickers []string, from, to time.Time) ([]databursatil.IntradayPoint, error)
	Top(ctx context.Context, date time.Time) (databursatil.TopMovers, error)
	Indices(ctx context.Context) (map[string]databursatil.IndexQuote, error)
	Forex(ctx context.Context) (databursatil.Forex, error)
	Rates(ctx context.Context) (map[string]databursatil.Rate, error)
	Financials(ctx context.Context, ticker, period string, kind databursatil.StatementKind) (map[string]decimal.Decimal, error)
}

var (
	_ Gateway              = (*databursatil.Client)(nil)
	_ domain.PriceProvider = (*Service)(nil)
	_ domain.IssuerCatalog = (*Service)(nil)
)

// DefaultPriceTimeout bounds a single price lookup
const DefaultPriceTimeout = 5 * time.Second

// IntradayWindow is how far back indicators look
const IntradayWindow = 30 * 24 * time.Hour

// Service serves market data: catalog, quotes, movers and statements
type Service struct {
	issuers      *IssuerRepository
	prices       *PriceRepository
	statements   *StatementRepository
	gateway      Gateway
	priceTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a new market service
func NewService(
	issuers *IssuerRepository,
	prices *PriceRepository,
	statements *StatementRepository,
	gateway Gateway,
	priceTimeout time.Duration,
	log zerolog.Logger,
) *Service {
	if priceTimeout <= 0 {
		priceTimeout = DefaultPriceTimeout
	}
	return &Service{
		issuers:      issuers,
		prices:       prices,
		statements:   statements,
		gateway:      gateway,
		priceTimeout: priceTimeout,
		now:          time.Now,
		log:          log.With().Str("service", "market").Logger(),
	}
}

// SyncIssuers refreshes the catalog from the provider and removes ISIN duplicates
func (s *Service) SyncIssuers(ctx context.Context) (SyncResult, error) {
	defer utils.OperationTimer("issuer_sync", s.log)()

	remote, err := s.gateway.Issuers(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	issuers := make([]Issuer, 0, len(remote))
	for _, r := range remote {
		issuers = append(issuers, Issuer{
			Ticker:            r.Ticker,
			Series:            r.Series,
			Name:              r.Name,
			ISIN:              r.ISIN,
			Exchange:          r.Exchange,
			SecurityType:      r.SecurityType,
			SecurityTypeID:    r.SecurityTypeID,
			Status:            r.Status,
			SharesOutstanding: r.SharesOutstanding,
		})
	}

	upserted, err := s.issuers.UpsertMany(ctx, issuers)
	if err != nil {
		return SyncResult{}, err
	}
	removed, err := s.issuers.DedupeByISIN(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Fetched: len(remote), Upserted: upserted, DuplicatesRemoved: removed}
	s.log.Info().
		Int("fetched", result.Fetched).
		Int("upserted", result.Upserted).
		Int("duplicates_removed", result.DuplicatesRemoved).
		Msg("Issuer catalog synced")
	return result, nil
}

// DedupeIssuers removes issuers sharing an ISIN
func (s *Service) DedupeIssuers(ctx context.Context) (int, error) {
	return s.issuers.DedupeByISIN(ctx)
}

// SearchIssuers finds active issuers by name or ticker
func (s *Service) SearchIssuers(ctx context.Context, q string) ([]Issuer, error) {
	return s.issuers.Search(ctx, q, SearchLimit)
}

// IsKnownTicker reports whether ticker is in the catalog. An empty catalog knows every ticker.
func (s *Service) IsKnownTicker(ctx context.Context, ticker string) (bool, error) {
	n, err := s.issuers.Count(ctx)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return true, nil
	}
	return s.issuers.Exists(ctx, ticker)
}

// Quote returns the latest BMV quote of ticker
func (s *Service) Quote(ctx context.Context, ticker string) (databursatil.Quote, error) {
	ticker = utils.NormalizeTicker(ticker)
	if ticker == "" {
		return databursatil.Quote{}, domain.NewValidationError("ticker", "is required")
	}

	quotes, err := s.gateway.Quotes(ctx, []string{ticker})
	if err != nil {
		return databursatil.Quote{}, err
	}
	var fallback *databursatil.Quote
	for i := range quotes {
		q := quotes[i]
		if !strings.EqualFold(q.Ticker, ticker) {
			continue
		}
		if strings.EqualFold(q.Exchange, "BMV") {
			return q, nil
		}
		if fallback == nil {
			fallback = &q
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return databursatil.Quote{}, fmt.Errorf("quote for %s: %w", ticker, domain.ErrNotFound)
}

// CurrentPrice returns the last traded price of ticker. The lookup is bounded
// by the price timeout; any failure reports ErrUpstreamUnavailable.
func (s *Service) CurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	defer cancel()

	q, err := s.Quote(ctx, ticker)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, domain.UpstreamErr("price for "+ticker, err)
	}
	if q.Last == nil {
		return decimal.Zero, fmt.Errorf("price for %s: no last price: %w", ticker, domain.ErrUpstreamUnavailable)
	}
	return *q.Last, nil
}

// SyncIntraday fetches hourly prices of the last days for tickers and stores them
func (s *Service) SyncIntraday(ctx context.Context, tickers []string, days int) (int, error) {
	normalized := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = utils.NormalizeTicker(t); t != "" {
			normalized = append(normalized, t)
		}
	}
	if len(normalized) == 0 {
		return 0, domain.NewValidationError("tickers", "at least one ticker is required")
	}
	if days <= 0 {
		days = 1
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -days)
	points, err := s.gateway.Intraday(ctx, normalized, from, to)
	if err != nil {
		return 0, err
	}

	prices := make([]IntradayPrice, 0, len(points))
	for _, p := range points {
		prices = append(prices, IntradayPrice{Ticker: p.Ticker, Time: p.Time, Price: p.Price})
	}
	return s.prices.UpsertMany(ctx, prices)
}

// Top returns the movers of the current session
func (s *Service) Top(ctx context.Context) (databursatil.TopMovers, error) {
	return s.gateway.Top(ctx, utils.MarketSessionDate(s.now()))
}

// Indices returns the index quotes
func (s *Service) Indices(ctx context.Context) (map[string]databursatil.IndexQuote, error) {
	return s.gateway.Indices(ctx)
}

// Forex returns the currency quotes
func (s *Service) Forex(ctx context.Context) (databursatil.Forex, error) {
	return s.gateway.Forex(ctx)
}

// Rates returns the reference interest rates
func (s *Service) Rates(ctx context.Context) (map[string]databursatil.Rate, error) {
	return s.gateway.Rates(ctx)
}

// Tape builds the ticker tape: IPC, S&P 500, USD/MXN, EUR/MXN, then the top 5
// gainers and losers. Sources that fail are left out; the tape fails only when
// every source fails.
func (s *Service) Tape(ctx context.Context) ([]TapeItem, error) {
	var (
		items  []TapeItem
		failed int
	)

	indices, err := s.gateway.Indices(ctx)
	if err != nil {
		failed++
		s.log.Warn().Err(err).Msg("Tape: indices unavailable")
	} else {
		for _, ix := range []struct{ key, label string }{{"IPC", "S&P/BMV IPC"}, {"SP500", "S&P 500"}} {
			if q, ok := indices[ix.key]; ok {
				items = append(items, TapeItem{Symbol: ix.key, Label: ix.label, Last: q.Last, ChangePercent: q.ChangePercent})
			}
		}
	}

	fx, err := s.gateway.Forex(ctx)
	if err != nil {
		failed++
		s.log.Warn().Err(err).Msg("Tape: forex unavailable")
	} else {
		for _, pair := range []struct{ key, label string }{{"USDMXN", "USD/MXN"}, {"EURMXN", "EUR/MXN"}} {
			if q, ok := fx.Pairs[pair.key]; ok {
				items = append(items, TapeItem{Symbol: pair.key, Label: pair.label, Last: q.Last, ChangePercent: q.ChangePercent})
			}
		}
	}

	top, err := s.Top(ctx)
	if err != nil {
		failed++
		s.log.Warn().Err(err).Msg("Tape: movers unavailable")
	} else {
		for _, list := range [][]databursatil.TopChange{top.Gainers, top.Losers} {
			for i, m := range list {
				if i == 5 {
					break
				}
				items = append(items, TapeItem{Symbol: m.Ticker, Label: m.Ticker, Last: m.Last, ChangePercent: m.ChangePercent})
			}
		}
	}

	if failed == 3 {
		return nil, fmt.Errorf("ticker tape: %w", domain.ErrUpstreamUnavailable)
	}
	return items, nil
}

// Statement returns a financial statement, reading through the local store.
// Known concepts missing from the provider response are stored as zero.
func (s *Service) Statement(ctx context.Context, ticker, period string, kind databursatil.StatementKind) (Statement, error) {
	ticker = utils.NormalizeTicker(ticker)
	if ticker == "" {
		return Statement{}, domain.NewValidationError("ticker", "is required")
	}
	if !kind.Valid() {
		return Statement{}, domain.NewValidationError("kind", fmt.Sprintf("must be cash_flow, position or income, got %q", kind))
	}
	period, err := databursatil.NormalizePeriod(period)
	if err != nil {
		return Statement{}, err
	}

	stored, found, err := s.statements.Get(ctx, ticker, period, kind)
	if err != nil {
		return Statement{}, err
	}
	if found {
		return stored, nil
	}

	raw, err := s.gateway.Financials(ctx, ticker, period, kind)
	if err != nil {
		return Statement{}, err
	}

	columns := StatementColumns(kind)
	concepts := make(map[string]decimal.Decimal, len(columns))
	for _, c := range columns {
		if v, ok := raw[c]; ok {
			concepts[c] = v
		} else {
			concepts[c] = decimal.Zero
		}
	}

	st := Statement{
		Ticker:    ticker,
		Period:    period,
		Kind:      kind,
		Concepts:  concepts,
		FetchedAt: s.now().UTC().Truncate(time.Second),
	}
	if err := s.statements.Save(ctx, st); err != nil {
		return Statement{}, err
	}
	return st, nil
}

// AssetDetails combines the catalog entry, the latest quote and indicators over
// stored intraday prices. Missing parts are left empty.
func (s *Service) AssetDetails(ctx context.Context, ticker string) (AssetDetails, error) {
	ticker = utils.NormalizeTicker(ticker)
	if ticker == "" {
		return AssetDetails{}, domain.NewValidationError("ticker", "is required")
	}
	details := AssetDetails{Ticker: ticker}

	issuer, err := s.issuers.GetBySymbol(ctx, ticker)
	switch {
	case err == nil:
		details.Issuer = &issuer
	case errors.Is(err, domain.ErrNotFound):
	default:
		return AssetDetails{}, err
	}

	if q, err := s.Quote(ctx, ticker); err == nil {
		details.Quote = &q
	} else {
		s.log.Debug().Err(err).Str("ticker", ticker).Msg("Quote unavailable for asset details")
	}

	prices, err := s.prices.ListSince(ctx, ticker, s.now().Add(-IntradayWindow))
	if err != nil {
		return AssetDetails{}, err
	}
	details.Indicators = ComputeIndicators(prices)

	if details.Issuer == nil && details.Quote == nil && len(prices) == 0 {
		return AssetDetails{}, fmt.Errorf("asset %s: %w", ticker, domain.ErrNotFound)
	}
	return details, nil
}
