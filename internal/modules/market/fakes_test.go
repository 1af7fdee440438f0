package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/shopspring/decimal"
)

// fakeGateway serves canned provider responses. A nil field reports the
// provider as unavailable.
type fakeGateway struct {
	mu sync.Mutex

	issuers    []databursatil.Issuer
	quotes     map[string]databursatil.Quote
	intraday   []databursatil.IntradayPoint
	top        *databursatil.TopMovers
	indices    map[string]databursatil.IndexQuote
	forex      *databursatil.Forex
	rates      map[string]databursatil.Rate
	financials map[string]decimal.Decimal
	delay      time.Duration

	topDates       []time.Time
	financialCalls int
}

func unavailable(op string) error {
	return fmt.Errorf("%s: %w", op, domain.ErrUpstreamUnavailable)
}

func (f *fakeGateway) Issuers(context.Context) ([]databursatil.Issuer, error) {
	if f.issuers == nil {
		return nil, unavailable("emisoras")
	}
	return f.issuers, nil
}

func (f *fakeGateway) Quotes(ctx context.Context, tickers []string) ([]databursatil.Quote, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("cotizaciones: %w", domain.UpstreamErr("timeout", ctx.Err()))
		}
	}
	if f.quotes == nil {
		return nil, unavailable("cotizaciones")
	}
	var out []databursatil.Quote
	for _, t := range tickers {
		if q, ok := f.quotes[t]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeGateway) Intraday(_ context.Context, _ []string, _, _ time.Time) ([]databursatil.IntradayPoint, error) {
	if f.intraday == nil {
		return nil, unavailable("intradia")
	}
	return f.intraday, nil
}

func (f *fakeGateway) Top(_ context.Context, date time.Time) (databursatil.TopMovers, error) {
	f.mu.Lock()
	f.topDates = append(f.topDates, date)
	f.mu.Unlock()
	if f.top == nil {
		return databursatil.TopMovers{}, unavailable("top")
	}
	return *f.top, nil
}

func (f *fakeGateway) Indices(context.Context) (map[string]databursatil.IndexQuote, error) {
	if f.indices == nil {
		return nil, unavailable("indices")
	}
	return f.indices, nil
}

func (f *fakeGateway) Forex(context.Context) (databursatil.Forex, error) {
	if f.forex == nil {
		return databursatil.Forex{}, unavailable("divisas")
	}
	return *f.forex, nil
}

func (f *fakeGateway) Rates(context.Context) (map[string]databursatil.Rate, error) {
	if f.rates == nil {
		return nil, unavailable("tasas")
	}
	return f.rates, nil
}

func (f *fakeGateway) Financials(_ context.Context, _, _ string, _ databursatil.StatementKind) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	f.financialCalls++
	f.mu.Unlock()
	if f.financials == nil {
		return nil, unavailable("financieros")
	}
	return f.financials, nil
}
