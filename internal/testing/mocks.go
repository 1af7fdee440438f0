package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/shopspring/decimal"
)

// MockPriceProvider is a mock implementation of domain.PriceProvider for testing.
// Tickers without a configured price report ErrUpstreamUnavailable.
type MockPriceProvider struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	calls  []string
}

// NewMockPriceProvider creates a new mock price provider
func NewMockPriceProvider() *MockPriceProvider {
	return &MockPriceProvider{prices: make(map[string]decimal.Decimal)}
}

// SetPrice sets the price to return for ticker
func (m *MockPriceProvider) SetPrice(ticker string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[ticker] = price
}

// CurrentPrice returns the configured price
func (m *MockPriceProvider) CurrentPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ticker)
	price, ok := m.prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("price for %s: %w", ticker, domain.ErrUpstreamUnavailable)
	}
	return price, nil
}

// Calls returns the tickers requested so far
func (m *MockPriceProvider) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

// MockIssuerCatalog is a mock implementation of domain.IssuerCatalog for testing
type MockIssuerCatalog struct {
	mu      sync.RWMutex
	tickers map[string]bool
	err     error
}

// NewMockIssuerCatalog creates a catalog that knows the given tickers.
// With no tickers it behaves like an empty catalog and knows everything.
func NewMockIssuerCatalog(tickers ...string) *MockIssuerCatalog {
	m := &MockIssuerCatalog{tickers: make(map[string]bool)}
	for _, t := range tickers {
		m.tickers[t] = true
	}
	return m
}

// SetError sets the error to return
func (m *MockIssuerCatalog) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// IsKnownTicker reports whether ticker was configured
func (m *MockIssuerCatalog) IsKnownTicker(_ context.Context, ticker string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return false, m.err
	}
	if len(m.tickers) == 0 {
		return true, nil
	}
	return m.tickers[ticker], nil
}
