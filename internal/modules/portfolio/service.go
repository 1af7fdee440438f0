// Package portfolio manages users and portfolios and composes ledger results
// with current market prices into the views the GUI shows.
package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionLister reads a portfolio's transaction history in ledger order
type TransactionLister interface {
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]ledger.Transaction, error)
}

// MovementLister reads a portfolio's cash movements
type MovementLister interface {
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]ledger.CashMovement, error)
}

// PortfolioService orchestrates users, portfolios and the read-only views.
//
// Dependencies:
//   - UserRepository, PortfolioRepository: ledger.db access
//   - TransactionLister, MovementLister: history for the ledger engine
//   - domain.PriceProvider: current prices; a failed lookup leaves the price
//     fields of that row empty and never fails the view
type PortfolioService struct {
	users        *UserRepository
	portfolios   *PortfolioRepository
	transactions TransactionLister
	movements    MovementLister
	prices       domain.PriceProvider
	log          zerolog.Logger
}

// NewPortfolioService creates a new portfolio service. prices may be nil.
func NewPortfolioService(
	users *UserRepository,
	portfolios *PortfolioRepository,
	transactions TransactionLister,
	movements MovementLister,
	prices domain.PriceProvider,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		users:        users,
		portfolios:   portfolios,
		transactions: transactions,
		movements:    movements,
		prices:       prices,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// EnsureUser creates the user if missing
func (s *PortfolioService) EnsureUser(ctx context.Context, id int64, name string) error {
	return s.users.EnsureUser(ctx, id, name)
}

// CreateUser creates a new user
func (s *PortfolioService) CreateUser(ctx context.Context, name, email string) (User, error) {
	return s.users.Create(ctx, name, email)
}

// ListUsers returns all users
func (s *PortfolioService) ListUsers(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// CreatePortfolio creates a portfolio, or returns the owner's existing one with that name
func (s *PortfolioService) CreatePortfolio(ctx context.Context, ownerID int64, name string) (Portfolio, bool, error) {
	return s.portfolios.Create(ctx, ownerID, name)
}

// ListPortfolios returns the owner's portfolios
func (s *PortfolioService) ListPortfolios(ctx context.Context, ownerID int64) ([]Portfolio, error) {
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.portfolios.ListByOwner(ctx, ownerID)
}

// GetPortfolio returns one portfolio
func (s *PortfolioService) GetPortfolio(ctx context.Context, id int64) (Portfolio, error) {
	return s.portfolios.Get(ctx, id)
}

// DeletePortfolio removes a portfolio and its history
func (s *PortfolioService) DeletePortfolio(ctx context.Context, id int64) error {
	return s.portfolios.Delete(ctx, id)
}

// Slots returns the open positions ordered by ticker
func (s *PortfolioService) Slots(ctx context.Context, portfolioID int64) ([]Slot, error) {
	result, err := s.positions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(result.Positions))
	for _, ticker := range result.SortedTickers() {
		pos := result.Positions[ticker]
		slots = append(slots, Slot{Ticker: ticker, Quantity: pos.Quantity, AverageCost: pos.AverageCost()})
	}
	return slots, nil
}

// Holdings returns the tickers currently held
func (s *PortfolioService) Holdings(ctx context.Context, portfolioID int64) ([]string, error) {
	result, err := s.positions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return result.SortedTickers(), nil
}

// ProfitLoss values every open position at its current price
func (s *PortfolioService) ProfitLoss(ctx context.Context, portfolioID int64) (ProfitLoss, error) {
	result, err := s.positions(ctx, portfolioID)
	if err != nil {
		return ProfitLoss{}, err
	}

	rows := s.valueRows(ctx, result)
	pl := ProfitLoss{
		Rows:              rows,
		TotalRealizedPL:   result.RealizedPL,
		TotalUnrealizedPL: decimal.Zero,
	}
	for _, row := range rows {
		if row.UnrealizedPL != nil {
			pl.TotalUnrealizedPL = pl.TotalUnrealizedPL.Add(*row.UnrealizedPL)
		}
	}
	return pl, nil
}

// CashFlowHistory returns the cash movements in date order with the running balance
func (s *PortfolioService) CashFlowHistory(ctx context.Context, portfolioID int64) ([]ledger.CashFlowEntry, error) {
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	movements, err := s.movements.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return ledger.CashFlowHistory(movements), nil
}

// Summary aggregates holdings and cash. TotalValue is cash plus the market
// value of every holding, taking holdings without a price at cost.
func (s *PortfolioService) Summary(ctx context.Context, portfolioID int64) (Summary, error) {
	result, err := s.positions(ctx, portfolioID)
	if err != nil {
		return Summary{}, err
	}
	movements, err := s.movements.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Holdings:          s.valueRows(ctx, result),
		CashBalance:       ledger.ComputeCashBalance(movements),
		TotalCost:         decimal.Zero,
		TotalUnrealizedPL: decimal.Zero,
		TotalRealizedPL:   result.RealizedPL,
	}

	holdingsValue := decimal.Zero
	for _, row := range summary.Holdings {
		summary.TotalCost = summary.TotalCost.Add(row.CostBasis)
		if row.MarketValue == nil {
			summary.UnpricedCount++
			holdingsValue = holdingsValue.Add(row.CostBasis)
			continue
		}
		summary.PricedCount++
		holdingsValue = holdingsValue.Add(*row.MarketValue)
		summary.TotalUnrealizedPL = summary.TotalUnrealizedPL.Add(*row.UnrealizedPL)
	}
	summary.TotalValue = holdingsValue.Add(summary.CashBalance)

	return summary, nil
}

func (s *PortfolioService) positions(ctx context.Context, portfolioID int64) (ledger.Result, error) {
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return ledger.Result{}, err
	}
	txs, err := s.transactions.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return ledger.Result{}, err
	}
	return ledger.ComputePositions(txs)
}

func (s *PortfolioService) valueRows(ctx context.Context, result ledger.Result) []ProfitLossRow {
	tickers := result.SortedTickers()
	prices := s.fetchPrices(ctx, tickers)

	rows := make([]ProfitLossRow, 0, len(tickers))
	for _, ticker := range tickers {
		pos := result.Positions[ticker]
		row := ProfitLossRow{
			Ticker:      ticker,
			Quantity:    pos.Quantity,
			AverageCost: pos.AverageCost(),
			CostBasis:   pos.CostBasis,
			RealizedPL:  pos.RealizedPL,
		}
		if price, ok := prices[ticker]; ok {
			unrealized := ledger.ComputeUnrealizedPL(pos, price)
			value := pos.Quantity.Mul(price)
			row.CurrentPrice = &price
			row.MarketValue = &value
			row.UnrealizedPL = &unrealized.Amount
			row.UnrealizedPLPercent = &unrealized.Percent
		}
		rows = append(rows, row)
	}
	return rows
}

// fetchPrices looks up every ticker concurrently. Tickers whose lookup fails
// are missing from the result.
func (s *PortfolioService) fetchPrices(ctx context.Context, tickers []string) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(tickers))
	if s.prices == nil || len(tickers) == 0 {
		return prices
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			price, err := s.prices.CurrentPrice(ctx, ticker)
			if err != nil {
				s.log.Debug().Err(err).Str("ticker", ticker).Msg("Current price unavailable")
				return
			}
			mu.Lock()
			prices[ticker] = price
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	return prices
}

func (s *PortfolioService) requirePortfolio(ctx context.Context, portfolioID int64) error {
	exists, err := s.portfolios.PortfolioExists(ctx, portfolioID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("portfolio %d: %w", portfolioID, domain.ErrNotFound)
	}
	return nil
}
