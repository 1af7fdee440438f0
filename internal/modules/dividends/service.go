package dividends

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service registers dividends and the cash they bring in
type Service struct {
	db         *sql.DB
	repo       *DividendRepository
	cash       *cash_flows.CashRepository
	portfolios domain.PortfolioChecker
	log        zerolog.Logger
}

// NewService creates a new dividend service.
// db must be the connection both repositories were built on.
func NewService(
	db *sql.DB,
	repo *DividendRepository,
	cash *cash_flows.CashRepository,
	portfolios domain.PortfolioChecker,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		cash:       cash,
		portfolios: portfolios,
		log:        log.With().Str("service", "dividends").Logger(),
	}
}

// Register records a dividend payment and its DIVIDEND cash movement in one
// database transaction.
func (s *Service) Register(ctx context.Context, portfolioID int64, ticker string, amount decimal.Decimal, date time.Time) (DividendRecord, error) {
	record := DividendRecord{
		PortfolioID: portfolioID,
		Ticker:      utils.NormalizeTicker(ticker),
		Amount:      amount,
		PaymentDate: date,
	}
	if record.Ticker == "" {
		return DividendRecord{}, domain.NewValidationError("ticker", "is required")
	}
	if !amount.IsPositive() {
		return DividendRecord{}, domain.NewValidationError("amount", "must be greater than zero")
	}
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return DividendRecord{}, err
	}

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		movement := ledger.DividendMovement(portfolioID, record.Ticker, amount, date)
		movementID, err := s.cash.WithTx(tx).Create(ctx, movement)
		if err != nil {
			return err
		}
		record.CashMovementID = &movementID

		id, err := s.repo.WithTx(tx).Create(ctx, record)
		if err != nil {
			return err
		}
		record.ID = id
		return nil
	})
	if err != nil {
		return DividendRecord{}, err
	}

	s.log.Info().
		Int64("portfolio_id", portfolioID).
		Str("ticker", record.Ticker).
		Str("amount", amount.String()).
		Msg("Dividend registered")

	return record, nil
}

// List returns a portfolio's dividends, optionally restricted to one ticker
func (s *Service) List(ctx context.Context, portfolioID int64, ticker string) ([]DividendRecord, error) {
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	if ticker != "" {
		return s.repo.ListByTicker(ctx, portfolioID, ticker)
	}
	return s.repo.ListByPortfolio(ctx, portfolioID)
}

// Totals returns the dividends received per ticker
func (s *Service) Totals(ctx context.Context, portfolioID int64) (map[string]decimal.Decimal, error) {
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.repo.TotalsByTicker(ctx, portfolioID)
}

func (s *Service) requirePortfolio(ctx context.Context, portfolioID int64) error {
	exists, err := s.portfolios.PortfolioExists(ctx, portfolioID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("portfolio %d: %w", portfolioID, domain.ErrNotFound)
	}
	return nil
}
