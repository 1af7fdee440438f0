package trading

import (
	"context"
	"fmt"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradeSafetyService runs the checks a transaction must pass before it is recorded
type TradeSafetyService struct {
	catalog    domain.IssuerCatalog
	portfolios domain.PortfolioChecker
	log        zerolog.Logger
}

// NewTradeSafetyService creates a new trade safety service.
// catalog may be nil, in which case tickers are not checked.
func NewTradeSafetyService(catalog domain.IssuerCatalog, portfolios domain.PortfolioChecker, log zerolog.Logger) *TradeSafetyService {
	return &TradeSafetyService{
		catalog:    catalog,
		portfolios: portfolios,
		log:        log.With().Str("service", "trade_safety").Logger(),
	}
}

// ValidateTrade checks the transaction fields, that the portfolio exists and
// that the ticker is listed.
func (s *TradeSafetyService) ValidateTrade(ctx context.Context, tx ledger.Transaction) error {
	if err := ledger.ValidateTransaction(tx); err != nil {
		return err
	}

	exists, err := s.portfolios.PortfolioExists(ctx, tx.PortfolioID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("portfolio %d: %w", tx.PortfolioID, domain.ErrNotFound)
	}

	if s.catalog == nil {
		return nil
	}
	known, err := s.catalog.IsKnownTicker(ctx, tx.Ticker)
	if err != nil {
		// The catalog lives in the market database; losing it must not block bookkeeping.
		s.log.Warn().Err(err).Str("ticker", tx.Ticker).Msg("Issuer catalog unavailable, skipping ticker check")
		return nil
	}
	if !known {
		return domain.NewValidationError("ticker", fmt.Sprintf("%s is not a listed issuer", tx.Ticker))
	}
	return nil
}

// CheckPosition rejects a SELL larger than the quantity held.
func (s *TradeSafetyService) CheckPosition(history []ledger.Transaction, tx ledger.Transaction) error {
	if tx.Type != domain.TransactionTypeSell {
		return nil
	}

	book, err := ledger.Replay(history)
	if err != nil {
		return err
	}

	held := decimal.Zero
	if pos, ok := book[tx.Ticker]; ok {
		held = pos.Quantity
	}
	if tx.Quantity.Sub(held).GreaterThan(ledger.Epsilon) {
		return &domain.InsufficientPositionError{Ticker: tx.Ticker, Requested: tx.Quantity, Held: held}
	}
	return nil
}
