package trading

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

// DeleteReminder is returned with every deleted transaction.
const DeleteReminder = "Transaction deleted. Cash movements booked with it were not changed; adjust the cash flow manually if needed."

// AddRequest describes a transaction to record
type AddRequest struct {
	PortfolioID int64
	Ticker      string
	Type        domain.TransactionType
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Date        time.Time
	// UseCash settles the trade against the portfolio's cash: a BUY is
	// rejected when the balance does not cover it.
	UseCash bool
}

// AddResult is the outcome of a recorded transaction
type AddResult struct {
	Transaction  ledger.Transaction
	CashMovement *ledger.CashMovement
}

// Service records and removes asset transactions
type Service struct {
	db     *sql.DB
	trades *TradeRepository
	cash   *cash_flows.CashRepository
	safety *TradeSafetyService
	log    zerolog.Logger
}

// NewService creates a new trading service.
// db must be the connection both repositories were built on.
func NewService(
	db *sql.DB,
	trades *TradeRepository,
	cash *cash_flows.CashRepository,
	safety *TradeSafetyService,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:     db,
		trades: trades,
		cash:   cash,
		safety: safety,
		log:    log.With().Str("service", "trading").Logger(),
	}
}

// Add records a transaction. Reading the balance, the funds and position
// checks, and both inserts run in one database transaction, so a rejected
// trade leaves no rows behind.
func (s *Service) Add(ctx context.Context, req AddRequest) (AddResult, error) {
	tx := ledger.Transaction{
		PortfolioID: req.PortfolioID,
		Ticker:      utils.NormalizeTicker(req.Ticker),
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Date:        req.Date,
	}

	if err := s.safety.ValidateTrade(ctx, tx); err != nil {
		return AddResult{}, err
	}

	var result AddResult
	err := database.WithTransaction(ctx, s.db, func(sqlTx *sql.Tx) error {
		trades := s.trades.WithTx(sqlTx)
		cash := s.cash.WithTx(sqlTx)

		history, err := trades.ListByTicker(ctx, tx.PortfolioID, tx.Ticker)
		if err != nil {
			return err
		}
		if err := s.safety.CheckPosition(history, tx); err != nil {
			return err
		}

		var settlement *ledger.CashMovement
		if req.UseCash {
			m, err := ledger.SettleTradeAgainstCash(tx)
			if err != nil {
				return err
			}
			if tx.Type == domain.TransactionTypeBuy {
				balance, err := cash.Balance(ctx, tx.PortfolioID)
				if err != nil {
					return err
				}
				if err := ledger.CheckSufficientFunds(balance, tx.Amount()); err != nil {
					return err
				}
			}
			settlement = &m
		}

		id, err := trades.Create(ctx, tx)
		if err != nil {
			return err
		}
		tx.ID = id

		if settlement != nil {
			cashID, err := cash.Create(ctx, *settlement)
			if err != nil {
				return err
			}
			settlement.ID = cashID
		}

		result = AddResult{Transaction: tx, CashMovement: settlement}
		return nil
	})
	if err != nil {
		s.log.Debug().Err(err).
			Int64("portfolio_id", tx.PortfolioID).
			Str("ticker", tx.Ticker).
			Msg("Transaction rejected")
		return AddResult{}, err
	}

	s.log.Info().
		Int64("portfolio_id", tx.PortfolioID).
		Str("ticker", tx.Ticker).
		Str("type", string(tx.Type)).
		Bool("use_cash", req.UseCash).
		Msg("Transaction recorded")

	return result, nil
}

// List returns the portfolio's transactions in ledger order
func (s *Service) List(ctx context.Context, portfolioID int64) ([]ledger.Transaction, error) {
	exists, err := s.safety.portfolios.PortfolioExists(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("portfolio %d: %w", portfolioID, domain.ErrNotFound)
	}
	return s.trades.ListByPortfolio(ctx, portfolioID)
}

// Delete removes a transaction without reversing any cash movement.
// The returned message tells the caller to reconcile cash by hand.
func (s *Service) Delete(ctx context.Context, id int64) (string, error) {
	if err := s.trades.Delete(ctx, id); err != nil {
		return "", err
	}
	return DeleteReminder, nil
}
