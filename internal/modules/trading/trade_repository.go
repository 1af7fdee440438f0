// Package trading records BUY and SELL transactions of a portfolio.
package trading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
)

// TradeRepositoryInterface defines the interface for asset transaction persistence
type TradeRepositoryInterface interface {
	Create(ctx context.Context, tx ledger.Transaction) (int64, error)
	GetByID(ctx context.Context, id int64) (ledger.Transaction, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]ledger.Transaction, error)
	ListByTicker(ctx context.Context, portfolioID int64, ticker string) ([]ledger.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

// Compile-time check that TradeRepository implements TradeRepositoryInterface
var _ TradeRepositoryInterface = (*TradeRepository)(nil)

// assetTransactionColumns is the list of columns for the asset_transactions table
// Column order must match scanTransaction()
const assetTransactionColumns = `id, portfolio_id, ticker, transaction_type, quantity, price, transaction_date`

// TradeRepository handles asset transaction database operations in ledger.db
type TradeRepository struct {
	db  database.DBTX
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db database.DBTX, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{db: tx, log: r.log}
}

// Create inserts a new asset transaction and returns its id
func (r *TradeRepository) Create(ctx context.Context, tx ledger.Transaction) (int64, error) {
	// Validate before insertion to keep malformed rows out of the history
	if err := ledger.ValidateTransaction(tx); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO asset_transactions
		(portfolio_id, ticker, transaction_type, quantity, price, transaction_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.PortfolioID,
		utils.NormalizeTicker(tx.Ticker),
		string(tx.Type),
		tx.Quantity.String(),
		tx.Price.String(),
		utils.DateToUnix(tx.Date),
		time.Now().Unix(),
	)
	if err != nil {
		return 0, domain.StoreErr("failed to create asset transaction", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StoreErr("failed to read asset transaction id", err)
	}

	r.log.Info().
		Int64("id", id).
		Int64("portfolio_id", tx.PortfolioID).
		Str("ticker", tx.Ticker).
		Str("type", string(tx.Type)).
		Str("quantity", tx.Quantity.String()).
		Msg("Asset transaction created")

	return id, nil
}

// GetByID retrieves a transaction by id
func (r *TradeRepository) GetByID(ctx context.Context, id int64) (ledger.Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+assetTransactionColumns+" FROM asset_transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, fmt.Errorf("asset transaction %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return ledger.Transaction{}, domain.StoreErr("failed to get asset transaction", err)
	}
	return tx, nil
}

// ListByPortfolio returns the portfolio's history ordered by date ascending;
// rows sharing a date keep insertion order.
func (r *TradeRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]ledger.Transaction, error) {
	return r.query(ctx,
		"SELECT "+assetTransactionColumns+" FROM asset_transactions WHERE portfolio_id = ? ORDER BY transaction_date ASC, id ASC",
		portfolioID,
	)
}

// ListByTicker returns one ticker's history within a portfolio, in ledger order
func (r *TradeRepository) ListByTicker(ctx context.Context, portfolioID int64, ticker string) ([]ledger.Transaction, error) {
	return r.query(ctx,
		"SELECT "+assetTransactionColumns+" FROM asset_transactions WHERE portfolio_id = ? AND ticker = ? ORDER BY transaction_date ASC, id ASC",
		portfolioID, utils.NormalizeTicker(ticker),
	)
}

// Delete removes a transaction. Any cash movement booked with it is left untouched.
func (r *TradeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM asset_transactions WHERE id = ?", id)
	if err != nil {
		return domain.StoreErr("failed to delete asset transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreErr("failed to read rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("asset transaction %d: %w", id, domain.ErrNotFound)
	}

	r.log.Info().Int64("id", id).Msg("Asset transaction deleted")
	return nil
}

func (r *TradeRepository) query(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreErr("failed to query asset transactions", err)
	}
	defer rows.Close()

	txs := make([]ledger.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, domain.StoreErr("failed to scan asset transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating asset transactions", err)
	}

	return txs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (ledger.Transaction, error) {
	var tx ledger.Transaction
	var txType string
	var date int64
	if err := s.Scan(&tx.ID, &tx.PortfolioID, &tx.Ticker, &txType, &tx.Quantity, &tx.Price, &date); err != nil {
		return ledger.Transaction{}, err
	}
	tx.Type = domain.TransactionType(txType)
	tx.Date = utils.UnixToDate(date)
	return tx, nil
}
