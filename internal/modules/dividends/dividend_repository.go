// Package dividends provides repository and service implementations for dividend records.
// Dividends are stored in ledger.db next to the DIVIDEND cash movement that books them.
package dividends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// dividendColumns is the list of columns for the dividends table
// Column order must match scanDividend()
const dividendColumns = `id, portfolio_id, ticker, amount, payment_date, cash_movement_id, created_at`

// DividendRepository handles dividend database operations
type DividendRepository struct {
	db  database.DBTX
	log zerolog.Logger
}

// NewDividendRepository creates a new dividend repository
func NewDividendRepository(db database.DBTX, log zerolog.Logger) *DividendRepository {
	return &DividendRepository{
		db:  db,
		log: log.With().Str("repo", "dividend").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *DividendRepository) WithTx(tx *sql.Tx) *DividendRepository {
	return &DividendRepository{db: tx, log: r.log}
}

// Create inserts a dividend record.
//
// Parameters:
//   - dividend: record to insert; ID and CreatedAt are ignored
//
// Returns:
//   - int64: id of the new record
//   - error: validation error for a malformed record, store error otherwise
func (r *DividendRepository) Create(ctx context.Context, dividend DividendRecord) (int64, error) {
	ticker := utils.NormalizeTicker(dividend.Ticker)
	if ticker == "" {
		return 0, domain.NewValidationError("ticker", "is required")
	}
	if !dividend.Amount.IsPositive() {
		return 0, domain.NewValidationError("amount", "must be greater than zero")
	}
	if dividend.PaymentDate.IsZero() {
		return 0, domain.NewValidationError("payment_date", "is required")
	}

	var cashMovementID sql.NullInt64
	if dividend.CashMovementID != nil {
		cashMovementID = sql.NullInt64{Int64: *dividend.CashMovementID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dividends (portfolio_id, ticker, amount, payment_date, cash_movement_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		dividend.PortfolioID,
		ticker,
		dividend.Amount.String(),
		utils.DateToUnix(dividend.PaymentDate),
		cashMovementID,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, domain.StoreErr("failed to create dividend", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StoreErr("failed to get insert ID", err)
	}

	r.log.Info().
		Int64("id", id).
		Str("ticker", ticker).
		Str("amount", dividend.Amount.String()).
		Msg("Dividend record created")

	return id, nil
}

// GetByID retrieves a dividend record by ID
func (r *DividendRepository) GetByID(ctx context.Context, id int64) (DividendRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+dividendColumns+" FROM dividends WHERE id = ?", id)
	dividend, err := scanDividend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DividendRecord{}, fmt.Errorf("dividend %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return DividendRecord{}, domain.StoreErr("failed to get dividend by ID", err)
	}
	return dividend, nil
}

// GetByCashMovementID retrieves the dividend booked by a cash movement
func (r *DividendRepository) GetByCashMovementID(ctx context.Context, cashMovementID int64) (DividendRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+dividendColumns+" FROM dividends WHERE cash_movement_id = ?", cashMovementID)
	dividend, err := scanDividend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DividendRecord{}, fmt.Errorf("dividend for cash movement %d: %w", cashMovementID, domain.ErrNotFound)
	}
	if err != nil {
		return DividendRecord{}, domain.StoreErr("failed to get dividend by cash movement", err)
	}
	return dividend, nil
}

// ListByPortfolio returns a portfolio's dividends, newest payment first
func (r *DividendRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]DividendRecord, error) {
	return r.query(ctx,
		"SELECT "+dividendColumns+" FROM dividends WHERE portfolio_id = ? ORDER BY payment_date DESC, id DESC",
		portfolioID,
	)
}

// ListByTicker returns a portfolio's dividends for one ticker, newest payment first
func (r *DividendRepository) ListByTicker(ctx context.Context, portfolioID int64, ticker string) ([]DividendRecord, error) {
	return r.query(ctx,
		"SELECT "+dividendColumns+" FROM dividends WHERE portfolio_id = ? AND ticker = ? ORDER BY payment_date DESC, id DESC",
		portfolioID, utils.NormalizeTicker(ticker),
	)
}

// TotalsByTicker sums a portfolio's dividends per ticker.
// Amounts are TEXT decimals, so the sum is done here rather than in SQL.
func (r *DividendRepository) TotalsByTicker(ctx context.Context, portfolioID int64) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT ticker, amount FROM dividends WHERE portfolio_id = ?", portfolioID)
	if err != nil {
		return nil, domain.StoreErr("failed to get dividend totals", err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var ticker string
		var amount decimal.Decimal
		if err := rows.Scan(&ticker, &amount); err != nil {
			return nil, domain.StoreErr("failed to scan dividend total", err)
		}
		totals[ticker] = totals[ticker].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating dividends", err)
	}

	return totals, nil
}

func (r *DividendRepository) query(ctx context.Context, query string, args ...any) ([]DividendRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreErr("failed to query dividends", err)
	}
	defer rows.Close()

	dividends := make([]DividendRecord, 0)
	for rows.Next() {
		dividend, err := scanDividend(rows)
		if err != nil {
			return nil, domain.StoreErr("failed to scan dividend", err)
		}
		dividends = append(dividends, dividend)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating dividends", err)
	}

	return dividends, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDividend(s scanner) (DividendRecord, error) {
	var dividend DividendRecord
	var paymentDate, createdAt int64
	var cashMovementID sql.NullInt64

	err := s.Scan(
		&dividend.ID,
		&dividend.PortfolioID,
		&dividend.Ticker,
		&dividend.Amount,
		&paymentDate,
		&cashMovementID,
		&createdAt,
	)
	if err != nil {
		return DividendRecord{}, err
	}

	dividend.PaymentDate = utils.UnixToDate(paymentDate)
	dividend.CreatedAt = time.Unix(createdAt, 0).UTC()
	if cashMovementID.Valid {
		id := cashMovementID.Int64
		dividend.CashMovementID = &id
	}
	return dividend, nil
}
