// Package cash_flows provides persistence and services for portfolio cash movements.
// Cash is never stored as a running balance: the balance is always the sum of
// the signed movements of a portfolio.
package cash_flows

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
	"github.com/shopspring/decimal"
)

// cashMovementColumns is the list of columns for the cash_movements table
// Column order must match scanMovement()
const cashMovementColumns = `id, portfolio_id, flow_type, amount, movement_date, description`

// CashRepository handles cash movement persistence in ledger.db.
type CashRepository struct {
	db  database.DBTX
	log zerolog.Logger
}

// NewCashRepository creates a new cash repository.
//
// Parameters:
//   - db: ledger.db connection, or a transaction (see WithTx)
//   - log: Structured logger
//
// Returns:
//   - *CashRepository: Initialized repository instance
func NewCashRepository(db database.DBTX, log zerolog.Logger) *CashRepository {
	return &CashRepository{
		db:  db,
		log: log.With().Str("repo", "cash_movement").Logger(),
	}
}

// WithTx returns a copy of the repository that runs its statements inside tx.
func (r *CashRepository) WithTx(tx *sql.Tx) *CashRepository {
	return &CashRepository{db: tx, log: r.log}
}

// Create inserts a movement and returns its id.
// The amount must already carry the sign of its flow type.
//
// Parameters:
//   - m: Movement to store (ID is ignored)
//
// Returns:
//   - int64: ID of the new row
//   - error: Validation error, or a store error if the insert fails
func (r *CashRepository) Create(ctx context.Context, m ledger.CashMovement) (int64, error) {
	if err := ledger.ValidateMovement(m); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cash_movements (portfolio_id, flow_type, amount, movement_date, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.PortfolioID,
		string(m.FlowType),
		m.Amount.String(),
		utils.DateToUnix(m.Date),
		m.Description,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, domain.StoreErr("failed to insert cash movement", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StoreErr("failed to read cash movement id", err)
	}

	r.log.Debug().
		Int64("id", id).
		Int64("portfolio_id", m.PortfolioID).
		Str("flow_type", string(m.FlowType)).
		Str("amount", m.Amount.String()).
		Msg("Cash movement recorded")

	return id, nil
}

// ListByPortfolio returns every movement of a portfolio ordered by date, then insertion.
//
// Parameters:
//   - portfolioID: Portfolio to read
//
// Returns:
//   - []ledger.CashMovement: Movements (empty slice, never nil)
//   - error: Store error if the query fails
func (r *CashRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]ledger.CashMovement, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+cashMovementColumns+" FROM cash_movements WHERE portfolio_id = ? ORDER BY movement_date ASC, id ASC",
		portfolioID,
	)
	if err != nil {
		return nil, domain.StoreErr("failed to query cash movements", err)
	}
	defer rows.Close()

	movements := make([]ledger.CashMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, domain.StoreErr("failed to scan cash movement", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating cash movements", err)
	}

	return movements, nil
}

// Balance returns the plain sum of the portfolio's movements.
func (r *CashRepository) Balance(ctx context.Context, portfolioID int64) (decimal.Decimal, error) {
	movements, err := r.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.ComputeCashBalance(movements), nil
}

// GetByID returns a single movement.
//
// Returns:
//   - error: wraps domain.ErrNotFound when no row has this id
func (r *CashRepository) GetByID(ctx context.Context, id int64) (ledger.CashMovement, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+cashMovementColumns+" FROM cash_movements WHERE id = ?", id)
	m, err := scanMovement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.CashMovement{}, fmt.Errorf("cash movement %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return ledger.CashMovement{}, domain.StoreErr("failed to get cash movement", err)
	}
	return m, nil
}

// Delete removes a movement.
//
// Returns:
//   - error: wraps domain.ErrNotFound when no row has this id
func (r *CashRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cash_movements WHERE id = ?", id)
	if err != nil {
		return domain.StoreErr("failed to delete cash movement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreErr("failed to read rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("cash movement %d: %w", id, domain.ErrNotFound)
	}

	r.log.Info().Int64("id", id).Msg("Cash movement deleted")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMovement(s scanner) (ledger.CashMovement, error) {
	var m ledger.CashMovement
	var flow string
	var date int64
	if err := s.Scan(&m.ID, &m.PortfolioID, &flow, &m.Amount, &date, &m.Description); err != nil {
		return ledger.CashMovement{}, err
	}
	m.FlowType = domain.FlowType(flow)
	m.Date = utils.UnixToDate(date)
	return m, nil
}
