package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// portfolioColumns is the list of columns for the portfolios table
// Column order must match scanPortfolio()
const portfolioColumns = `id, public_id, owner_id, name, created_at`

// PortfolioRepository handles portfolio database operations in ledger.db
type PortfolioRepository struct {
	db  database.DBTX
	log zerolog.Logger
}

// Compile-time check that PortfolioRepository implements domain.PortfolioChecker
var _ domain.PortfolioChecker = (*PortfolioRepository)(nil)

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db database.DBTX, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create returns the owner's portfolio with the given name, creating it when
// it does not exist yet. Calling it twice with the same owner and name yields
// the same portfolio.
//
// Parameters:
//   - ownerID: id of an existing user
//   - name: portfolio name, unique per owner
//
// Returns:
//   - Portfolio: the created or existing portfolio
//   - bool: true when a new portfolio was created
//   - error: ErrNotFound for an unknown owner, validation or store error otherwise
func (r *PortfolioRepository) Create(ctx context.Context, ownerID int64, name string) (Portfolio, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Portfolio{}, false, domain.NewValidationError("name", "is required")
	}

	var owner int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ?", ownerID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return Portfolio{}, false, fmt.Errorf("user %d: %w", ownerID, domain.ErrNotFound)
	}
	if err != nil {
		return Portfolio{}, false, domain.StoreErr("failed to check owner", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO portfolios (public_id, owner_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, name) DO NOTHING`,
		newPublicID(), ownerID, name, time.Now().Unix(),
	)
	if err != nil {
		return Portfolio{}, false, domain.StoreErr("failed to create portfolio", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Portfolio{}, false, domain.StoreErr("failed to read rows affected", err)
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+portfolioColumns+" FROM portfolios WHERE owner_id = ? AND name = ?",
		ownerID, name,
	)
	p, err := scanPortfolio(row)
	if err != nil {
		return Portfolio{}, false, domain.StoreErr("failed to read portfolio", err)
	}

	if n > 0 {
		r.log.Info().Int64("id", p.ID).Int64("owner_id", ownerID).Str("name", name).Msg("Portfolio created")
	}
	return p, n > 0, nil
}

// Get retrieves a portfolio by id
func (r *PortfolioRepository) Get(ctx context.Context, id int64) (Portfolio, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios WHERE id = ?", id)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Portfolio{}, fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return Portfolio{}, domain.StoreErr("failed to get portfolio", err)
	}
	return p, nil
}

// GetByPublicID retrieves a portfolio by its public id
func (r *PortfolioRepository) GetByPublicID(ctx context.Context, publicID string) (Portfolio, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios WHERE public_id = ?", publicID)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Portfolio{}, fmt.Errorf("portfolio %s: %w", publicID, domain.ErrNotFound)
	}
	if err != nil {
		return Portfolio{}, domain.StoreErr("failed to get portfolio", err)
	}
	return p, nil
}

// ListByOwner returns the owner's portfolios ordered by name
func (r *PortfolioRepository) ListByOwner(ctx context.Context, ownerID int64) ([]Portfolio, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+portfolioColumns+" FROM portfolios WHERE owner_id = ? ORDER BY name",
		ownerID,
	)
	if err != nil {
		return nil, domain.StoreErr("failed to list portfolios", err)
	}
	defer rows.Close()

	portfolios := make([]Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, domain.StoreErr("failed to scan portfolio", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating portfolios", err)
	}
	return portfolios, nil
}

// Delete removes a portfolio. Its transactions, cash movements and
// dividends go with it.
func (r *PortfolioRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return domain.StoreErr("failed to delete portfolio", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.StoreErr("failed to read rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("portfolio %d: %w", id, domain.ErrNotFound)
	}

	r.log.Info().Int64("id", id).Msg("Portfolio deleted")
	return nil
}

// PortfolioExists reports whether a portfolio with the given id exists
func (r *PortfolioRepository) PortfolioExists(ctx context.Context, id int64) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM portfolios WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, domain.StoreErr("failed to check portfolio", err)
	}
	return exists == 1, nil
}

func newPublicID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(s scanner) (Portfolio, error) {
	var p Portfolio
	var createdAt int64
	if err := s.Scan(&p.ID, &p.PublicID, &p.OwnerID, &p.Name, &createdAt); err != nil {
		return Portfolio{}, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}
