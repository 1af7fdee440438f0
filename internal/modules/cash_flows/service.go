package cash_flows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AddMovementRequest is a user-entered deposit or withdrawal.
// Amount is a magnitude; the sign is derived from the flow type.
type AddMovementRequest struct {
	PortfolioID int64
	FlowType    domain.FlowType
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

// Service handles user-facing cash operations
type Service struct {
	repo       *CashRepository
	portfolios domain.PortfolioChecker
	log        zerolog.Logger
}

// NewService creates a new cash service
func NewService(repo *CashRepository, portfolios domain.PortfolioChecker, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		portfolios: portfolios,
		log:        log.With().Str("service", "cash_flows").Logger(),
	}
}

// AddMovement records a deposit or withdrawal. BUY_COST, SELL_PROCEEDS and
// DIVIDEND movements are only created by the trading and dividend services.
func (s *Service) AddMovement(ctx context.Context, req AddMovementRequest) (ledger.CashMovement, error) {
	if req.FlowType != domain.FlowTypeDeposit && req.FlowType != domain.FlowTypeWithdrawal {
		return ledger.CashMovement{}, domain.NewValidationError("flow_type", "must be DEPOSIT or WITHDRAWAL")
	}
	if !req.Amount.IsPositive() {
		return ledger.CashMovement{}, domain.NewValidationError("amount", "must be greater than zero")
	}
	if err := s.requirePortfolio(ctx, req.PortfolioID); err != nil {
		return ledger.CashMovement{}, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = string(req.FlowType)
	}

	m := ledger.CashMovement{
		PortfolioID: req.PortfolioID,
		FlowType:    req.FlowType,
		Amount:      req.FlowType.SignedAmount(req.Amount),
		Date:        req.Date,
		Description: description,
	}

	id, err := s.repo.Create(ctx, m)
	if err != nil {
		return ledger.CashMovement{}, err
	}
	m.ID = id

	s.log.Info().
		Int64("portfolio_id", m.PortfolioID).
		Str("flow_type", string(m.FlowType)).
		Str("amount", m.Amount.String()).
		Msg("Cash movement added")

	return m, nil
}

// List returns the portfolio's movements in chronological order.
func (s *Service) List(ctx context.Context, portfolioID int64) ([]ledger.CashMovement, error) {
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.repo.ListByPortfolio(ctx, portfolioID)
}

// Balance returns the portfolio's cash balance.
func (s *Service) Balance(ctx context.Context, portfolioID int64) (decimal.Decimal, error) {
	if err := s.requirePortfolio(ctx, portfolioID); err != nil {
		return decimal.Zero, err
	}
	return s.repo.Balance(ctx, portfolioID)
}

// Delete removes a movement. Movements booked by a trade are not protected:
// deleting one changes the balance without touching the trade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) requirePortfolio(ctx context.Context, portfolioID int64) error {
	ok, err := s.portfolios.PortfolioExists(ctx, portfolioID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("portfolio %d: %w", portfolioID, domain.ErrNotFound)
	}
	return nil
}
