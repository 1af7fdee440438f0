package dividends

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	testingpkg "github.com/dalia-app/dalia/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	march    = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	quietLog = zerolog.New(nil).Level(zerolog.Disabled)
)

type stubPortfolios map[int64]bool

func (s stubPortfolios) PortfolioExists(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

func setup(t *testing.T) (*Service, *cash_flows.CashRepository, *sql.DB, int64) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	conn := db.Conn()
	owner := testingpkg.SeedUser(t, conn, 1, "ana")
	pid := testingpkg.SeedPortfolio(t, conn, owner, "main")

	cash := cash_flows.NewCashRepository(conn, quietLog)
	svc := NewService(conn, NewDividendRepository(conn, quietLog), cash, stubPortfolios{pid: true}, quietLog)
	return svc, cash, conn, pid
}

func TestService_RegisterBooksCash(t *testing.T) {
	svc, cash, _, pid := setup(t)
	ctx := context.Background()

	record, err := svc.Register(ctx, pid, "kimbera", decimal.RequireFromString("45.50"), march)
	require.NoError(t, err)
	assert.Equal(t, "KIMBERA", record.Ticker)
	require.NotNil(t, record.CashMovementID)

	movement, err := cash.GetByID(ctx, *record.CashMovementID)
	require.NoError(t, err)
	assert.Equal(t, domain.FlowTypeDividend, movement.FlowType)
	assert.True(t, movement.Amount.Equal(decimal.RequireFromString("45.5")))
	assert.Equal(t, "Dividendo de KIMBERA", movement.Description)
	assert.True(t, movement.Date.Equal(march))

	balance, err := cash.Balance(ctx, pid)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("45.5")))

	stored, err := svc.repo.GetByCashMovementID(ctx, *record.CashMovementID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)
}

func TestService_RegisterRejects(t *testing.T) {
	svc, cash, _, pid := setup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, pid, "", decimal.NewFromInt(1), march)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Register(ctx, pid, "AMXB", decimal.Zero, march)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Register(ctx, pid, "AMXB", decimal.NewFromInt(1), time.Time{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Register(ctx, pid+1, "AMXB", decimal.NewFromInt(1), march)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A failed registration leaves no cash behind.
	movements, err := cash.ListByPortfolio(ctx, pid)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestService_ListAndTotals(t *testing.T) {
	svc, _, _, pid := setup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, pid, "AMXB", decimal.RequireFromString("10.10"), march)
	require.NoError(t, err)
	_, err = svc.Register(ctx, pid, "AMXB", decimal.RequireFromString("5.05"), march.AddDate(0, 3, 0))
	require.NoError(t, err)
	_, err = svc.Register(ctx, pid, "WALMEX", decimal.RequireFromString("7"), march.AddDate(0, 1, 0))
	require.NoError(t, err)

	all, err := svc.List(ctx, pid, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].PaymentDate.After(all[1].PaymentDate))

	amx, err := svc.List(ctx, pid, "amxb")
	require.NoError(t, err)
	assert.Len(t, amx, 2)

	totals, err := svc.Totals(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, "15.15", totals["AMXB"].String())
	assert.Equal(t, "7", totals["WALMEX"].String())
}

func TestRepository_CashMovementDeleteKeepsDividend(t *testing.T) {
	svc, cash, _, pid := setup(t)
	ctx := context.Background()

	record, err := svc.Register(ctx, pid, "AMXB", decimal.NewFromInt(3), march)
	require.NoError(t, err)
	require.NoError(t, cash.Delete(ctx, *record.CashMovementID))

	stored, err := svc.repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CashMovementID)

	_, err = svc.repo.GetByID(ctx, record.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
