package trading

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	testingpkg "github.com/dalia-app/dalia/internal/testing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPortfolios map[int64]bool

func (s stubPortfolios) PortfolioExists(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

type fixture struct {
	svc     *Service
	cash    *cash_flows.CashRepository
	trades  *TradeRepository
	catalog *testingpkg.MockIssuerCatalog
	pid     int64
}

func setupService(t *testing.T, tickers ...string) fixture {
	t.Helper()
	conn, pid := setupDB(t)
	return newFixture(conn, pid, tickers...)
}

func newFixture(conn *sql.DB, pid int64, tickers ...string) fixture {
	catalog := testingpkg.NewMockIssuerCatalog(tickers...)
	trades := NewTradeRepository(conn, quietLog)
	cash := cash_flows.NewCashRepository(conn, quietLog)
	safety := NewTradeSafetyService(catalog, stubPortfolios{pid: true}, quietLog)
	return fixture{
		svc:     NewService(conn, trades, cash, safety, quietLog),
		cash:    cash,
		trades:  trades,
		catalog: catalog,
		pid:     pid,
	}
}

func (f fixture) deposit(t *testing.T, amount string) {
	t.Helper()
	_, err := f.cash.Create(context.Background(), ledger.CashMovement{
		PortfolioID: f.pid,
		FlowType:    domain.FlowTypeDeposit,
		Amount:      decimal.RequireFromString(amount),
		Date:        jan,
		Description: "DEPOSIT",
	})
	require.NoError(t, err)
}

func (f fixture) request(ticker string, txType domain.TransactionType, qty, price string, useCash bool) AddRequest {
	return AddRequest{
		PortfolioID: f.pid,
		Ticker:      ticker,
		Type:        txType,
		Quantity:    decimal.RequireFromString(qty),
		Price:       decimal.RequireFromString(price),
		Date:        jan.AddDate(0, 0, 1),
		UseCash:     useCash,
	}
}

func TestService_BuyWithCashBooksCost(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.deposit(t, "1000")

	res, err := f.svc.Add(ctx, f.request("walmex", domain.TransactionTypeBuy, "10", "100", true))
	require.NoError(t, err)
	assert.Equal(t, "WALMEX", res.Transaction.Ticker)
	assert.NotZero(t, res.Transaction.ID)
	require.NotNil(t, res.CashMovement)
	assert.Equal(t, domain.FlowTypeBuyCost, res.CashMovement.FlowType)
	assert.True(t, res.CashMovement.Amount.Equal(decimal.NewFromInt(-1000)))

	balance, err := f.cash.Balance(ctx, f.pid)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestService_InsufficientFundsLeavesNoRows(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.deposit(t, "500")

	_, err := f.svc.Add(ctx, f.request("WALMEX", domain.TransactionTypeBuy, "10", "100", true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientFunds))

	var ife *domain.InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assert.True(t, ife.Available.Equal(decimal.NewFromInt(500)))
	assert.True(t, ife.Required.Equal(decimal.NewFromInt(1000)))

	txs, err := f.trades.ListByPortfolio(ctx, f.pid)
	require.NoError(t, err)
	assert.Empty(t, txs)

	balance, err := f.cash.Balance(ctx, f.pid)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))
}

func TestService_BuyWithoutCashSkipsFundsCheck(t *testing.T) {
	f := setupService(t)

	res, err := f.svc.Add(context.Background(), f.request("AMXB", domain.TransactionTypeBuy, "100", "15", false))
	require.NoError(t, err)
	assert.Nil(t, res.CashMovement)

	movements, err := f.cash.ListByPortfolio(context.Background(), f.pid)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestService_SellWithCashBooksProceeds(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, f.request("AMXB", domain.TransactionTypeBuy, "10", "15", false))
	require.NoError(t, err)

	res, err := f.svc.Add(ctx, f.request("AMXB", domain.TransactionTypeSell, "4", "20", true))
	require.NoError(t, err)
	require.NotNil(t, res.CashMovement)
	assert.Equal(t, domain.FlowTypeSellProceeds, res.CashMovement.FlowType)
	assert.True(t, res.CashMovement.Amount.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "SELL AMXB", res.CashMovement.Description)

	balance, err := f.cash.Balance(ctx, f.pid)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(80)))
}

func TestService_OversellRejected(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, f.request("AMXB", domain.TransactionTypeBuy, "10", "15", false))
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, f.request("AMXB", domain.TransactionTypeSell, "11", "20", true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientPosition))

	var ipe *domain.InsufficientPositionError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "AMXB", ipe.Ticker)
	assert.True(t, ipe.Held.Equal(decimal.NewFromInt(10)))

	// Selling exactly what is held is fine.
	_, err = f.svc.Add(ctx, f.request("AMXB", domain.TransactionTypeSell, "10", "20", false))
	assert.NoError(t, err)
}

func TestService_UnknownTickerRejected(t *testing.T) {
	f := setupService(t, "WALMEX")

	_, err := f.svc.Add(context.Background(), f.request("NOPE", domain.TransactionTypeBuy, "1", "1", false))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "ticker", ve.Field)

	_, err = f.svc.Add(context.Background(), f.request("walmex", domain.TransactionTypeBuy, "1", "1", false))
	assert.NoError(t, err)
}

func TestService_CatalogFailureDoesNotBlockTrades(t *testing.T) {
	f := setupService(t, "WALMEX")
	f.catalog.SetError(domain.ErrUpstreamUnavailable)

	_, err := f.svc.Add(context.Background(), f.request("NOPE", domain.TransactionTypeBuy, "1", "1", false))
	assert.NoError(t, err)
}

func TestService_UnknownPortfolio(t *testing.T) {
	f := setupService(t)
	req := f.request("AMXB", domain.TransactionTypeBuy, "1", "1", false)
	req.PortfolioID = f.pid + 10

	_, err := f.svc.Add(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.List(context.Background(), f.pid+10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_DeleteKeepsCash(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	f.deposit(t, "1000")

	res, err := f.svc.Add(ctx, f.request("AMXB", domain.TransactionTypeBuy, "10", "15", true))
	require.NoError(t, err)

	msg, err := f.svc.Delete(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, DeleteReminder, msg)

	txs, err := f.svc.List(ctx, f.pid)
	require.NoError(t, err)
	assert.Empty(t, txs)

	balance, err := f.cash.Balance(ctx, f.pid)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(850)))

	_, err = f.svc.Delete(ctx, res.Transaction.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
