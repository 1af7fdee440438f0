package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/modules/ledger"
	testingpkg "github.com/dalia-app/dalia/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

type fakeTransactions struct {
	txs []ledger.Transaction
	err error
}

func (f *fakeTransactions) ListByPortfolio(_ context.Context, _ int64) ([]ledger.Transaction, error) {
	return f.txs, f.err
}

type fakeMovements struct {
	movements []ledger.CashMovement
}

func (f *fakeMovements) ListByPortfolio(_ context.Context, _ int64) ([]ledger.CashMovement, error) {
	return f.movements, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(ticker string, txType domain.TransactionType, qty, price string, day int) ledger.Transaction {
	return ledger.Transaction{Ticker: ticker, Type: txType, Quantity: dec(qty), Price: dec(price), Date: day0.AddDate(0, 0, day)}
}

type serviceFixture struct {
	svc       *PortfolioService
	txs       *fakeTransactions
	movements *fakeMovements
	prices    *testingpkg.MockPriceProvider
	pid       int64
}

func setupService(t *testing.T) serviceFixture {
	t.Helper()
	users, portfolios, _ := setupRepos(t)
	ctx := context.Background()
	require.NoError(t, users.EnsureUser(ctx, 1, "ana"))
	p, _, err := portfolios.Create(ctx, 1, "main")
	require.NoError(t, err)

	f := serviceFixture{
		txs:       &fakeTransactions{},
		movements: &fakeMovements{},
		prices:    testingpkg.NewMockPriceProvider(),
		pid:       p.ID,
	}
	f.svc = NewPortfolioService(users, portfolios, f.txs, f.movements, f.prices, zerolog.Nop())
	return f
}

func TestPortfolioService_Slots(t *testing.T) {
	f := setupService(t)
	f.txs.txs = []ledger.Transaction{
		tx("WALMEX", domain.TransactionTypeBuy, "10", "100", 0),
		tx("WALMEX", domain.TransactionTypeBuy, "10", "200", 1),
		tx("AMXB", domain.TransactionTypeBuy, "5", "15", 1),
		tx("AMXB", domain.TransactionTypeSell, "5", "16", 2),
	}

	slots, err := f.svc.Slots(context.Background(), f.pid)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "WALMEX", slots[0].Ticker)
	assert.True(t, slots[0].Quantity.Equal(dec("20")))
	assert.True(t, slots[0].AverageCost.Equal(dec("150")))

	holdings, err := f.svc.Holdings(context.Background(), f.pid)
	require.NoError(t, err)
	assert.Equal(t, []string{"WALMEX"}, holdings)
}

func TestPortfolioService_ProfitLossWithUnknownPrice(t *testing.T) {
	f := setupService(t)
	f.txs.txs = []ledger.Transaction{
		tx("WALMEX", domain.TransactionTypeBuy, "10", "100", 0),
		tx("WALMEX", domain.TransactionTypeBuy, "10", "200", 1),
		tx("GMEXICOB", domain.TransactionTypeBuy, "4", "50", 1),
	}
	f.prices.SetPrice("GMEXICOB", dec("60"))

	pl, err := f.svc.ProfitLoss(context.Background(), f.pid)
	require.NoError(t, err)
	require.Len(t, pl.Rows, 2)

	gmex := pl.Rows[0]
	assert.Equal(t, "GMEXICOB", gmex.Ticker)
	require.NotNil(t, gmex.UnrealizedPL)
	assert.True(t, gmex.UnrealizedPL.Equal(dec("40")))
	assert.True(t, gmex.UnrealizedPLPercent.Equal(dec("20")))

	walmex := pl.Rows[1]
	assert.Equal(t, "WALMEX", walmex.Ticker)
	assert.True(t, walmex.AverageCost.Equal(dec("150")))
	assert.Nil(t, walmex.CurrentPrice)
	assert.Nil(t, walmex.UnrealizedPL)
	assert.Nil(t, walmex.UnrealizedPLPercent)

	assert.True(t, pl.TotalUnrealizedPL.Equal(dec("40")))
	assert.ElementsMatch(t, []string{"GMEXICOB", "WALMEX"}, f.prices.Calls())
}

func TestPortfolioService_Summary(t *testing.T) {
	f := setupService(t)
	f.txs.txs = []ledger.Transaction{
		tx("WALMEX", domain.TransactionTypeBuy, "20", "150", 0),
		tx("WALMEX", domain.TransactionTypeSell, "10", "180", 1),
		tx("AMXB", domain.TransactionTypeBuy, "100", "15", 1),
	}
	f.movements.movements = []ledger.CashMovement{
		{FlowType: domain.FlowTypeDeposit, Amount: dec("5000"), Date: day0},
		{FlowType: domain.FlowTypeBuyCost, Amount: dec("-3000"), Date: day0},
	}
	f.prices.SetPrice("WALMEX", dec("170"))

	s, err := f.svc.Summary(context.Background(), f.pid)
	require.NoError(t, err)
	assert.True(t, s.CashBalance.Equal(dec("2000")))
	assert.True(t, s.TotalRealizedPL.Equal(dec("300")))
	assert.True(t, s.TotalUnrealizedPL.Equal(dec("200")))
	assert.True(t, s.TotalCost.Equal(dec("3000")))
	// 10 WALMEX at 170, 100 AMXB at cost, plus cash
	assert.True(t, s.TotalValue.Equal(dec("5200")), s.TotalValue.String())
	assert.Equal(t, 1, s.PricedCount)
	assert.Equal(t, 1, s.UnpricedCount)
}

func TestPortfolioService_CashFlowHistory(t *testing.T) {
	f := setupService(t)
	f.movements.movements = []ledger.CashMovement{
		{FlowType: domain.FlowTypeSellProceeds, Amount: dec("2700"), Date: day0.AddDate(0, 0, 2)},
		{FlowType: domain.FlowTypeDeposit, Amount: dec("1000"), Date: day0},
		{FlowType: domain.FlowTypeBuyCost, Amount: dec("-1000"), Date: day0.AddDate(0, 0, 1)},
	}

	history, err := f.svc.CashFlowHistory(context.Background(), f.pid)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[2].RunningBalance.Equal(dec("2700")))
}

func TestPortfolioService_UnknownPortfolio(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.Slots(ctx, f.pid+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Summary(ctx, f.pid+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.CashFlowHistory(ctx, f.pid+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.ListPortfolios(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPortfolioService_PropagatesErrors(t *testing.T) {
	f := setupService(t)

	f.txs.txs = []ledger.Transaction{tx("AMXB", "HOLD", "1", "1", 0)}
	_, err := f.svc.ProfitLoss(context.Background(), f.pid)
	assert.ErrorIs(t, err, domain.ErrValidation)

	storeErr := domain.StoreErr("boom", errors.New("disk"))
	f.txs.err = storeErr
	_, err = f.svc.Slots(context.Background(), f.pid)
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestPortfolioService_NilPriceProvider(t *testing.T) {
	f := setupService(t)
	users, portfolios := f.svc.users, f.svc.portfolios
	svc := NewPortfolioService(users, portfolios, f.txs, f.movements, nil, zerolog.Nop())
	f.txs.txs = []ledger.Transaction{tx("AMXB", domain.TransactionTypeBuy, "1", "10", 0)}

	pl, err := svc.ProfitLoss(context.Background(), f.pid)
	require.NoError(t, err)
	require.Len(t, pl.Rows, 1)
	assert.Nil(t, pl.Rows[0].CurrentPrice)
}
