package portfolio

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dalia-app/dalia/internal/domain"
	testingpkg "github.com/dalia-app/dalia/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepos(t *testing.T) (*UserRepository, *PortfolioRepository, *sql.DB) {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	conn := db.Conn()
	log := zerolog.Nop()
	return NewUserRepository(conn, log), NewPortfolioRepository(conn, log), conn
}

func TestUserRepository_EnsureUserIsIdempotent(t *testing.T) {
	users, _, _ := setupRepos(t)
	ctx := context.Background()

	require.NoError(t, users.EnsureUser(ctx, 1, "default"))
	require.NoError(t, users.EnsureUser(ctx, 1, "renamed"))

	u, err := users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "default", u.Name)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepository_Create(t *testing.T) {
	users, _, _ := setupRepos(t)
	ctx := context.Background()

	u, err := users.Create(ctx, " Ana ", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.NotZero(t, u.ID)

	_, err = users.Create(ctx, "  ", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = users.GetByID(ctx, u.ID+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPortfolioRepository_CreateIsIdempotentPerOwner(t *testing.T) {
	users, portfolios, _ := setupRepos(t)
	ctx := context.Background()
	require.NoError(t, users.EnsureUser(ctx, 1, "ana"))
	require.NoError(t, users.EnsureUser(ctx, 2, "luis"))

	first, created, err := portfolios.Create(ctx, 1, "Retiro")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, first.PublicID, 32)
	assert.NotContains(t, first.PublicID, "-")

	again, created, err := portfolios.Create(ctx, 1, "Retiro")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.PublicID, again.PublicID)

	other, created, err := portfolios.Create(ctx, 2, "Retiro")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)

	byPublic, err := portfolios.GetByPublicID(ctx, first.PublicID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byPublic.ID)
}

func TestPortfolioRepository_CreateRejects(t *testing.T) {
	users, portfolios, _ := setupRepos(t)
	ctx := context.Background()
	require.NoError(t, users.EnsureUser(ctx, 1, "ana"))

	_, _, err := portfolios.Create(ctx, 1, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = portfolios.Create(ctx, 99, "Retiro")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPortfolioRepository_ListAndExists(t *testing.T) {
	users, portfolios, _ := setupRepos(t)
	ctx := context.Background()
	require.NoError(t, users.EnsureUser(ctx, 1, "ana"))

	b, _, err := portfolios.Create(ctx, 1, "b")
	require.NoError(t, err)
	_, _, err = portfolios.Create(ctx, 1, "a")
	require.NoError(t, err)

	list, err := portfolios.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	exists, err := portfolios.PortfolioExists(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = portfolios.PortfolioExists(ctx, b.ID+100)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPortfolioRepository_DeleteCascades(t *testing.T) {
	users, portfolios, conn := setupRepos(t)
	ctx := context.Background()
	require.NoError(t, users.EnsureUser(ctx, 1, "ana"))

	p, _, err := portfolios.Create(ctx, 1, "main")
	require.NoError(t, err)

	_, err = conn.Exec(`INSERT INTO asset_transactions (portfolio_id, ticker, transaction_type, quantity, price, transaction_date, created_at)
		VALUES (?, 'AMXB', 'BUY', '1', '10', 0, 0)`, p.ID)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO cash_movements (portfolio_id, flow_type, amount, movement_date, created_at)
		VALUES (?, 'DEPOSIT', '100', 0, 0)`, p.ID)
	require.NoError(t, err)

	require.NoError(t, portfolios.Delete(ctx, p.ID))
	assert.ErrorIs(t, portfolios.Delete(ctx, p.ID), domain.ErrNotFound)

	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM asset_transactions").Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM cash_movements").Scan(&n))
	assert.Zero(t, n)

	_, err = portfolios.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
