package di

import (
	"fmt"

	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	"github.com/dalia-app/dalia/internal/modules/dividends"
	"github.com/dalia-app/dalia/internal/modules/market"
	"github.com/dalia-app/dalia/internal/modules/portfolio"
	"github.com/dalia-app/dalia/internal/modules/trading"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.LedgerDB == nil || container.MarketDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	ledger := container.LedgerDB.Conn()
	container.UserRepo = portfolio.NewUserRepository(ledger, log)
	container.PortfolioRepo = portfolio.NewPortfolioRepository(ledger, log)
	container.TradeRepo = trading.NewTradeRepository(ledger, log)
	container.CashRepo = cash_flows.NewCashRepository(ledger, log)
	container.DividendRepo = dividends.NewDividendRepository(ledger, log)

	marketConn := container.MarketDB.Conn()
	container.IssuerRepo = market.NewIssuerRepository(marketConn, log)
	container.PriceRepo = market.NewPriceRepository(marketConn, log)
	container.StatementRepo = market.NewStatementRepository(marketConn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
