// Package di wires databases, repositories, services and jobs into a Container.
package di

import (
	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	"github.com/dalia-app/dalia/internal/modules/dividends"
	"github.com/dalia-app/dalia/internal/modules/market"
	"github.com/dalia-app/dalia/internal/modules/portfolio"
	"github.com/dalia-app/dalia/internal/modules/trading"
	"github.com/dalia-app/dalia/internal/reliability"
	"github.com/dalia-app/dalia/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	LedgerDB *database.DB // users, portfolios, transactions, cash, dividends
	MarketDB *database.DB // issuers, intraday prices, statements

	// Repositories
	UserRepo      *portfolio.UserRepository
	PortfolioRepo *portfolio.PortfolioRepository
	TradeRepo     *trading.TradeRepository
	CashRepo      *cash_flows.CashRepository
	DividendRepo  *dividends.DividendRepository
	IssuerRepo    *market.IssuerRepository
	PriceRepo     *market.PriceRepository
	StatementRepo *market.StatementRepository

	// Clients
	MarketClient *databursatil.Client

	// Services
	MarketService      *market.Service
	PortfolioService   *portfolio.PortfolioService
	TradeSafetyService *trading.TradeSafetyService
	TradingService     *trading.Service
	CashService        *cash_flows.Service
	DividendService    *dividends.Service
	BackupService      *reliability.BackupService // nil when backups are not configured

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	IssuerSync    scheduler.Job
	WALCheckpoint scheduler.Job
	Maintenance   scheduler.Job
	Backup        scheduler.Job // nil when backups are not configured
}

// Close closes every open database
func (c *Container) Close() {
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
	}
	if c.MarketDB != nil {
		_ = c.MarketDB.Close()
	}
}
