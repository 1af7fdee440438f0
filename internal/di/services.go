package di

import (
	"context"
	"fmt"

	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/config"
	"github.com/dalia-app/dalia/internal/modules/cash_flows"
	"github.com/dalia-app/dalia/internal/modules/dividends"
	"github.com/dalia-app/dalia/internal/modules/market"
	"github.com/dalia-app/dalia/internal/modules/portfolio"
	"github.com/dalia-app/dalia/internal/modules/trading"
	"github.com/dalia-app/dalia/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the market client and all services
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.UserRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	container.MarketClient = databursatil.NewClient(cfg.Market.BaseURL, cfg.Market.Token, cfg.Market.Timeout, log)
	if cfg.Market.Token == "" {
		log.Warn().Msg("DATABURSATIL_TOKEN not set, market data requests will fail")
	}

	container.MarketService = market.NewService(
		container.IssuerRepo,
		container.PriceRepo,
		container.StatementRepo,
		container.MarketClient,
		cfg.Market.Timeout,
		log,
	)

	// The market service is both the price source of the views and the
	// issuer catalog of the trade checks.
	container.PortfolioService = portfolio.NewPortfolioService(
		container.UserRepo,
		container.PortfolioRepo,
		container.TradeRepo,
		container.CashRepo,
		container.MarketService,
		log,
	)

	ledgerConn := container.LedgerDB.Conn()
	container.TradeSafetyService = trading.NewTradeSafetyService(container.MarketService, container.PortfolioRepo, log)
	container.TradingService = trading.NewService(ledgerConn, container.TradeRepo, container.CashRepo, container.TradeSafetyService, log)
	container.CashService = cash_flows.NewService(container.CashRepo, container.PortfolioRepo, log)
	container.DividendService = dividends.NewService(ledgerConn, container.DividendRepo, container.CashRepo, container.PortfolioRepo, log)

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Bucket:          cfg.Backup.Bucket,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.LedgerDB, store, cfg.DataDir, log)
	}

	log.Debug().Msg("Services initialized")
	return nil
}
