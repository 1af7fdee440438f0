package di

import (
	"fmt"

	"github.com/dalia-app/dalia/internal/config"
	"github.com/dalia-app/dalia/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens ledger.db and market.db and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// ledger.db - financial records, maximum durability
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.LedgerDBPath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	// market.db - re-fetchable market data
	marketDB, err := database.New(database.Config{
		Path:    cfg.MarketDBPath(),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		ledgerDB.Close()
		return nil, fmt.Errorf("failed to initialize market database: %w", err)
	}
	container.MarketDB = marketDB

	for _, db := range []*database.DB{ledgerDB, marketDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("ledger", ledgerDB.Path()).
		Str("market", marketDB.Path()).
		Msg("Databases initialized")
	return container, nil
}
