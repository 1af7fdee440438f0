package market

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
)

// PriceRepository stores intraday prices in market.db
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("repo", "intraday_price").Logger(),
	}
}

// UpsertMany stores prices keyed by ticker and timestamp, replacing existing samples
func (r *PriceRepository) UpsertMany(ctx context.Context, prices []IntradayPrice) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO intraday_prices (ticker, ts, price) VALUES (?, ?, ?)
			ON CONFLICT(ticker, ts) DO UPDATE SET price = excluded.price`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range prices {
			if _, err := stmt.ExecContext(ctx, utils.NormalizeTicker(p.Ticker), p.Time.Unix(), p.Price.String()); err != nil {
				return fmt.Errorf("price %s@%d: %w", p.Ticker, p.Time.Unix(), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, domain.StoreErr("failed to upsert intraday prices", err)
	}

	r.log.Debug().Int("count", len(prices)).Msg("Intraday prices stored")
	return len(prices), nil
}

// ListSince returns the prices of ticker at or after since, oldest first
func (r *PriceRepository) ListSince(ctx context.Context, ticker string, since time.Time) ([]IntradayPrice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ticker, ts, price FROM intraday_prices
		WHERE ticker = ? AND ts >= ?
		ORDER BY ts ASC`, utils.NormalizeTicker(ticker), since.Unix())
	if err != nil {
		return nil, domain.StoreErr("failed to query intraday prices", err)
	}
	defer rows.Close()

	var prices []IntradayPrice
	for rows.Next() {
		var (
			p  IntradayPrice
			ts int64
		)
		if err := rows.Scan(&p.Ticker, &ts, &p.Price); err != nil {
			return nil, domain.StoreErr("failed to scan intraday price", err)
		}
		p.Time = time.Unix(ts, 0).UTC()
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating intraday prices", err)
	}
	return prices, nil
}

// Prune deletes samples older than before and returns how many were removed
func (r *PriceRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM intraday_prices WHERE ts < ?", before.Unix())
	if err != nil {
		return 0, domain.StoreErr("failed to prune intraday prices", err)
	}
	return res.RowsAffected()
}
