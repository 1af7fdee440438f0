// Package market keeps the issuer catalog and price data of the Mexican
// exchanges and serves market views from the databursatil provider.
package market

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/rs/zerolog"
)

// SearchLimit caps issuer search results
const SearchLimit = 20

// issuerColumns is the list of columns for the issuers table
// Column order must match scanIssuer()
const issuerColumns = `ticker, series, name, isin, exchange, security_type, security_type_id,
status, shares_outstanding, updated_at`

// IssuerRepository handles the issuer catalog in market.db
type IssuerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewIssuerRepository creates a new issuer repository
func NewIssuerRepository(db *sql.DB, log zerolog.Logger) *IssuerRepository {
	return &IssuerRepository{
		db:  db,
		log: log.With().Str("repo", "issuer").Logger(),
	}
}

// UpsertMany inserts or updates issuers keyed by ticker and series in one transaction
func (r *IssuerRepository) UpsertMany(ctx context.Context, issuers []Issuer) (int, error) {
	if len(issuers) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	count := 0
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO issuers
			(ticker, series, name, isin, exchange, security_type, security_type_id, status, shares_outstanding, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticker, series) DO UPDATE SET
				name = excluded.name,
				isin = excluded.isin,
				exchange = excluded.exchange,
				security_type = excluded.security_type,
				security_type_id = excluded.security_type_id,
				status = excluded.status,
				shares_outstanding = excluded.shares_outstanding,
				updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, is := range issuers {
			if strings.TrimSpace(is.Ticker) == "" {
				r.log.Warn().Str("name", is.Name).Msg("Skipping issuer without ticker")
				continue
			}
			var shares sql.NullInt64
			if is.SharesOutstanding != nil {
				shares = sql.NullInt64{Int64: *is.SharesOutstanding, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				strings.TrimSpace(is.Ticker),
				strings.TrimSpace(is.Series),
				is.Name,
				nullString(is.ISIN),
				nullString(is.Exchange),
				nullString(is.SecurityType),
				nullString(is.SecurityTypeID),
				nullString(is.Status),
				shares,
				now,
			); err != nil {
				return fmt.Errorf("issuer %s%s: %w", is.Ticker, is.Series, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, domain.StoreErr("failed to upsert issuers", err)
	}

	r.log.Info().Int("count", count).Msg("Issuers upserted")
	return count, nil
}

// Search returns active issuers whose name or ticker contains q, case-insensitively,
// ordered by name. An empty query lists the first active issuers.
func (r *IssuerRepository) Search(ctx context.Context, q string, limit int) ([]Issuer, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"

	return r.query(ctx, `
		SELECT `+issuerColumns+` FROM issuers
		WHERE status = 'ACTIVA'
		  AND (LOWER(name) LIKE ? OR LOWER(ticker) LIKE ? OR LOWER(ticker || series) LIKE ?)
		ORDER BY name, ticker, series
		LIMIT ?`, pattern, pattern, pattern, limit)
}

// GetBySymbol returns the issuer whose ticker, or ticker followed by series, equals symbol
func (r *IssuerRepository) GetBySymbol(ctx context.Context, symbol string) (Issuer, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	issuers, err := r.query(ctx, `
		SELECT `+issuerColumns+` FROM issuers
		WHERE UPPER(ticker || series) = ? OR UPPER(ticker) = ?
		ORDER BY CASE WHEN UPPER(ticker || series) = ? THEN 0 ELSE 1 END, series
		LIMIT 1`, symbol, symbol, symbol)
	if err != nil {
		return Issuer{}, err
	}
	if len(issuers) == 0 {
		return Issuer{}, fmt.Errorf("issuer %s: %w", symbol, domain.ErrNotFound)
	}
	return issuers[0], nil
}

// Count returns the number of issuers in the catalog
func (r *IssuerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM issuers").Scan(&n); err != nil {
		return 0, domain.StoreErr("failed to count issuers", err)
	}
	return n, nil
}

// Exists reports whether symbol is a ticker or ticker+series in the catalog
func (r *IssuerRepository) Exists(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM issuers WHERE UPPER(ticker || series) = ? OR UPPER(ticker) = ?`,
		symbol, symbol).Scan(&n)
	if err != nil {
		return false, domain.StoreErr("failed to check issuer", err)
	}
	return n > 0, nil
}

// DedupeByISIN removes issuers sharing an ISIN (trimmed, upper-cased),
// keeping the first inserted row of each group. Rows without ISIN are kept.
func (r *IssuerRepository) DedupeByISIN(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM issuers
		WHERE isin IS NOT NULL AND TRIM(isin) <> ''
		  AND rowid NOT IN (
			SELECT MIN(rowid) FROM issuers
			WHERE isin IS NOT NULL AND TRIM(isin) <> ''
			GROUP BY UPPER(TRIM(isin))
		  )`)
	if err != nil {
		return 0, domain.StoreErr("failed to dedupe issuers", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.StoreErr("failed to read dedupe count", err)
	}
	if n > 0 {
		r.log.Info().Int64("removed", n).Msg("Duplicate issuers removed")
	}
	return int(n), nil
}

func (r *IssuerRepository) query(ctx context.Context, query string, args ...any) ([]Issuer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreErr("failed to query issuers", err)
	}
	defer rows.Close()

	var issuers []Issuer
	for rows.Next() {
		is, err := scanIssuer(rows)
		if err != nil {
			return nil, domain.StoreErr("failed to scan issuer", err)
		}
		issuers = append(issuers, is)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreErr("error iterating issuers", err)
	}
	return issuers, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIssuer(s scanner) (Issuer, error) {
	var (
		is                                         Issuer
		isin, exchange, secType, secTypeID, status sql.NullString
		shares                                     sql.NullInt64
		updatedAt                                  int64
	)
	if err := s.Scan(&is.Ticker, &is.Series, &is.Name, &isin, &exchange, &secType, &secTypeID,
		&status, &shares, &updatedAt); err != nil {
		return Issuer{}, err
	}
	is.ISIN = isin.String
	is.Exchange = exchange.String
	is.SecurityType = secType.String
	is.SecurityTypeID = secTypeID.String
	is.Status = status.String
	if shares.Valid {
		v := shares.Int64
		is.SharesOutstanding = &v
	}
	is.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return is, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
