package market

import (
	"context"
	"database/sql"
	"time"

	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/domain"
	"github.com/dalia-app/dalia/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StatementRepository persists financial statements, one row per concept
type StatementRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStatementRepository creates a new statement repository
func NewStatementRepository(db *sql.DB, log zerolog.Logger) *StatementRepository {
	return &StatementRepository{
		db:  db,
		log: log.With().Str("repo", "statement").Logger(),
	}
}

// Get returns the stored statement. found is false when no concept is stored.
func (r *StatementRepository) Get(ctx context.Context, ticker, period string, kind databursatil.StatementKind) (Statement, bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT concept, value, fetched_at FROM financial_statements
		WHERE ticker = ? AND period = ? AND kind = ?`,
		utils.NormalizeTicker(ticker), period, string(kind))
	if err != nil {
		return Statement{}, false, domain.StoreErr("failed to query statement", err)
	}
	defer rows.Close()

	st := Statement{
		Ticker:   utils.NormalizeTicker(ticker),
		Period:   period,
		Kind:     kind,
		Concepts: make(map[string]decimal.Decimal),
		Cached:   true,
	}
	var fetchedAt int64
	for rows.Next() {
		var (
			concept string
			value   decimal.Decimal
		)
		if err := rows.Scan(&concept, &value, &fetchedAt); err != nil {
			return Statement{}, false, domain.StoreErr("failed to scan statement", err)
		}
		st.Concepts[concept] = value
	}
	if err := rows.Err(); err != nil {
		return Statement{}, false, domain.StoreErr("error iterating statement", err)
	}
	if len(st.Concepts) == 0 {
		return Statement{}, false, nil
	}
	st.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return st, true, nil
}

// Save replaces the stored concepts of a statement
func (r *StatementRepository) Save(ctx context.Context, st Statement) error {
	ticker := utils.NormalizeTicker(st.Ticker)
	fetched := st.FetchedAt.Unix()

	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM financial_statements WHERE ticker = ? AND period = ? AND kind = ?",
			ticker, st.Period, string(st.Kind)); err != nil {
			return err
		}
		for concept, value := range st.Concepts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO financial_statements (ticker, period, kind, concept, value, fetched_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				ticker, st.Period, string(st.Kind), concept, value.String(), fetched); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.StoreErr("failed to save statement", err)
	}

	r.log.Info().
		Str("ticker", ticker).
		Str("period", st.Period).
		Str("kind", string(st.Kind)).
		Int("concepts", len(st.Concepts)).
		Msg("Statement stored")
	return nil
}
