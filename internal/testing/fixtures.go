package testing

import (
	"database/sql"
	"fmt"
	"testing"
)

// SeedUser inserts a user with the given id and returns it.
func SeedUser(t *testing.T, db *sql.DB, id int64, name string) int64 {
	t.Helper()
	_, err := db.Exec("INSERT INTO users (id, name, created_at) VALUES (?, ?, 0)", id, name)
	if err != nil {
		t.Fatalf("Failed to seed user %d: %v", id, err)
	}
	return id
}

// SeedPortfolio inserts a portfolio owned by ownerID and returns its id.
func SeedPortfolio(t *testing.T, db *sql.DB, ownerID int64, name string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO portfolios (public_id, owner_id, name, created_at) VALUES (?, ?, ?, 0)",
		fmt.Sprintf("seed-%d-%s", ownerID, name), ownerID, name,
	)
	if err != nil {
		t.Fatalf("Failed to seed portfolio %s: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read portfolio id: %v", err)
	}
	return id
}

// SeedIssuer inserts an active issuer into a market database.
func SeedIssuer(t *testing.T, db *sql.DB, ticker, series, name, isin string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO issuers (ticker, series, name, isin, exchange, status, updated_at)
		 VALUES (?, ?, ?, ?, 'BMV', 'ACTIVA', 0)`,
		ticker, series, name, isin,
	)
	if err != nil {
		t.Fatalf("Failed to seed issuer %s: %v", ticker, err)
	}
}
