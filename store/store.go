// Package store persists price observations in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pricewatch/pricewatch/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS price_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	observed_at TEXT NOT NULL,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	price TEXT,
	target TEXT,
	selector TEXT,
	status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_history_name_ts ON price_history (name, observed_at);
`

// timeLayout keeps a fixed-width fraction so TEXT ordering matches
// chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// StoreError wraps persistence failures with the failing operation.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}

// Store is an append-only observation log. A single process owns the
// handle; open it at runner start and close it on every exit path.
type Store struct {
	db *sql.DB
}

// Open creates or opens the observation database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, StoreError{Op: "create db directory", Err: err}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, StoreError{Op: "create schema", Err: err}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts one observation row. History is never rewritten;
// identity comes from the autoincrement column, so identical content
// on consecutive runs is fine.
func (s *Store) Append(ctx context.Context, obs models.Observation) error {
	var price, target sql.NullString
	if obs.HasPrice {
		price = sql.NullString{String: obs.Price.String(), Valid: true}
	}
	if obs.HasTarget {
		target = sql.NullString{String: obs.Target.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (observed_at, name, url, price, target, selector, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		obs.ObservedAt.UTC().Format(timeLayout),
		obs.ProductName, obs.URL, price, target, obs.Selector, obs.Status,
	)
	if err != nil {
		return StoreError{Op: "append", Err: err}
	}
	return nil
}

// Latest returns the most recent successful observation for a product,
// or false when the product has no prior history.
func (s *Store) Latest(ctx context.Context, name string) (models.Observation, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, observed_at, name, url, price, target, selector, status
		 FROM price_history
		 WHERE name = ? AND status = ?
		 ORDER BY observed_at DESC, id DESC
		 LIMIT 1`,
		name, models.StatusOK,
	)
	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Observation{}, false, nil
	}
	if err != nil {
		return models.Observation{}, false, StoreError{Op: "latest", Err: err}
	}
	return obs, true, nil
}

// History returns up to limit recent observations for a product,
// newest first. Failed checks are included.
func (s *Store) History(ctx context.Context, name string, limit int) ([]models.Observation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, observed_at, name, url, price, target, selector, status
		 FROM price_history
		 WHERE name = ?
		 ORDER BY observed_at DESC, id DESC
		 LIMIT ?`,
		name, limit,
	)
	if err != nil {
		return nil, StoreError{Op: "history", Err: err}
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, StoreError{Op: "history scan", Err: err}
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, StoreError{Op: "history rows", Err: err}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(row scanner) (models.Observation, error) {
	var (
		obs        models.Observation
		observedAt string
		price      sql.NullString
		target     sql.NullString
		selector   sql.NullString
	)
	if err := row.Scan(&obs.ID, &observedAt, &obs.ProductName, &obs.URL, &price, &target, &selector, &obs.Status); err != nil {
		return models.Observation{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, observedAt)
	if err != nil {
		return models.Observation{}, fmt.Errorf("parse observed_at %q: %w", observedAt, err)
	}
	obs.ObservedAt = ts
	obs.Selector = selector.String

	if price.Valid {
		parsed, err := decimal.NewFromString(price.String)
		if err != nil {
			return models.Observation{}, fmt.Errorf("parse price %q: %w", price.String, err)
		}
		obs.Price = parsed
		obs.HasPrice = true
	}
	if target.Valid {
		parsed, err := decimal.NewFromString(target.String)
		if err != nil {
			return models.Observation{}, fmt.Errorf("parse target %q: %w", target.String, err)
		}
		obs.Target = parsed
		obs.HasTarget = true
	}
	return obs, nil
}
