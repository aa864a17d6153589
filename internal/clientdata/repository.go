// Package clientdata persists the last successful quote per cache key so the
// valuation pipeline can fall back to a stale value when a source is down.
// Quotes are stored as msgpack blobs with a retention deadline.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/holdings/internal/domain"
)

// DefaultRetention is how long a stored quote counts as fresh.
const DefaultRetention = 7 * 24 * time.Hour

// quoteRecord is the msgpack wire form. The price is kept as a decimal string.
type quoteRecord struct {
	Class     string `msgpack:"c"`
	Symbol    string `msgpack:"s"`
	Price     string `msgpack:"p"`
	Name      string `msgpack:"n"`
	FetchedAt int64  `msgpack:"t"`
}

func encodeQuote(q domain.Quote) ([]byte, error) {
	return msgpack.Marshal(quoteRecord{
		Class:     string(q.Class),
		Symbol:    q.Symbol,
		Price:     q.Price.String(),
		Name:      q.Name,
		FetchedAt: q.FetchedAt.UnixMilli(),
	})
}

func decodeQuote(data []byte) (*domain.Quote, error) {
	var rec quoteRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	price, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to decode quote price %q: %w", rec.Price, err)
	}
	return &domain.Quote{
		Class:     domain.AssetClass(rec.Class),
		Symbol:    rec.Symbol,
		Price:     price,
		Name:      rec.Name,
		FetchedAt: time.UnixMilli(rec.FetchedAt),
	}, nil
}

// Repository stores last-known quotes in the last_quotes table.
type Repository struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

// NewRepository creates a repository. A non-positive retention selects DefaultRetention.
func NewRepository(db *sql.DB, retention time.Duration) *Repository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Repository{db: db, retention: retention, now: time.Now}
}

// Put saves q under its cache key, replacing any previous value.
func (r *Repository) Put(ctx context.Context, q domain.Quote) error {
	if q.FetchedAt.IsZero() {
		q.FetchedAt = r.now()
	}
	data, err := encodeQuote(q)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO last_quotes (quote_key, data, fetched_at, expires_at) VALUES (?, ?, ?, ?)`,
		q.CacheKey(), data, q.FetchedAt.Unix(), q.FetchedAt.Add(r.retention).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store quote %s: %w", q.CacheKey(), err)
	}
	return nil
}

// GetIfFresh returns the quote only if it is still within retention.
// Returns nil, nil if the key doesn't exist or has expired.
func (r *Repository) GetIfFresh(ctx context.Context, key string) (*domain.Quote, error) {
	return r.get(ctx,
		`SELECT data FROM last_quotes WHERE quote_key = ? AND expires_at > ?`,
		key, r.now().Unix())
}

// Get returns the quote regardless of age. Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(ctx context.Context, key string) (*domain.Quote, error) {
	return r.get(ctx, `SELECT data FROM last_quotes WHERE quote_key = ?`, key)
}

func (r *Repository) get(ctx context.Context, query string, args ...interface{}) (*domain.Quote, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last quote: %w", err)
	}
	return decodeQuote(data)
}

// List returns every stored quote, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.Quote, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM last_quotes ORDER BY fetched_at DESC, quote_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list last quotes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quote
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan last quote: %w", err)
		}
		q, err := decodeQuote(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// DeleteExpired removes all rows past their retention and returns how many were deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM last_quotes WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired quotes: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
