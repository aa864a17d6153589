// Package postgres is the PostgreSQL implementation of the holdings store,
// used when DATABASE_URL is configured.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
)

//go:embed schema.sql
var schema string

// Store implements domain.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, log zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  log.With().Str("store", "postgres").Logger(),
	}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.log.Info().Msg("Schema applied")
	return nil
}

// AddUser creates username if it does not exist and returns its id.
func (s *Store) AddUser(ctx context.Context, username string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("username is required")
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		insert into users (username) values ($1)
		on conflict (username) do update set username = excluded.username
		returning id`, username).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert user: %w", err)
	}
	return id, nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `select id, username from users order by id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddPosition inserts a position and returns its id.
func (s *Store) AddPosition(ctx context.Context, p domain.Position) (int64, error) {
	if !p.Class.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAssetClass, p.Class)
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		insert into assets (user_id, asset_type, symbol, name, quantity, price, avg_cost)
		values ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric)
		returning id`,
		p.UserID, string(p.Class), p.Symbol, p.Name,
		p.Quantity.String(), p.Price.String(), p.AvgCost.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position: %w", err)
	}
	return id, nil
}

// ListPositions returns the user's positions ordered by class and id.
func (s *Store) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, asset_type, symbol, name, quantity::text, price::text, avg_cost::text
		from assets where user_id = $1 order by asset_type, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var (
			p                     domain.Position
			class                 string
			quantity, price, cost string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &class, &p.Symbol, &p.Name, &quantity, &price, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Class = domain.AssetClass(class)
		if !p.Class.Valid() {
			s.log.Warn().Int64("position_id", p.ID).Str("asset_type", class).Msg("Skipping position with unknown asset type")
			continue
		}
		if p.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("position %d quantity: %w", p.ID, err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("position %d price: %w", p.ID, err)
		}
		if p.AvgCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("position %d avg_cost: %w", p.ID, err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ApplyPriceUpdates writes prices and names in one transaction using a batch.
func (s *Store) ApplyPriceUpdates(ctx context.Context, updates []domain.PriceUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	updated := 0
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`
				update assets
				set price = $1::numeric,
				    name = case when $2 <> '' then $2 else name end,
				    price_updated_at = now()
				where id = $3`, u.Quote.Price.String(), u.Quote.Name, u.PositionID)
		}
		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for _, u := range updates {
			tag, err := br.Exec()
			if err != nil {
				return fmt.Errorf("failed to update position %d: %w", u.PositionID, err)
			}
			updated += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

var errNoSnapshot = errors.New("no snapshot")
