// Package portfolio owns the holdings store and the refresh-and-snapshot
// pipeline exposed to the server, the scheduler and the CLI.
package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
)

// Repository is the sqlite implementation of domain.Store over holdings.db.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a repository on a migrated holdings database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// AddUser creates username if it does not exist and returns its id.
func (r *Repository) AddUser(ctx context.Context, username string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("username is required")
	}

	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO users (username) VALUES (?)`, username); err != nil {
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}
	return id, nil
}

// GetUser returns the user with id, or nil if none exists.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, `SELECT id, username FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username FROM users ORDER BY id`)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// AddPosition inserts a position and returns its id.
func (r *Repository) AddPosition(ctx context.Context, p domain.Position) (int64, error) {
	if !p.Class.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAssetClass, p.Class)
	}
	if strings.TrimSpace(p.Symbol) == "" {
		return 0, fmt.Errorf("symbol is required")
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (user_id, asset_type, symbol, name, quantity, price, avg_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, string(p.Class), p.Symbol, p.Name,
		p.Quantity.String(), p.Price.String(), p.AvgCost.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert position: %w", err)
	}
	return result.LastInsertId()
}

// ListPositions returns the user's positions ordered by class and id.
func (r *Repository) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, asset_type, symbol, name, quantity, price, avg_cost
		FROM assets WHERE user_id = ? ORDER BY asset_type, id`, userID)
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
		if p.Quantity, err = parseDecimal(quantity); err != nil {
			return nil, fmt.Errorf("position %d quantity: %w", p.ID, err)
		}
		if p.Price, err = parseDecimal(price); err != nil {
			return nil, fmt.Errorf("position %d price: %w", p.ID, err)
		}
		if p.AvgCost, err = parseDecimal(cost); err != nil {
			return nil, fmt.Errorf("position %d avg_cost: %w", p.ID, err)
		}
		if !p.Class.Valid() {
			r.log.Warn().Int64("position_id", p.ID).Str("asset_type", class).Msg("Skipping position with unknown asset type")
			continue
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// ApplyPriceUpdates writes prices and display names in one transaction.
// An empty quote name keeps the stored name.
func (r *Repository) ApplyPriceUpdates(ctx context.Context, updates []domain.PriceUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	updated := 0
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE assets
			SET price = ?, name = CASE WHEN ? <> '' THEN ? ELSE name END, price_updated_at = ?
			WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare price update: %w", err)
		}
		defer stmt.Close()

		ts := r.now().Unix()
		for _, u := range updates {
			result, err := stmt.ExecContext(ctx, u.Quote.Price.String(), u.Quote.Name, u.Quote.Name, ts, u.PositionID)
			if err != nil {
				return fmt.Errorf("failed to update position %d: %w", u.PositionID, err)
			}
			if n, _ := result.RowsAffected(); n > 0 {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
