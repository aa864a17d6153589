package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
)

// One value column per asset class, named after the class identifier.
func valueColumn(c domain.AssetClass) string { return string(c) + "_value" }

func prevColumn(c domain.AssetClass) string { return "prev_" + string(c) + "_value" }

var (
	currentColumns = func() []string {
		cols := make([]string, 0, len(domain.AllAssetClasses)+1)
		for _, c := range domain.AllAssetClasses {
			cols = append(cols, valueColumn(c))
		}
		return append(cols, "total_value")
	}()
	prevColumns = func() []string {
		cols := make([]string, 0, len(domain.AllAssetClasses)+1)
		for _, c := range domain.AllAssetClasses {
			cols = append(cols, prevColumn(c))
		}
		return append(cols, "prev_total_value")
	}()
	snapshotSelect = "SELECT user_id, record_date, " +
		strings.Join(currentColumns, ", ") + ", " +
		strings.Join(prevColumns, ", ") +
		", created_at, updated_at FROM asset_history"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*domain.Snapshot, error) {
	var (
		userID           int64
		date             string
		created, updated int64
		current          = make([]string, len(currentColumns))
		prev             = make([]string, len(prevColumns))
		dest             = []interface{}{&userID, &date}
	)
	for i := range current {
		dest = append(dest, &current[i])
	}
	for i := range prev {
		dest = append(dest, &prev[i])
	}
	dest = append(dest, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	snap := domain.NewSnapshot(userID, domain.Date(date))
	for i, c := range domain.AllAssetClasses {
		v, err := parseDecimal(current[i])
		if err != nil {
			return nil, fmt.Errorf("snapshot %s %s: %w", date, c, err)
		}
		snap.Values[c] = v
		pv, err := parseDecimal(prev[i])
		if err != nil {
			return nil, fmt.Errorf("snapshot %s prev %s: %w", date, c, err)
		}
		snap.PrevValues[c] = pv
	}
	var err error
	n := len(domain.AllAssetClasses)
	if snap.Total, err = parseDecimal(current[n]); err != nil {
		return nil, fmt.Errorf("snapshot %s total: %w", date, err)
	}
	if snap.PrevTotal, err = parseDecimal(prev[n]); err != nil {
		return nil, fmt.Errorf("snapshot %s prev total: %w", date, err)
	}
	snap.CreatedAt = time.Unix(created, 0)
	snap.UpdatedAt = time.Unix(updated, 0)
	return &snap, nil
}

func querySnapshot(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, where string, args ...interface{}) (*domain.Snapshot, error) {
	snap, err := scanSnapshot(q.QueryRowContext(ctx, snapshotSelect+" "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

// ReadSnapshot returns the snapshot for (userID, date), or nil if absent.
func (r *Repository) ReadSnapshot(ctx context.Context, userID int64, date domain.Date) (*domain.Snapshot, error) {
	return querySnapshot(ctx, r.db, "WHERE user_id = ? AND record_date = ?", userID, string(date))
}

// LatestSnapshotBefore returns the newest snapshot dated before date, or nil.
func (r *Repository) LatestSnapshotBefore(ctx context.Context, userID int64, date domain.Date) (*domain.Snapshot, error) {
	return querySnapshot(ctx, r.db,
		"WHERE user_id = ? AND record_date < ? ORDER BY record_date DESC LIMIT 1", userID, string(date))
}

// ListSnapshots returns the user's snapshots dated on or after from, oldest first.
func (r *Repository) ListSnapshots(ctx context.Context, userID int64, from domain.Date) ([]domain.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		snapshotSelect+" WHERE user_id = ? AND record_date >= ? ORDER BY record_date", userID, string(from))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return out, nil
}

func currentArgs(s domain.Snapshot) []interface{} {
	args := make([]interface{}, 0, len(currentColumns))
	for _, c := range domain.AllAssetClasses {
		args = append(args, s.Value(c).String())
	}
	return append(args, s.Total.String())
}

func prevArgs(s domain.Snapshot) []interface{} {
	args := make([]interface{}, 0, len(prevColumns))
	for _, c := range domain.AllAssetClasses {
		args = append(args, s.PrevValue(c).String())
	}
	return append(args, s.PrevTotal.String())
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// UpsertSnapshot inserts the row for (snap.UserID, snap.Date) or, when it
// already exists, overwrites only its current values. Both the existence check
// and the write run in one transaction.
func (r *Repository) UpsertSnapshot(ctx context.Context, snap domain.Snapshot) (*domain.Snapshot, error) {
	var saved *domain.Snapshot
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := querySnapshot(ctx, tx, "WHERE user_id = ? AND record_date = ?", snap.UserID, string(snap.Date))
		if err != nil {
			return err
		}

		ts := r.now().Unix()
		if existing != nil {
			set := make([]string, len(currentColumns))
			for i, col := range currentColumns {
				set[i] = col + " = ?"
			}
			args := append(currentArgs(snap), ts, snap.UserID, string(snap.Date))
			_, err = tx.ExecContext(ctx,
				"UPDATE asset_history SET "+strings.Join(set, ", ")+", updated_at = ? WHERE user_id = ? AND record_date = ?",
				args...)
			if err != nil {
				return fmt.Errorf("failed to update snapshot: %w", err)
			}
		} else {
			cols := append(append([]string{"user_id", "record_date"}, currentColumns...), prevColumns...)
			cols = append(cols, "created_at", "updated_at")
			args := append([]interface{}{snap.UserID, string(snap.Date)}, currentArgs(snap)...)
			args = append(args, prevArgs(snap)...)
			args = append(args, ts, ts)
			_, err = tx.ExecContext(ctx,
				"INSERT INTO asset_history ("+strings.Join(cols, ", ")+") VALUES ("+placeholders(len(cols))+")",
				args...)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot: %w", err)
			}
		}

		saved, err = querySnapshot(ctx, tx, "WHERE user_id = ? AND record_date = ?", snap.UserID, string(snap.Date))
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
