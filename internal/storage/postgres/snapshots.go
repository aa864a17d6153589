package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
)

var (
	currentColumns = columns("", "total_value")
	prevColumns    = columns("prev_", "prev_total_value")

	snapshotSelect = func() string {
		cols := []string{"user_id", "record_date::text"}
		for _, c := range currentColumns {
			cols = append(cols, c+"::text")
		}
		for _, c := range prevColumns {
			cols = append(cols, c+"::text")
		}
		return strings.Join(append(cols, "created_at", "updated_at"), ", ")
	}()
)

func columns(prefix, total string) []string {
	cols := make([]string, 0, len(domain.AllAssetClasses)+1)
	for _, c := range domain.AllAssetClasses {
		cols = append(cols, prefix+string(c)+"_value")
	}
	return append(cols, total)
}

func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var (
		userID  int64
		date    string
		created time.Time
		updated time.Time
		current = make([]string, len(currentColumns))
		prev    = make([]string, len(prevColumns))
	)
	dest := []interface{}{&userID, &date}
	for i := range current {
		dest = append(dest, &current[i])
	}
	for i := range prev {
		dest = append(dest, &prev[i])
	}
	dest = append(dest, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNoSnapshot
		}
		return nil, err
	}

	snap := domain.NewSnapshot(userID, domain.Date(date))
	n := len(domain.AllAssetClasses)
	for i := 0; i <= n; i++ {
		cur, err := decimal.NewFromString(current[i])
		if err != nil {
			return nil, fmt.Errorf("snapshot %s column %s: %w", date, currentColumns[i], err)
		}
		pv, err := decimal.NewFromString(prev[i])
		if err != nil {
			return nil, fmt.Errorf("snapshot %s column %s: %w", date, prevColumns[i], err)
		}
		if i == n {
			snap.Total, snap.PrevTotal = cur, pv
			continue
		}
		snap.Values[domain.AllAssetClasses[i]] = cur
		snap.PrevValues[domain.AllAssetClasses[i]] = pv
	}
	snap.CreatedAt = created
	snap.UpdatedAt = updated
	return &snap, nil
}

func (s *Store) querySnapshot(ctx context.Context, where string, args ...interface{}) (*domain.Snapshot, error) {
	snap, err := scanSnapshot(s.pool.QueryRow(ctx, "select "+snapshotSelect+" from asset_history "+where, args...))
	if errors.Is(err, errNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

// ReadSnapshot returns the snapshot for (userID, date), or nil.
func (s *Store) ReadSnapshot(ctx context.Context, userID int64, date domain.Date) (*domain.Snapshot, error) {
	return s.querySnapshot(ctx, "where user_id = $1 and record_date = $2::date", userID, string(date))
}

// LatestSnapshotBefore returns the newest snapshot dated before date, or nil.
func (s *Store) LatestSnapshotBefore(ctx context.Context, userID int64, date domain.Date) (*domain.Snapshot, error) {
	return s.querySnapshot(ctx,
		"where user_id = $1 and record_date < $2::date order by record_date desc limit 1", userID, string(date))
}

// ListSnapshots returns snapshots dated on or after from, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, userID int64, from domain.Date) ([]domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		"select "+snapshotSelect+" from asset_history where user_id = $1 and record_date >= $2::date order by record_date",
		userID, string(from))
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
	return out, rows.Err()
}

// UpsertSnapshot inserts the row or, on conflict, updates only the current
// columns. The prev columns keep the values of the first write of the day.
func (s *Store) UpsertSnapshot(ctx context.Context, snap domain.Snapshot) (*domain.Snapshot, error) {
	cols := append(append([]string{"user_id", "record_date"}, currentColumns...), prevColumns...)
	values := make([]string, len(cols))
	args := []interface{}{snap.UserID, string(snap.Date)}
	values[0], values[1] = "$1", "$2::date"
	for _, c := range domain.AllAssetClasses {
		args = append(args, snap.Value(c).String())
	}
	args = append(args, snap.Total.String())
	for _, c := range domain.AllAssetClasses {
		args = append(args, snap.PrevValue(c).String())
	}
	args = append(args, snap.PrevTotal.String())
	for i := 2; i < len(cols); i++ {
		values[i] = fmt.Sprintf("$%d::numeric", i+1)
	}

	set := make([]string, 0, len(currentColumns)+1)
	for _, c := range currentColumns {
		set = append(set, c+" = excluded."+c)
	}
	set = append(set, "updated_at = now()")

	query := "insert into asset_history (" + strings.Join(cols, ", ") + ") values (" + strings.Join(values, ", ") + ")" +
		" on conflict (user_id, record_date) do update set " + strings.Join(set, ", ") +
		" returning " + snapshotSelect

	saved, err := scanSnapshot(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return saved, nil
}
