package domain

import "context"

// PositionReader reads users and their holdings.
type PositionReader interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListPositions(ctx context.Context, userID int64) ([]Position, error)
}

// PriceWriter writes fetched prices and display names back to positions.
type PriceWriter interface {
	// ApplyPriceUpdates stores every update in one transaction and
	// returns the number of positions changed.
	ApplyPriceUpdates(ctx context.Context, updates []PriceUpdate) (int, error)
}

// SnapshotStore persists daily snapshots.
type SnapshotStore interface {
	// ReadSnapshot returns nil, nil if no snapshot exists for the date.
	ReadSnapshot(ctx context.Context, userID int64, date Date) (*Snapshot, error)

	// LatestSnapshotBefore returns the most recent snapshot dated strictly before date,
	// or nil, nil if there is none.
	LatestSnapshotBefore(ctx context.Context, userID int64, date Date) (*Snapshot, error)

	// UpsertSnapshot inserts the row for (UserID, Date) or, if one exists, overwrites only
	// its current-value fields. The read and the write happen in a single transaction.
	// It returns the row as persisted.
	UpsertSnapshot(ctx context.Context, snap Snapshot) (*Snapshot, error)

	// ListSnapshots returns snapshots on or after from, ordered by date ascending.
	ListSnapshots(ctx context.Context, userID int64, from Date) ([]Snapshot, error)
}

// Store is the full storage contract consumed by the valuation pipeline.
type Store interface {
	PositionReader
	PriceWriter
	SnapshotStore
}
