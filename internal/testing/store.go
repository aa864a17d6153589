package testing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aristath/holdings/internal/domain"
)

// ErrInjected is returned by MemoryStore when a failure was requested.
var ErrInjected = errors.New("injected storage failure")

// MemoryStore is an in-memory domain.Store with the same upsert semantics as
// the sqlite and postgres stores.
type MemoryStore struct {
	mu        sync.Mutex
	users     []domain.User
	positions map[int64]domain.Position
	snapshots map[int64]map[domain.Date]domain.Snapshot
	nextID    int64

	// FailUpserts makes the next n UpsertSnapshot calls fail.
	FailUpserts int
	// Upserts counts UpsertSnapshot calls, failed ones included.
	Upserts int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[int64]domain.Position),
		snapshots: make(map[int64]map[domain.Date]domain.Snapshot),
	}
}

// AddUser registers a user and returns its id.
func (m *MemoryStore) AddUser(username string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.users) + 1)
	m.users = append(m.users, domain.User{ID: id, Username: username})
	return id
}

// AddPositions stores positions, assigning ids, and returns them.
func (m *MemoryStore) AddPositions(positions ...domain.Position) []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, len(positions))
	for i, p := range positions {
		m.nextID++
		p.ID = m.nextID
		m.positions[p.ID] = p
		out[i] = p
	}
	return out
}

// PutSnapshot stores s verbatim.
func (m *MemoryStore) PutSnapshot(s domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(s)
}

func (m *MemoryStore) putLocked(s domain.Snapshot) {
	if m.snapshots[s.UserID] == nil {
		m.snapshots[s.UserID] = make(map[domain.Date]domain.Snapshot)
	}
	m.snapshots[s.UserID][s.Date] = s
}

func (m *MemoryStore) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.User(nil), m.users...), nil
}

func (m *MemoryStore) ListPositions(_ context.Context, userID int64) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, p := range m.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ApplyPriceUpdates(_ context.Context, updates []domain.PriceUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range updates {
		p, ok := m.positions[u.PositionID]
		if !ok {
			continue
		}
		p.Price = u.Quote.Price
		if u.Quote.Name != "" {
			p.Name = u.Quote.Name
		}
		m.positions[p.ID] = p
		n++
	}
	return n, nil
}

func (m *MemoryStore) ReadSnapshot(_ context.Context, userID int64, date domain.Date) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[userID][date]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) LatestSnapshotBefore(_ context.Context, userID int64, date domain.Date) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.Snapshot
	for d, s := range m.snapshots[userID] {
		if d < date && (best == nil || d > best.Date) {
			s := s
			best = &s
		}
	}
	return best, nil
}

func (m *MemoryStore) UpsertSnapshot(_ context.Context, snap domain.Snapshot) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Upserts++
	if m.FailUpserts > 0 {
		m.FailUpserts--
		return nil, ErrInjected
	}

	now := time.Now()
	if existing, ok := m.snapshots[snap.UserID][snap.Date]; ok {
		existing.Values = snap.Values
		existing.Total = snap.Total
		existing.UpdatedAt = now
		m.putLocked(existing)
		return &existing, nil
	}
	snap.CreatedAt, snap.UpdatedAt = now, now
	m.putLocked(snap)
	return &snap, nil
}

func (m *MemoryStore) ListSnapshots(_ context.Context, userID int64, from domain.Date) ([]domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Snapshot
	for d, s := range m.snapshots[userID] {
		if d >= from {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
