// Package snapshots records the daily per-user valuation snapshot and serves
// snapshot history.
package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/valuation"
)

// DefaultHistoryDays is the history window used when none is requested.
const DefaultHistoryDays = 365

// RateProvider returns the USD/JPY rate. It must not fail.
type RateProvider interface {
	USDJPY(ctx context.Context) decimal.Decimal
}

// Service computes and persists snapshots.
type Service struct {
	positions domain.PositionReader
	store     domain.SnapshotStore
	fx        RateProvider
	engine    *valuation.Engine
	loc       *time.Location
	retry     database.RetryPolicy
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a snapshot service. loc is the reporting timezone that
// decides which calendar day a snapshot belongs to.
func NewService(
	positions domain.PositionReader,
	store domain.SnapshotStore,
	fx RateProvider,
	engine *valuation.Engine,
	loc *time.Location,
	retry database.RetryPolicy,
	log zerolog.Logger,
) *Service {
	return &Service{
		positions: positions,
		store:     store,
		fx:        fx,
		engine:    engine,
		loc:       loc,
		retry:     retry,
		now:       time.Now,
		log:       log.With().Str("service", "snapshots").Logger(),
	}
}

// Today returns the current date in the reporting timezone.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.now(), s.loc)
}

// RecordSnapshot values the user's positions at their stored prices and upserts
// today's snapshot. The previous fields come from yesterday's snapshot, or are
// today's own values when there is none. A second write on the same day only
// replaces the current fields.
//
// Storage failures are retried with exponential backoff; once the attempts are
// exhausted the returned error matches domain.ErrStorageUnavailable.
func (s *Service) RecordSnapshot(ctx context.Context, userID int64) (*domain.Snapshot, error) {
	rate := s.fx.USDJPY(ctx)
	today := s.Today()

	var saved *domain.Snapshot
	err := database.Retry(ctx, s.retry, s.log, "record snapshot", func() error {
		positions, err := s.positions.ListPositions(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list positions: %w", err)
		}

		summary := s.engine.Summarize(userID, positions, rate, nil)

		yesterday, err := s.store.ReadSnapshot(ctx, userID, today.AddDays(-1))
		if err != nil {
			return fmt.Errorf("failed to read previous snapshot: %w", err)
		}

		saved, err = s.store.UpsertSnapshot(ctx, buildSnapshot(userID, today, summary, yesterday))
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Str("date", today.String()).Msg("Snapshot not recorded")
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	change, _ := saved.TotalDayChange()
	s.log.Info().
		Int64("user_id", userID).
		Str("date", saved.Date.String()).
		Str("total", saved.Total.String()).
		Str("day_change", change.String()).
		Msg("Snapshot recorded")

	return saved, nil
}

func buildSnapshot(userID int64, date domain.Date, summary domain.Summary, yesterday *domain.Snapshot) domain.Snapshot {
	snap := domain.NewSnapshot(userID, date)
	values, total := valuation.Values(summary)
	for class, v := range values {
		snap.Values[class] = v
	}
	snap.Total = total

	if yesterday == nil {
		for class, v := range values {
			snap.PrevValues[class] = v
		}
		snap.PrevTotal = total
		return snap
	}

	for _, class := range domain.AllAssetClasses {
		snap.PrevValues[class] = yesterday.Value(class)
	}
	snap.PrevTotal = yesterday.Total
	return snap
}

// Previous returns the most recent snapshot dated before today, or nil.
func (s *Service) Previous(ctx context.Context, userID int64) (*domain.Snapshot, error) {
	snap, err := s.store.LatestSnapshotBefore(ctx, userID, s.Today())
	if err != nil {
		return nil, fmt.Errorf("failed to read previous snapshot: %w", err)
	}
	return snap, nil
}

// History returns the snapshots of the last days days, oldest first.
// A non-positive days selects DefaultHistoryDays.
func (s *Service) History(ctx context.Context, userID int64, days int) ([]domain.Snapshot, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	from := s.Today().AddDays(-(days - 1))
	snaps, err := s.store.ListSnapshots(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}
