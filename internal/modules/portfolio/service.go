package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/events"
	"github.com/aristath/holdings/internal/modules/valuation"
	"github.com/aristath/holdings/internal/utils"
)

// PriceFetcher fetches quotes for a batch of positions. It never fails;
// positions without a quote are simply absent from the result.
type PriceFetcher interface {
	FetchMany(ctx context.Context, positions []domain.Position) []domain.PriceUpdate
}

// RateProvider returns the USD/JPY rate. It must not fail.
type RateProvider interface {
	USDJPY(ctx context.Context) decimal.Decimal
}

// SnapshotRecorder persists the daily snapshot and reads the previous one.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, userID int64) (*domain.Snapshot, error)
	Previous(ctx context.Context, userID int64) (*domain.Snapshot, error)
}

// Publisher receives pipeline events.
type Publisher interface {
	Publish(userID int64, module string, data events.EventData)
}

// RefreshResult counts the quotable positions of a refresh and how many got a new price.
type RefreshResult struct {
	Requested int `json:"requested"`
	Updated   int `json:"updated"`
}

// Message renders the result for display.
func (r RefreshResult) Message() string {
	return fmt.Sprintf("%d of %d updated", r.Updated, r.Requested)
}

// RunSummary aggregates a refresh over all users.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Users     int    `json:"users"`
	Requested int    `json:"requested"`
	Updated   int    `json:"updated"`
	Failed    int    `json:"failed"`
}

// DefaultPersistTimeout bounds the writes that follow a fetch.
const DefaultPersistTimeout = 30 * time.Second

// Service runs the price refresh and valuation pipeline for users.
type Service struct {
	store          domain.Store
	fetcher        PriceFetcher
	fx             RateProvider
	engine         *valuation.Engine
	snapshots      SnapshotRecorder
	publisher      Publisher
	persistTimeout time.Duration
	log            zerolog.Logger
}

// NewService creates the portfolio service. publisher may be nil.
func NewService(
	store domain.Store,
	fetcher PriceFetcher,
	fx RateProvider,
	engine *valuation.Engine,
	snapshots SnapshotRecorder,
	publisher Publisher,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:          store,
		fetcher:        fetcher,
		fx:             fx,
		engine:         engine,
		snapshots:      snapshots,
		publisher:      publisher,
		persistTimeout: DefaultPersistTimeout,
		log:            log.With().Str("service", "portfolio").Logger(),
	}
}

// persistContext detaches ctx from its caller's deadline so fetched quotes
// and the snapshot built from them are still written after the request
// context expires. The write gets its own persistTimeout.
func (s *Service) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
}

// GetLiveTotals values the user's positions at their stored prices against the
// latest snapshot before today. Nothing is fetched or persisted.
func (s *Service) GetLiveTotals(ctx context.Context, userID int64) (*domain.Summary, error) {
	positions, err := s.store.ListPositions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	prev, err := s.snapshots.Previous(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := s.engine.Summarize(userID, positions, s.fx.USDJPY(ctx), prev)
	return &summary, nil
}

// RefreshPrices fetches quotes for the user's quotable positions, optionally
// limited to one class, and writes prices and names back. Failed lookups only
// lower the Updated count.
func (s *Service) RefreshPrices(ctx context.Context, userID int64, class *domain.AssetClass) (RefreshResult, error) {
	positions, err := s.store.ListPositions(ctx, userID)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("failed to list positions: %w", err)
	}

	var quotable []domain.Position
	for _, p := range positions {
		if !p.Class.Quoted() {
			continue
		}
		if class != nil && p.Class != *class {
			continue
		}
		quotable = append(quotable, p)
	}
	if len(quotable) == 0 {
		return RefreshResult{}, nil
	}

	result := RefreshResult{Requested: len(quotable)}
	updates := s.fetcher.FetchMany(ctx, quotable)
	if len(updates) > 0 {
		if ctx.Err() != nil {
			s.log.Warn().Int64("user_id", userID).Int("quotes", len(updates)).
				Msg("Fetch deadline reached, saving completed quotes")
		}
		writeCtx, cancel := s.persistContext(ctx)
		n, err := s.store.ApplyPriceUpdates(writeCtx, updates)
		cancel()
		if err != nil {
			return result, fmt.Errorf("%w: failed to write prices: %w", domain.ErrStorageUnavailable, err)
		}
		result.Updated = n
	}

	logEvent := s.log.Info().
		Int64("user_id", userID).
		Int("requested", result.Requested).
		Int("updated", result.Updated)
	if class != nil {
		logEvent = logEvent.Str("asset_type", string(*class))
	}
	logEvent.Msg(result.Message())

	data := &events.PricesUpdatedData{Requested: result.Requested, Updated: result.Updated}
	if class != nil {
		data.Class = string(*class)
	}
	s.publish(userID, data)

	return result, nil
}

// RefreshAndSnapshot refreshes every quotable position and then records
// today's snapshot from the stored prices.
func (s *Service) RefreshAndSnapshot(ctx context.Context, userID int64) (RefreshResult, *domain.Snapshot, error) {
	result, err := s.RefreshPrices(ctx, userID, nil)
	if err != nil {
		return result, nil, err
	}

	writeCtx, cancel := s.persistContext(ctx)
	defer cancel()
	snap, err := s.snapshots.RecordSnapshot(writeCtx, userID)
	if err != nil {
		s.publish(userID, &events.ErrorEventData{Error: err.Error()})
		return result, nil, err
	}

	change, _ := snap.TotalDayChange()
	s.publish(userID, &events.SnapshotRecordedData{
		Date:      snap.Date.String(),
		Total:     snap.Total.String(),
		DayChange: change.String(),
	})
	return result, snap, nil
}

// RefreshAll runs RefreshAndSnapshot for every user. A failing user does not
// stop the run; the returned error joins every failure.
func (s *Service) RefreshAll(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	log := s.log.With().Str("run_id", summary.RunID).Logger()
	defer utils.OperationTimer("refresh_all", log)()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list users: %w", err)
	}
	summary.Users = len(users)

	var errs []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, _, err := s.RefreshAndSnapshot(ctx, u.ID)
		summary.Requested += result.Requested
		summary.Updated += result.Updated
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("user %d: %w", u.ID, err))
			log.Error().Err(err).Int64("user_id", u.ID).Str("username", u.Username).Msg("Refresh failed")
		}
	}

	log.Info().
		Int("users", summary.Users).
		Int("requested", summary.Requested).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Msg("Refresh run completed")

	s.publish(0, &events.RefreshCompletedData{
		RunID:     summary.RunID,
		Users:     summary.Users,
		Requested: summary.Requested,
		Updated:   summary.Updated,
		Failed:    summary.Failed,
	})

	return summary, errors.Join(errs...)
}

func (s *Service) publish(userID int64, data events.EventData) {
	if s.publisher != nil {
		s.publisher.Publish(userID, "portfolio", data)
	}
}
