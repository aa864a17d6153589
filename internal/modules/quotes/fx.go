package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/quotecache"
)

// DefaultUSDJPY is the rate used when no live or stored rate exists.
var DefaultUSDJPY = decimal.NewFromInt(150)

// RateSource returns the live USD/JPY rate.
type RateSource interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// RateChain tries each source in order and returns the first positive rate.
type RateChain []RateSource

// Rate implements RateSource.
func (c RateChain) Rate(ctx context.Context) (decimal.Decimal, error) {
	var errs []error
	for _, src := range c {
		rate, err := src.Rate(ctx)
		if err == nil && rate.IsPositive() {
			return rate, nil
		}
		if err == nil {
			err = fmt.Errorf("non-positive rate %s", rate)
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return decimal.Zero, fmt.Errorf("%w: no rate sources", domain.ErrQuoteUnavailable)
	}
	return decimal.Zero, errors.Join(errs...)
}

// FXService resolves the USD/JPY conversion rate.
type FXService struct {
	source    RateSource
	cache     *quotecache.Cache
	lastKnown LastKnownStore
	fallback  decimal.Decimal
	now       func() time.Time
	log       zerolog.Logger
}

// NewFXService creates the rate service. lastKnown may be nil; a non-positive
// fallback selects DefaultUSDJPY.
func NewFXService(source RateSource, cache *quotecache.Cache, lastKnown LastKnownStore, fallback decimal.Decimal, log zerolog.Logger) *FXService {
	if !fallback.IsPositive() {
		fallback = DefaultUSDJPY
	}
	return &FXService{
		source:    source,
		cache:     cache,
		lastKnown: lastKnown,
		fallback:  fallback,
		now:       time.Now,
		log:       log.With().Str("service", "fx").Logger(),
	}
}

// USDJPY returns the rate from the cache, a live fetch, the last persisted
// rate, or the fallback, in that order. It never fails.
func (s *FXService) USDJPY(ctx context.Context) decimal.Decimal {
	if q, ok := s.cache.Get(domain.FXCacheKey); ok {
		return q.Price
	}

	rate, err := s.source.Rate(ctx)
	if err == nil && rate.IsPositive() {
		q := domain.Quote{
			Class:     domain.FXClass,
			Symbol:    domain.FXSymbol,
			Price:     rate,
			Name:      "USD/JPY",
			FetchedAt: s.now(),
		}
		s.cache.Set(domain.FXCacheKey, q)
		if s.lastKnown != nil {
			if perr := s.lastKnown.Put(ctx, q); perr != nil {
				s.log.Warn().Err(perr).Msg("Failed to persist exchange rate")
			}
		}
		return rate
	}
	if err == nil {
		s.log.Warn().Str("rate", rate.String()).Msg("Ignoring non-positive exchange rate")
	} else {
		s.log.Warn().Err(err).Msg("Exchange rate fetch failed")
	}

	if s.lastKnown != nil {
		q, lerr := s.lastKnown.Get(ctx, domain.FXCacheKey)
		if lerr != nil {
			s.log.Warn().Err(lerr).Msg("Failed to read last known exchange rate")
		} else if q != nil && q.Price.IsPositive() {
			s.log.Info().
				Str("rate", q.Price.String()).
				Time("fetched_at", q.FetchedAt).
				Msg("Using last known exchange rate")
			return q.Price
		}
	}

	s.log.Warn().Str("rate", s.fallback.String()).Msg("Using fallback exchange rate")
	return s.fallback
}
