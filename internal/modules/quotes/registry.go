// Package quotes resolves unit prices for positions through the shared cache
// and the per-class source adapters.
package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/quotecache"
)

// Source fetches live quotes for a single asset class.
type Source interface {
	Class() domain.AssetClass
	Fetch(ctx context.Context, symbol string) (domain.Quote, error)
}

// Allowlisted is implemented by sources that only serve a fixed symbol set.
type Allowlisted interface {
	Supports(symbol string) bool
}

// LastKnownStore persists the most recent successful quote per cache key so
// that a stale value survives restarts and cache expiry.
type LastKnownStore interface {
	Put(ctx context.Context, quote domain.Quote) error
	Get(ctx context.Context, key string) (*domain.Quote, error)
}

// Registry dispatches lookups to the source registered for each class.
type Registry struct {
	sources   map[domain.AssetClass]Source
	cache     *quotecache.Cache
	humanizer scrape.Humanizer
	lastKnown LastKnownStore
	now       func() time.Time
	log       zerolog.Logger
}

// NewRegistry creates a registry over cache. humanizer is paused before every
// outbound fetch.
func NewRegistry(cache *quotecache.Cache, humanizer scrape.Humanizer, log zerolog.Logger) *Registry {
	return &Registry{
		sources:   make(map[domain.AssetClass]Source),
		cache:     cache,
		humanizer: humanizer,
		now:       time.Now,
		log:       log.With().Str("component", "quote_registry").Logger(),
	}
}

// Register adds a source, replacing any previous source for the same class.
func (r *Registry) Register(src Source) {
	r.sources[src.Class()] = src
}

// SetLastKnownStore enables persistence of successful quotes.
func (r *Registry) SetLastKnownStore(store LastKnownStore) {
	r.lastKnown = store
}

// Cache returns the shared quote cache.
func (r *Registry) Cache() *quotecache.Cache {
	return r.cache
}

// Lookup returns the quote for class and symbol, serving from the cache while
// the entry is fresh. Cash and insurance are rejected with ErrNotQuoted and
// allow-listed sources reject unknown symbols before any network I/O.
func (r *Registry) Lookup(ctx context.Context, class domain.AssetClass, symbol string) (domain.Quote, error) {
	if !class.Quoted() {
		return domain.Quote{}, domain.NewQuoteError(class, symbol, domain.ErrNotQuoted)
	}

	key := domain.CacheKey(class, symbol)
	if q, ok := r.cache.Get(key); ok {
		return q, nil
	}

	src, ok := r.sources[class]
	if !ok {
		return domain.Quote{}, domain.NewQuoteError(class, symbol,
			fmt.Errorf("%w: no source registered", domain.ErrQuoteUnavailable))
	}

	if a, ok := src.(Allowlisted); ok && !a.Supports(symbol) {
		return domain.Quote{}, domain.NewQuoteError(class, symbol, domain.ErrUnsupportedSymbol)
	}

	if err := r.humanizer.Pause(ctx); err != nil {
		return domain.Quote{}, domain.NewQuoteError(class, symbol, err)
	}

	q, err := src.Fetch(ctx, symbol)
	if err != nil {
		return domain.Quote{}, domain.NewQuoteError(class, symbol, err)
	}

	// Sources may normalize the symbol; the cache is keyed by what was asked for.
	q.Class = class
	q.Symbol = symbol
	if q.FetchedAt.IsZero() {
		q.FetchedAt = r.now()
	}

	r.cache.Set(key, q)
	r.remember(ctx, q)

	return q, nil
}

func (r *Registry) remember(ctx context.Context, q domain.Quote) {
	if r.lastKnown == nil {
		return
	}
	if err := r.lastKnown.Put(ctx, q); err != nil {
		r.log.Warn().Err(err).Str("key", q.CacheKey()).Msg("Failed to persist last known quote")
	}
}
