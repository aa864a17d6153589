package quotes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/holdings/internal/domain"
)

// Defaults for CoordinatorConfig.
const (
	DefaultWorkers      = 5
	DefaultTaskTimeout  = 15 * time.Second
	DefaultBatchTimeout = 180 * time.Second
)

// Lookuper resolves a single quote. Registry is the production implementation.
type Lookuper interface {
	Lookup(ctx context.Context, class domain.AssetClass, symbol string) (domain.Quote, error)
}

// CoordinatorConfig bounds a batch fetch.
type CoordinatorConfig struct {
	Workers      int
	TaskTimeout  time.Duration
	BatchTimeout time.Duration
}

// Coordinator fetches quotes for many positions concurrently.
type Coordinator struct {
	lookup Lookuper
	cfg    CoordinatorConfig
	log    zerolog.Logger
}

// NewCoordinator creates a coordinator. Zero config fields take the defaults.
func NewCoordinator(lookup Lookuper, cfg CoordinatorConfig, log zerolog.Logger) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	return &Coordinator{
		lookup: lookup,
		cfg:    cfg,
		log:    log.With().Str("component", "fetch_coordinator").Logger(),
	}
}

// fetchTask is one distinct (class, symbol) pair and the positions holding it.
type fetchTask struct {
	class     domain.AssetClass
	symbol    string
	positions []int64
}

func groupTasks(positions []domain.Position) ([]*fetchTask, int) {
	var tasks []*fetchTask
	byKey := make(map[string]*fetchTask)
	requested := 0
	for _, p := range positions {
		if !p.Class.Quoted() {
			continue
		}
		requested++
		key := domain.CacheKey(p.Class, p.Symbol)
		t, ok := byKey[key]
		if !ok {
			t = &fetchTask{class: p.Class, symbol: p.Symbol}
			byKey[key] = t
			tasks = append(tasks, t)
		}
		t.positions = append(t.positions, p.ID)
	}
	return tasks, requested
}

// FetchMany looks up a quote for every quotable position and returns one
// update per position that succeeded, in completion order. Cash and insurance
// positions are skipped. Positions sharing a symbol share one lookup.
//
// Failures and timeouts are logged and omitted; FetchMany never fails. When the
// batch deadline passes it returns what has completed so far and discards
// later results.
func (c *Coordinator) FetchMany(ctx context.Context, positions []domain.Position) []domain.PriceUpdate {
	tasks, requested := groupTasks(positions)
	if len(tasks) == 0 {
		return nil
	}

	batchID := uuid.NewString()
	log := c.log.With().Str("batch_id", batchID).Logger()
	start := time.Now()

	batchCtx, cancel := context.WithTimeout(ctx, c.cfg.BatchTimeout)
	defer cancel()

	var (
		mu          sync.Mutex
		closed      bool
		updates     []domain.PriceUpdate
		failed      int
		unsupported int
		timedOut    int
	)

	var g errgroup.Group
	g.SetLimit(min(c.cfg.Workers, len(tasks)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, t := range tasks {
			if batchCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				taskCtx, cancelTask := context.WithTimeout(batchCtx, c.cfg.TaskTimeout)
				defer cancelTask()

				q, err := c.lookup.Lookup(taskCtx, t.class, t.symbol)

				mu.Lock()
				defer mu.Unlock()
				if closed {
					return nil
				}
				switch {
				case err == nil:
					for _, id := range t.positions {
						updates = append(updates, domain.PriceUpdate{PositionID: id, Quote: q})
					}
				case errors.Is(err, domain.ErrUnsupportedSymbol):
					unsupported += len(t.positions)
					log.Debug().Str("class", string(t.class)).Str("symbol", t.symbol).Msg("Symbol not supported")
				case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
					timedOut += len(t.positions)
					log.Warn().Str("class", string(t.class)).Str("symbol", t.symbol).Msg("Quote lookup timed out")
				default:
					failed += len(t.positions)
					log.Warn().Err(err).Str("class", string(t.class)).Str("symbol", t.symbol).Msg("Quote lookup failed")
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-batchCtx.Done():
	}

	mu.Lock()
	closed = true
	out := make([]domain.PriceUpdate, len(updates))
	copy(out, updates)
	pending := requested - len(out) - failed - unsupported - timedOut
	mu.Unlock()

	log.Info().
		Int("requested", requested).
		Int("symbols", len(tasks)).
		Int("updated", len(out)).
		Int("failed", failed).
		Int("unsupported", unsupported).
		Int("timed_out", timedOut+pending).
		Dur("duration", time.Since(start)).
		Msg("Quote batch finished")

	return out
}
