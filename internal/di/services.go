package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/clientdata"
	"github.com/aristath/holdings/internal/clients/exchangerate"
	"github.com/aristath/holdings/internal/clients/minkabu"
	"github.com/aristath/holdings/internal/clients/rakuten"
	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/clients/tanaka"
	"github.com/aristath/holdings/internal/clients/yahoo"
	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/events"
	"github.com/aristath/holdings/internal/modules/portfolio"
	"github.com/aristath/holdings/internal/modules/quotes"
	"github.com/aristath/holdings/internal/modules/snapshots"
	"github.com/aristath/holdings/internal/modules/valuation"
	"github.com/aristath/holdings/internal/quotecache"
)

// InitializeRepositories creates the stores over the open databases.
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.CacheDB == nil {
		return fmt.Errorf("cache database not initialized")
	}
	container.LastQuoteRepo = clientdata.NewRepository(container.CacheDB.Conn(), cfg.Fetch.LastKnownKeep)

	switch {
	case container.Postgres != nil:
		container.Store = container.Postgres
	case container.HoldingsDB != nil:
		container.Store = portfolio.NewRepository(container.HoldingsDB.Conn(), log)
	default:
		return fmt.Errorf("no holdings store initialized")
	}
	return nil
}

// InitializeServices builds the quote sources and the valuation pipeline.
func InitializeServices(container *Container, cfg *config.Config, sources config.Sources, log zerolog.Logger) error {
	container.Session = scrape.NewSession(cfg.Fetch.HTTPTimeout, log)
	if cfg.Fetch.HumanizeOff {
		container.Humanizer = scrape.NoDelay{}
	} else {
		container.Humanizer = scrape.NewRandomHumanizer(cfg.Fetch.HumanizeMin, cfg.Fetch.HumanizeMax)
	}

	// The registry pauses before each fetch; the clients only take their
	// user agent from the humanizer.
	h := container.Humanizer
	container.YahooClient = yahoo.NewClient(container.Session, h, "", log)

	container.QuoteCache = quotecache.New(cfg.Fetch.CacheTTL)
	container.Registry = quotes.NewRegistry(container.QuoteCache, container.Humanizer, log)
	container.Registry.SetLastKnownStore(container.LastQuoteRepo)
	container.Registry.Register(yahoo.NewDomesticSource(container.YahooClient))
	container.Registry.Register(yahoo.NewForeignSource(container.YahooClient))
	container.Registry.Register(tanaka.NewSource(container.Session, h, "", log))
	container.Registry.Register(minkabu.NewSource(container.Session, h, "", sources.Crypto, log))
	container.Registry.Register(rakuten.NewSource(container.Session, h, "", sources.Funds, log))

	container.Coordinator = quotes.NewCoordinator(container.Registry, quotes.CoordinatorConfig{
		Workers:      cfg.Fetch.Workers,
		TaskTimeout:  cfg.Fetch.TaskTimeout,
		BatchTimeout: cfg.Fetch.BatchTimeout,
	}, log)
	rates := quotes.RateChain{
		container.YahooClient,
		exchangerate.NewClient(container.Session, h, "", log),
	}
	container.FX = quotes.NewFXService(rates, container.QuoteCache, container.LastQuoteRepo, cfg.Fetch.FallbackRate, log)

	container.Engine = valuation.NewEngine()
	container.EventHub = events.NewHub(log)
	container.EventHub.SetOriginPatterns(cfg.WSOriginPatterns)
	container.SnapshotService = snapshots.NewService(
		container.Store,
		container.Store,
		container.FX,
		container.Engine,
		cfg.Snapshot.Location(),
		database.RetryPolicy{Attempts: cfg.Snapshot.RetryAttempts, Backoff: cfg.Snapshot.RetryBackoff},
		log,
	)
	container.PortfolioService = portfolio.NewService(
		container.Store,
		container.Coordinator,
		container.FX,
		container.Engine,
		container.SnapshotService,
		container.EventHub,
		log,
	)

	return nil
}
