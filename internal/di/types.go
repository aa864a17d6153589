// Package di wires databases, clients, services and jobs into a Container.
package di

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/clientdata"
	"github.com/aristath/holdings/internal/clients/scrape"
	"github.com/aristath/holdings/internal/clients/yahoo"
	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/events"
	"github.com/aristath/holdings/internal/modules/portfolio"
	"github.com/aristath/holdings/internal/modules/quotes"
	"github.com/aristath/holdings/internal/modules/snapshots"
	"github.com/aristath/holdings/internal/modules/valuation"
	"github.com/aristath/holdings/internal/quotecache"
	"github.com/aristath/holdings/internal/storage/postgres"
)

// HoldingsStore is the persistence surface used by services and the CLI.
type HoldingsStore interface {
	domain.Store
	AddUser(ctx context.Context, username string) (int64, error)
	AddPosition(ctx context.Context, p domain.Position) (int64, error)
}

// Container holds every long-lived dependency of a holdings process.
type Container struct {
	// Databases
	// HoldingsDB is nil when PostgreSQL backs the store.
	HoldingsDB *database.DB
	CacheDB    *database.DB
	Postgres   *postgres.Store

	// Repositories
	Store         HoldingsStore
	LastQuoteRepo *clientdata.Repository

	// Clients
	Session     *scrape.Session
	Humanizer   scrape.Humanizer
	YahooClient *yahoo.Client

	// Quote layer
	QuoteCache  *quotecache.Cache
	Registry    *quotes.Registry
	Coordinator *quotes.Coordinator
	FX          *quotes.FXService

	// Services
	Engine           *valuation.Engine
	SnapshotService  *snapshots.Service
	PortfolioService *portfolio.Service
	EventHub         *events.Hub

	log zerolog.Logger
}

// Close releases every open database.
func (c *Container) Close() {
	if c.HoldingsDB != nil {
		if err := c.HoldingsDB.Close(); err != nil {
			c.log.Warn().Err(err).Msg("Failed to close holdings database")
		}
	}
	if c.CacheDB != nil {
		if err := c.CacheDB.Close(); err != nil {
			c.log.Warn().Err(err).Msg("Failed to close cache database")
		}
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}
}

// SQLiteDatabases returns the open sqlite databases, holdings first.
func (c *Container) SQLiteDatabases() []*database.DB {
	var dbs []*database.DB
	if c.HoldingsDB != nil {
		dbs = append(dbs, c.HoldingsDB)
	}
	if c.CacheDB != nil {
		dbs = append(dbs, c.CacheDB)
	}
	return dbs
}

// HealthCheck probes the primary store.
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.Postgres != nil {
		return c.Postgres.Ping(ctx)
	}
	return c.HoldingsDB.HealthCheck(ctx)
}
