package di

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/portfolio"
	"github.com/aristath/holdings/internal/scheduler"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOLDINGS_DATA_DIR", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HUMANIZE_DISABLED", "true")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestWire_SQLite(t *testing.T) {
	cfg := loadTestConfig(t)

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, container.HoldingsDB)
	require.NotNil(t, container.CacheDB)
	assert.Nil(t, container.Postgres)
	assert.IsType(t, &portfolio.Repository{}, container.Store)
	assert.Len(t, container.SQLiteDatabases(), 2)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.SnapshotService)
	assert.NoError(t, container.HealthCheck(context.Background()))
}

func TestWire_StoreRoundTrip(t *testing.T) {
	cfg := loadTestConfig(t)
	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	ctx := context.Background()
	userID, err := container.Store.AddUser(ctx, "alice")
	require.NoError(t, err)
	_, err = container.Store.AddPosition(ctx, domain.Position{
		UserID:   userID,
		Class:    domain.AssetClassCash,
		Symbol:   "JPY",
		Quantity: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	// Cash needs no quote; seeding the rate keeps the test off the network.
	container.QuoteCache.Set(domain.FXCacheKey, domain.Quote{
		Class: domain.FXClass, Symbol: domain.FXSymbol, Price: decimal.NewFromInt(150), FetchedAt: time.Now(),
	})
	summary, err := container.PortfolioService.GetLiveTotals(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "1000", summary.Total.String())
}

func TestWire_InvalidSourcesFile(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.SourcesFile = "/nonexistent/sources.yaml"

	_, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.KeepAliveURL = "http://localhost:8001/ping"
	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	sched := scheduler.New(time.UTC, zerolog.Nop())
	jobs, err := RegisterJobs(context.Background(), container, cfg, sched, zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, jobs.DailyRefresh)
	assert.NotNil(t, jobs.CacheSweep)
	assert.NotNil(t, jobs.Cleanup)
	assert.NotNil(t, jobs.Maintenance)
	assert.NotNil(t, jobs.KeepAlive)
	assert.Nil(t, jobs.Backup)
}

func TestRegisterJobs_BadSchedule(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Snapshot.Schedule = "not a schedule"
	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	_, err = RegisterJobs(context.Background(), container, cfg, scheduler.New(time.UTC, zerolog.Nop()), zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs_NilContainer(t *testing.T) {
	_, err := RegisterJobs(context.Background(), nil, &config.Config{}, nil, zerolog.Nop())
	assert.Error(t, err)
}
