package clientdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/domain"
)

const testSchema = `
CREATE TABLE last_quotes (
    quote_key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    fetched_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func newTestRepo(t *testing.T, now time.Time) *Repository {
	repo := NewRepository(setupTestDB(t), 24*time.Hour)
	repo.now = func() time.Time { return now }
	return repo
}

func btcQuote(at time.Time) domain.Quote {
	return domain.Quote{
		Class:     domain.AssetClassCrypto,
		Symbol:    "BTC",
		Price:     decimal.RequireFromString("10512345.68"),
		Name:      "ビットコイン",
		FetchedAt: at,
	}
}

func TestPutAndGet(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, now)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, btcQuote(now)))

	q, err := repo.GetIfFresh(ctx, "crypto:BTC")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "10512345.68", q.Price.String())
	assert.Equal(t, "ビットコイン", q.Name)
	assert.Equal(t, domain.AssetClassCrypto, q.Class)
	assert.True(t, q.FetchedAt.Equal(now))
}

func TestPut_Replaces(t *testing.T) {
	now := time.Now()
	repo := newTestRepo(t, now)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, btcQuote(now)))
	newer := btcQuote(now)
	newer.Price = decimal.NewFromInt(11000000)
	require.NoError(t, repo.Put(ctx, newer))

	q, err := repo.Get(ctx, "crypto:BTC")
	require.NoError(t, err)
	assert.Equal(t, "11000000", q.Price.String())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGet_Missing(t *testing.T) {
	repo := newTestRepo(t, time.Now())
	q, err := repo.Get(context.Background(), "fx:USDJPY")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestGetIfFresh_IgnoresExpired(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, now)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, btcQuote(now.Add(-48*time.Hour))))

	fresh, err := repo.GetIfFresh(ctx, "crypto:BTC")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get(ctx, "crypto:BTC")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, "10512345.68", stale.Price.String())
}

func TestCleanupJob_DeletesExpired(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	repo := newTestRepo(t, now)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, btcQuote(now.Add(-48*time.Hour))))
	require.NoError(t, repo.Put(ctx, domain.Quote{
		Class: domain.FXClass, Symbol: domain.FXSymbol, Price: decimal.RequireFromString("151.2"), FetchedAt: now,
	}))

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "last_quote_cleanup", job.Name())
	require.NoError(t, job.Run())

	remaining, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, domain.FXCacheKey, remaining[0].CacheKey())
}
