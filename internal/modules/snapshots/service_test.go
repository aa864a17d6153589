package snapshots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/database"
	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/internal/modules/valuation"
	testutil "github.com/aristath/holdings/internal/testing"
)

// MockPositionReader is a mock position reader for testing
type MockPositionReader struct {
	mock.Mock
}

func (m *MockPositionReader) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockPositionReader) ListPositions(ctx context.Context, userID int64) ([]domain.Position, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Position), args.Error(1)
}

type fixedRate decimal.Decimal

func (r fixedRate) USDJPY(context.Context) decimal.Decimal {
	return decimal.Decimal(r)
}

var jst = time.FixedZone("JST", 9*60*60)

func newTestService(t *testing.T, reader *MockPositionReader, store *testutil.MemoryStore, now time.Time) *Service {
	t.Helper()
	svc := NewService(reader, store, fixedRate(decimal.NewFromInt(150)), valuation.NewEngine(), jst,
		database.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func stockPositions(price int64) []domain.Position {
	return []domain.Position{
		{ID: 1, UserID: 1, Class: domain.AssetClassDomesticEquity, Symbol: "7203",
			Quantity: decimal.NewFromInt(100), Price: decimal.NewFromInt(price), AvgCost: decimal.NewFromInt(2000)},
		{ID: 2, UserID: 1, Class: domain.AssetClassCash, Symbol: "JPY",
			Quantity: decimal.NewFromInt(50000)},
	}
}

func TestRecordSnapshot_FirstDayCarriesForward(t *testing.T) {
	reader := &MockPositionReader{}
	reader.On("ListPositions", mock.Anything, int64(1)).Return(stockPositions(3000), nil)
	store := testutil.NewMemoryStore()
	// 2024-04-30 20:00 UTC is 2024-05-01 in JST.
	svc := newTestService(t, reader, store, time.Date(2024, 4, 30, 20, 0, 0, 0, time.UTC))

	snap, err := svc.RecordSnapshot(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.Date("2024-05-01"), snap.Date)
	assert.Equal(t, "350000", snap.Total.String())
	assert.Equal(t, "350000", snap.PrevTotal.String())
	change, rate := snap.TotalDayChange()
	assert.True(t, change.IsZero())
	assert.True(t, rate.IsZero())
	jpChange, _ := snap.DayChange(domain.AssetClassDomesticEquity)
	assert.True(t, jpChange.IsZero())
	reader.AssertExpectations(t)
}

func TestRecordSnapshot_UsesYesterday(t *testing.T) {
	reader := &MockPositionReader{}
	reader.On("ListPositions", mock.Anything, int64(1)).Return(stockPositions(3000), nil)
	store := testutil.NewMemoryStore()
	yesterday := domain.NewSnapshot(1, "2024-04-30")
	yesterday.Values[domain.AssetClassDomesticEquity] = decimal.NewFromInt(280000)
	yesterday.Values[domain.AssetClassCash] = decimal.NewFromInt(50000)
	yesterday.Total = decimal.NewFromInt(330000)
	store.PutSnapshot(yesterday)
	svc := newTestService(t, reader, store, time.Date(2024, 5, 1, 3, 0, 0, 0, jst))

	snap, err := svc.RecordSnapshot(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "330000", snap.PrevTotal.String())
	assert.Equal(t, "280000", snap.PrevValue(domain.AssetClassDomesticEquity).String())
	change, _ := snap.TotalDayChange()
	assert.Equal(t, "20000", change.String())
}

func TestRecordSnapshot_SameDayKeepsPrevious(t *testing.T) {
	reader := &MockPositionReader{}
	reader.On("ListPositions", mock.Anything, int64(1)).Return(stockPositions(3000), nil).Once()
	reader.On("ListPositions", mock.Anything, int64(1)).Return(stockPositions(3100), nil).Once()
	store := testutil.NewMemoryStore()
	svc := newTestService(t, reader, store, time.Date(2024, 5, 1, 12, 0, 0, 0, jst))

	first, err := svc.RecordSnapshot(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.RecordSnapshot(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "350000", first.Total.String())
	assert.Equal(t, "360000", second.Total.String())
	assert.Equal(t, first.PrevTotal.String(), second.PrevTotal.String())

	stored, err := store.ReadSnapshot(context.Background(), 1, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "360000", stored.Total.String())
	assert.Equal(t, "350000", stored.PrevTotal.String())
}

func TestRecordSnapshot_RetriesTransientFailures(t *testing.T) {
	reader := &MockPositionReader{}
	reader.On("ListPositions", mock.Anything, int64(1)).Return(stockPositions(3000), nil)
	store := testutil.NewMemoryStore()
	store.FailUpserts = 2
	svc := newTestService(t, reader, store, time.Date(2024, 5, 1, 12, 0, 0, 0, jst))

	snap, err := svc.RecordSnapshot(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, 3, store.Upserts)
}

func TestRecordSnapshot_ReportsExhaustedRetries(t *testing.T) {
	reader := &MockPositionReader{}
	reader.On("ListPositions", mock.Anything, int64(1)).Return(stockPositions(3000), nil)
	store := testutil.NewMemoryStore()
	store.FailUpserts = 10
	svc := newTestService(t, reader, store, time.Date(2024, 5, 1, 12, 0, 0, 0, jst))

	snap, err := svc.RecordSnapshot(context.Background(), 1)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
	assert.Equal(t, 3, store.Upserts)

	missing, _ := store.ReadSnapshot(context.Background(), 1, "2024-05-01")
	assert.Nil(t, missing)
}

func TestRecordSnapshot_PositionReadFailure(t *testing.T) {
	reader := &MockPositionReader{}
	reader.On("ListPositions", mock.Anything, int64(1)).Return(nil, errors.New("disk I/O error"))
	svc := newTestService(t, reader, testutil.NewMemoryStore(), time.Date(2024, 5, 1, 12, 0, 0, 0, jst))

	_, err := svc.RecordSnapshot(context.Background(), 1)
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable))
	reader.AssertNumberOfCalls(t, "ListPositions", 3)
}

func TestHistoryAndPrevious(t *testing.T) {
	store := testutil.NewMemoryStore()
	for i, date := range []domain.Date{"2024-04-01", "2024-04-29", "2024-04-30", "2024-05-01"} {
		s := domain.NewSnapshot(1, date)
		s.Total = decimal.NewFromInt(int64(100 + i))
		store.PutSnapshot(s)
	}
	svc := newTestService(t, &MockPositionReader{}, store, time.Date(2024, 5, 1, 12, 0, 0, 0, jst))

	history, err := svc.History(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.Date("2024-04-29"), history[0].Date)
	assert.Equal(t, domain.Date("2024-05-01"), history[2].Date)

	all, err := svc.History(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	prev, err := svc.Previous(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, domain.Date("2024-04-30"), prev.Date)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, 0, Summarize(nil).Count)

	var history []domain.Snapshot
	totals := []int64{100, 110, 99, 120}
	for i, total := range totals {
		s := domain.NewSnapshot(1, domain.Date("2024-05-01").AddDays(i))
		s.Total = decimal.NewFromInt(total)
		if i > 0 {
			s.PrevTotal = decimal.NewFromInt(totals[i-1])
		} else {
			s.PrevTotal = s.Total
		}
		history = append(history, s)
	}

	sum := Summarize(history)
	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, domain.Date("2024-05-01"), sum.First)
	assert.Equal(t, domain.Date("2024-05-04"), sum.Last)
	assert.Equal(t, "20", sum.Change.String())
	assert.Equal(t, "20", sum.ChangeRate.String())
	assert.Equal(t, "120", sum.High.String())
	assert.Equal(t, "99", sum.Low.String())
	assert.InDelta(t, 5.0, sum.MeanDayChange, 1e-9)
	assert.InDelta(t, 0.1, sum.MaxDrawdown, 1e-9)
	assert.InDelta(t, 21.0, sum.LargestRise, 1e-9)
	assert.InDelta(t, -11.0, sum.LargestFall, 1e-9)
	assert.Len(t, sum.SMA, 4)
	for _, v := range sum.SMA {
		assert.Zero(t, v)
	}
}
