package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetClass_Quoted(t *testing.T) {
	quoted := map[AssetClass]bool{
		AssetClassDomesticEquity: true,
		AssetClassForeignEquity:  true,
		AssetClassCash:           false,
		AssetClassPreciousMetal:  true,
		AssetClassCrypto:         true,
		AssetClassFund:           true,
		AssetClassInsurance:      false,
	}
	for _, c := range AllAssetClasses {
		assert.Equal(t, quoted[c], c.Quoted(), string(c))
	}
	assert.False(t, AssetClass("bonds").Quoted())
}

func TestParseAssetClass(t *testing.T) {
	c, err := ParseAssetClass(" crypto ")
	require.NoError(t, err)
	assert.Equal(t, AssetClassCrypto, c)

	_, err = ParseAssetClass("bonds")
	assert.True(t, errors.Is(err, ErrInvalidAssetClass))
}

func TestCacheKey(t *testing.T) {
	q := Quote{Class: AssetClassCrypto, Symbol: "BTC"}
	assert.Equal(t, "crypto:BTC", q.CacheKey())
	assert.NotEqual(t, FXCacheKey, CacheKey(AssetClassForeignEquity, "USDJPY"))
	assert.Equal(t, FXCacheKey, CacheKey(FXClass, FXSymbol))
	assert.False(t, FXClass.Valid())
}

func TestDateOf_UsesReportingZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	// 15:30 UTC is already the next day in JST.
	ts := time.Date(2024, 3, 31, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, Date("2024-04-01"), DateOf(ts, jst))
	assert.Equal(t, Date("2024-03-31"), DateOf(ts, time.UTC))
}

func TestDate_AddDays(t *testing.T) {
	assert.Equal(t, Date("2024-02-29"), Date("2024-03-01").AddDays(-1))
	assert.Equal(t, Date("2025-01-01"), Date("2024-12-31").AddDays(1))

	_, err := ParseDate("2024-13-01")
	assert.Error(t, err)
}

func TestRate_GuardsNonPositiveBase(t *testing.T) {
	assert.True(t, Rate(decimal.NewFromInt(10), decimal.Zero).IsZero())
	assert.True(t, Rate(decimal.NewFromInt(10), decimal.NewFromInt(-5)).IsZero())
	assert.True(t, Rate(decimal.NewFromInt(10), decimal.NewFromInt(200)).Equal(decimal.NewFromInt(5)))
}

func TestSnapshot_DayChange(t *testing.T) {
	s := NewSnapshot(1, "2024-04-01")
	s.Values[AssetClassCrypto] = decimal.NewFromInt(1100)
	s.PrevValues[AssetClassCrypto] = decimal.NewFromInt(1000)
	s.Values[AssetClassCash] = decimal.NewFromInt(500)

	change, rate := s.DayChange(AssetClassCrypto)
	assert.True(t, change.Equal(decimal.NewFromInt(100)))
	assert.True(t, rate.Equal(decimal.NewFromInt(10)))

	// Zero previous value yields a zero rate, not a division error.
	change, rate = s.DayChange(AssetClassCash)
	assert.True(t, change.Equal(decimal.NewFromInt(500)))
	assert.True(t, rate.IsZero())
}

func TestQuoteError_Unwraps(t *testing.T) {
	err := NewQuoteError(AssetClassFund, "FANG+", ErrQuoteUnavailable)
	assert.True(t, errors.Is(err, ErrQuoteUnavailable))
	assert.Contains(t, err.Error(), "investment_trust:FANG+")
}
