package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pos(class domain.AssetClass, qty, price, avg string) domain.Position {
	return domain.Position{Class: class, Symbol: "x", Quantity: d(qty), Price: d(price), AvgCost: d(avg)}
}

func TestTotalsFor_ForeignEquityConvertsAtRate(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{pos(domain.AssetClassForeignEquity, "10", "200", "150")}

	got := e.TotalsFor(positions, domain.AssetClassForeignEquity, d("150"), nil)

	assert.Equal(t, "300000", got.Value.String())
	assert.Equal(t, "225000", got.Cost.String())
	assert.Equal(t, "75000", got.Profit.String())
	assert.Equal(t, "33.33", got.ProfitRate.Round(2).String())
}

func TestTotalsFor_FundIsPerTenThousandUnits(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{pos(domain.AssetClassFund, "100", "15234", "12000")}

	got := e.TotalsFor(positions, domain.AssetClassFund, d("150"), nil)

	assert.Equal(t, "152.34", got.Value.String())
	assert.Equal(t, "120", got.Cost.String())
}

func TestTotalsFor_DomesticGoldCrypto(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{
		pos(domain.AssetClassDomesticEquity, "100", "2850", "2000"),
		pos(domain.AssetClassDomesticEquity, "50", "1000", "1200"),
		pos(domain.AssetClassPreciousMetal, "10", "14512", "9000"),
		pos(domain.AssetClassCrypto, "0.05", "10000000", "8000000"),
	}

	jp := e.TotalsFor(positions, domain.AssetClassDomesticEquity, d("150"), nil)
	assert.Equal(t, "335000", jp.Value.String())
	assert.Equal(t, "260000", jp.Cost.String())

	gold := e.TotalsFor(positions, domain.AssetClassPreciousMetal, d("150"), nil)
	assert.Equal(t, "145120", gold.Value.String())

	crypto := e.TotalsFor(positions, domain.AssetClassCrypto, d("150"), nil)
	assert.Equal(t, "500000", crypto.Value.String())
	assert.Equal(t, "400000", crypto.Cost.String())
}

func TestTotalsFor_InsuranceUsesLumpValues(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{
		pos(domain.AssetClassInsurance, "3", "1200000", "1000000"),
		pos(domain.AssetClassInsurance, "1", "300000", "350000"),
	}

	got := e.TotalsFor(positions, domain.AssetClassInsurance, d("150"), nil)

	assert.Equal(t, "1500000", got.Value.String())
	assert.Equal(t, "1350000", got.Cost.String())
}

func TestTotalsFor_CashHasNoCost(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{pos(domain.AssetClassCash, "500000", "0", "123")}

	got := e.TotalsFor(positions, domain.AssetClassCash, d("150"), nil)

	assert.Equal(t, "500000", got.Value.String())
	assert.True(t, got.Cost.IsZero())
	assert.True(t, got.ProfitRate.IsZero())
}

func TestTotalsFor_DayChange(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{pos(domain.AssetClassDomesticEquity, "10", "110", "100")}

	prev := d("1000")
	got := e.TotalsFor(positions, domain.AssetClassDomesticEquity, d("150"), &prev)
	assert.Equal(t, "100", got.DayChange.String())
	assert.Equal(t, "10", got.DayChangeRate.String())

	zero := decimal.Zero
	got = e.TotalsFor(positions, domain.AssetClassDomesticEquity, d("150"), &zero)
	assert.Equal(t, "1100", got.DayChange.String())
	assert.True(t, got.DayChangeRate.IsZero())

	got = e.TotalsFor(positions, domain.AssetClassDomesticEquity, d("150"), nil)
	assert.True(t, got.DayChange.IsZero())
	assert.True(t, got.DayChangeRate.IsZero())
}

func TestSummarize_CashCountsInTotalNotProfit(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{
		pos(domain.AssetClassCash, "100000", "0", "0"),
		pos(domain.AssetClassDomesticEquity, "10", "1200", "1000"),
		pos(domain.AssetClassForeignEquity, "2", "100", "100"),
	}

	s := e.Summarize(7, positions, d("150"), nil)

	assert.Equal(t, int64(7), s.UserID)
	assert.Len(t, s.Classes, len(domain.AllAssetClasses))
	assert.Equal(t, "142000", s.Total.String())
	assert.Equal(t, "42000", s.InvestmentValue.String())
	assert.Equal(t, "40000", s.InvestmentCost.String())
	assert.Equal(t, "2000", s.InvestmentProfit.String())
	assert.Equal(t, "5", s.ProfitRate.String())
	assert.Equal(t, "200", s.USDTotal.String())
	assert.True(t, s.DayChange.IsZero())
}

func TestSummarize_AgainstPreviousSnapshot(t *testing.T) {
	e := NewEngine()
	positions := []domain.Position{
		pos(domain.AssetClassCash, "100000", "0", "0"),
		pos(domain.AssetClassDomesticEquity, "10", "1200", "1000"),
	}
	prev := domain.NewSnapshot(7, "2024-04-30")
	prev.Values[domain.AssetClassCash] = d("100000")
	prev.Values[domain.AssetClassDomesticEquity] = d("10000")
	prev.Total = d("110000")

	s := e.Summarize(7, positions, d("150"), &prev)

	assert.Equal(t, "2000", s.DayChange.String())
	assert.Equal(t, "1.82", s.DayChangeRate.Round(2).String())
	jp := s.Class(domain.AssetClassDomesticEquity)
	assert.Equal(t, "2000", jp.DayChange.String())
	assert.Equal(t, "20", jp.DayChangeRate.String())

	// A class absent from the previous snapshot changes from zero.
	gold := s.Class(domain.AssetClassPreciousMetal)
	assert.True(t, gold.DayChange.IsZero())
	assert.True(t, gold.DayChangeRate.IsZero())
}

func TestValues(t *testing.T) {
	e := NewEngine()
	s := e.Summarize(1, []domain.Position{pos(domain.AssetClassCash, "5", "0", "0")}, d("150"), nil)

	values, total := Values(s)
	require.Len(t, values, len(domain.AllAssetClasses))
	assert.Equal(t, "5", values[domain.AssetClassCash].String())
	assert.Equal(t, "5", total.String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "¥1,234,568", FormatJPY(d("1234567.5")))
	assert.Equal(t, "$1,234.56", FormatUSD(d("1234.56")))
	assert.Equal(t, "+1.23%", FormatRate(d("1.234")))
	assert.Equal(t, "-0.50%", FormatRate(d("-0.5")))
}
