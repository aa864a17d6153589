// Package valuation converts stored positions into per-class and portfolio
// totals in JPY.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
)

// FundUnit is the number of units a fund's base price is quoted for.
var FundUnit = decimal.NewFromInt(10000)

// Engine computes valuation totals. It never fetches quotes; positions carry
// the prices written back by the last refresh.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a valuation engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// valueAndCost applies the class formula to the positions of that class.
func valueAndCost(positions []domain.Position, class domain.AssetClass, usdRate decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	value, cost := decimal.Zero, decimal.Zero
	for _, p := range positions {
		if p.Class != class {
			continue
		}
		switch class {
		case domain.AssetClassCash:
			value = value.Add(p.Quantity)
		case domain.AssetClassInsurance:
			value = value.Add(p.Price)
			cost = cost.Add(p.AvgCost)
		default:
			value = value.Add(p.Quantity.Mul(p.Price))
			cost = cost.Add(p.Quantity.Mul(p.AvgCost))
		}
	}

	switch class {
	case domain.AssetClassForeignEquity:
		value = value.Mul(usdRate)
		cost = cost.Mul(usdRate)
	case domain.AssetClassFund:
		value = value.Div(FundUnit)
		cost = cost.Div(FundUnit)
	}
	return value, cost
}

// TotalsFor values the positions of one class. prev is the class value from
// the previous snapshot; nil means there is none and the day change is zero.
func (e *Engine) TotalsFor(positions []domain.Position, class domain.AssetClass, usdRate decimal.Decimal, prev *decimal.Decimal) domain.ClassTotals {
	value, cost := valueAndCost(positions, class, usdRate)
	profit := value.Sub(cost)

	t := domain.ClassTotals{
		Class:      class,
		Value:      value,
		Cost:       cost,
		Profit:     profit,
		ProfitRate: domain.Rate(profit, cost),
	}
	if prev != nil {
		t.DayChange, t.DayChangeRate = domain.Change(value, *prev)
	}
	return t
}

// Summarize values every asset class and the portfolio as a whole. prev is the
// snapshot day changes are measured against and may be nil.
func (e *Engine) Summarize(userID int64, positions []domain.Position, usdRate decimal.Decimal, prev *domain.Snapshot) domain.Summary {
	s := domain.Summary{
		UserID:  userID,
		Classes: make(map[domain.AssetClass]domain.ClassTotals, len(domain.AllAssetClasses)),
		USDJPY:  usdRate,
		AsOf:    e.now(),
	}

	for _, class := range domain.AllAssetClasses {
		var prevValue *decimal.Decimal
		if prev != nil {
			v := prev.Value(class)
			prevValue = &v
		}
		t := e.TotalsFor(positions, class, usdRate, prevValue)
		s.Classes[class] = t

		s.Total = s.Total.Add(t.Value)
		if class != domain.AssetClassCash {
			s.InvestmentValue = s.InvestmentValue.Add(t.Value)
			s.InvestmentCost = s.InvestmentCost.Add(t.Cost)
		}
	}

	s.InvestmentProfit = s.InvestmentValue.Sub(s.InvestmentCost)
	s.ProfitRate = domain.Rate(s.InvestmentProfit, s.InvestmentCost)

	if prev != nil {
		s.DayChange, s.DayChangeRate = domain.Change(s.Total, prev.Total)
	}

	if usdRate.IsPositive() {
		s.USDTotal = s.Class(domain.AssetClassForeignEquity).Value.Div(usdRate).Round(2)
	}
	return s
}

// Values extracts the per-class values and total of a summary in snapshot form.
func Values(s domain.Summary) (map[domain.AssetClass]decimal.Decimal, decimal.Decimal) {
	values := make(map[domain.AssetClass]decimal.Decimal, len(s.Classes))
	for class, t := range s.Classes {
		values[class] = t.Value
	}
	return values, s.Total
}
