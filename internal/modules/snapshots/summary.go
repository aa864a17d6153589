package snapshots

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/holdings/internal/domain"
	"github.com/aristath/holdings/pkg/formulas"
)

// SMAPeriod is the window of the moving average in HistorySummary.
const SMAPeriod = 7

// HistorySummary describes a run of snapshots.
type HistorySummary struct {
	Count       int             `json:"count"`
	First       domain.Date     `json:"first,omitempty"`
	Last        domain.Date     `json:"last,omitempty"`
	StartTotal  decimal.Decimal `json:"start_total"`
	EndTotal    decimal.Decimal `json:"end_total"`
	Change      decimal.Decimal `json:"change"`
	ChangeRate  decimal.Decimal `json:"change_rate"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	MaxDrawdown float64         `json:"max_drawdown"`

	// Statistics of the recorded day changes (Total - PrevTotal).
	MeanDayChange   float64 `json:"mean_day_change"`
	StdDevDayChange float64 `json:"stddev_day_change"`

	// Largest moves between consecutive snapshots, which span missed days.
	LargestRise float64 `json:"largest_rise"`
	LargestFall float64 `json:"largest_fall"`

	// SMA is the moving average of Total, aligned with the input; the first
	// SMAPeriod-1 entries are zero.
	SMA []float64 `json:"sma"`
}

// Summarize computes statistics over snapshots ordered by date ascending.
func Summarize(history []domain.Snapshot) HistorySummary {
	sum := HistorySummary{Count: len(history), SMA: []float64{}}
	if len(history) == 0 {
		return sum
	}

	first, last := history[0], history[len(history)-1]
	sum.First, sum.Last = first.Date, last.Date
	sum.StartTotal, sum.EndTotal = first.Total, last.Total
	sum.Change, sum.ChangeRate = domain.Change(last.Total, first.Total)
	sum.High, sum.Low = first.Total, first.Total

	totals := make([]float64, len(history))
	dayChanges := make([]float64, len(history))
	for i, snap := range history {
		totals[i] = snap.Total.InexactFloat64()
		change, _ := snap.TotalDayChange()
		dayChanges[i] = change.InexactFloat64()
		if snap.Total.GreaterThan(sum.High) {
			sum.High = snap.Total
		}
		if snap.Total.LessThan(sum.Low) {
			sum.Low = snap.Total
		}
	}

	sum.MeanDayChange = formulas.Mean(dayChanges)
	sum.StdDevDayChange = formulas.StdDev(dayChanges)
	if dd := formulas.MaxDrawdown(totals); dd != nil {
		sum.MaxDrawdown = *dd
	}
	for _, step := range formulas.Diffs(totals) {
		sum.LargestRise = max(sum.LargestRise, step)
		sum.LargestFall = min(sum.LargestFall, step)
	}
	sum.SMA = formulas.SMA(totals, SMAPeriod)
	return sum
}
