// Package formulas holds the numeric helpers behind the history statistics.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation. Fewer than two values yield 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Diffs returns data[i] - data[i-1] for every consecutive pair.
func Diffs(data []float64) []float64 {
	if len(data) < 2 {
		return []float64{}
	}
	out := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		out[i-1] = data[i] - data[i-1]
	}
	return out
}

// SMA returns the simple moving average series of data. The first period-1
// entries are zero. A series shorter than period yields all zeros.
func SMA(data []float64, period int) []float64 {
	if period <= 0 || len(data) < period {
		return make([]float64, len(data))
	}
	if period == 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	return talib.Sma(data, period)
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of the
// peak (0.25 = 25%), or nil with fewer than two values.
func MaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]
	for _, v := range values {
		peak = math.Max(peak, v)
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	return &maxDrawdown
}
