package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)

	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-9)
}

func TestDiffs(t *testing.T) {
	assert.Empty(t, Diffs([]float64{1}))
	assert.Equal(t, []float64{1, -3}, Diffs([]float64{1, 2, -1}))
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 5)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)

	assert.Equal(t, []float64{0, 0}, SMA([]float64{1, 2}, 7))
}

func TestMaxDrawdown(t *testing.T) {
	assert.Nil(t, MaxDrawdown([]float64{100}))

	dd := MaxDrawdown([]float64{100, 120, 90, 110})
	require.NotNil(t, dd)
	assert.InDelta(t, 0.25, *dd, 1e-9)
}
