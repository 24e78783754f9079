package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		period   int
		expected []float64
		isNil    bool
	}{
		{
			name:   "basic three period",
			values: []float64{1, 2, 3, 4, 5},
			period: 3,
			expected: []float64{
				math.NaN(), math.NaN(), 2, 3, 4,
			},
		},
		{
			name:     "period one is identity",
			values:   []float64{5, 7, 9},
			period:   1,
			expected: []float64{5, 7, 9},
		},
		{name: "too few values", values: []float64{1, 2}, period: 3, isNil: true},
		{name: "zero period", values: []float64{1, 2, 3}, period: 0, isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSMA(tt.values, tt.period)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				if math.IsNaN(tt.expected[i]) {
					assert.True(t, math.IsNaN(got[i]), "index %d", i)
				} else {
					assert.InDelta(t, tt.expected[i], got[i], 1e-9, "index %d", i)
				}
			}
		})
	}
}

func TestCalculateEMA(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 15}
	got := CalculateEMA(values, 3)
	require.Len(t, got, 6)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 11.0, got[2], 1e-9) // seed = mean(10,11,12)
	// multiplier = 0.5: ema[3] = (13-11)*0.5 + 11 = 12
	assert.InDelta(t, 12.0, got[3], 1e-9)
	assert.InDelta(t, 13.0, got[4], 1e-9)
	assert.InDelta(t, 14.0, got[5], 1e-9)

	assert.Nil(t, CalculateEMA([]float64{1, 2}, 3))
}

func TestCalculateMACD(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	dif, dea, hist := CalculateMACD(values, 12, 26, 9)
	require.Len(t, dif, 60)
	require.Len(t, dea, 60)
	require.Len(t, hist, 60)

	// warm-up: nothing defined before the slow EMA exists
	assert.True(t, math.IsNaN(dif[24]))
	assert.True(t, math.IsNaN(dea[24]))
	assert.False(t, math.IsNaN(dif[25]))

	// DEA needs signal extra bars after DIF appears
	assert.True(t, math.IsNaN(dea[26]))
	assert.False(t, math.IsNaN(dea[40]))

	// steadily rising prices keep the fast EMA above the slow one
	assert.Positive(t, dif[50])
	assert.InDelta(t, dif[50]-dea[50], hist[50], 1e-9)
}

func TestCalculateMACDInvalidArgs(t *testing.T) {
	values := make([]float64, 10)
	dif, dea, hist := CalculateMACD(values, 12, 26, 9)
	assert.Nil(t, dif)
	assert.Nil(t, dea)
	assert.Nil(t, hist)

	dif, _, _ = CalculateMACD(values, 26, 12, 9)
	assert.Nil(t, dif)
}
