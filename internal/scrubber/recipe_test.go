package scrubber

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile_LinearInterpolation(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"lower quartile of four", []float64{4, 1, 3, 2}, 0.25, 1.75},
		{"upper quartile of four", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"median of odd", []float64{5, 1, 3}, 0.5, 3},
		{"single value", []float64{7}, 0.25, 7},
		{"exact rank", []float64{10, 20, 30, 40, 50}, 0.25, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.q), 1e-9)
		})
	}
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestIQRBounds(t *testing.T) {
	lower, upper, ok := IQRBounds([]float64{1, 2, 3, 4}, 1.5)
	assert.True(t, ok)
	assert.InDelta(t, -0.5, lower, 1e-9)
	assert.InDelta(t, 5.5, upper, 1e-9)

	lower, upper, ok = IQRBounds([]float64{5, 5, 5}, 1.5)
	assert.True(t, ok)
	assert.Equal(t, 5.0, lower)
	assert.Equal(t, 5.0, upper)

	_, _, ok = IQRBounds(nil, 1.5)
	assert.False(t, ok)
}
