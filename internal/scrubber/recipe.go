package scrubber

import (
	"math"
	"sort"
)

// Step is a named transform in a Recipe
type Step struct {
	Name  string
	Apply func(s *Scrubber) *Scrubber
}

// Recipe is an ordered list of steps, applied strictly in sequence. An
// empty recipe is valid and leaves the table as it is.
type Recipe []Step

// Names returns the step names in order
func (r Recipe) Names() []string {
	names := make([]string, len(r))
	for i, st := range r {
		names[i] = st.Name
	}
	return names
}

// Quantile returns the q-th quantile of values using linear interpolation
// between the two nearest ranks. values need not be sorted.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// IQRBounds returns the inclusive fence [Q1 - k*IQR, Q3 + k*IQR]. ok is
// false when there are no values.
func IQRBounds(values []float64, k float64) (lower, upper float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := quantileSorted(sorted, 0.25)
	q3 := quantileSorted(sorted, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr, true
}
