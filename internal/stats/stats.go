// Package stats holds the descriptive statistics shared by the loader, the
// aggregation library and the report generator. Every function ignores NaN
// inputs and returns NaN when no finite input remains.
package stats

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Finite returns the non-NaN, non-Inf values of in, in order
func Finite(in []float64) []float64 {
	out := make([]float64, 0, len(in))
	for _, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Mean returns the arithmetic mean
func Mean(values []float64) float64 {
	v := Finite(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// StdDev returns the sample standard deviation (n-1 denominator).
// A single value yields NaN.
func StdDev(values []float64) float64 {
	v := Finite(values)
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}

// Min returns the smallest value
func Min(values []float64) float64 {
	v := Finite(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Min(v)
}

// Max returns the largest value
func Max(values []float64) float64 {
	v := Finite(values)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v)
}

// Median returns the middle value, averaging the two middle values for an
// even count.
func Median(values []float64) float64 {
	sorted := sortedFinite(values)
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Quantile returns the q-th quantile (0 <= q <= 1) using linear
// interpolation between closest ranks.
func Quantile(values []float64, q float64) float64 {
	return quantileSorted(sortedFinite(values), q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func sortedFinite(values []float64) []float64 {
	v := Finite(values)
	sort.Float64s(v)
	return v
}

// Summary is the count/mean/std/min/quartiles/max description of a column
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Describe summarizes values. An input without finite values yields a
// zero Count and NaN statistics.
func Describe(values []float64) Summary {
	sorted := sortedFinite(values)
	s := Summary{
		Count:  len(sorted),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Q1:     math.NaN(),
		Median: math.NaN(),
		Q3:     math.NaN(),
		Max:    math.NaN(),
	}
	if len(sorted) == 0 {
		return s
	}

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantileSorted(sorted, 0.25)
	s.Median = quantileSorted(sorted, 0.5)
	s.Q3 = quantileSorted(sorted, 0.75)
	return s
}

// MarshalJSON encodes undefined statistics as null
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Q1     *float64 `json:"q1"`
		Median *float64 `json:"median"`
		Q3     *float64 `json:"q3"`
		Max    *float64 `json:"max"`
	}{
		Count:  s.Count,
		Mean:   Defined(s.Mean),
		Std:    Defined(s.Std),
		Min:    Defined(s.Min),
		Q1:     Defined(s.Q1),
		Median: Defined(s.Median),
		Q3:     Defined(s.Q3),
		Max:    Defined(s.Max),
	})
}

// Defined returns a pointer to v, or nil when v is NaN or infinite
func Defined(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
