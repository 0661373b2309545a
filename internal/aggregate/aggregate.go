// Package aggregate holds the pure reducers behind every dashboard view.
// All functions are total: an empty view yields an empty (non-nil) result
// rather than an error, and NaN values never reach a mean.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"climatescope/internal/models"
	"climatescope/internal/stats"
)

// GroupValue is the mean of a metric over one group
type GroupValue struct {
	Key   string  `json:"key"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// GroupMean returns key → mean of metric for every group that has at least
// one defined value.
func GroupMean(view *models.FilteredView, field models.GroupField, metric models.Metric) map[string]float64 {
	out := make(map[string]float64)
	for _, g := range GroupMeans(view, field, metric) {
		out[g.Key] = g.Mean
	}
	return out
}

// GroupMeans returns the per-group means sorted by mean descending. Ties
// keep the order in which groups first appear in the view.
func GroupMeans(view *models.FilteredView, field models.GroupField, metric models.Metric) []GroupValue {
	type acc struct {
		sum   float64
		count int
	}
	order := []string{}
	groups := make(map[string]*acc)

	for i := range view.Observations {
		obs := &view.Observations[i]
		v := obs.Value(metric)
		if math.IsNaN(v) {
			continue
		}
		key := obs.Key(field)
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
			order = append(order, key)
		}
		a.sum += v
		a.count++
	}

	out := make([]GroupValue, 0, len(order))
	for _, key := range order {
		a := groups[key]
		out = append(out, GroupValue{Key: key, Mean: a.sum / float64(a.count), Count: a.count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean > out[j].Mean })
	return out
}

// TrendPoint is the mean of a metric within one calendar month
type TrendPoint struct {
	YearMonth string  `json:"year_month"`
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	Mean      float64 `json:"mean"`
	Count     int     `json:"count"`
}

// MonthlyTrend returns one point per (year, month) present in the view, in
// chronological order.
func MonthlyTrend(view *models.FilteredView, metric models.Metric) []TrendPoint {
	type key struct{ year, month int }
	sums := make(map[key]*TrendPoint)
	values := make(map[key][]float64)

	for i := range view.Observations {
		obs := &view.Observations[i]
		v := obs.Value(metric)
		if math.IsNaN(v) {
			continue
		}
		k := key{obs.Year, obs.Month}
		if _, ok := sums[k]; !ok {
			sums[k] = &TrendPoint{
				YearMonth: fmt.Sprintf("%04d-%02d", obs.Year, obs.Month),
				Year:      obs.Year,
				Month:     obs.Month,
			}
		}
		values[k] = append(values[k], v)
	}

	out := make([]TrendPoint, 0, len(sums))
	for k, p := range sums {
		p.Mean = stats.Mean(values[k])
		p.Count = len(values[k])
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// Pivot is a month (1..12) × year table of means. Cells with no data are
// absent, not zero.
type Pivot struct {
	Years []int                   `json:"years"`
	Cells map[int]map[int]float64 `json:"cells"` // month → year → mean
}

// Value returns the mean for (month, year) and whether it is defined
func (p Pivot) Value(month, year int) (float64, bool) {
	row, ok := p.Cells[month]
	if !ok {
		return math.NaN(), false
	}
	v, ok := row[year]
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

// SeasonalityPivot averages metric per calendar month and year
func SeasonalityPivot(view *models.FilteredView, metric models.Metric) Pivot {
	p := Pivot{Years: []int{}, Cells: make(map[int]map[int]float64)}

	years := make(map[int]struct{})
	for _, pt := range MonthlyTrend(view, metric) {
		if _, ok := p.Cells[pt.Month]; !ok {
			p.Cells[pt.Month] = make(map[int]float64)
		}
		p.Cells[pt.Month][pt.Year] = pt.Mean
		years[pt.Year] = struct{}{}
	}
	for y := range years {
		p.Years = append(p.Years, y)
	}
	sort.Ints(p.Years)
	return p
}

// MonthOfYearMeans returns the mean of metric for each calendar month
// present, pooling all years.
func MonthOfYearMeans(view *models.FilteredView, metric models.Metric) map[int]float64 {
	values := make(map[int][]float64)
	for i := range view.Observations {
		obs := &view.Observations[i]
		if v := obs.Value(metric); !math.IsNaN(v) {
			values[obs.Month] = append(values[obs.Month], v)
		}
	}
	out := make(map[int]float64, len(values))
	for m, vs := range values {
		out[m] = stats.Mean(vs)
	}
	return out
}

// NormalizeMinMax rescales values to [0, 100]. When every defined value is
// equal the range is degenerate and each maps to 50. NaN stays NaN.
func NormalizeMinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	lo, hi := stats.Min(values), stats.Max(values)

	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case hi == lo:
			out[i] = 50
		default:
			out[i] = (v - lo) / (hi - lo) * 100
		}
	}
	return out
}

// TopN returns up to n observations ordered by metric descending. Equal
// values keep their view order; undefined values sort last.
func TopN(view *models.FilteredView, metric models.Metric, n int) []models.Observation {
	if n <= 0 || view.Empty() {
		return []models.Observation{}
	}

	ranked := make([]models.Observation, len(view.Observations))
	copy(ranked, view.Observations)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Value(metric), ranked[j].Value(metric)
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		return a > b
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// Extreme locates the observation with the largest (or smallest) value of
// metric. The first occurrence wins ties. ok is false for an empty view.
func Extreme(view *models.FilteredView, metric models.Metric, largest bool) (obs models.Observation, ok bool) {
	best := math.NaN()
	for i := range view.Observations {
		v := view.Observations[i].Value(metric)
		if math.IsNaN(v) {
			continue
		}
		if !ok || (largest && v > best) || (!largest && v < best) {
			best = v
			obs = view.Observations[i]
			ok = true
		}
	}
	return obs, ok
}

// Values extracts metric from every observation in view order
func Values(view *models.FilteredView, metric models.Metric) []float64 {
	out := make([]float64, len(view.Observations))
	for i := range view.Observations {
		out[i] = view.Observations[i].Value(metric)
	}
	return out
}

// DistinctCount counts distinct values of field in the view
func DistinctCount(view *models.FilteredView, field models.GroupField) int {
	seen := make(map[string]struct{})
	for i := range view.Observations {
		seen[view.Observations[i].Key(field)] = struct{}{}
	}
	return len(seen)
}

// DistinctInOrder returns distinct values of field in first-seen order
func DistinctInOrder(view *models.FilteredView, field models.GroupField) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range view.Observations {
		k := view.Observations[i].Key(field)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
