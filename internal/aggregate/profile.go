package aggregate

import (
	"math"
	"sort"

	"climatescope/internal/models"
	"climatescope/internal/stats"
)

// RadarSeries is one country's profile across the radar metrics
type RadarSeries struct {
	Country    string    `json:"country"`
	Raw        []float64 `json:"raw"`
	Normalized []float64 `json:"normalized"`
}

// Radar holds per-country profiles whose axes follow Metrics
type Radar struct {
	Metrics []models.Metric `json:"metrics"`
	Series  []RadarSeries   `json:"series"`
}

// SelectRadarCountries picks the countries to profile: the first
// maxSelected explicitly selected countries that appear in the view, or else
// the first fallback distinct countries of the view in view order.
func SelectRadarCountries(view *models.FilteredView, selected []string, maxSelected, fallback int) []string {
	present := make(map[string]struct{})
	for i := range view.Observations {
		present[view.Observations[i].Country] = struct{}{}
	}

	out := []string{}
	if len(selected) > 0 {
		limit := selected
		if len(limit) > maxSelected {
			limit = limit[:maxSelected]
		}
		for _, c := range limit {
			if _, ok := present[c]; ok {
				out = append(out, c)
			}
		}
		return out
	}

	for _, c := range DistinctInOrder(view, models.GroupByCountry) {
		if len(out) == fallback {
			break
		}
		out = append(out, c)
	}
	return out
}

// RadarProfile averages each metric per country, then min-max normalizes
// every metric column across the chosen countries. Countries without rows in
// the view are skipped.
func RadarProfile(view *models.FilteredView, countries []string, metrics []models.Metric) Radar {
	radar := Radar{Metrics: metrics, Series: []RadarSeries{}}
	if view.Empty() || len(countries) == 0 {
		return radar
	}

	means := make(map[models.Metric]map[string]float64, len(metrics))
	for _, m := range metrics {
		means[m] = GroupMean(view, models.GroupByCountry, m)
	}

	for _, c := range countries {
		if !hasCountry(view, c) {
			continue
		}
		raw := make([]float64, len(metrics))
		for j, m := range metrics {
			v, ok := means[m][c]
			if !ok {
				v = math.NaN()
			}
			raw[j] = v
		}
		radar.Series = append(radar.Series, RadarSeries{Country: c, Raw: raw, Normalized: make([]float64, len(metrics))})
	}

	column := make([]float64, len(radar.Series))
	for j := range metrics {
		for i := range radar.Series {
			column[i] = radar.Series[i].Raw[j]
		}
		norm := NormalizeMinMax(column)
		for i := range radar.Series {
			radar.Series[i].Normalized[j] = norm[i]
		}
	}
	return radar
}

func hasCountry(view *models.FilteredView, country string) bool {
	for i := range view.Observations {
		if view.Observations[i].Country == country {
			return true
		}
	}
	return false
}

// BoxGroup is the five-number summary of a metric within one group
type BoxGroup struct {
	Key     string        `json:"key"`
	Summary stats.Summary `json:"summary"`
	Values  []float64     `json:"-"`
}

// BoxStats summarizes metric per group, groups sorted by key
func BoxStats(view *models.FilteredView, field models.GroupField, metric models.Metric) []BoxGroup {
	values := make(map[string][]float64)
	for i := range view.Observations {
		obs := &view.Observations[i]
		if v := obs.Value(metric); !math.IsNaN(v) {
			values[obs.Key(field)] = append(values[obs.Key(field)], v)
		}
	}

	out := make([]BoxGroup, 0, len(values))
	for key, vs := range values {
		out = append(out, BoxGroup{Key: key, Summary: stats.Describe(vs), Values: vs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GroupStdDevMean returns the mean of the per-group sample standard
// deviations of metric, skipping groups with a single value.
func GroupStdDevMean(view *models.FilteredView, field models.GroupField, metric models.Metric) float64 {
	var stds []float64
	for _, g := range BoxStats(view, field, metric) {
		if !math.IsNaN(g.Summary.Std) {
			stds = append(stds, g.Summary.Std)
		}
	}
	return stats.Mean(stds)
}
