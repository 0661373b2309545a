// Package presentation shapes aggregation results into chart-ready series.
// Every builder returns a Chart; when there is nothing to draw the Chart
// carries a placeholder message instead of data.
package presentation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"climatescope/internal/aggregate"
	"climatescope/internal/models"
	"climatescope/internal/stats"
)

// Placeholder messages
const (
	NoDataMessage       = "No data available"
	NoMatchMessage      = "No data matches the selected filters"
	InsufficientMessage = "Not enough metrics for air quality analysis"
)

// ChartKind names a dashboard chart
type ChartKind string

const (
	ChartMap        ChartKind = "map"
	ChartTimeSeries ChartKind = "timeseries"
	ChartScatter    ChartKind = "scatter"
	ChartHeatmap    ChartKind = "heatmap"
	ChartBox        ChartKind = "box"
	ChartRadar      ChartKind = "radar"
	ChartAirQuality ChartKind = "air_quality"
)

// Chart is one chart of the dashboard
type Chart struct {
	Kind    ChartKind           `json:"kind"`
	Title   string              `json:"title"`
	Status  models.ResultStatus `json:"status"`
	Message string              `json:"message,omitempty"`
	XLabel  string              `json:"x_label,omitempty"`
	YLabel  string              `json:"y_label,omitempty"`
	Data    any                 `json:"data,omitempty"`
}

// Placeholder returns a data-less chart showing message
func Placeholder(kind ChartKind, status models.ResultStatus, message string) Chart {
	return Chart{Kind: kind, Status: status, Message: message}
}

func emptyChart(kind ChartKind, title string) Chart {
	c := Placeholder(kind, models.StatusEmpty, NoMatchMessage)
	c.Title = title
	return c
}

// MapPoint is the mean of a metric for one country, positioned at the
// centroid of the country's observations.
type MapPoint struct {
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     float64 `json:"value"`
	Count     int     `json:"count"`
}

// MapChart builds the per-country distribution of metric
func MapChart(view *models.FilteredView, metric models.Metric) Chart {
	title := fmt.Sprintf("Global %s Distribution", metric.Label())
	if view.Empty() {
		return emptyChart(ChartMap, title)
	}

	centroids := CountryCentroids(view)
	groups := aggregate.GroupMeans(view, models.GroupByCountry, metric)
	points := make([]MapPoint, 0, len(groups))
	for _, g := range groups {
		c := centroids[g.Key]
		points = append(points, MapPoint{
			Country:   g.Key,
			Latitude:  c.Lat.Degrees(),
			Longitude: c.Lng.Degrees(),
			Value:     g.Mean,
			Count:     g.Count,
		})
	}
	return Chart{Kind: ChartMap, Title: title, Status: models.StatusOK, YLabel: metric.Label(), Data: points}
}

// TimeSeriesChart builds the monthly trend of metric
func TimeSeriesChart(view *models.FilteredView, metric models.Metric) Chart {
	title := fmt.Sprintf("%s Trend Over Time", metric.Label())
	if view.Empty() {
		return emptyChart(ChartTimeSeries, title)
	}
	return Chart{
		Kind:   ChartTimeSeries,
		Title:  title,
		Status: models.StatusOK,
		XLabel: "Date",
		YLabel: metric.Label(),
		Data:   aggregate.MonthlyTrend(view, metric),
	}
}

// ScatterPoint is one observation plotted on two metrics
type ScatterPoint struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Region       string  `json:"region"`
	Country      string  `json:"country"`
	LocationName string  `json:"location_name"`
}

// ScatterChart plots every observation with both metrics defined. Points
// keep view order.
func ScatterChart(view *models.FilteredView, x, y models.Metric) Chart {
	title := fmt.Sprintf("%s vs %s", x.Label(), y.Label())
	if view.Empty() {
		return emptyChart(ChartScatter, title)
	}

	points := make([]ScatterPoint, 0, view.Len())
	for i := range view.Observations {
		obs := &view.Observations[i]
		xv, yv := obs.Value(x), obs.Value(y)
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		points = append(points, ScatterPoint{X: xv, Y: yv, Region: obs.Region, Country: obs.Country, LocationName: obs.LocationName})
	}
	return Chart{Kind: ChartScatter, Title: title, Status: models.StatusOK, XLabel: x.Label(), YLabel: y.Label(), Data: points}
}

// Heatmap is a month × year grid. Values[i][j] is the mean for Months[i]
// in Years[j], or null when that cell has no data.
type Heatmap struct {
	Months []string     `json:"months"`
	Years  []int        `json:"years"`
	Values [][]*float64 `json:"values"`
}

// HeatmapChart builds the seasonality pattern of metric. Only months with
// data appear as rows.
func HeatmapChart(view *models.FilteredView, metric models.Metric) Chart {
	title := fmt.Sprintf("%s Seasonality Pattern", metric.Label())
	if view.Empty() {
		return emptyChart(ChartHeatmap, title)
	}

	pivot := aggregate.SeasonalityPivot(view, metric)
	hm := Heatmap{Months: []string{}, Years: pivot.Years, Values: [][]*float64{}}
	for month := 1; month <= 12; month++ {
		if _, ok := pivot.Cells[month]; !ok {
			continue
		}
		row := make([]*float64, len(pivot.Years))
		for j, year := range pivot.Years {
			if v, ok := pivot.Value(month, year); ok {
				row[j] = stats.Defined(v)
			}
		}
		hm.Months = append(hm.Months, time.Month(month).String())
		hm.Values = append(hm.Values, row)
	}
	return Chart{Kind: ChartHeatmap, Title: title, Status: models.StatusOK, XLabel: "Year", YLabel: "Month", Data: hm}
}

// BoxChart builds the per-region distribution of metric
func BoxChart(view *models.FilteredView, metric models.Metric) Chart {
	title := fmt.Sprintf("%s Distribution by Region", metric.Label())
	if view.Empty() {
		return emptyChart(ChartBox, title)
	}
	return Chart{
		Kind:   ChartBox,
		Title:  title,
		Status: models.StatusOK,
		XLabel: "Region",
		YLabel: metric.Label(),
		Data:   aggregate.BoxStats(view, models.GroupByRegion, metric),
	}
}

// RadarSeries is one country's radar polygon. Undefined values are null.
type RadarSeries struct {
	Country    string     `json:"country"`
	Raw        []*float64 `json:"raw"`
	Normalized []*float64 `json:"normalized"`
}

// RadarData holds the axis labels and one series per country
type RadarData struct {
	Axes   []string      `json:"axes"`
	Series []RadarSeries `json:"series"`
}

// RadarChart builds the normalized climate profile of countries
func RadarChart(view *models.FilteredView, countries []string) Chart {
	title := "Climate Profile Comparison"
	if view.Empty() {
		return emptyChart(ChartRadar, title)
	}

	radar := aggregate.RadarProfile(view, countries, models.RadarMetrics)
	data := RadarData{Axes: make([]string, len(radar.Metrics)), Series: make([]RadarSeries, 0, len(radar.Series))}
	for i, m := range radar.Metrics {
		data.Axes[i] = m.Label()
	}
	for _, s := range radar.Series {
		data.Series = append(data.Series, RadarSeries{
			Country:    s.Country,
			Raw:        definedAll(s.Raw),
			Normalized: definedAll(s.Normalized),
		})
	}
	return Chart{Kind: ChartRadar, Title: title, Status: models.StatusOK, Data: data}
}

// AirQualityData is the category distribution plus the mean score of
// each region, highest first.
type AirQualityData struct {
	Distribution []aggregate.CategoryCount `json:"distribution"`
	ByRegion     []aggregate.GroupValue    `json:"by_region"`
}

// AirQualityChart builds the composite air-quality breakdown. An
// InsufficientMetrics error becomes a placeholder; any other error is
// returned.
func AirQualityChart(view *models.FilteredView) (Chart, error) {
	title := "Air Quality Index Distribution"
	if view.Empty() {
		return emptyChart(ChartAirQuality, title), nil
	}

	scores, err := aggregate.CompositeAirQuality(view)
	if err != nil {
		var aggErr *models.AggregationError
		if errors.As(err, &aggErr) && aggErr.Kind == models.InsufficientMetrics {
			c := Placeholder(ChartAirQuality, models.StatusEmpty, InsufficientMessage)
			c.Title = title
			return c, nil
		}
		return Chart{}, err
	}

	return Chart{
		Kind:   ChartAirQuality,
		Title:  title,
		Status: models.StatusOK,
		XLabel: "Category",
		YLabel: "Locations",
		Data: AirQualityData{
			Distribution: aggregate.AQIDistribution(scores),
			ByRegion:     regionScores(scores),
		},
	}, nil
}

func regionScores(scores []aggregate.AQIScore) []aggregate.GroupValue {
	index := make(map[string]int)
	out := []aggregate.GroupValue{}
	for _, s := range scores {
		if math.IsNaN(s.Score) {
			continue
		}
		i, ok := index[s.Region]
		if !ok {
			i = len(out)
			index[s.Region] = i
			out = append(out, aggregate.GroupValue{Key: s.Region})
		}
		out[i].Mean += s.Score
		out[i].Count++
	}
	for i := range out {
		out[i].Mean /= float64(out[i].Count)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean > out[j].Mean })
	return out
}

func definedAll(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = stats.Defined(v)
	}
	return out
}
