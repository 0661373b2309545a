package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Metric names a numeric observation column
type Metric string

const (
	MetricTemperature   Metric = "temperature_celsius"
	MetricHumidity      Metric = "humidity"
	MetricPressure      Metric = "pressure_mb"
	MetricWindKph       Metric = "wind_kph"
	MetricWindSpeed     Metric = "wind_speed"
	MetricUVIndex       Metric = "uv_index"
	MetricPrecipitation Metric = "precipitation"
)

// ImputedMetrics are the source columns whose gaps are filled with the
// column median at load time.
var ImputedMetrics = []Metric{
	MetricTemperature,
	MetricHumidity,
	MetricPressure,
	MetricWindKph,
	MetricUVIndex,
}

// SelectableMetrics are the metrics offered as the primary dashboard metric
var SelectableMetrics = []Metric{
	MetricTemperature,
	MetricHumidity,
	MetricWindSpeed,
	MetricPrecipitation,
}

// RadarMetrics are the axes of the per-country radar profile, in order
var RadarMetrics = []Metric{
	MetricTemperature,
	MetricHumidity,
	MetricWindKph,
	MetricUVIndex,
	MetricPressure,
}

var metricLabels = map[Metric]string{
	MetricTemperature:   "Temperature (°C)",
	MetricHumidity:      "Humidity (%)",
	MetricPressure:      "Pressure (mb)",
	MetricWindKph:       "Wind Speed (km/h)",
	MetricWindSpeed:     "Wind Speed (km/h)",
	MetricUVIndex:       "UV Index",
	MetricPrecipitation: "Precipitation (proxy)",
}

// Valid reports whether m is a known metric
func (m Metric) Valid() bool {
	_, ok := metricLabels[m]
	return ok
}

// Label returns the display label for the metric
func (m Metric) Label() string {
	if label, ok := metricLabels[m]; ok {
		return label
	}
	return string(m)
}

// ParseMetric parses a metric name, returning false for unknown names
func ParseMetric(s string) (Metric, bool) {
	m := Metric(strings.TrimSpace(s))
	return m, m.Valid()
}

// Observation is a single normalized weather reading for one location.
// Numeric fields hold NaN only when the whole source column was absent.
type Observation struct {
	LocationName string    `json:"location_name"`
	Country      string    `json:"country"`
	Region       string    `json:"region"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LastUpdated  time.Time `json:"last_updated"`

	// Calendar fields derived from LastUpdated
	Date      time.Time `json:"date"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	MonthName string    `json:"month_name"`

	TemperatureCelsius float64 `json:"temperature_celsius"`
	Humidity           float64 `json:"humidity"`
	PressureMb         float64 `json:"pressure_mb"`
	WindKph            float64 `json:"wind_kph"`
	UVIndex            float64 `json:"uv_index"`
	Precipitation      float64 `json:"precipitation"`
	WindSpeed          float64 `json:"wind_speed"`
}

// Value returns the observation's value for m, or NaN for an unknown metric
func (o *Observation) Value(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return o.TemperatureCelsius
	case MetricHumidity:
		return o.Humidity
	case MetricPressure:
		return o.PressureMb
	case MetricWindKph:
		return o.WindKph
	case MetricWindSpeed:
		return o.WindSpeed
	case MetricUVIndex:
		return o.UVIndex
	case MetricPrecipitation:
		return o.Precipitation
	default:
		return math.NaN()
	}
}

// SetValue assigns v to the field backing m
func (o *Observation) SetValue(m Metric, v float64) {
	switch m {
	case MetricTemperature:
		o.TemperatureCelsius = v
	case MetricHumidity:
		o.Humidity = v
	case MetricPressure:
		o.PressureMb = v
	case MetricWindKph:
		o.WindKph = v
	case MetricWindSpeed:
		o.WindSpeed = v
	case MetricUVIndex:
		o.UVIndex = v
	case MetricPrecipitation:
		o.Precipitation = v
	}
}

// GroupField names a categorical observation field used for grouping
type GroupField string

const (
	GroupByCountry  GroupField = "country"
	GroupByRegion   GroupField = "region"
	GroupByLocation GroupField = "location"
)

// Key returns the observation's value for a grouping field
func (o *Observation) Key(field GroupField) string {
	switch field {
	case GroupByCountry:
		return o.Country
	case GroupByRegion:
		return o.Region
	case GroupByLocation:
		return o.LocationName
	default:
		return ""
	}
}

// LoadStats summarizes what happened while normalizing the raw table
type LoadStats struct {
	Source               string             `json:"source"`
	TotalRows            int                `json:"total_rows"`
	LoadedRows           int                `json:"loaded_rows"`
	DroppedRows          int                `json:"dropped_rows"`
	DroppedBadTimestamp  int                `json:"dropped_bad_timestamp"`
	DroppedMissingFields int                `json:"dropped_missing_fields"`
	ImputedValues        map[string]int     `json:"imputed_values"`
	Medians              map[string]float64 `json:"medians"`
	PrecipitationDerived bool               `json:"precipitation_derived"`
}

// Dataset is the immutable, ordered collection of loaded observations
type Dataset struct {
	observations []Observation
	minDate      time.Time
	maxDate      time.Time
	regions      []string
	countries    []string
	stats        LoadStats
}

// NewDataset builds a Dataset, computing date bounds and the distinct
// region and country lists. The slice is owned by the Dataset afterwards.
func NewDataset(observations []Observation, stats LoadStats) *Dataset {
	ds := &Dataset{observations: observations, stats: stats}

	regions := make(map[string]struct{})
	countries := make(map[string]struct{})
	for i := range observations {
		d := observations[i].Date
		if i == 0 || d.Before(ds.minDate) {
			ds.minDate = d
		}
		if i == 0 || d.After(ds.maxDate) {
			ds.maxDate = d
		}
		regions[observations[i].Region] = struct{}{}
		countries[observations[i].Country] = struct{}{}
	}

	ds.regions = sortedKeys(regions)
	ds.countries = sortedKeys(countries)
	return ds
}

// EmptyDataset is what the services run against when the load failed
func EmptyDataset() *Dataset {
	return NewDataset(nil, LoadStats{ImputedValues: map[string]int{}, Medians: map[string]float64{}})
}

// Observations returns the rows in load order. Callers must not modify them.
func (d *Dataset) Observations() []Observation { return d.observations }

// Len returns the number of observations
func (d *Dataset) Len() int { return len(d.observations) }

// Empty reports whether the dataset has no rows
func (d *Dataset) Empty() bool { return len(d.observations) == 0 }

// MinDate returns the earliest calendar date in the dataset
func (d *Dataset) MinDate() time.Time { return d.minDate }

// MaxDate returns the latest calendar date in the dataset
func (d *Dataset) MaxDate() time.Time { return d.maxDate }

// Regions returns the sorted distinct regions
func (d *Dataset) Regions() []string { return append([]string(nil), d.regions...) }

// Countries returns the sorted distinct countries
func (d *Dataset) Countries() []string { return append([]string(nil), d.countries...) }

// Stats returns the load statistics
func (d *Dataset) Stats() LoadStats { return d.stats }

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CalendarDate truncates t to midnight UTC of its calendar day
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
