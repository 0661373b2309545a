package models

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservation_ValueAndSetValue(t *testing.T) {
	var obs Observation
	for i, m := range []Metric{
		MetricTemperature, MetricHumidity, MetricPressure, MetricWindKph,
		MetricWindSpeed, MetricUVIndex, MetricPrecipitation,
	} {
		obs.SetValue(m, float64(i+1))
		assert.Equal(t, float64(i+1), obs.Value(m), "metric %s", m)
	}
	assert.True(t, math.IsNaN(obs.Value(Metric("dew_point"))))
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in    string
		want  Metric
		valid bool
	}{
		{"temperature_celsius", MetricTemperature, true},
		{" wind_speed ", MetricWindSpeed, true},
		{"dew_point", Metric("dew_point"), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, ok := ParseMetric(tt.in)
			assert.Equal(t, tt.want, m)
			assert.Equal(t, tt.valid, ok)
		})
	}
	assert.Equal(t, "Temperature (°C)", MetricTemperature.Label())
	assert.Equal(t, "dew_point", Metric("dew_point").Label())
}

func TestNewDataset_BoundsAndDistinctValues(t *testing.T) {
	d1 := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	obs := []Observation{
		{Country: "Peru", Region: "South America", Date: d2},
		{Country: "Chile", Region: "South America", Date: d1},
		{Country: "Kenya", Region: "Africa", Date: d2},
	}

	ds := NewDataset(obs, LoadStats{})

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, d1, ds.MinDate())
	assert.Equal(t, d2, ds.MaxDate())
	assert.Equal(t, []string{"Africa", "South America"}, ds.Regions())
	assert.Equal(t, []string{"Chile", "Kenya", "Peru"}, ds.Countries())
	assert.True(t, EmptyDataset().Empty())
}

func TestFilterSpec_KeyIgnoresSelectionOrder(t *testing.T) {
	day := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	a := FilterSpec{StartDate: day, Regions: []string{"B", "A"}, Countries: []string{"y", "x"}}
	b := FilterSpec{DateMode: DateModeRange, StartDate: day, Regions: []string{"A", "B"}, Countries: []string{"x", "y"}}
	c := FilterSpec{DateMode: DateModeSingle, SingleDate: day, Regions: []string{"A", "B"}}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, []string{"B", "A"}, a.Regions, "key must not reorder the caller's slice")
}

func TestFilteredView_HasMetric(t *testing.T) {
	view := &FilteredView{Observations: []Observation{
		{Humidity: 40, PressureMb: math.NaN()},
	}}
	assert.True(t, view.HasMetric(MetricHumidity))
	assert.False(t, view.HasMetric(MetricPressure))

	var nilView *FilteredView
	assert.True(t, nilView.Empty())
}

func TestErrors(t *testing.T) {
	inner := errors.New("connection refused")
	loadErr := &LoadError{Kind: LoadSourceUnavailable, Path: "postgres", Err: inner}
	wrapped := fmt.Errorf("startup: %w", loadErr)

	var target *LoadError
	require.True(t, errors.As(wrapped, &target))
	assert.True(t, target.IsTransient())
	assert.ErrorIs(t, wrapped, inner)

	schemaErr := &LoadError{Kind: LoadMalformedSchema, Path: "a.csv", Missing: []string{"latitude"}}
	assert.Contains(t, schemaErr.Error(), "latitude")
	assert.False(t, schemaErr.IsTransient())

	verr := &ValidationError{Kind: RangeInverted, Field: "start_date", Message: "start date is after end date"}
	assert.Equal(t, "start date is after end date", verr.Error())
	assert.False(t, verr.IsTransient())
}

func TestRawObservation_Cells(t *testing.T) {
	var raw RawObservation
	for _, col := range RawColumns {
		raw.SetCell(col, col+"-value")
	}
	for _, col := range RawColumns {
		assert.Equal(t, col+"-value", raw.Cell(col))
	}

	raw.SetCell(ColHumidity, "")
	assert.Nil(t, raw.Humidity)
	assert.Equal(t, "", raw.Cell(ColHumidity))
}
