package aggregate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatescope/internal/models"
)

func at(year, month, d int) models.Observation {
	ts := time.Date(year, time.Month(month), d, 12, 0, 0, 0, time.UTC)
	return models.Observation{
		LastUpdated: ts,
		Date:        models.CalendarDate(ts),
		Year:        year,
		Month:       month,
		MonthName:   time.Month(month).String(),
	}
}

func obs(name, country, region string, temp float64) models.Observation {
	o := at(2024, 5, 16)
	o.LocationName = name
	o.Country = country
	o.Region = region
	o.TemperatureCelsius = temp
	o.Humidity = 50
	o.WindKph = 10
	o.UVIndex = 5
	o.PressureMb = 1013
	return o
}

func viewOf(observations ...models.Observation) *models.FilteredView {
	if observations == nil {
		observations = []models.Observation{}
	}
	return &models.FilteredView{Observations: observations}
}

func TestGroupMean(t *testing.T) {
	view := viewOf(
		obs("a1", "X", "A", 10),
		obs("b1", "Y", "B", 30),
		obs("a2", "X", "A", 20),
		obs("b2", "Z", "B", 40),
	)

	assert.Equal(t, map[string]float64{"A": 15, "B": 35}, GroupMean(view, models.GroupByRegion, models.MetricTemperature))
	assert.Equal(t, map[string]float64{"X": 15, "Y": 30, "Z": 40}, GroupMean(view, models.GroupByCountry, models.MetricTemperature))

	ranked := GroupMeans(view, models.GroupByRegion, models.MetricTemperature)
	require.Len(t, ranked, 2)
	assert.Equal(t, GroupValue{Key: "B", Mean: 35, Count: 2}, ranked[0])
	assert.Equal(t, GroupValue{Key: "A", Mean: 15, Count: 2}, ranked[1])
}

func TestGroupMean_EmptyView(t *testing.T) {
	got := GroupMean(viewOf(), models.GroupByRegion, models.MetricTemperature)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGroupMean_SkipsUndefinedValues(t *testing.T) {
	a := obs("a", "X", "A", 10)
	a.PressureMb = math.NaN()
	b := obs("b", "Y", "B", 10)
	b.PressureMb = 1000

	got := GroupMean(viewOf(a, b), models.GroupByRegion, models.MetricPressure)
	assert.Equal(t, map[string]float64{"B": 1000}, got)
}

func TestMonthlyTrend_ChronologicalBuckets(t *testing.T) {
	withTemp := func(o models.Observation, temp float64) models.Observation {
		o.TemperatureCelsius = temp
		return o
	}
	view := viewOf(
		withTemp(at(2025, 1, 3), 4),
		withTemp(at(2024, 12, 1), 6),
		withTemp(at(2024, 6, 1), 20),
		withTemp(at(2024, 6, 20), 24),
	)

	trend := MonthlyTrend(view, models.MetricTemperature)
	require.Len(t, trend, 3)
	assert.Equal(t, "2024-06", trend[0].YearMonth)
	assert.Equal(t, 22.0, trend[0].Mean)
	assert.Equal(t, 2, trend[0].Count)
	assert.Equal(t, "2024-12", trend[1].YearMonth)
	assert.Equal(t, "2025-01", trend[2].YearMonth)

	assert.Empty(t, MonthlyTrend(viewOf(), models.MetricTemperature))
}

func TestSeasonalityPivot(t *testing.T) {
	mk := func(y, m int, temp float64) models.Observation {
		o := at(y, m, 1)
		o.TemperatureCelsius = temp
		return o
	}
	view := viewOf(mk(2024, 6, 20), mk(2024, 6, 22), mk(2025, 6, 25), mk(2025, 1, 3))

	p := SeasonalityPivot(view, models.MetricTemperature)
	assert.Equal(t, []int{2024, 2025}, p.Years)

	v, ok := p.Value(6, 2024)
	assert.True(t, ok)
	assert.Equal(t, 21.0, v)

	v, ok = p.Value(1, 2025)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = p.Value(1, 2024)
	assert.False(t, ok, "missing cell stays undefined")
	_, ok = p.Value(3, 2025)
	assert.False(t, ok)

	empty := SeasonalityPivot(viewOf(), models.MetricTemperature)
	assert.Empty(t, empty.Years)
	assert.Empty(t, empty.Cells)
}

func TestMonthOfYearMeans(t *testing.T) {
	mk := func(y, m int, temp float64) models.Observation {
		o := at(y, m, 1)
		o.TemperatureCelsius = temp
		return o
	}
	got := MonthOfYearMeans(viewOf(mk(2024, 6, 20), mk(2025, 6, 30), mk(2025, 1, 3)), models.MetricTemperature)
	assert.Equal(t, map[int]float64{6: 25, 1: 3}, got)
}

func TestNormalizeMinMax(t *testing.T) {
	assert.Equal(t, []float64{0, 50, 100}, NormalizeMinMax([]float64{10, 20, 30}))
	assert.Equal(t, []float64{50, 50, 50}, NormalizeMinMax([]float64{7, 7, 7}))
	assert.Equal(t, []float64{50}, NormalizeMinMax([]float64{3}))
	assert.Empty(t, NormalizeMinMax(nil))

	got := NormalizeMinMax([]float64{0, math.NaN(), 4})
	assert.Equal(t, 0.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 100.0, got[2])
}

func TestTopN_StableTies(t *testing.T) {
	view := viewOf(
		obs("first", "X", "A", 10),
		obs("tie-a", "X", "A", 30),
		obs("tie-b", "X", "A", 30),
		obs("last", "X", "A", 5),
	)

	top := TopN(view, models.MetricTemperature, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "tie-a", top[0].LocationName)
	assert.Equal(t, "tie-b", top[1].LocationName)
	assert.Equal(t, "first", top[2].LocationName)

	assert.Len(t, TopN(view, models.MetricTemperature, 10), 4)
	assert.Empty(t, TopN(view, models.MetricTemperature, 0))
	assert.Empty(t, TopN(viewOf(), models.MetricTemperature, 5))
	assert.Equal(t, "first", view.Observations[0].LocationName, "view order is untouched")
}

func TestTopN_UndefinedLast(t *testing.T) {
	a := obs("undefined", "X", "A", 0)
	a.PressureMb = math.NaN()
	b := obs("defined", "X", "A", 0)
	b.PressureMb = 990

	top := TopN(viewOf(a, b), models.MetricPressure, 2)
	assert.Equal(t, "defined", top[0].LocationName)
}

func TestExtreme(t *testing.T) {
	view := viewOf(obs("a", "X", "A", 10), obs("b", "Y", "A", 30), obs("c", "Z", "A", 30), obs("d", "W", "A", -5))

	hot, ok := Extreme(view, models.MetricTemperature, true)
	require.True(t, ok)
	assert.Equal(t, "b", hot.LocationName)

	cold, ok := Extreme(view, models.MetricTemperature, false)
	require.True(t, ok)
	assert.Equal(t, "d", cold.LocationName)

	_, ok = Extreme(viewOf(), models.MetricTemperature, true)
	assert.False(t, ok)
}

func TestDistinct(t *testing.T) {
	view := viewOf(obs("a", "Peru", "SA", 1), obs("b", "Chile", "SA", 1), obs("c", "Peru", "SA", 1))
	assert.Equal(t, 2, DistinctCount(view, models.GroupByCountry))
	assert.Equal(t, []string{"Peru", "Chile"}, DistinctInOrder(view, models.GroupByCountry))
}

func TestCompositeAirQuality_DefaultsForMissingSignals(t *testing.T) {
	o := obs("only", "X", "A", 20)
	o.Humidity = 80
	o.UVIndex = 10
	o.WindKph = math.NaN()
	o.PressureMb = math.NaN()

	scores, err := CompositeAirQuality(viewOf(o))
	require.NoError(t, err)
	require.Len(t, scores, 1)

	// 80*0.3 + (100-10)*0.2 + 10*0.3 + (1013-1000)*0.2
	assert.InDelta(t, 47.6, scores[0].Raw, 1e-9)
	assert.Equal(t, 50.0, scores[0].Score, "single observation is a degenerate range")
	assert.Equal(t, AQIModerate, scores[0].Category)
}

func TestCompositeAirQuality_Normalized(t *testing.T) {
	low := obs("low", "X", "A", 20)
	low.Humidity = 20
	high := obs("high", "Y", "A", 20)
	high.Humidity = 90
	mid := obs("mid", "Z", "A", 20)
	mid.Humidity = 55

	scores, err := CompositeAirQuality(viewOf(low, high, mid))
	require.NoError(t, err)

	assert.Equal(t, 0.0, scores[0].Score)
	assert.Equal(t, AQIExcellent, scores[0].Category)
	assert.Equal(t, 100.0, scores[1].Score)
	assert.Equal(t, AQIVeryPoor, scores[1].Category)
	assert.InDelta(t, 50.0, scores[2].Score, 1e-9)
	assert.Equal(t, AQIModerate, scores[2].Category)
}

func TestCompositeAirQuality_WindCapped(t *testing.T) {
	o := obs("gale", "X", "A", 20)
	o.WindKph = 250
	assert.InDelta(t, 50*0.3+0+5*0.3+13*0.2, RawAirQuality(&o), 1e-9)
}

func TestCompositeAirQuality_InsufficientMetrics(t *testing.T) {
	o := obs("sparse", "X", "A", 20)
	o.Humidity = 60
	o.WindKph = math.NaN()
	o.UVIndex = math.NaN()
	o.PressureMb = math.NaN()

	_, err := CompositeAirQuality(viewOf(o))
	var aggErr *models.AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, models.InsufficientMetrics, aggErr.Kind)
}

func TestCompositeAirQuality_EmptyView(t *testing.T) {
	scores, err := CompositeAirQuality(viewOf())
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestCategorizeAQI(t *testing.T) {
	tests := []struct {
		score float64
		want  AQICategory
	}{
		{0, AQIExcellent},
		{20, AQIExcellent},
		{20.01, AQIGood},
		{40, AQIGood},
		{60, AQIModerate},
		{80, AQIPoor},
		{80.5, AQIVeryPoor},
		{math.NaN(), AQIUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeAQI(tt.score), "score %v", tt.score)
	}
}

func TestAQIDistribution(t *testing.T) {
	scores := []AQIScore{
		{Category: AQIPoor}, {Category: AQIExcellent}, {Category: AQIPoor}, {Category: AQIGood},
	}
	dist := AQIDistribution(scores)
	require.Len(t, dist, 3)
	assert.Equal(t, CategoryCount{Category: AQIExcellent, Count: 1, Percent: 25}, dist[0])
	assert.Equal(t, CategoryCount{Category: AQIGood, Count: 1, Percent: 25}, dist[1])
	assert.Equal(t, CategoryCount{Category: AQIPoor, Count: 2, Percent: 50}, dist[2])
	assert.Empty(t, AQIDistribution(nil))
}
