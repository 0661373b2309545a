package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatescope/internal/models"
)

func TestSelectRadarCountries(t *testing.T) {
	view := viewOf(
		obs("a", "Peru", "SA", 1),
		obs("b", "Chile", "SA", 1),
		obs("c", "Peru", "SA", 1),
		obs("d", "Bolivia", "SA", 1),
		obs("e", "Brazil", "SA", 1),
	)

	assert.Equal(t, []string{"Peru", "Chile", "Bolivia"}, SelectRadarCountries(view, nil, 5, 3))
	assert.Equal(t, []string{"Brazil", "Peru"}, SelectRadarCountries(view, []string{"Brazil", "Atlantis", "Peru"}, 5, 3))
	assert.Equal(t, []string{"Chile"}, SelectRadarCountries(view, []string{"Chile", "Peru"}, 1, 3))
	assert.Empty(t, SelectRadarCountries(viewOf(), nil, 5, 3))
}

func TestRadarProfile(t *testing.T) {
	p1 := obs("p1", "Peru", "SA", 10)
	p1.Humidity = 40
	p2 := obs("p2", "Peru", "SA", 20)
	p2.Humidity = 60
	c1 := obs("c1", "Chile", "SA", 25)
	c1.Humidity = 70
	b1 := obs("b1", "Bolivia", "SA", 5)
	b1.Humidity = 30

	metrics := []models.Metric{models.MetricTemperature, models.MetricHumidity, models.MetricPressure}
	radar := RadarProfile(viewOf(p1, p2, c1, b1), []string{"Peru", "Chile", "Bolivia", "Atlantis"}, metrics)

	require.Len(t, radar.Series, 3)
	assert.Equal(t, metrics, radar.Metrics)

	peru := radar.Series[0]
	assert.Equal(t, "Peru", peru.Country)
	assert.Equal(t, []float64{15, 50, 1013}, peru.Raw)

	// temperature: Bolivia 5 → 0, Peru 15 → 50, Chile 25 → 100
	assert.InDelta(t, 50, peru.Normalized[0], 1e-9)
	assert.InDelta(t, 100, radar.Series[1].Normalized[0], 1e-9)
	assert.InDelta(t, 0, radar.Series[2].Normalized[0], 1e-9)
	// humidity: Bolivia 30 → 0, Peru 50 → 50, Chile 70 → 100
	assert.InDelta(t, 50, peru.Normalized[1], 1e-9)
	// pressure identical everywhere → degenerate → 50
	for _, s := range radar.Series {
		assert.Equal(t, 50.0, s.Normalized[2])
	}
}

func TestRadarProfile_Empty(t *testing.T) {
	radar := RadarProfile(viewOf(), []string{"Peru"}, models.RadarMetrics)
	assert.NotNil(t, radar.Series)
	assert.Empty(t, radar.Series)
}

func TestBoxStats(t *testing.T) {
	view := viewOf(
		obs("a", "X", "North", 1),
		obs("b", "X", "North", 2),
		obs("c", "X", "North", 3),
		obs("d", "X", "North", 4),
		obs("e", "X", "North", 5),
		obs("f", "Y", "Arctic", -10),
	)

	boxes := BoxStats(view, models.GroupByRegion, models.MetricTemperature)
	require.Len(t, boxes, 2)
	assert.Equal(t, "Arctic", boxes[0].Key)
	assert.Equal(t, 1, boxes[0].Summary.Count)
	assert.Equal(t, -10.0, boxes[0].Summary.Median)

	north := boxes[1].Summary
	assert.Equal(t, 1.0, north.Min)
	assert.Equal(t, 2.0, north.Q1)
	assert.Equal(t, 3.0, north.Median)
	assert.Equal(t, 4.0, north.Q3)
	assert.Equal(t, 5.0, north.Max)
}

func TestGroupStdDevMean(t *testing.T) {
	view := viewOf(
		obs("a", "X", "A", 10),
		obs("b", "X", "A", 20),
		obs("c", "Y", "B", 0),
		obs("d", "Y", "B", 4),
		obs("e", "Z", "C", 7),
	)
	// std(10,20) = 7.0711, std(0,4) = 2.8284, single-value region skipped
	assert.InDelta(t, (math.Sqrt(50)+math.Sqrt(8))/2, GroupStdDevMean(view, models.GroupByRegion, models.MetricTemperature), 1e-9)
	assert.True(t, math.IsNaN(GroupStdDevMean(viewOf(), models.GroupByRegion, models.MetricTemperature)))
}
