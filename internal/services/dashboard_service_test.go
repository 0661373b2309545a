package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatescope/internal/config"
	"climatescope/internal/filter"
	"climatescope/internal/insights"
	"climatescope/internal/models"
	"climatescope/internal/presentation"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

func testMetrics() *metrics.Collector {
	return metrics.NewCollectorWithRegistry("climatescope_test", prometheus.NewRegistry())
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Timeout:               5 * time.Second,
		CacheSize:             8,
		TopN:                  10,
		MaxRadarCountries:     5,
		DefaultRadarCountries: 3,
	}
}

func obsAt(name, country, region string, day time.Time, temp float64) models.Observation {
	return models.Observation{
		LocationName:       name,
		Country:            country,
		Region:             region,
		Latitude:           10,
		Longitude:          20,
		LastUpdated:        day,
		Date:               models.CalendarDate(day),
		Year:               day.Year(),
		Month:              int(day.Month()),
		MonthName:          day.Month().String(),
		TemperatureCelsius: temp,
		Humidity:           55,
		PressureMb:         1011,
		WindKph:            9,
		UVIndex:            5,
		Precipitation:      5.5,
		WindSpeed:          9,
	}
}

// regionDataset has region A with temperatures 10 and 20 and region B with
// 30 and 40, spread over 2024-01-01 .. 2024-01-04
func regionDataset() *models.Dataset {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC) }
	return models.NewDataset([]models.Observation{
		obsAt("a1", "Alpha", "A", d(1), 10),
		obsAt("b1", "Beta", "B", d(2), 30),
		obsAt("a2", "Alpha", "A", d(3), 20),
		obsAt("b2", "Gamma", "B", d(4), 40),
	}, models.LoadStats{TotalRows: 4, LoadedRows: 4, ImputedValues: map[string]int{}, Medians: map[string]float64{}})
}

func newService(ds *models.Dataset, cfg config.PipelineConfig, mc *metrics.Collector) *DashboardService {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC))
	return NewDashboardService(ds, cfg, insights.NewReporter(clock), logging.NewNopLogger(), mc)
}

func TestRender_EndToEndRegionMeans(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	dash, err := svc.Render(context.Background(), filter.Request{})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOK, dash.Status)
	assert.Equal(t, 4, dash.Observations)
	assert.Equal(t, models.MetricTemperature, dash.Metric)
	require.NotNil(t, dash.Insights.HighestRegion)
	assert.Equal(t, "B", dash.Insights.HighestRegion.Key)
	assert.Equal(t, 35.0, dash.Insights.HighestRegion.Mean)
	assert.Equal(t, 15.0, dash.Insights.LowestRegion.Mean)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, dash.RadarCountries)
	assert.Equal(t, "b2", dash.TopLocations[0].LocationName)

	for _, c := range []presentation.Chart{dash.Charts.Map, dash.Charts.TimeSeries, dash.Charts.Scatter,
		dash.Charts.Heatmap, dash.Charts.Box, dash.Charts.Radar, dash.Charts.AirQuality} {
		assert.Equal(t, models.StatusOK, c.Status, c.Kind)
	}
}

func TestRender_FiltersByRegion(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	dash, err := svc.Render(context.Background(), filter.Request{Regions: []string{"A"}, Metric: "humidity"})
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Observations)
	assert.Equal(t, models.MetricHumidity, dash.Metric)
	assert.Equal(t, []string{"A"}, dash.Filter.Regions)
}

func TestRender_InvalidRequests(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	tests := []struct {
		name string
		req  filter.Request
		kind models.ValidationErrorKind
	}{
		{"inverted range", filter.Request{StartDate: "2024-01-03", EndDate: "2024-01-02"}, models.RangeInverted},
		{"out of bounds", filter.Request{StartDate: "2023-12-01"}, models.DateOutOfBounds},
		{"single date out of bounds", filter.Request{DateMode: "single", SingleDate: "2024-02-01"}, models.DateOutOfBounds},
		{"unknown metric", filter.Request{Metric: "snowfall"}, models.InvalidInput},
		{"bad date format", filter.Request{StartDate: "01/02/2024"}, models.InvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash, err := svc.Render(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, models.StatusInvalid, dash.Status)
			require.NotNil(t, dash.Problem)
			assert.Equal(t, tt.kind, dash.Problem.Kind)
			assert.NotEmpty(t, dash.Message)
			assert.Equal(t, 0, dash.Observations)
			assert.Nil(t, dash.Charts.Map.Data)
			assert.Equal(t, models.StatusInvalid, dash.Charts.AirQuality.Status)
			assert.Equal(t, dash.Message, dash.Charts.Radar.Message)
		})
	}
}

func TestRender_SingleDateWithNoRowsIsEmptyEverywhere(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC) }
	ds := models.NewDataset([]models.Observation{
		obsAt("a1", "Alpha", "A", d(1), 10),
		obsAt("a3", "Alpha", "A", d(3), 20),
	}, models.LoadStats{})
	svc := newService(ds, testPipelineConfig(), testMetrics())

	dash, err := svc.Render(context.Background(), filter.Request{DateMode: "single", SingleDate: "2024-01-02"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusEmpty, dash.Status)
	assert.Equal(t, presentation.NoMatchMessage, dash.Message)
	assert.Equal(t, models.StatusEmpty, dash.Insights.Status)
	assert.Empty(t, dash.TopLocations)
	assert.Equal(t, "0°C", dash.Cards.Display.AvgTemperature)
	for _, c := range []presentation.Chart{dash.Charts.Map, dash.Charts.TimeSeries, dash.Charts.Scatter,
		dash.Charts.Heatmap, dash.Charts.Box, dash.Charts.Radar, dash.Charts.AirQuality} {
		assert.Equal(t, models.StatusEmpty, c.Status, c.Kind)
		assert.Nil(t, c.Data, c.Kind)
	}
}

func TestRender_EmptyDataset(t *testing.T) {
	svc := newService(nil, testPipelineConfig(), testMetrics())

	dash, err := svc.Render(context.Background(), filter.Request{StartDate: "2024-01-01", EndDate: "2024-12-31"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmpty, dash.Status)
	assert.Equal(t, presentation.NoDataMessage, dash.Message)
	assert.Empty(t, svc.CountryOptions(nil))
}

func TestRender_CachesByCanonicalKey(t *testing.T) {
	mc := testMetrics()
	svc := newService(regionDataset(), testPipelineConfig(), mc)

	first, err := svc.Render(context.Background(), filter.Request{Regions: []string{"A", "B"}})
	require.NoError(t, err)
	second, err := svc.Render(context.Background(), filter.Request{Regions: []string{"B", "A"}})
	require.NoError(t, err)

	assert.Same(t, first, second, "region order does not change the cache key")
	hits, misses, size := svc.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, size)
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.CacheRequestsTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mc.PipelineRunsTotal.WithLabelValues("ok")))
}

func TestRender_CacheDisabled(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.CacheSize = 0
	svc := newService(regionDataset(), cfg, testMetrics())

	first, err := svc.Render(context.Background(), filter.Request{})
	require.NoError(t, err)
	second, err := svc.Render(context.Background(), filter.Request{})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Insights.Overview, second.Insights.Overview)
	_, _, size := svc.CacheStats()
	assert.Equal(t, 0, size)
}

func TestRender_ConcurrentCallersAgree(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	var wg sync.WaitGroup
	results := make([]*Dashboard, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dash, err := svc.Render(context.Background(), filter.Request{Countries: []string{"Alpha"}})
			if err == nil {
				results[i] = dash
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 2, r.Observations)
	}
}

func TestRender_CanceledContext(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.CacheSize = 0
	svc := newService(regionDataset(), cfg, testMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the pipeline wins the race or the cancellation does; a
	// canceled render never yields a partial dashboard.
	dash, err := svc.Render(ctx, filter.Request{})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, dash)
	} else {
		assert.Equal(t, models.StatusOK, dash.Status)
	}
}

func TestSetDataset_PurgesCache(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	_, err := svc.Render(context.Background(), filter.Request{})
	require.NoError(t, err)
	svc.SetDataset(nil)

	_, _, size := svc.CacheStats()
	assert.Equal(t, 0, size)

	dash, err := svc.Render(context.Background(), filter.Request{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmpty, dash.Status)
}

func TestRender_AbandonedRunStillFillsCache(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = svc.Render(ctx, filter.Request{})

	assert.Eventually(t, func() bool {
		_, _, size := svc.CacheStats()
		return size == 1
	}, 2*time.Second, 5*time.Millisecond)

	dash, err := svc.Render(context.Background(), filter.Request{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, dash.Status)
	hits, _, _ := svc.CacheStats()
	assert.Equal(t, uint64(1), hits)
}

func TestSetDataset_StaleRunIsNotCached(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	req := filter.Request{}
	spec, err := req.Spec()
	require.NoError(t, err)
	x, y := req.ScatterMetrics()

	// a run that started before the swap finishes after it
	oldDS, oldGen := svc.snapshot()
	svc.SetDataset(models.NewDataset(regionDataset().Observations()[:1], models.LoadStats{}))

	stale, err := svc.computeAndStore(context.Background(), oldDS, oldGen, "stale", spec, models.MetricTemperature, x, y)
	require.NoError(t, err)
	assert.Equal(t, 4, stale.Observations)
	_, _, size := svc.CacheStats()
	assert.Equal(t, 0, size)

	dash, err := svc.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Observations)
}

func TestInsights(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	tab, err := svc.Insights(context.Background(), filter.Request{}, insights.TabRegional)
	require.NoError(t, err)
	require.Len(t, tab.Regional, 2)
	assert.Equal(t, "B", tab.Regional[0].Key)

	_, err = svc.Insights(context.Background(), filter.Request{StartDate: "2024-01-04", EndDate: "2024-01-01"}, insights.TabStats)
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.RangeInverted, vErr.Kind)
}

func TestReport(t *testing.T) {
	mc := testMetrics()
	svc := newService(regionDataset(), testPipelineConfig(), mc)

	report, err := svc.Report(context.Background(), filter.Request{Regions: []string{"A", "B"}})
	require.NoError(t, err)

	assert.Equal(t, "climatescope_report_20250203_040506.md", report.Filename)
	assert.Contains(t, report.Content, "- **Regions**: A, B")
	b := strings.Index(report.Content, "- **B**: 35.0°C")
	a := strings.Index(report.Content, "- **A**: 15.0°C")
	require.True(t, a > 0 && b > 0)
	assert.Less(t, b, a)
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.ReportsGeneratedTotal))
}

func TestReport_SingleDateNoRows(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())
	report, err := svc.Report(context.Background(), filter.Request{DateMode: "single", SingleDate: "2024-01-02", Regions: []string{"A"}})
	require.NoError(t, err)
	assert.Contains(t, report.Content, "No data available for analysis with current filters.")
}

func TestCountryOptionsAndDatasetInfo(t *testing.T) {
	svc := newService(regionDataset(), testPipelineConfig(), testMetrics())

	assert.Equal(t, []string{"Beta", "Gamma"}, svc.CountryOptions([]string{"B"}))
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, svc.CountryOptions(nil))

	info := svc.DatasetInfo()
	assert.Equal(t, 4, info.Rows)
	assert.Equal(t, "2024-01-01", info.MinDate)
	assert.Equal(t, "2024-01-04", info.MaxDate)
	assert.Equal(t, []string{"A", "B"}, info.Regions)
	require.Len(t, info.Metrics, len(models.SelectableMetrics))
	assert.Equal(t, "Precipitation (proxy)", info.Metrics[3].Label)

	empty := newService(nil, testPipelineConfig(), testMetrics()).DatasetInfo()
	assert.Equal(t, 0, empty.Rows)
	assert.Empty(t, empty.MinDate)
	assert.NotNil(t, empty.Regions)
}
