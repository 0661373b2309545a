package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"climatescope/internal/aggregate"
	"climatescope/internal/config"
	"climatescope/internal/filter"
	"climatescope/internal/insights"
	"climatescope/internal/models"
	"climatescope/internal/presentation"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// Charts holds every chart of one dashboard render
type Charts struct {
	Map        presentation.Chart `json:"map"`
	TimeSeries presentation.Chart `json:"time_series"`
	Scatter    presentation.Chart `json:"scatter"`
	Heatmap    presentation.Chart `json:"heatmap"`
	Box        presentation.Chart `json:"box"`
	Radar      presentation.Chart `json:"radar"`
	AirQuality presentation.Chart `json:"air_quality"`
}

// Problem describes why a request was rejected
type Problem struct {
	Kind    models.ValidationErrorKind `json:"kind"`
	Field   string                     `json:"field,omitempty"`
	Value   string                     `json:"value,omitempty"`
	Message string                     `json:"message"`
}

// Dashboard is the complete output of one pipeline run. Outputs are
// all-or-nothing: an invalid or empty run carries placeholders only.
type Dashboard struct {
	Status         models.ResultStatus       `json:"status"`
	Message        string                    `json:"message,omitempty"`
	Problem        *Problem                  `json:"problem,omitempty"`
	Filter         models.FilterSpec         `json:"filter"`
	Metric         models.Metric             `json:"metric"`
	ScatterX       models.Metric             `json:"scatter_x"`
	ScatterY       models.Metric             `json:"scatter_y"`
	Observations   int                       `json:"observations"`
	Cards          presentation.SummaryCards `json:"cards"`
	Insights       *insights.InsightSet      `json:"insights"`
	TopLocations   []insights.Performer      `json:"top_locations"`
	RadarCountries []string                  `json:"radar_countries"`
	Charts         Charts                    `json:"charts"`
}

// MetricOption is a selectable metric with its display label
type MetricOption struct {
	Name  models.Metric `json:"name"`
	Label string        `json:"label"`
}

// DatasetInfo describes the loaded dataset and the filter choices it offers
type DatasetInfo struct {
	Rows      int              `json:"rows"`
	MinDate   string           `json:"min_date,omitempty"`
	MaxDate   string           `json:"max_date,omitempty"`
	Regions   []string         `json:"regions"`
	Countries []string         `json:"countries"`
	Metrics   []MetricOption   `json:"metrics"`
	Stats     models.LoadStats `json:"load_stats"`
}

// DashboardService runs the filter → aggregate → present pipeline against
// the currently loaded Dataset.
type DashboardService struct {
	mu         sync.RWMutex
	dataset    *models.Dataset
	generation uint64

	cfg      config.PipelineConfig
	reporter *insights.Reporter
	cache    *lruCache[*Dashboard]
	flight   singleflight.Group
	hits     atomic.Uint64
	misses   atomic.Uint64
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewDashboardService creates a pipeline service over ds. A nil ds behaves
// as an empty dataset: every render reports "no data".
func NewDashboardService(ds *models.Dataset, cfg config.PipelineConfig, reporter *insights.Reporter, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	if ds == nil {
		ds = models.EmptyDataset()
	}
	if reporter == nil {
		reporter = insights.NewReporter(nil)
	}
	return &DashboardService{
		dataset:  ds,
		cfg:      cfg,
		reporter: reporter,
		cache:    newLRUCache[*Dashboard](cfg.CacheSize),
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Dataset returns the dataset renders currently run against
func (s *DashboardService) Dataset() *models.Dataset {
	ds, _ := s.snapshot()
	return ds
}

func (s *DashboardService) snapshot() (*models.Dataset, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset, s.generation
}

// SetDataset swaps in a freshly loaded dataset and drops cached renders.
// Renders still running against the previous dataset never reach the cache.
func (s *DashboardService) SetDataset(ds *models.Dataset) {
	if ds == nil {
		ds = models.EmptyDataset()
	}
	s.mu.Lock()
	s.dataset = ds
	s.generation++
	s.mu.Unlock()
	s.cache.purge()
}

// Render runs the full pipeline for req. Validation failures are not
// errors: they produce a Dashboard with StatusInvalid. An error is returned
// only when the run timed out or an aggregation failed without a fallback.
func (s *DashboardService) Render(ctx context.Context, req filter.Request) (*Dashboard, error) {
	timer := s.metrics.NewTimer(s.metrics.PipelineDuration)
	defer timer.ObserveDuration()

	metric := req.MetricOr(models.MetricTemperature)
	scatterX, scatterY := req.ScatterMetrics()

	spec, err := req.Spec()
	if err != nil {
		return s.rejected(ctx, spec, metric, scatterX, scatterY, err)
	}

	ds, gen := s.snapshot()
	key := fmt.Sprintf("g%d|%s|m=%s|x=%s|y=%s", gen, spec.Key(), metric, scatterX, scatterY)
	if cached, ok := s.cache.get(key); ok {
		s.recordCache(true)
		s.metrics.RecordPipelineRun(string(cached.Status))
		return cached, nil
	}
	s.recordCache(false)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	// The shared run is not bound to any caller's deadline and caches its
	// own result.
	runCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return s.computeAndStore(runCtx, ds, gen, key, spec, metric, scatterX, scatterY)
	})

	select {
	case <-ctx.Done():
		s.metrics.RecordPipelineRun("timeout")
		s.logger.Warn(ctx, "[PIPELINE_TIMEOUT] Dashboard render abandoned", logging.Fields{
			"filter":  spec.Key(),
			"metric":  metric,
			"timeout": s.cfg.Timeout.String(),
		})
		return nil, fmt.Errorf("dashboard render: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			var vErr *models.ValidationError
			if errors.As(res.Err, &vErr) {
				return s.rejected(ctx, spec, metric, scatterX, scatterY, vErr)
			}
			s.metrics.RecordPipelineRun("error")
			s.logger.Error(ctx, "[PIPELINE_ERROR] Dashboard render failed", logging.Fields{
				"filter": spec.Key(),
				"metric": metric,
			}, res.Err)
			return nil, res.Err
		}
		dash := res.Val.(*Dashboard)
		s.metrics.RecordPipelineRun(string(dash.Status))
		return dash, nil
	}
}

// computeAndStore runs the pipeline against ds and caches the result unless
// the dataset was replaced in the meantime.
func (s *DashboardService) computeAndStore(ctx context.Context, ds *models.Dataset, gen uint64, key string, spec models.FilterSpec, metric, scatterX, scatterY models.Metric) (*Dashboard, error) {
	dash, err := s.compute(ctx, ds, spec, metric, scatterX, scatterY)
	if err != nil {
		return nil, err
	}
	if _, current := s.snapshot(); current == gen {
		s.cache.put(key, dash)
	}
	return dash, nil
}

func (s *DashboardService) compute(ctx context.Context, ds *models.Dataset, spec models.FilterSpec, metric, scatterX, scatterY models.Metric) (*Dashboard, error) {
	view, err := filter.Apply(ds, spec)
	if err != nil {
		return nil, err
	}
	s.metrics.PipelineViewRows.Observe(float64(view.Len()))

	dash := &Dashboard{
		Status:         models.StatusOK,
		Filter:         spec,
		Metric:         metric,
		ScatterX:       scatterX,
		ScatterY:       scatterY,
		Observations:   view.Len(),
		Cards:          presentation.Cards(view),
		Insights:       insights.Summarize(view, metric),
		TopLocations:   insights.TopPerformers(view, metric, s.cfg.TopN),
		RadarCountries: aggregate.SelectRadarCountries(view, spec.Countries, s.cfg.MaxRadarCountries, s.cfg.DefaultRadarCountries),
	}
	if view.Empty() {
		dash.Status = models.StatusEmpty
		dash.Message = presentation.NoMatchMessage
		if ds.Empty() {
			dash.Message = presentation.NoDataMessage
		}
	}

	aqi, err := presentation.AirQualityChart(view)
	if err != nil {
		return nil, fmt.Errorf("air quality: %w", err)
	}

	dash.Charts = Charts{
		Map:        presentation.MapChart(view, metric),
		TimeSeries: presentation.TimeSeriesChart(view, metric),
		Scatter:    presentation.ScatterChart(view, scatterX, scatterY),
		Heatmap:    presentation.HeatmapChart(view, metric),
		Box:        presentation.BoxChart(view, metric),
		Radar:      presentation.RadarChart(view, dash.RadarCountries),
		AirQuality: aqi,
	}

	s.logger.Debug(ctx, "[PIPELINE_COMPLETE] Dashboard rendered", logging.Fields{
		"filter": spec.Key(),
		"metric": metric,
		"rows":   view.Len(),
		"status": dash.Status,
	})
	return dash, nil
}

// rejected builds the all-placeholder dashboard returned for invalid input
func (s *DashboardService) rejected(ctx context.Context, spec models.FilterSpec, metric, scatterX, scatterY models.Metric, err error) (*Dashboard, error) {
	var vErr *models.ValidationError
	if !errors.As(err, &vErr) {
		return nil, err
	}
	s.metrics.RecordPipelineRun(string(models.StatusInvalid))
	s.logger.Info(ctx, "[PIPELINE_INVALID] Request rejected", logging.Fields{
		"kind":  vErr.Kind,
		"field": vErr.Field,
		"value": vErr.Value,
	})

	placeholder := func(kind presentation.ChartKind) presentation.Chart {
		return presentation.Placeholder(kind, models.StatusInvalid, vErr.Message)
	}
	empty := &models.FilteredView{}
	return &Dashboard{
		Status:         models.StatusInvalid,
		Message:        vErr.Message,
		Problem:        &Problem{Kind: vErr.Kind, Field: vErr.Field, Value: vErr.Value, Message: vErr.Message},
		Filter:         spec,
		Metric:         metric,
		ScatterX:       scatterX,
		ScatterY:       scatterY,
		Cards:          presentation.EmptyCards(),
		Insights:       insights.Summarize(empty, metric),
		TopLocations:   []insights.Performer{},
		RadarCountries: []string{},
		Charts: Charts{
			Map:        placeholder(presentation.ChartMap),
			TimeSeries: placeholder(presentation.ChartTimeSeries),
			Scatter:    placeholder(presentation.ChartScatter),
			Heatmap:    placeholder(presentation.ChartHeatmap),
			Box:        placeholder(presentation.ChartBox),
			Radar:      placeholder(presentation.ChartRadar),
			AirQuality: placeholder(presentation.ChartAirQuality),
		},
	}, nil
}

func (s *DashboardService) recordCache(hit bool) {
	if hit {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	s.metrics.RecordCacheLookup(hit, s.hits.Load(), s.misses.Load())
}

// view validates req and filters the current dataset
func (s *DashboardService) view(req filter.Request) (*models.FilteredView, models.FilterSpec, error) {
	spec, err := req.Spec()
	if err != nil {
		return nil, spec, err
	}
	view, err := filter.Apply(s.Dataset(), spec)
	if err != nil {
		return nil, spec, err
	}
	return view, spec, nil
}

// Insights computes one insight tab. Invalid requests return a
// *models.ValidationError.
func (s *DashboardService) Insights(ctx context.Context, req filter.Request, tab insights.Tab) (*insights.TabInsights, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view, _, err := s.view(req)
	if err != nil {
		return nil, err
	}
	return insights.ForTab(view, req.MetricOr(models.MetricTemperature), tab), nil
}

// Report renders the Markdown report for req. Invalid requests return a
// *models.ValidationError.
func (s *DashboardService) Report(ctx context.Context, req filter.Request) (*insights.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	view, spec, err := s.view(req)
	if err != nil {
		return nil, err
	}

	report := s.reporter.Generate(view, spec)
	s.metrics.ReportsGeneratedTotal.Inc()
	s.logger.Info(ctx, "[REPORT_GENERATED] Report rendered", logging.Fields{
		"filename":    report.Filename,
		"rows":        view.Len(),
		"bytes":       len(report.Content),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return &report, nil
}

// CountryOptions lists the countries selectable for the given regions
func (s *DashboardService) CountryOptions(regions []string) []string {
	return filter.CountryOptions(s.Dataset(), regions)
}

// DatasetInfo describes the loaded dataset
func (s *DashboardService) DatasetInfo() DatasetInfo {
	ds := s.Dataset()
	info := DatasetInfo{
		Rows:      ds.Len(),
		Regions:   ds.Regions(),
		Countries: ds.Countries(),
		Metrics:   make([]MetricOption, 0, len(models.SelectableMetrics)),
		Stats:     ds.Stats(),
	}
	if info.Regions == nil {
		info.Regions = []string{}
	}
	if info.Countries == nil {
		info.Countries = []string{}
	}
	if !ds.Empty() {
		info.MinDate = ds.MinDate().Format(models.DateLayout)
		info.MaxDate = ds.MaxDate().Format(models.DateLayout)
	}
	for _, m := range models.SelectableMetrics {
		info.Metrics = append(info.Metrics, MetricOption{Name: m, Label: m.Label()})
	}
	return info
}

// CacheStats reports the memo cache hit and miss counts and its size
func (s *DashboardService) CacheStats() (hits, misses uint64, size int) {
	return s.hits.Load(), s.misses.Load(), s.cache.len()
}
