package dataset

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/s2"

	"climatescope/internal/models"
	"climatescope/internal/stats"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// timestampLayouts are tried in order when parsing last_updated
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"1/2/06 15:04",
	"1/2/2006 15:04",
}

// ParseTimestamp parses a last_updated cell. Timestamps without a zone are
// taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseNumber returns the cell as a finite float, or NaN when the cell is
// blank or not numeric.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// ValidCoordinate reports whether lat/lng form a real point on the sphere
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return s2.LatLngFromDegrees(lat, lng).IsValid()
}

// Loader turns a raw table into a normalized Dataset
type Loader struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewLoader creates a new dataset loader
func NewLoader(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Loader {
	return &Loader{logger: logger, metrics: metricsCollector}
}

// Load reads src and normalizes it. A LoadError is returned for a missing
// file or a table without the required columns; unusable rows are dropped
// and counted instead.
func (l *Loader) Load(ctx context.Context, src Source) (*models.Dataset, error) {
	timer := l.metrics.NewTimer(l.metrics.DatasetLoadDuration)

	l.logger.Info(ctx, "[LOAD_START] Loading dataset", logging.Fields{
		"source": src.Name(),
	})

	table, err := src.Read(ctx)
	if err != nil {
		l.logger.Error(ctx, "[LOAD_ERROR] Failed to read dataset source", logging.Fields{
			"source": src.Name(),
		}, err)
		return nil, err
	}

	ds, err := Normalize(table)
	if err != nil {
		l.logger.Error(ctx, "[LOAD_ERROR] Dataset schema rejected", logging.Fields{
			"source": src.Name(),
		}, err)
		return nil, err
	}

	st := ds.Stats()
	duration := timer.ObserveDuration()
	l.metrics.RecordDatasetLoad(st.LoadedRows, st.DroppedBadTimestamp, st.DroppedMissingFields, st.ImputedValues)

	l.logger.Info(ctx, "[LOAD_COMPLETE] Dataset loaded", logging.Fields{
		"source":                 src.Name(),
		"total_rows":             st.TotalRows,
		"loaded_rows":            st.LoadedRows,
		"dropped_bad_timestamp":  st.DroppedBadTimestamp,
		"dropped_missing_fields": st.DroppedMissingFields,
		"imputed_values":         st.ImputedValues,
		"precipitation_derived":  st.PrecipitationDerived,
		"min_date":               ds.MinDate().Format(models.DateLayout),
		"max_date":               ds.MaxDate().Format(models.DateLayout),
		"duration_ms":            duration.Milliseconds(),
	})

	return ds, nil
}

// Normalize validates the schema of table and converts its rows to
// Observations:
//   - rows missing location identity, coordinates or temperature are dropped
//   - rows whose last_updated cannot be parsed are dropped
//   - gaps in the imputed metric columns take the column median computed
//     over all kept rows
//   - calendar fields, the precipitation proxy and wind_speed are derived
func Normalize(table *RawTable) (*models.Dataset, error) {
	idx := table.ColumnIndex()

	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &models.LoadError{Kind: models.LoadMalformedSchema, Path: table.Name, Missing: missing}
	}

	col := func(name string) int {
		if pos, ok := idx[name]; ok {
			return pos
		}
		return -1
	}
	nameCol := col(models.ColLocationName)
	precipCol := col(models.ColPrecipitation)

	st := models.LoadStats{
		Source:               table.Name,
		TotalRows:            len(table.Rows),
		ImputedValues:        make(map[string]int),
		Medians:              make(map[string]float64),
		PrecipitationDerived: precipCol < 0,
	}

	observations := make([]models.Observation, 0, len(table.Rows))
	for i := range table.Rows {
		country := strings.TrimSpace(table.Cell(i, idx[models.ColCountry]))
		region := strings.TrimSpace(table.Cell(i, idx[models.ColRegion]))
		name := country
		if nameCol >= 0 {
			name = strings.TrimSpace(table.Cell(i, nameCol))
		}
		lat := parseNumber(table.Cell(i, idx[models.ColLatitude]))
		lng := parseNumber(table.Cell(i, idx[models.ColLongitude]))
		temp := parseNumber(table.Cell(i, idx[models.ColTemperature]))

		if country == "" || region == "" || name == "" || !ValidCoordinate(lat, lng) || math.IsNaN(temp) {
			st.DroppedMissingFields++
			continue
		}

		ts, ok := ParseTimestamp(table.Cell(i, idx[models.ColLastUpdated]))
		if !ok {
			st.DroppedBadTimestamp++
			continue
		}

		obs := models.Observation{
			LocationName:       name,
			Country:            country,
			Region:             region,
			Latitude:           lat,
			Longitude:          lng,
			LastUpdated:        ts,
			TemperatureCelsius: temp,
			Precipitation:      math.NaN(),
		}
		for _, m := range models.ImputedMetrics {
			if m == models.MetricTemperature {
				continue
			}
			obs.SetValue(m, math.NaN())
			if pos := col(string(m)); pos >= 0 {
				obs.SetValue(m, parseNumber(table.Cell(i, pos)))
			}
		}
		if precipCol >= 0 {
			obs.Precipitation = parseNumber(table.Cell(i, precipCol))
		}
		observations = append(observations, obs)
	}

	st.DroppedRows = st.DroppedMissingFields + st.DroppedBadTimestamp
	st.LoadedRows = len(observations)

	impute(observations, idx, &st)

	for i := range observations {
		deriveFields(&observations[i])
	}

	return models.NewDataset(observations, st), nil
}

// impute fills NaN cells of each imputed metric with that column's median.
// A column absent from the source stays NaN.
func impute(observations []models.Observation, idx map[string]int, st *models.LoadStats) {
	values := make([]float64, len(observations))
	for _, m := range models.ImputedMetrics {
		if _, ok := idx[string(m)]; !ok {
			continue
		}
		for i := range observations {
			values[i] = observations[i].Value(m)
		}
		median := stats.Median(values)
		if math.IsNaN(median) {
			continue
		}
		st.Medians[string(m)] = median

		filled := 0
		for i := range observations {
			if math.IsNaN(observations[i].Value(m)) {
				observations[i].SetValue(m, median)
				filled++
			}
		}
		if filled > 0 {
			st.ImputedValues[string(m)] = filled
		}
	}
}

func deriveFields(obs *models.Observation) {
	obs.Date = models.CalendarDate(obs.LastUpdated)
	obs.Year = obs.LastUpdated.Year()
	obs.Month = int(obs.LastUpdated.Month())
	obs.MonthName = obs.LastUpdated.Month().String()
	obs.WindSpeed = obs.WindKph
	if math.IsNaN(obs.Precipitation) {
		obs.Precipitation = obs.Humidity * 0.1
	}
}

// LoadFile is a convenience wrapper choosing the file source by extension
func (l *Loader) LoadFile(ctx context.Context, path, sheet string) (*models.Dataset, error) {
	src, err := SourceForPath(path, sheet)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return l.Load(ctx, src)
}
