package aggregate

import (
	"math"

	"climatescope/internal/models"
)

// Composite air-quality weights and the defaults used when a source metric
// is undefined for an observation.
const (
	weightHumidity = 0.3
	weightWind     = 0.2
	weightUV       = 0.3
	weightPressure = 0.2

	defaultHumidity = 50.0
	defaultWind     = 10.0
	defaultUV       = 5.0
	defaultPressure = 1013.0

	minAQISignals = 2
)

// AQICategory buckets a normalized air-quality score
type AQICategory string

const (
	AQIExcellent AQICategory = "Excellent"
	AQIGood      AQICategory = "Good"
	AQIModerate  AQICategory = "Moderate"
	AQIPoor      AQICategory = "Poor"
	AQIVeryPoor  AQICategory = "Very Poor"
	AQIUnknown   AQICategory = "Unknown"
)

// AQICategories is the fixed display order of categories
var AQICategories = []AQICategory{AQIExcellent, AQIGood, AQIModerate, AQIPoor, AQIVeryPoor, AQIUnknown}

// CategorizeAQI maps a normalized score to its category
func CategorizeAQI(score float64) AQICategory {
	switch {
	case math.IsNaN(score):
		return AQIUnknown
	case score <= 20:
		return AQIExcellent
	case score <= 40:
		return AQIGood
	case score <= 60:
		return AQIModerate
	case score <= 80:
		return AQIPoor
	default:
		return AQIVeryPoor
	}
}

// AQIScore is the composite index for one observation
type AQIScore struct {
	LocationName string      `json:"location_name"`
	Country      string      `json:"country"`
	Region       string      `json:"region"`
	Raw          float64     `json:"raw"`
	Score        float64     `json:"score"`
	Category     AQICategory `json:"category"`
}

// RawAirQuality computes the unnormalized composite for one observation.
// Wind is capped at 100 km/h so its term never goes negative.
func RawAirQuality(obs *models.Observation) float64 {
	humidity := orDefault(obs.Humidity, defaultHumidity)
	wind := math.Min(orDefault(obs.WindKph, defaultWind), 100)
	uv := orDefault(obs.UVIndex, defaultUV)
	pressure := orDefault(obs.PressureMb, defaultPressure)

	return humidity*weightHumidity +
		(100-wind)*weightWind +
		uv*weightUV +
		(pressure-1000)*weightPressure
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}

// CompositeAirQuality scores every observation in the view and min-max
// normalizes the scores across the view. At least two of humidity, wind,
// UV and pressure must be defined somewhere in the view; otherwise an
// InsufficientMetrics AggregationError is returned.
func CompositeAirQuality(view *models.FilteredView) ([]AQIScore, error) {
	if view.Empty() {
		return []AQIScore{}, nil
	}

	present := 0
	for _, m := range []models.Metric{models.MetricHumidity, models.MetricWindKph, models.MetricUVIndex, models.MetricPressure} {
		if view.HasMetric(m) {
			present++
		}
	}
	if present < minAQISignals {
		return nil, &models.AggregationError{
			Kind:      models.InsufficientMetrics,
			Operation: "composite_air_quality",
			Message:   "at least two of humidity, wind, UV and pressure are required",
		}
	}

	raw := make([]float64, len(view.Observations))
	for i := range view.Observations {
		raw[i] = RawAirQuality(&view.Observations[i])
	}
	normalized := NormalizeMinMax(raw)

	out := make([]AQIScore, len(view.Observations))
	for i := range view.Observations {
		obs := &view.Observations[i]
		out[i] = AQIScore{
			LocationName: obs.LocationName,
			Country:      obs.Country,
			Region:       obs.Region,
			Raw:          raw[i],
			Score:        normalized[i],
			Category:     CategorizeAQI(normalized[i]),
		}
	}
	return out, nil
}

// CategoryCount is the share of observations in one AQI category
type CategoryCount struct {
	Category AQICategory `json:"category"`
	Count    int         `json:"count"`
	Percent  float64     `json:"percent"`
}

// AQIDistribution counts scores per category in display order, omitting
// empty categories.
func AQIDistribution(scores []AQIScore) []CategoryCount {
	counts := make(map[AQICategory]int)
	for _, s := range scores {
		counts[s.Category]++
	}

	out := []CategoryCount{}
	for _, c := range AQICategories {
		n := counts[c]
		if n == 0 {
			continue
		}
		out = append(out, CategoryCount{
			Category: c,
			Count:    n,
			Percent:  float64(n) / float64(len(scores)) * 100,
		})
	}
	return out
}
