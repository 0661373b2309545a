package presentation

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"climatescope/internal/aggregate"
	"climatescope/internal/models"
	"climatescope/internal/stats"
)

// SummaryCards are the headline figures above the charts. Display holds
// the formatted strings; undefined averages render as zero.
type SummaryCards struct {
	TotalObservations int      `json:"total_observations"`
	AvgTemperature    *float64 `json:"avg_temperature"`
	AvgHumidity       *float64 `json:"avg_humidity"`
	AvgWindSpeed      *float64 `json:"avg_wind_speed"`
	AvgUVIndex        *float64 `json:"avg_uv_index"`
	Display           CardText `json:"display"`
}

// CardText is the rendered text of each summary card
type CardText struct {
	TotalObservations string `json:"total_observations"`
	AvgTemperature    string `json:"avg_temperature"`
	AvgHumidity       string `json:"avg_humidity"`
	AvgWindSpeed      string `json:"avg_wind_speed"`
	AvgUVIndex        string `json:"avg_uv_index"`
}

// Cards computes the summary cards for view
func Cards(view *models.FilteredView) SummaryCards {
	temp := stats.Mean(aggregate.Values(view, models.MetricTemperature))
	hum := stats.Mean(aggregate.Values(view, models.MetricHumidity))
	wind := stats.Mean(aggregate.Values(view, models.MetricWindKph))
	uv := stats.Mean(aggregate.Values(view, models.MetricUVIndex))

	return SummaryCards{
		TotalObservations: view.Len(),
		AvgTemperature:    stats.Defined(temp),
		AvgHumidity:       stats.Defined(hum),
		AvgWindSpeed:      stats.Defined(wind),
		AvgUVIndex:        stats.Defined(uv),
		Display: CardText{
			TotalObservations: humanize.Comma(int64(view.Len())),
			AvgTemperature:    cardValue(temp, "°C"),
			AvgHumidity:       cardValue(hum, "%"),
			AvgWindSpeed:      cardValue(wind, ""),
			AvgUVIndex:        cardValue(uv, ""),
		},
	}
}

// EmptyCards are shown when the pipeline produced no view
func EmptyCards() SummaryCards {
	return Cards(&models.FilteredView{})
}

func cardValue(v float64, unit string) string {
	if math.IsNaN(v) {
		return "0" + unit
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}
