package insights

import (
	"fmt"
	"math"
	"strings"

	"climatescope/internal/aggregate"
	"climatescope/internal/models"
	"climatescope/internal/stats"
)

// Tab selects one of the interactive insight panels
type Tab string

const (
	TabStats    Tab = "stats"
	TabRegional Tab = "regional"
	TabTop      Tab = "top"
	TabTrends   Tab = "trends"
)

const (
	regionalTabSize = 7
	topTabSize      = 10
)

// ParseTab accepts a tab name with or without the "-tab" suffix. Unknown and
// empty names fall back to the statistics tab.
func ParseTab(s string) Tab {
	switch t := Tab(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "-tab")); t {
	case TabStats, TabRegional, TabTop, TabTrends:
		return t
	default:
		return TabStats
	}
}

// Performer is one ranked location in the top-performers tab
type Performer struct {
	Rank         int     `json:"rank"`
	Country      string  `json:"country"`
	LocationName string  `json:"location_name"`
	Value        float64 `json:"value"`
}

// Trends is the content of the trends tab
type Trends struct {
	PeakMonth         *MonthValue `json:"peak_month,omitempty"`
	RegionalVariation *float64    `json:"regional_variation"`
	PeakMessage       string      `json:"peak_message"`
	VariationMessage  string      `json:"variation_message"`
}

// TabInsights is the payload of a single insight tab. Only the section for
// Tab is populated.
type TabInsights struct {
	Tab      Tab                    `json:"tab"`
	Metric   models.Metric          `json:"metric"`
	Label    string                 `json:"label"`
	Status   models.ResultStatus    `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Stats    *stats.Summary         `json:"stats,omitempty"`
	Regional []aggregate.GroupValue `json:"regional,omitempty"`
	Top      []Performer            `json:"top,omitempty"`
	Trends   *Trends                `json:"trends,omitempty"`
}

// ForTab computes one insight tab for metric over view
func ForTab(view *models.FilteredView, metric models.Metric, tab Tab) *TabInsights {
	out := &TabInsights{Tab: tab, Metric: metric, Label: metric.Label(), Status: models.StatusOK}
	if view.Empty() {
		out.Status = models.StatusEmpty
		out.Message = NoInsightsMessage
		return out
	}

	switch tab {
	case TabRegional:
		regions := aggregate.GroupMeans(view, models.GroupByRegion, metric)
		if len(regions) > regionalTabSize {
			regions = regions[:regionalTabSize]
		}
		out.Regional = regions
	case TabTop:
		out.Top = TopPerformers(view, metric, topTabSize)
	case TabTrends:
		out.Trends = trends(view, metric)
	default:
		out.Tab = TabStats
		s := stats.Describe(aggregate.Values(view, metric))
		out.Stats = &s
	}
	return out
}

// TopPerformers ranks the n locations with the highest value of metric.
// Locations without a value are left out.
func TopPerformers(view *models.FilteredView, metric models.Metric, n int) []Performer {
	top := aggregate.TopN(view, metric, n)
	out := make([]Performer, 0, len(top))
	for i := range top {
		v := top[i].Value(metric)
		if math.IsNaN(v) {
			break
		}
		out = append(out, Performer{
			Rank:         i + 1,
			Country:      top[i].Country,
			LocationName: top[i].LocationName,
			Value:        v,
		})
	}
	return out
}

func trends(view *models.FilteredView, metric models.Metric) *Trends {
	variation := aggregate.GroupStdDevMean(view, models.GroupByRegion, metric)
	t := &Trends{RegionalVariation: stats.Defined(variation)}
	lower := strings.ToLower(metric.Label())
	if peak, ok := PeakMonth(view, metric); ok {
		t.PeakMonth = &peak
		t.PeakMessage = fmt.Sprintf("%s shows the highest average %s (%s)", peak.Name, lower, fixed(peak.Mean, 2))
	}
	t.VariationMessage = fmt.Sprintf("Average regional variation: %s", fixed(variation, 2))
	return t
}
