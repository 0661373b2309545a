// Package insights turns a filtered view into the narrative pieces of the
// dashboard: the insight panel, the insight tabs and the Markdown report.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"climatescope/internal/aggregate"
	"climatescope/internal/models"
	"climatescope/internal/stats"
)

// NoInsightsMessage is shown in place of insights for an empty view
const NoInsightsMessage = "No data available for generating insights."

// MonthValue is a calendar month paired with a mean
type MonthValue struct {
	Month int     `json:"month"`
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
}

// Coverage describes how much of the world a view spans
type Coverage struct {
	Observations int    `json:"observations"`
	Countries    int    `json:"countries"`
	Regions      int    `json:"regions"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
}

// InsightSet is the summary shown beside the charts for one metric
type InsightSet struct {
	Metric        models.Metric         `json:"metric"`
	Label         string                `json:"label"`
	Status        models.ResultStatus   `json:"status"`
	Overview      stats.Summary         `json:"overview"`
	HighestRegion *aggregate.GroupValue `json:"highest_region,omitempty"`
	LowestRegion  *aggregate.GroupValue `json:"lowest_region,omitempty"`
	TopCountry    *aggregate.GroupValue `json:"top_country,omitempty"`
	PeakMonth     *MonthValue           `json:"peak_month,omitempty"`
	Coverage      Coverage              `json:"coverage"`
	Messages      []string              `json:"messages"`
}

// Summarize computes the insight panel for metric over view. An empty view
// yields StatusEmpty with a single "no data" message.
func Summarize(view *models.FilteredView, metric models.Metric) *InsightSet {
	set := &InsightSet{
		Metric:   metric,
		Label:    metric.Label(),
		Status:   models.StatusEmpty,
		Overview: stats.Describe(nil),
		Messages: []string{},
	}
	if view.Empty() {
		set.Messages = append(set.Messages, NoInsightsMessage)
		return set
	}
	set.Status = models.StatusOK
	set.Overview = stats.Describe(aggregate.Values(view, metric))
	set.Coverage = CoverageOf(view)

	lower := strings.ToLower(set.Label)
	set.Messages = append(set.Messages, fmt.Sprintf("%s Overview: Mean = %s, Range = %s to %s",
		set.Label, fixed(set.Overview.Mean, 2), fixed(set.Overview.Min, 2), fixed(set.Overview.Max, 2)))

	if regions := aggregate.GroupMeans(view, models.GroupByRegion, metric); len(regions) > 0 {
		hi, lo := regions[0], regions[len(regions)-1]
		set.HighestRegion, set.LowestRegion = &hi, &lo
		set.Messages = append(set.Messages, fmt.Sprintf("Regional Leaders: %s has the highest average %s (%s), while %s has the lowest (%s)",
			hi.Key, lower, fixed(hi.Mean, 2), lo.Key, fixed(lo.Mean, 2)))
	}

	if countries := aggregate.GroupMeans(view, models.GroupByCountry, metric); len(countries) > 0 {
		top := countries[0]
		set.TopCountry = &top
		set.Messages = append(set.Messages, fmt.Sprintf("Top Country: %s leads with an average %s of %s",
			top.Key, lower, fixed(top.Mean, 2)))
	}

	if peak, ok := PeakMonth(view, metric); ok {
		set.PeakMonth = &peak
		set.Messages = append(set.Messages, fmt.Sprintf("Seasonal Peak: %s shows the highest average %s (%s)",
			peak.Name, lower, fixed(peak.Mean, 2)))
	}

	set.Messages = append(set.Messages, fmt.Sprintf("Data Coverage: %d countries across %d regions from %s to %s",
		set.Coverage.Countries, set.Coverage.Regions, set.Coverage.StartDate, set.Coverage.EndDate))
	return set
}

// CoverageOf counts the distinct countries and regions of view and its
// calendar date span.
func CoverageOf(view *models.FilteredView) Coverage {
	c := Coverage{
		Observations: view.Len(),
		Countries:    aggregate.DistinctCount(view, models.GroupByCountry),
		Regions:      aggregate.DistinctCount(view, models.GroupByRegion),
	}
	if view.Empty() {
		return c
	}
	lo, hi := view.Observations[0].Date, view.Observations[0].Date
	for i := range view.Observations {
		d := view.Observations[i].Date
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	c.StartDate = lo.Format(models.DateLayout)
	c.EndDate = hi.Format(models.DateLayout)
	return c
}

// PeakMonth returns the calendar month with the highest mean of metric,
// pooling years. The earliest month wins ties.
func PeakMonth(view *models.FilteredView, metric models.Metric) (MonthValue, bool) {
	means := aggregate.MonthOfYearMeans(view, metric)
	if len(means) == 0 {
		return MonthValue{}, false
	}
	months := make([]int, 0, len(means))
	for m := range means {
		months = append(months, m)
	}
	sort.Ints(months)

	best := months[0]
	for _, m := range months[1:] {
		if means[m] > means[best] {
			best = m
		}
	}
	return MonthValue{Month: best, Name: time.Month(best).String(), Mean: means[best]}, true
}

// fixed formats v with the given precision, or "N/A" when undefined
func fixed(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.*f", prec, v)
}
