package insights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"climatescope/internal/aggregate"
	"climatescope/internal/models"
	"climatescope/internal/stats"
)

const (
	// ReportTimeLayout is the literal timestamp format printed in reports
	ReportTimeLayout = "2006-01-02 15:04:05"

	// DashboardVersion is echoed in the report footer
	DashboardVersion = "Enhanced with Export Features"

	reportFilenameLayout = "20060102_150405"
	maxEchoedCountries   = 5
	regionTemperatureTop = 10
	regionHumidityTop    = 5
)

// Distribution bucket thresholds
const (
	hotAbove   = 30.0
	coldBelow  = 10.0
	humidAbove = 70.0
	dryBelow   = 40.0
	windyAbove = 20.0
	calmBelow  = 10.0
)

// Report is a rendered Markdown report ready for download
type Report struct {
	Filename    string    `json:"filename"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Reporter renders reports stamped with the time of its clock
type Reporter struct {
	clock clockwork.Clock
}

// NewReporter creates a Reporter. A nil clock uses the wall clock.
func NewReporter(clock clockwork.Clock) *Reporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reporter{clock: clock}
}

// Generate renders the report for view and names it after the current time
func (r *Reporter) Generate(view *models.FilteredView, spec models.FilterSpec) Report {
	now := r.clock.Now()
	return Report{
		Filename:    ReportFilename(now),
		Content:     RenderReport(view, spec, now),
		GeneratedAt: now,
	}
}

// ReportFilename returns climatescope_report_<YYYYMMDD>_<HHMMSS>.md for t
func ReportFilename(t time.Time) string {
	return "climatescope_report_" + t.Format(reportFilenameLayout) + ".md"
}

// RenderReport writes the full Markdown report for view. Sections always
// appear in the same order; an empty view replaces the statistics with an
// explicit "no data" notice.
func RenderReport(view *models.FilteredView, spec models.FilterSpec, now time.Time) string {
	var b strings.Builder
	stamp := now.Format(ReportTimeLayout)

	b.WriteString("# 🌍 ClimateScope Dashboard - Comprehensive Analysis Report\n\n")
	b.WriteString("## 📊 Executive Summary\n\n")
	fmt.Fprintf(&b, "**Report Generated**: %s\n", stamp)
	b.WriteString("**Data Export Mode**: Filtered Analysis\n\n")

	writeFilters(&b, spec)
	writeOverview(&b, view)

	b.WriteString("## 🌡️ Climate Analysis\n\n### Temperature Statistics\n")
	if view.Empty() {
		b.WriteString("\n**No data available for analysis with current filters.**\n")
	} else {
		writeAnalysis(&b, view)
	}

	writeFooter(&b, stamp)
	return b.String()
}

func writeFilters(b *strings.Builder, spec models.FilterSpec) {
	regions := "All Regions"
	if len(spec.Regions) > 0 {
		regions = strings.Join(spec.Regions, ", ")
	}

	countries := "All Countries"
	if len(spec.Countries) > 0 {
		shown := spec.Countries
		if len(shown) > maxEchoedCountries {
			shown = shown[:maxEchoedCountries]
		}
		countries = strings.Join(shown, ", ")
		if len(spec.Countries) > maxEchoedCountries {
			countries += " (and more...)"
		}
	}

	b.WriteString("### Applied Filters\n")
	fmt.Fprintf(b, "- **Regions**: %s\n", regions)
	fmt.Fprintf(b, "- **Countries**: %s\n", countries)
	fmt.Fprintf(b, "- **Date Mode**: %s\n", titleCase(string(spec.Mode())))
	if span := dateSelection(spec); span != "" {
		fmt.Fprintf(b, "- **Dates**: %s\n", span)
	}
	b.WriteString("\n")
}

func dateSelection(spec models.FilterSpec) string {
	if spec.Mode() == models.DateModeSingle {
		if spec.SingleDate.IsZero() {
			return ""
		}
		return spec.SingleDate.Format(models.DateLayout)
	}
	if spec.StartDate.IsZero() && spec.EndDate.IsZero() {
		return ""
	}
	return dateOrOpen(spec.StartDate) + " to " + dateOrOpen(spec.EndDate)
}

func dateOrOpen(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(models.DateLayout)
}

func writeOverview(b *strings.Builder, view *models.FilteredView) {
	cov := CoverageOf(view)
	countries, regions, span := "N/A", "N/A", "N/A"
	if !view.Empty() {
		countries = fmt.Sprint(cov.Countries)
		regions = fmt.Sprint(cov.Regions)
		span = cov.StartDate + " to " + cov.EndDate
	}

	b.WriteString("### Dataset Overview\n")
	fmt.Fprintf(b, "- **Total Locations**: %s\n", humanize.Comma(int64(view.Len())))
	fmt.Fprintf(b, "- **Countries Covered**: %s\n", countries)
	fmt.Fprintf(b, "- **Regions Covered**: %s\n", regions)
	fmt.Fprintf(b, "- **Date Range**: %s\n\n", span)
}

func describe(view *models.FilteredView, m models.Metric) stats.Summary {
	return stats.Describe(aggregate.Values(view, m))
}

func writeAnalysis(b *strings.Builder, view *models.FilteredView) {
	n := view.Len()
	temp := describe(view, models.MetricTemperature)
	hum := describe(view, models.MetricHumidity)
	wind := describe(view, models.MetricWindKph)
	uv := describe(view, models.MetricUVIndex)

	fmt.Fprintf(b, "\n- **Global Average**: %s°C\n", fixed(temp.Mean, 1))
	fmt.Fprintf(b, "- **Temperature Range**: %s°C to %s°C\n", fixed(temp.Min, 1), fixed(temp.Max, 1))
	fmt.Fprintf(b, "- **Standard Deviation**: %s°C\n\n", fixed(temp.Std, 1))

	b.WriteString("### Humidity Analysis\n")
	fmt.Fprintf(b, "- **Average Humidity**: %s%%\n", fixed(hum.Mean, 1))
	fmt.Fprintf(b, "- **Humidity Range**: %s%% to %s%%\n\n", fixed(hum.Min, 1), fixed(hum.Max, 1))

	b.WriteString("### Wind Patterns\n")
	fmt.Fprintf(b, "- **Average Wind Speed**: %s km/h\n", fixed(wind.Mean, 1))
	fmt.Fprintf(b, "- **Maximum Wind Speed**: %s km/h\n\n", fixed(wind.Max, 1))

	b.WriteString("### UV Index\n")
	fmt.Fprintf(b, "- **Average UV Index**: %s\n", fixed(uv.Mean, 1))
	fmt.Fprintf(b, "- **Maximum UV Index**: %s\n\n", fixed(uv.Max, 1))

	b.WriteString("## 🏆 Notable Locations\n\n### Climate Extremes\n")
	fmt.Fprintf(b, "- **Hottest Location**: %s\n", extreme(view, models.MetricTemperature, true, "°C"))
	fmt.Fprintf(b, "- **Coldest Location**: %s\n", extreme(view, models.MetricTemperature, false, "°C"))
	fmt.Fprintf(b, "- **Most Humid**: %s\n", extreme(view, models.MetricHumidity, true, "%"))
	fmt.Fprintf(b, "- **Windiest**: %s\n\n", extreme(view, models.MetricWindKph, true, " km/h"))

	hot := count(view, models.MetricTemperature, func(v float64) bool { return v > hotAbove })
	cold := count(view, models.MetricTemperature, func(v float64) bool { return v < coldBelow })
	moderate := count(view, models.MetricTemperature, func(v float64) bool { return v >= coldBelow && v <= hotAbove })
	humid := count(view, models.MetricHumidity, func(v float64) bool { return v > humidAbove })
	dry := count(view, models.MetricHumidity, func(v float64) bool { return v < dryBelow })
	windy := count(view, models.MetricWindKph, func(v float64) bool { return v > windyAbove })
	calm := count(view, models.MetricWindKph, func(v float64) bool { return v < calmBelow })

	b.WriteString("## 📈 Distribution Analysis\n\n### Temperature Distribution\n\n")
	fmt.Fprintf(b, "- **Hot Locations (>30°C)**: %d (%s%%)\n", hot, percent(hot, n))
	fmt.Fprintf(b, "- **Cold Locations (<10°C)**: %d (%s%%)\n", cold, percent(cold, n))
	fmt.Fprintf(b, "- **Moderate Locations (10-30°C)**: %d (%s%%)\n\n", moderate, percent(moderate, n))

	b.WriteString("### Humidity Patterns\n\n")
	fmt.Fprintf(b, "- **High Humidity (>70%%)**: %d (%s%%)\n", humid, percent(humid, n))
	fmt.Fprintf(b, "- **Low Humidity (<40%%)**: %d (%s%%)\n\n", dry, percent(dry, n))

	b.WriteString("### Wind Analysis\n\n")
	fmt.Fprintf(b, "- **Windy Locations (>20 km/h)**: %d (%s%%)\n", windy, percent(windy, n))
	fmt.Fprintf(b, "- **Calm Locations (<10 km/h)**: %d (%s%%)\n\n", calm, percent(calm, n))

	b.WriteString("## 🌍 Regional Breakdown\n")
	b.WriteString("\n### Average Temperature by Region\n")
	for _, g := range head(aggregate.GroupMeans(view, models.GroupByRegion, models.MetricTemperature), regionTemperatureTop) {
		fmt.Fprintf(b, "- **%s**: %s°C\n", g.Key, fixed(g.Mean, 1))
	}
	b.WriteString("\n### Average Humidity by Region\n")
	for _, g := range head(aggregate.GroupMeans(view, models.GroupByRegion, models.MetricHumidity), regionHumidityTop) {
		fmt.Fprintf(b, "- **%s**: %s%%\n", g.Key, fixed(g.Mean, 1))
	}

	b.WriteString("\n\n## 🔍 Data Quality Assessment\n\n")
	fmt.Fprintf(b, "- **Complete Temperature Records**: %s (%s%%)\n", humanize.Comma(int64(temp.Count)), percent(temp.Count, n))
	fmt.Fprintf(b, "- **Complete Humidity Records**: %s (%s%%)\n", humanize.Comma(int64(hum.Count)), percent(hum.Count, n))
	fmt.Fprintf(b, "- **Complete Wind Records**: %s (%s%%)\n\n", humanize.Comma(int64(wind.Count)), percent(wind.Count, n))

	b.WriteString("## 💡 Key Insights\n\n")
	fmt.Fprintf(b, "1. **Climate Diversity**: The filtered dataset shows a temperature range of %s°C, indicating significant climate diversity.\n\n",
		fixed(temp.Max-temp.Min, 1))
	fmt.Fprintf(b, "2. **Comfort Zones**: %d locations (%s%%) fall within the moderate temperature range (10-30°C).\n\n",
		moderate, percent(moderate, n))
	fmt.Fprintf(b, "3. **Extreme Conditions**: %d locations (%s%%) experience extreme temperatures.\n\n",
		hot+cold, percent(hot+cold, n))
	fmt.Fprintf(b, "4. **Humidity Patterns**: %d locations have high humidity, which may affect comfort and weather patterns.\n\n", humid)

	b.WriteString("## 📊 Statistical Summary\n\n")
	b.WriteString("| Metric | Mean | Min | Max | Std Dev |\n")
	b.WriteString("|--------|------|-----|-----|---------|\n")
	for _, row := range []struct {
		label string
		col   stats.Summary
	}{
		{models.MetricTemperature.Label(), temp},
		{models.MetricHumidity.Label(), hum},
		{models.MetricWindKph.Label(), wind},
		{models.MetricUVIndex.Label(), uv},
	} {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", row.label,
			fixed(row.col.Mean, 1), fixed(row.col.Min, 1), fixed(row.col.Max, 1), fixed(row.col.Std, 1))
	}
	b.WriteString("\n")
}

func writeFooter(b *strings.Builder, stamp string) {
	b.WriteString(`
## 🔬 Methodology

This report was generated from the ClimateScope Dashboard using filtered weather data based on user selections:

1. **Data Processing**: Applied regional and country filters as specified
2. **Statistical Analysis**: Calculated descriptive statistics for all metrics
3. **Extreme Value Analysis**: Identified locations with maximum and minimum values
4. **Distribution Analysis**: Categorized locations by climate characteristics
5. **Regional Comparison**: Analyzed average values by geographic region

## 📝 Recommendations

Based on the current analysis:

1. **Travel Planning**: Consider the moderate climate locations for comfortable travel experiences
2. **Climate Monitoring**: Monitor locations with extreme temperatures for potential weather events
3. **Health Considerations**: Be aware of high UV index locations requiring sun protection
4. **Regional Insights**: Use regional averages to understand broader climate patterns

---

*Report generated by ClimateScope Dashboard - Advanced Weather Analytics Platform*
`)
	fmt.Fprintf(b, "*Export Time: %s*  \n", stamp)
	fmt.Fprintf(b, "*Dashboard Version: %s*\n", DashboardVersion)
}

func extreme(view *models.FilteredView, m models.Metric, largest bool, unit string) string {
	obs, ok := aggregate.Extreme(view, m, largest)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%s, %s (%s%s)", obs.LocationName, obs.Country, fixed(obs.Value(m), 1), unit)
}

func count(view *models.FilteredView, m models.Metric, pred func(float64) bool) int {
	n := 0
	for i := range view.Observations {
		if v := view.Observations[i].Value(m); !math.IsNaN(v) && pred(v) {
			n++
		}
	}
	return n
}

func percent(part, total int) string {
	if total == 0 {
		return "N/A"
	}
	return fixed(float64(part)/float64(total)*100, 1)
}

func head(groups []aggregate.GroupValue, n int) []aggregate.GroupValue {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
