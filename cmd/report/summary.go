package main

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"climatescope/internal/aggregate"
	"climatescope/internal/filter"
	"climatescope/internal/models"
	"climatescope/internal/services"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print headline figures, insights and regional means for a selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newDashboardService(ctx)
		if err != nil {
			return err
		}

		req := filterRequest()
		dash, err := svc.Render(ctx, req)
		if err != nil {
			return err
		}
		if dash.Status == models.StatusInvalid {
			return fmt.Errorf("%s", dash.Message)
		}

		var regions []aggregate.GroupValue
		if dash.Status == models.StatusOK {
			view, err := filter.Apply(svc.Dataset(), dash.Filter)
			if err != nil {
				return err
			}
			regions = aggregate.GroupMeans(view, models.GroupByRegion, dash.Metric)
		}

		writeSummary(cmd.OutOrStdout(), dash, regions)
		return nil
	},
}

func init() {
	addFilterFlags(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}

// writeSummary prints the dashboard headline as terminal tables
func writeSummary(w io.Writer, dash *services.Dashboard, regions []aggregate.GroupValue) {
	fmt.Fprintf(w, "Observations: %s\n", humanize.Comma(int64(dash.Observations)))
	if dash.Status != models.StatusOK {
		fmt.Fprintln(w, dash.Message)
		return
	}

	cards := dash.Cards.Display
	fmt.Fprintf(w, "Avg Temperature: %s  Avg Humidity: %s  Avg Wind: %s  Avg UV: %s\n\n",
		cards.AvgTemperature, cards.AvgHumidity, cards.AvgWindSpeed, cards.AvgUVIndex)

	for _, msg := range dash.Insights.Messages {
		fmt.Fprintf(w, "• %s\n", msg)
	}
	fmt.Fprintln(w)

	regionTable := tablewriter.NewWriter(w)
	regionTable.SetHeader([]string{"Region", "Observations", "Mean " + dash.Metric.Label()})
	for _, g := range regions {
		regionTable.Append([]string{g.Key, humanize.Comma(int64(g.Count)), formatValue(g.Mean)})
	}
	regionTable.Render()
	fmt.Fprintln(w)

	topTable := tablewriter.NewWriter(w)
	topTable.SetHeader([]string{"Rank", "Location", "Country", dash.Metric.Label()})
	for _, p := range dash.TopLocations {
		topTable.Append([]string{strconv.Itoa(p.Rank), p.LocationName, p.Country, formatValue(p.Value)})
	}
	topTable.Render()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
