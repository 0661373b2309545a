package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"climatescope/internal/models"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Show how the loader cleaned the observation table",
	Long: `Loads the configured observation file without a database and prints what
normalization did: rows dropped for bad timestamps or missing fields, and how
many gaps were filled with each column's median.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newDashboardService(cmd.Context())
		if err != nil {
			return err
		}
		writeQuality(cmd.OutOrStdout(), svc.Dataset())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}

func writeQuality(w io.Writer, ds *models.Dataset) {
	st := ds.Stats()

	fmt.Fprintln(w, strings.Repeat("=", 64))
	fmt.Fprintf(w, "DATA QUALITY: %s\n", st.Source)
	fmt.Fprintln(w, strings.Repeat("=", 64))
	fmt.Fprintf(w, "Total rows:              %s\n", humanize.Comma(int64(st.TotalRows)))
	fmt.Fprintf(w, "Loaded rows:             %s\n", humanize.Comma(int64(st.LoadedRows)))
	fmt.Fprintf(w, "Dropped (bad timestamp): %s\n", humanize.Comma(int64(st.DroppedBadTimestamp)))
	fmt.Fprintf(w, "Dropped (missing field): %s\n", humanize.Comma(int64(st.DroppedMissingFields)))
	if st.TotalRows > 0 {
		fmt.Fprintf(w, "Success rate:            %.2f%%\n", float64(st.LoadedRows)/float64(st.TotalRows)*100)
	}
	if !ds.Empty() {
		fmt.Fprintf(w, "Date range:              %s to %s\n",
			ds.MinDate().Format(models.DateLayout), ds.MaxDate().Format(models.DateLayout))
	}
	if st.PrecipitationDerived {
		fmt.Fprintln(w, "Precipitation:           derived from humidity (no source column)")
	}
	fmt.Fprintln(w)

	columns := make([]string, 0, len(st.Medians))
	for col := range st.Medians {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Imputed", "Median"})
	for _, col := range columns {
		table.Append([]string{col, strconv.Itoa(st.ImputedValues[col]), formatValue(st.Medians[col])})
	}
	table.Render()
}
