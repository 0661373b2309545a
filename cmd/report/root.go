package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"climatescope/internal/config"
	"climatescope/internal/dataset"
	"climatescope/internal/filter"
	"climatescope/internal/insights"
	"climatescope/internal/services"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

var (
	// Global flags
	cfgFile   string
	dataPath  string
	dataSheet string
	debug     bool

	// Loaded configuration
	cfg *config.Config

	// Filter flags shared by the pipeline commands
	flagRegions   []string
	flagCountries []string
	flagStart     string
	flagEnd       string
	flagSingle    string
	flagMetric    string
)

var rootCmd = &cobra.Command{
	Use:   "climatescope",
	Short: "ClimateScope: filter weather observations and export analysis reports",
	Long: `ClimateScope loads a cleaned weather observation table (CSV or XLSX),
applies region, country and date filters, and prints summaries or writes the
Markdown analysis report for the selection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfigFile(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("data") {
			c.Dataset.Source = "file"
			c.Dataset.Path = dataPath
		}
		if cmd.Flags().Changed("sheet") {
			c.Dataset.Sheet = dataSheet
		}
		if debug {
			c.Logging.Level = "debug"
		}
		cfg = c
		return nil
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "observation file to load (overrides dataset.path)")
	rootCmd.PersistentFlags().StringVar(&dataSheet, "sheet", "", "worksheet to read from an XLSX file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagRegions, "region", nil, "geographic region (repeatable)")
	cmd.Flags().StringSliceVar(&flagCountries, "country", nil, "country (repeatable)")
	cmd.Flags().StringVar(&flagStart, "start", "", "range start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagEnd, "end", "", "range end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flagSingle, "single", "", "single calendar date (YYYY-MM-DD); selects single-date mode, not combinable with --start/--end")
	cmd.Flags().StringVar(&flagMetric, "metric", "", "primary metric (default temperature_celsius)")
	cmd.MarkFlagsMutuallyExclusive("single", "start")
	cmd.MarkFlagsMutuallyExclusive("single", "end")
}

// filterRequest builds the pipeline request from the filter flags
func filterRequest() filter.Request {
	req := filter.Request{
		StartDate: flagStart,
		EndDate:   flagEnd,
		Regions:   flagRegions,
		Countries: flagCountries,
		Metric:    flagMetric,
	}
	if flagSingle != "" {
		req.DateMode = "single"
		req.SingleDate = flagSingle
	}
	return req
}

// newDashboardService loads the configured dataset file. The CLI logs to
// stderr at warn level unless --debug is set, so reports on stdout stay clean.
func newDashboardService(ctx context.Context) (*services.DashboardService, error) {
	if cfg.Dataset.Source != "file" {
		return nil, fmt.Errorf("the report CLI reads files only; pass --data or set dataset.source=file")
	}

	level := logging.WarnLevel
	if debug {
		level = logging.DebugLevel
	}
	logger := logging.NewStructuredLogger("climatescope-cli", "1.0.0", level)
	logger.SetOutput(os.Stderr)
	metricsCollector := metrics.NewCollectorWithRegistry("climatescope_cli", prometheus.NewRegistry())

	ds, err := dataset.NewLoader(logger, metricsCollector).LoadFile(ctx, cfg.Dataset.Path, cfg.Dataset.Sheet)
	if err != nil {
		return nil, err
	}
	return services.NewDashboardService(ds, cfg.Pipeline, insights.NewReporter(nil), logger, metricsCollector), nil
}
