package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	generateOut    string
	generateStdout bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the Markdown analysis report for a selection",
	Example: `  climatescope generate --data weather.csv --region Europe --start 2024-05-01 --end 2024-05-31
  climatescope generate --data weather.xlsx --single 2024-05-16 --stdout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newDashboardService(ctx)
		if err != nil {
			return err
		}

		report, err := svc.Report(ctx, filterRequest())
		if err != nil {
			return err
		}

		if generateStdout {
			_, err := fmt.Fprint(cmd.OutOrStdout(), report.Content)
			return err
		}

		dir := generateOut
		if dir == "" {
			dir = cfg.Report.Dir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		path := filepath.Join(dir, report.Filename)
		if err := os.WriteFile(path, []byte(report.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Report written to %s (%s)\n", path, humanize.Bytes(uint64(len(report.Content))))
		return nil
	},
}

func init() {
	addFilterFlags(generateCmd)
	generateCmd.Flags().StringVar(&generateOut, "out", "", "directory to write the report into (default report.dir)")
	generateCmd.Flags().BoolVar(&generateStdout, "stdout", false, "print the report instead of writing a file")
	rootCmd.AddCommand(generateCmd)
}
