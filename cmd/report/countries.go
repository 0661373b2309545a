package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var countriesRegions []string

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the countries selectable for the given regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newDashboardService(cmd.Context())
		if err != nil {
			return err
		}

		countries := svc.CountryOptions(countriesRegions)
		if len(countries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no countries)")
			return nil
		}
		for _, c := range countries {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

func init() {
	countriesCmd.Flags().StringSliceVar(&countriesRegions, "region", nil, "geographic region (repeatable)")
	rootCmd.AddCommand(countriesCmd)
}
