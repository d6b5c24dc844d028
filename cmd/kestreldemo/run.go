package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot an Authority, run a demo batch of Tasks, print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		authority, scope, err := setupDemo()
		if err != nil {
			return err
		}
		defer authority.Dispose()

		for _, r := range runDemoBatch(scope) {
			fmt.Println(summaryLine(r))
		}
		fmt.Println(metricsLine(authority))
		return nil
	},
}
