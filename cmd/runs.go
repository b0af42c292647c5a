package main

import (
	"github.com/spf13/cobra"

	"activity-rag/internal/helper"
	"activity-rag/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ledger, err := runlog.Open(cfg.RunLog.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if runs == nil {
			runs = []runlog.Run{}
		}
		helper.PrettyPrint(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
