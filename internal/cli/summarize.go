package cli

import (
	"github.com/spf13/cobra"

	"donation-summary/internal/app"
)

var (
	summarizeDirectory  string
	summarizeWorkers    int
	summarizeOutput     string
	summarizeShowFailed bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize successful donation consolidations from log files",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SummarizeOptions{
			Directory:  summarizeDirectory,
			Workers:    summarizeWorkers,
			OutputJSON: summarizeOutput,
			ShowFailed: summarizeShowFailed,
		}
		return getApp().Summarize(cmd.Context(), opts)
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeDirectory, "directory", "d", "", "Custom donation log directory path")
	summarizeCmd.Flags().IntVarP(&summarizeWorkers, "workers", "w", 0, "Number of parallel workers (defaults to config)")
	summarizeCmd.Flags().StringVarP(&summarizeOutput, "output", "o", "", "Write the summary as pretty-printed JSON to this path")
	summarizeCmd.Flags().BoolVar(&summarizeShowFailed, "show-failed", false, "Include failed donation errors in the report")
}
