package cli

import (
	"github.com/spf13/cobra"

	"donation-summary/internal/app"
)

var (
	exportDirectory string
	exportCSVPath   string
	exportPNGPath   string
	exportTop       int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a summary as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Directory: exportDirectory,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			Top:       exportTop,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDirectory, "directory", "d", "", "Custom donation log directory path")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().IntVar(&exportTop, "top", 0, "Chart at most this many destinations (defaults to config)")
}
