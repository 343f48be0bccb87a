package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"donation-summary/internal/report"
	"donation-summary/internal/storage"
	"donation-summary/internal/summary"
)

// Export renders a summary as CSV and/or PNG. When a database is configured
// the latest persisted run is exported; otherwise a fresh pass is computed
// from the log files.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	top := opts.Top
	if top <= 0 {
		top = a.Config.Export.TopDestinations
	}

	sum, err := a.exportSource(ctx, opts)
	if err != nil {
		return err
	}
	if sum.Empty() {
		a.Logger.Info().Msg("nothing to export: summary is empty")
		return nil
	}

	if opts.CSVPath != "" {
		if err := report.WriteCSV(opts.CSVPath, sum); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("csv export written")
	}

	if opts.PNGPath != "" {
		if err := report.WritePNG(opts.PNGPath, sum, top); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("chart written")
	}

	return nil
}

func (a *App) exportSource(ctx context.Context, opts ExportOptions) (summary.Summary, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return summary.Summary{}, err
	}
	if store == nil {
		sum, _, err := a.ComputeSummary(ctx, opts.Directory, 0)
		return sum, err
	}
	defer closeStore()

	run, err := store.LatestRun(ctx)
	if errors.Is(err, storage.ErrRunNotFound) {
		a.Logger.Warn().Msg("no persisted runs; computing a fresh summary")
		sum, _, err := a.ComputeSummary(ctx, opts.Directory, 0)
		return sum, err
	}
	if err != nil {
		return summary.Summary{}, err
	}

	var sum summary.Summary
	if err := json.Unmarshal(run.Summary, &sum); err != nil {
		return summary.Summary{}, fmt.Errorf("decode persisted summary: %w", err)
	}
	a.Logger.Info().Int64("run_id", run.ID).Time("ran_at", run.RanAt).Msg("exporting persisted run")
	return sum, nil
}
