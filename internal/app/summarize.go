package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"donation-summary/internal/classify"
	"donation-summary/internal/dedupe"
	"donation-summary/internal/discovery"
	"donation-summary/internal/ingest"
	"donation-summary/internal/record"
	"donation-summary/internal/report"
	"donation-summary/internal/storage"
	"donation-summary/internal/summary"
)

// Summarize runs one full reconciliation pass and renders the report. An
// empty input set is not an error: it prints an empty summary and returns.
func (a *App) Summarize(ctx context.Context, opts SummarizeOptions) error {
	sum, paths, err := a.ComputeSummary(ctx, opts.Directory, opts.Workers)
	if err != nil {
		if errors.Is(err, discovery.ErrNotFound) {
			return a.reportMissingDirectory()
		}
		return err
	}

	if sum.Empty() {
		a.Logger.Info().Str("dir", paths.DonationsDir).Msg("no donation records found")
	}

	if err := report.WriteConsole(os.Stdout, sum, report.Options{ShowFailedErrors: opts.ShowFailed}); err != nil {
		return err
	}

	if opts.OutputJSON != "" {
		if err := report.WriteJSON(opts.OutputJSON, sum); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.OutputJSON).Msg("summary saved")
	}

	return a.persistSnapshot(ctx, sum, paths)
}

// ComputeSummary executes the engine: discovery, ingestion, classification,
// cross-stream deduplication, and aggregation.
func (a *App) ComputeSummary(ctx context.Context, dirOverride string, workersOverride int) (summary.Summary, discovery.Paths, error) {
	dir := dirOverride
	if dir == "" {
		dir = a.Config.Discovery.Directory
	}

	paths, err := discovery.Resolve(dir, discovery.Options{AppFolderName: a.Config.Discovery.AppFolderName})
	if err != nil {
		return summary.Summary{}, discovery.Paths{}, err
	}
	a.Logger.Info().
		Str("storage_dir", paths.StorageDir).
		Str("donations_dir", paths.DonationsDir).
		Msg("using storage directory")

	coordinator := ingest.NewCoordinator(ingest.Options{
		Workers:           a.Config.ResolveWorkers(workersOverride),
		ParallelThreshold: a.Config.Ingest.ParallelThreshold,
		LogPattern:        a.Config.Discovery.LogPattern,
		LedgerFileName:    a.Config.Discovery.LedgerFileName,
	}, a.Logger)

	sources := coordinator.Discover(paths.DonationsDir, paths.StorageDir)
	records, stats, err := coordinator.Run(ctx, sources)
	if err != nil {
		return summary.Summary{}, paths, err
	}

	a.Logger.Info().
		Int("total", len(records)).
		Int("from_donation_logs", stats.DonationRecords).
		Int("from_ledger", stats.LedgerRecords).
		Int("malformed_lines", stats.Malformed).
		Msg("records loaded")

	classifier := classify.New(nil)
	var successful []record.Canonical
	type classified struct {
		rec record.Canonical
		cat classify.Category
	}
	var rest []classified
	for _, rec := range records {
		cat := classifier.Classify(rec)
		if cat == classify.Successful {
			successful = append(successful, rec)
		} else {
			rest = append(rest, classified{rec, cat})
		}
	}

	// Cross-stream dedup only applies when both streams contributed; a lone
	// stream cannot describe the same event twice under this heuristic.
	duplicatesRemoved := 0
	if stats.DonationRecords > 0 && stats.LedgerRecords > 0 {
		successful, duplicatesRemoved = dedupe.Collapse(successful)
		if duplicatesRemoved > 0 {
			a.Logger.Info().Int("duplicates", duplicatesRemoved).Msg("deduplicated cross-stream records")
		}
	}

	rate := decimal.NewFromFloat(a.Config.Valuation.NightPerSolution)
	agg := summary.NewAggregator(rate, a.Logger)
	for _, rec := range successful {
		agg.Add(rec, classify.Successful)
	}
	for _, c := range rest {
		agg.Add(c.rec, c.cat)
	}
	if n := agg.MissingDestination(); n > 0 {
		a.Logger.Warn().Int("records", n).Msg("records excluded for missing destination address")
	}

	return agg.Finalize(duplicatesRemoved), paths, nil
}

func (a *App) persistSnapshot(ctx context.Context, sum summary.Summary, paths discovery.Paths) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Debug().Msg("database.dsn not configured; snapshot persistence disabled")
		return nil
	}
	defer closeStore()

	run, dests, err := snapshotRows(sum, paths.DonationsDir)
	if err != nil {
		return err
	}

	id, err := store.InsertRun(ctx, run, dests)
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	a.Logger.Info().Int64("run_id", id).Msg("summary snapshot persisted")
	return nil
}

func snapshotRows(sum summary.Summary, donationsDir string) (storage.SummaryRun, []storage.DestinationRow, error) {
	raw, err := marshalSummary(sum)
	if err != nil {
		return storage.SummaryRun{}, nil, err
	}

	run := storage.SummaryRun{
		RanAt:                 time.Now().UTC(),
		DonationsDir:          donationsDir,
		TotalDestinations:     sum.Totals.TotalDestinations,
		TotalSolutions:        sum.Totals.TotalSolutions,
		TotalEstimatedNight:   sum.Totals.TotalEstimatedNight,
		TotalSuccessful:       sum.Totals.TotalSuccessful,
		TotalAlreadySubmitted: sum.Totals.TotalAlreadySubmitted,
		TotalFailed:           sum.Totals.TotalFailed,
		DuplicatesRemoved:     sum.Totals.DuplicatesRemoved,
		Summary:               raw,
	}

	dests := make([]storage.DestinationRow, 0, len(sum.ByDestination))
	for _, d := range sum.SortedDestinations() {
		row := storage.DestinationRow{
			DestinationAddress:    d.DestinationAddress,
			TotalSolutions:        d.TotalSolutions,
			TotalDonations:        d.TotalDonations,
			AlreadySubmitted:      d.AlreadySubmitted,
			Failed:                d.Failed,
			UniqueSourceAddresses: d.UniqueSourceAddresses,
			UniqueDonationIDs:     d.UniqueDonationIDs,
		}
		if d.FirstDonation != "" {
			first := d.FirstDonation
			row.FirstDonation = &first
		}
		if d.LastDonation != "" {
			last := d.LastDonation
			row.LastDonation = &last
		}
		dests = append(dests, row)
	}
	return run, dests, nil
}

func marshalSummary(sum summary.Summary) (json.RawMessage, error) {
	data, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("marshal summary snapshot: %w", err)
	}
	return data, nil
}

func (a *App) reportMissingDirectory() error {
	a.Logger.Error().Msg("could not find donation log directory")
	for _, candidate := range discovery.Candidates(discovery.Options{AppFolderName: a.Config.Discovery.AppFolderName}) {
		a.Logger.Error().Str("checked", candidate).Msg("no donations directory here")
	}
	return discovery.ErrNotFound
}
