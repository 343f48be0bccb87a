package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"donation-summary/internal/record"
)

// Options parameterise the ingestion coordinator.
type Options struct {
	// Workers bounds the parallel fan-out. Values below one fall back to
	// sequential reading.
	Workers int
	// ParallelThreshold is the donation-file count above which reads are
	// parallelized. Results are identical either way.
	ParallelThreshold int
	// LogPattern is the glob matched against donation file names.
	LogPattern string
	// LedgerFileName is the fixed ledger file name looked up in the storage
	// directory.
	LedgerFileName string
}

// Stats summarises an ingestion pass across all sources.
type Stats struct {
	DonationFiles   int
	LedgerFound     bool
	DonationRecords int
	LedgerRecords   int
	Malformed       int
	LedgerSkipped   int
	FailedFiles     int
}

// Coordinator discovers matching log files and fans ReadFile out across them.
type Coordinator struct {
	opts   Options
	logger zerolog.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(opts Options, logger zerolog.Logger) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ParallelThreshold <= 0 {
		opts.ParallelThreshold = 10
	}
	if opts.LogPattern == "" {
		opts.LogPattern = "*.jsonl"
	}
	if opts.LedgerFileName == "" {
		opts.LedgerFileName = "consolidations.jsonl"
	}
	return &Coordinator{opts: opts, logger: logger.With().Str("component", "ingest").Logger()}
}

// Discover enumerates donation log files in donationsDir and, when present,
// the ledger file in storageDir. An unreadable donations directory yields an
// empty source list, not an error: no input is an empty-result condition.
func (c *Coordinator) Discover(donationsDir, storageDir string) []Source {
	var sources []Source

	matches, err := filepath.Glob(filepath.Join(donationsDir, c.opts.LogPattern))
	if err != nil {
		c.logger.Error().Err(err).Str("dir", donationsDir).Msg("bad log file pattern")
	}
	sort.Strings(matches)
	for _, m := range matches {
		sources = append(sources, Source{Path: m, Kind: KindDonation})
	}

	if storageDir != "" {
		ledger := filepath.Join(storageDir, c.opts.LedgerFileName)
		if _, err := os.Stat(ledger); err == nil {
			sources = append(sources, Source{Path: ledger, Kind: KindLedger})
		}
	}

	return sources
}

// Run reads every source and merges the results. Donation files beyond the
// parallel threshold are read by a bounded worker pool; each worker touches
// only its own file and returns an isolated result, so the merge after the
// join is a plain single-threaded reduction. Per-file failures are reported
// and do not abort the remaining files.
func (c *Coordinator) Run(ctx context.Context, sources []Source) ([]record.Canonical, Stats, error) {
	var donations, ledgers []Source
	for _, s := range sources {
		if s.Kind == KindLedger {
			ledgers = append(ledgers, s)
		} else {
			donations = append(donations, s)
		}
	}

	stats := Stats{DonationFiles: len(donations), LedgerFound: len(ledgers) > 0}

	var results []FileResult
	if len(donations) > c.opts.ParallelThreshold && c.opts.Workers > 1 {
		c.logger.Info().
			Int("files", len(donations)).
			Int("workers", c.opts.Workers).
			Msg("processing donation logs in parallel")
		results = c.runParallel(ctx, donations)
	} else {
		c.logger.Info().Int("files", len(donations)).Msg("processing donation logs sequentially")
		for _, src := range donations {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			results = append(results, ReadFile(src, c.logger))
		}
	}

	// Ledger reads are never worth parallelizing: there is at most one file.
	for _, src := range ledgers {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		results = append(results, ReadFile(src, c.logger))
	}

	var merged []record.Canonical
	for _, res := range results {
		if res.Err != nil {
			stats.FailedFiles++
		}
		stats.Malformed += res.Malformed
		stats.LedgerSkipped += res.Skipped

		ledgerCount := 0
		for _, rec := range res.Records {
			if rec.Provenance == record.ProvenanceLedger {
				ledgerCount++
			}
		}
		stats.LedgerRecords += ledgerCount
		stats.DonationRecords += len(res.Records) - ledgerCount

		merged = append(merged, res.Records...)
		c.logger.Info().
			Str("file", filepath.Base(res.Path)).
			Int("records", len(res.Records)).
			Msg("processed log file")
	}

	if stats.LedgerSkipped > 0 {
		c.logger.Info().Int("skipped", stats.LedgerSkipped).Msg("skipped failed consolidation records")
	}

	return merged, stats, ctx.Err()
}

func (c *Coordinator) runParallel(ctx context.Context, sources []Source) []FileResult {
	jobs := make(chan Source)
	out := make(chan FileResult, len(sources))

	var wg sync.WaitGroup
	workers := c.opts.Workers
	if workers > len(sources) {
		workers = len(sources)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				out <- ReadFile(src, c.logger)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, src := range sources {
			select {
			case jobs <- src:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(out)

	results := make([]FileResult, 0, len(sources))
	for res := range out {
		results = append(results, res)
	}
	return results
}
