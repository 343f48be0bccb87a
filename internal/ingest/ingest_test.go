package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func TestReadFileSkipsBlankAndMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"timestamp":"2025-01-04T10:00:00Z","sourceAddress":"a","destinationAddress":"d","success":true,"response":{"solutions_consolidated":1}}

this is not json
{"timestamp":"2025-01-04T11:00:00Z","sourceAddress":"b","destinationAddress":"d","success":true,"response":{"solutions_consolidated":2}}
`
	path := writeFile(t, dir, "worker-1.jsonl", content)

	res := ReadFile(Source{Path: path, Kind: KindDonation}, zerolog.Nop())
	if res.Err != nil {
		t.Fatalf("unexpected file error: %v", res.Err)
	}
	// 4 lines total, 1 blank, 1 malformed
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	if res.Malformed != 1 {
		t.Fatalf("malformed = %d, want 1", res.Malformed)
	}
	if res.Records[0].SourceAddress != "a" || res.Records[1].SourceAddress != "b" {
		t.Fatal("in-file order not preserved")
	}
}

func TestReadFileLedgerFiltersNonSuccess(t *testing.T) {
	dir := t.TempDir()
	content := `{"ts":"2025-01-04T10:00:00Z","sourceAddress":"a","destinationAddress":"d","status":"success","solutionsConsolidated":3}
{"ts":"2025-01-04T10:05:00Z","sourceAddress":"a","destinationAddress":"d","status":"failed","solutionsConsolidated":0}
`
	path := writeFile(t, dir, "consolidations.jsonl", content)

	res := ReadFile(Source{Path: path, Kind: KindLedger}, zerolog.Nop())
	if len(res.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(res.Records))
	}
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", res.Skipped)
	}
}

func TestReadFileMissingFile(t *testing.T) {
	res := ReadFile(Source{Path: filepath.Join(t.TempDir(), "nope.jsonl"), Kind: KindDonation}, zerolog.Nop())
	if res.Err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(res.Records) != 0 {
		t.Fatal("missing file should yield no records")
	}
}

func TestDiscoverFindsDonationLogsAndLedger(t *testing.T) {
	storage := t.TempDir()
	donations := filepath.Join(storage, "donations")
	if err := os.MkdirAll(donations, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, donations, "worker-1.jsonl", "")
	writeFile(t, donations, "worker-2.jsonl", "")
	writeFile(t, donations, "notes.txt", "")
	writeFile(t, storage, "consolidations.jsonl", "")

	c := NewCoordinator(Options{}, zerolog.Nop())
	sources := c.Discover(donations, storage)

	if len(sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(sources))
	}
	if sources[len(sources)-1].Kind != KindLedger {
		t.Fatal("ledger source should be appended after donation logs")
	}
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	c := NewCoordinator(Options{}, zerolog.Nop())
	sources := c.Discover(filepath.Join(t.TempDir(), "missing"), "")
	if len(sources) != 0 {
		t.Fatalf("sources = %d, want 0", len(sources))
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	var sources []Source
	total := 0
	for i := 0; i < 15; i++ {
		content := ""
		for j := 0; j <= i%3; j++ {
			content += fmt.Sprintf(`{"timestamp":"2025-01-04T10:00:00Z","sourceAddress":"s%d","destinationAddress":"d","success":true,"response":{"solutions_consolidated":%d}}`+"\n", i, j)
			total++
		}
		path := writeFile(t, dir, fmt.Sprintf("worker-%02d.jsonl", i), content)
		sources = append(sources, Source{Path: path, Kind: KindDonation})
	}

	// 15 files crosses the default threshold of 10, forcing the pool.
	parallel := NewCoordinator(Options{Workers: 4}, zerolog.Nop())
	precs, pstats, err := parallel.Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}

	sequential := NewCoordinator(Options{Workers: 1}, zerolog.Nop())
	srecs, sstats, err := sequential.Run(context.Background(), sources)
	if err != nil {
		t.Fatalf("sequential run: %v", err)
	}

	if len(precs) != total || len(srecs) != total {
		t.Fatalf("record counts: parallel %d sequential %d, want %d", len(precs), len(srecs), total)
	}
	if pstats.DonationRecords != sstats.DonationRecords {
		t.Fatalf("stats diverge: parallel %+v sequential %+v", pstats, sstats)
	}

	// Order across files is not guaranteed; compare solution sums instead.
	psum, ssum := int64(0), int64(0)
	for _, r := range precs {
		psum += r.Response.Solutions
	}
	for _, r := range srecs {
		ssum += r.Response.Solutions
	}
	if psum != ssum {
		t.Fatalf("solution sums diverge: parallel %d sequential %d", psum, ssum)
	}
}

func TestRunIsolatesUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "worker-1.jsonl", `{"timestamp":"2025-01-04T10:00:00Z","sourceAddress":"a","destinationAddress":"d","success":true,"response":{"solutions_consolidated":1}}`+"\n")
	missing := filepath.Join(dir, "gone.jsonl")

	c := NewCoordinator(Options{Workers: 1}, zerolog.Nop())
	recs, stats, err := c.Run(context.Background(), []Source{
		{Path: missing, Kind: KindDonation},
		{Path: good, Kind: KindDonation},
	})
	if err != nil {
		t.Fatalf("run should not fail on one unreadable file: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if stats.FailedFiles != 1 {
		t.Fatalf("failed files = %d, want 1", stats.FailedFiles)
	}
}
