package ingest

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"donation-summary/internal/record"
)

// Kind selects the line schema of a source file.
type Kind int

const (
	// KindDonation is the per-worker donation log schema.
	KindDonation Kind = iota
	// KindLedger is the consolidation ledger schema.
	KindLedger
)

// Source is one file to ingest.
type Source struct {
	Path string
	Kind Kind
}

// FileResult holds the outcome of reading a single file. A read or decode
// failure never aborts the run; Err is informational and the other fields
// reflect whatever was salvaged.
type FileResult struct {
	Path      string
	Records   []record.Canonical
	Malformed int
	Skipped   int // ledger records filtered before normalization
	Err       error
}

// scanBufSize allows for long single-line JSON records.
const scanBufSize = 1 << 20

// ReadFile parses one newline-delimited log file. Blank lines are skipped;
// lines that fail to decode are logged with their 1-based line number and
// skipped. Record order within the file is preserved.
func ReadFile(src Source, logger zerolog.Logger) FileResult {
	res := FileResult{Path: src.Path}

	f, err := os.Open(src.Path)
	if err != nil {
		logger.Error().Err(err).Str("file", src.Path).Msg("failed to open log file")
		res.Err = err
		return res
	}
	defer f.Close()

	name := filepath.Base(src.Path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch src.Kind {
		case KindLedger:
			rec, ok, err := record.DecodeConsolidation([]byte(line))
			if err != nil {
				res.Malformed++
				logger.Warn().Str("file", name).Int("line", lineNum).Err(err).Msg("failed to parse line")
				continue
			}
			if !ok {
				res.Skipped++
				continue
			}
			res.Records = append(res.Records, rec)
		default:
			rec, err := record.DecodeDonation([]byte(line))
			if err != nil {
				res.Malformed++
				logger.Warn().Str("file", name).Int("line", lineNum).Err(err).Msg("failed to parse line")
				continue
			}
			res.Records = append(res.Records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Str("file", src.Path).Msg("error reading log file")
		res.Err = err
	}

	return res
}
