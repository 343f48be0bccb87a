// Package discovery locates the storage directory holding donation logs. The
// bot has written to a few different places across releases, so resolution
// walks a fixed fallback chain rather than taking a single path.
package discovery

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound indicates no donation log directory exists at any known
// location.
var ErrNotFound = errors.New("donation log directory not found")

// Paths holds the resolved storage layout: StorageDir contains the ledger
// file, DonationsDir the per-worker donation logs.
type Paths struct {
	StorageDir   string
	DonationsDir string
}

// Options tune directory resolution.
type Options struct {
	// AppFolderName is the Documents subfolder used by newer releases.
	AppFolderName string
	// ReceiptsFileName marks a legacy installation-folder storage dir.
	ReceiptsFileName string
}

func (o Options) withDefaults() Options {
	if o.AppFolderName == "" {
		o.AppFolderName = "MidnightFetcherBot"
	}
	if o.ReceiptsFileName == "" {
		o.ReceiptsFileName = "receipts.jsonl"
	}
	return o
}

// Resolve returns the storage layout. An explicit directory overrides the
// fallback chain and uses its parent as the storage dir; otherwise the chain
// is: ./storage (legacy install folder, recognised by its receipts file),
// $HOME/Documents/<app>/storage, ./Documents/<app>/storage.
func Resolve(explicitDir string, opts Options) (Paths, error) {
	opts = opts.withDefaults()

	if explicitDir != "" {
		info, err := os.Stat(explicitDir)
		if err != nil || !info.IsDir() {
			return Paths{}, ErrNotFound
		}
		return Paths{StorageDir: filepath.Dir(explicitDir), DonationsDir: explicitDir}, nil
	}

	candidates := Candidates(opts)

	// Legacy install-folder location only counts when its receipts file
	// exists; later locations need just the donations subdirectory.
	legacy := candidates[0]
	if _, err := os.Stat(filepath.Join(legacy, opts.ReceiptsFileName)); err == nil {
		if p, ok := donationsUnder(legacy); ok {
			return p, nil
		}
	}

	for _, storage := range candidates[1:] {
		if p, ok := donationsUnder(storage); ok {
			return p, nil
		}
	}

	return Paths{}, ErrNotFound
}

func donationsUnder(storage string) (Paths, bool) {
	donations := filepath.Join(storage, "donations")
	if info, err := os.Stat(donations); err == nil && info.IsDir() {
		return Paths{StorageDir: storage, DonationsDir: donations}, true
	}
	return Paths{}, false
}

// Candidates lists the storage directories checked, in order. Exposed so
// callers can print the checked locations when resolution fails.
func Candidates(opts Options) []string {
	opts = opts.withDefaults()
	cwd := mustGetwd()

	candidates := []string{filepath.Join(cwd, "storage")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "Documents", opts.AppFolderName, "storage"))
	}
	candidates = append(candidates, filepath.Join(cwd, "Documents", opts.AppFolderName, "storage"))
	return candidates
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
