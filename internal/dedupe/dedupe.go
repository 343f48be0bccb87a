// Package dedupe collapses the same physical donation logged by both the
// donation stream and the consolidation ledger into one record. No shared
// identifier is guaranteed across the two streams, so matching is a temporal
// bucket heuristic: it assumes no two distinct donations from the same source
// to the same destination happen within the same clock hour. Two real
// transfers inside one hour over-merge; the same event logged across an hour
// boundary under-merges. Both are accepted approximations.
package dedupe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"donation-summary/internal/record"
)

// BucketKey derives the deduplication key for a record:
// source|dest|date|hour from the parsed timestamp, falling back to the first
// 13 characters of the raw string (YYYY-MM-DDTHH) when it does not parse, and
// to "unknown" when there is no timestamp at all.
func BucketKey(rec record.Canonical) string {
	ts := rec.Timestamp
	if ts == "" {
		return rec.SourceAddress + "|" + rec.DestinationAddress + "|unknown"
	}

	normalized := strings.Replace(ts, "Z", "+00:00", 1)
	if t, err := time.Parse("2006-01-02T15:04:05.999999999-07:00", normalized); err == nil {
		return fmt.Sprintf("%s|%s|%s|%d", rec.SourceAddress, rec.DestinationAddress, t.Format("2006-01-02"), t.Hour())
	}

	prefix := ts
	if len(prefix) > 13 {
		prefix = prefix[:13]
	}
	return rec.SourceAddress + "|" + rec.DestinationAddress + "|" + prefix
}

// Collapse drops duplicate Successful records sharing a bucket key, keeping
// the most informative copy per key and returning how many were removed. The
// iteration order is explicit: records with positive consolidated solutions
// sort before zero-solution ones, more recent timestamps before older, so the
// first record seen per key is the one kept. Callers apply this only when
// records from both streams are present.
func Collapse(records []record.Canonical) ([]record.Canonical, int) {
	sorted := make([]record.Canonical, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Response.Solutions > 0, sorted[j].Response.Solutions > 0
		if pi != pj {
			return pi
		}
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	seen := make(map[string]struct{}, len(sorted))
	kept := make([]record.Canonical, 0, len(sorted))
	removed := 0

	for _, rec := range sorted {
		key := BucketKey(rec)
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}

	return kept, removed
}
