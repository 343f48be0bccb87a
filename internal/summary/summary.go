package summary

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"donation-summary/internal/classify"
	"donation-summary/internal/record"
)

// DefaultNightPerSolution is the fixed conversion rate of estimated NIGHT
// tokens per consolidated solution.
const DefaultNightPerSolution = 2

// Destination is the aggregate for one destination address.
type Destination struct {
	DestinationAddress    string          `json:"destination_address"`
	TotalSolutions        int64           `json:"total_solutions_consolidated"`
	EstimatedNight        decimal.Decimal `json:"estimated_night"`
	TotalDonations        int             `json:"total_donations"`
	AlreadySubmitted      int             `json:"already_submitted"`
	Failed                int             `json:"failed"`
	UniqueSourceAddresses int             `json:"unique_source_addresses"`
	UniqueDonationIDs     int             `json:"unique_donation_ids"`
	FirstDonation         string          `json:"first_donation,omitempty"`
	LastDonation          string          `json:"last_donation,omitempty"`
	FailedErrors          []string        `json:"failed_errors,omitempty"`
}

// Totals summarises the whole run across destinations.
type Totals struct {
	TotalDestinations     int             `json:"total_destinations"`
	TotalSolutions        int64           `json:"total_solutions_consolidated"`
	TotalEstimatedNight   decimal.Decimal `json:"total_estimated_night"`
	TotalSuccessful       int             `json:"total_successful_donations"`
	TotalAlreadySubmitted int             `json:"total_already_submitted"`
	TotalFailed           int             `json:"total_failed"`
	DuplicatesRemoved     int             `json:"duplicates_removed"`
}

// Summary is the final result of one reconciliation pass.
type Summary struct {
	ByDestination map[string]Destination `json:"summary_by_destination"`
	Totals        Totals                 `json:"totals"`
}

// Empty reports whether the summary holds no data at all.
func (s Summary) Empty() bool {
	return len(s.ByDestination) == 0
}

// SortedDestinations returns destination aggregates ordered by descending
// total solutions, ties broken by address for stable output.
func (s Summary) SortedDestinations() []Destination {
	dests := make([]Destination, 0, len(s.ByDestination))
	for _, d := range s.ByDestination {
		dests = append(dests, d)
	}
	sort.Slice(dests, func(i, j int) bool {
		if dests[i].TotalSolutions != dests[j].TotalSolutions {
			return dests[i].TotalSolutions > dests[j].TotalSolutions
		}
		return dests[i].DestinationAddress < dests[j].DestinationAddress
	})
	return dests
}

type destState struct {
	solutions        int64
	donations        int
	alreadySubmitted int
	failed           int
	sources          map[string]struct{}
	donationIDs      map[string]struct{}
	first            string
	last             string
	failedErrors     []string
	failedErrorSeen  map[string]struct{}
}

// Aggregator folds classified records into per-destination running totals. It
// is a single-threaded fold; callers feed it after the parallel ingest phase
// has joined.
type Aggregator struct {
	nightPerSolution decimal.Decimal
	logger           zerolog.Logger

	dests      map[string]*destState
	successful int
	already    int
	failed     int
	noDest     int
}

// NewAggregator constructs an Aggregator with the given NIGHT conversion rate.
func NewAggregator(nightPerSolution decimal.Decimal, logger zerolog.Logger) *Aggregator {
	if nightPerSolution.IsZero() {
		nightPerSolution = decimal.NewFromInt(DefaultNightPerSolution)
	}
	return &Aggregator{
		nightPerSolution: nightPerSolution,
		logger:           logger.With().Str("component", "aggregator").Logger(),
		dests:            make(map[string]*destState),
	}
}

func (a *Aggregator) state(dest string) *destState {
	st, ok := a.dests[dest]
	if !ok {
		st = &destState{
			sources:         make(map[string]struct{}),
			donationIDs:     make(map[string]struct{}),
			failedErrorSeen: make(map[string]struct{}),
		}
		a.dests[dest] = st
	}
	return st
}

// Add folds one classified record. Records with an empty destination address
// are excluded and reported as a data-quality warning.
func (a *Aggregator) Add(rec record.Canonical, cat classify.Category) {
	if rec.DestinationAddress == "" {
		a.noDest++
		a.logger.Warn().
			Str("source", rec.SourceAddress).
			Str("category", cat.String()).
			Msg("record missing destination address; excluded from aggregation")
		return
	}

	st := a.state(rec.DestinationAddress)
	st.sources[rec.SourceAddress] = struct{}{}

	switch cat {
	case classify.Successful:
		a.successful++
		st.donations++
		st.solutions += rec.Response.Solutions
		if id := rec.Response.DonationID; id != "" {
			st.donationIDs[id] = struct{}{}
		}
		if ts := rec.Timestamp; ts != "" {
			// ISO-8601 sorts lexicographically by instant.
			if st.first == "" || ts < st.first {
				st.first = ts
			}
			if st.last == "" || ts > st.last {
				st.last = ts
			}
		}
	case classify.AlreadySubmitted:
		a.already++
		st.alreadySubmitted++
	case classify.Failed:
		a.failed++
		st.failed++
		if rec.Error != "" {
			if _, seen := st.failedErrorSeen[rec.Error]; !seen {
				st.failedErrorSeen[rec.Error] = struct{}{}
				st.failedErrors = append(st.failedErrors, rec.Error)
			}
		}
	}
}

// MissingDestination returns how many records were excluded for lacking a
// destination address.
func (a *Aggregator) MissingDestination() int {
	return a.noDest
}

// Finalize materialises the summary. duplicatesRemoved is the count reported
// by the cross-stream deduplicator, zero when it did not run.
func (a *Aggregator) Finalize(duplicatesRemoved int) Summary {
	byDest := make(map[string]Destination, len(a.dests))
	var totalSolutions int64

	for dest, st := range a.dests {
		byDest[dest] = Destination{
			DestinationAddress:    dest,
			TotalSolutions:        st.solutions,
			EstimatedNight:        a.nightPerSolution.Mul(decimal.NewFromInt(st.solutions)),
			TotalDonations:        st.donations,
			AlreadySubmitted:      st.alreadySubmitted,
			Failed:                st.failed,
			UniqueSourceAddresses: len(st.sources),
			UniqueDonationIDs:     len(st.donationIDs),
			FirstDonation:         st.first,
			LastDonation:          st.last,
			FailedErrors:          st.failedErrors,
		}
		totalSolutions += st.solutions
	}

	return Summary{
		ByDestination: byDest,
		Totals: Totals{
			TotalDestinations:     len(byDest),
			TotalSolutions:        totalSolutions,
			TotalEstimatedNight:   a.nightPerSolution.Mul(decimal.NewFromInt(totalSolutions)),
			TotalSuccessful:       a.successful,
			TotalAlreadySubmitted: a.already,
			TotalFailed:           a.failed,
			DuplicatesRemoved:     duplicatesRemoved,
		},
	}
}
