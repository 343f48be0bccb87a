package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryRun is one persisted reconciliation pass.
type SummaryRun struct {
	ID                    int64
	RanAt                 time.Time
	DonationsDir          string
	TotalDestinations     int
	TotalSolutions        int64
	TotalEstimatedNight   decimal.Decimal
	TotalSuccessful       int
	TotalAlreadySubmitted int
	TotalFailed           int
	DuplicatesRemoved     int
	Summary               json.RawMessage
	CreatedAt             time.Time
}

// DestinationRow is the per-destination breakdown attached to a run.
type DestinationRow struct {
	RunID                 int64
	DestinationAddress    string
	TotalSolutions        int64
	TotalDonations        int
	AlreadySubmitted      int
	Failed                int
	UniqueSourceAddresses int
	UniqueDonationIDs     int
	FirstDonation         *string
	LastDonation          *string
}
