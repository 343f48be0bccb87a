package record

import (
	"encoding/json"
	"fmt"
)

// Provenance identifies which log stream produced a record.
type Provenance string

const (
	// ProvenanceDonation marks records read from per-worker donation logs.
	ProvenanceDonation Provenance = "donations"
	// ProvenanceLedger marks records normalized from the consolidation ledger.
	ProvenanceLedger Provenance = "consolidations"
)

// Response is the resolved form of a donation record's response payload. The
// raw field is either a JSON object or a JSON-encoded string holding one; both
// are resolved exactly once at decode time so downstream stages never re-parse.
// Parsed is false when the payload was absent or could not be interpreted, in
// which case all other fields are zero.
type Response struct {
	Parsed         bool
	Solutions      int64
	Message        string
	DonationID     string
	AlreadyDonated bool
}

// Canonical is a donation record after schema normalization. Donation-stream
// records pass through unchanged; ledger records are mapped field for field.
// Timestamp, SourceAddress and DestinationAddress are always present but may
// be empty strings.
type Canonical struct {
	Timestamp          string
	SourceAddress      string
	SourceAddressIndex *int
	DestinationAddress string
	Success            bool
	Error              string
	AlreadyDonated     bool
	Response           Response
	Provenance         Provenance
}

type rawDonation struct {
	Timestamp          string          `json:"timestamp"`
	SourceAddress      string          `json:"sourceAddress"`
	SourceAddressIndex *int            `json:"sourceAddressIndex"`
	DestinationAddress string          `json:"destinationAddress"`
	Success            bool            `json:"success"`
	Error              string          `json:"error"`
	AlreadyDonated     bool            `json:"alreadyDonated"`
	Response           json.RawMessage `json:"response"`
}

type rawResponse struct {
	SolutionsConsolidated int64  `json:"solutions_consolidated"`
	Message               string `json:"message"`
	DonationID            string `json:"donation_id"`
	AlreadyDonated        bool   `json:"alreadyDonated"`
}

type rawConsolidation struct {
	TS                    string `json:"ts"`
	SourceAddress         string `json:"sourceAddress"`
	SourceIndex           *int   `json:"sourceIndex"`
	DestinationAddress    string `json:"destinationAddress"`
	Status                string `json:"status"`
	SolutionsConsolidated int64  `json:"solutionsConsolidated"`
	Message               string `json:"message"`
}

// DecodeDonation parses one donation-log line into its canonical form.
func DecodeDonation(line []byte) (Canonical, error) {
	var raw rawDonation
	if err := json.Unmarshal(line, &raw); err != nil {
		return Canonical{}, fmt.Errorf("decode donation record: %w", err)
	}

	return Canonical{
		Timestamp:          raw.Timestamp,
		SourceAddress:      raw.SourceAddress,
		SourceAddressIndex: raw.SourceAddressIndex,
		DestinationAddress: raw.DestinationAddress,
		Success:            raw.Success,
		Error:              raw.Error,
		AlreadyDonated:     raw.AlreadyDonated,
		Response:           resolveResponse(raw.Response),
		Provenance:         ProvenanceDonation,
	}, nil
}

// DecodeConsolidation parses one ledger line and maps it into canonical form.
// Records whose status is anything but "success" are filtered here: the second
// return value is false and the record must not be forwarded downstream. They
// are ledger non-completions, not failed donations.
func DecodeConsolidation(line []byte) (Canonical, bool, error) {
	var raw rawConsolidation
	if err := json.Unmarshal(line, &raw); err != nil {
		return Canonical{}, false, fmt.Errorf("decode consolidation record: %w", err)
	}

	if raw.Status != "success" {
		return Canonical{}, false, nil
	}

	return Canonical{
		Timestamp:          raw.TS,
		SourceAddress:      raw.SourceAddress,
		SourceAddressIndex: raw.SourceIndex,
		DestinationAddress: raw.DestinationAddress,
		Success:            true,
		Response: Response{
			Parsed:    true,
			Solutions: raw.SolutionsConsolidated,
			Message:   raw.Message,
		},
		Provenance: ProvenanceLedger,
	}, true, nil
}

// resolveResponse turns the raw response payload into the tagged union form.
// The payload may be a JSON object, a JSON string containing embedded JSON, or
// anything else; only the first two yield a parsed response.
func resolveResponse(raw json.RawMessage) Response {
	if len(raw) == 0 {
		return Response{}
	}

	var obj rawResponse
	if err := json.Unmarshal(raw, &obj); err == nil {
		return Response{
			Parsed:         true,
			Solutions:      obj.SolutionsConsolidated,
			Message:        obj.Message,
			DonationID:     obj.DonationID,
			AlreadyDonated: obj.AlreadyDonated,
		}
	}

	var embedded string
	if err := json.Unmarshal(raw, &embedded); err == nil {
		if err := json.Unmarshal([]byte(embedded), &obj); err == nil {
			return Response{
				Parsed:         true,
				Solutions:      obj.SolutionsConsolidated,
				Message:        obj.Message,
				DonationID:     obj.DonationID,
				AlreadyDonated: obj.AlreadyDonated,
			}
		}
	}

	return Response{}
}
