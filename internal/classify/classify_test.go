package classify

import (
	"testing"

	"donation-summary/internal/record"
)

func donation(success bool, errMsg string, resp record.Response) record.Canonical {
	return record.Canonical{
		Timestamp:          "2025-01-04T10:00:00Z",
		SourceAddress:      "src",
		DestinationAddress: "dst",
		Success:            success,
		Error:              errMsg,
		Response:           resp,
		Provenance:         record.ProvenanceDonation,
	}
}

func ledger(solutions int64) record.Canonical {
	return record.Canonical{
		Timestamp:          "2025-01-04T10:00:00Z",
		SourceAddress:      "src",
		DestinationAddress: "dst",
		Success:            true,
		Response:           record.Response{Parsed: true, Solutions: solutions},
		Provenance:         record.ProvenanceLedger,
	}
}

func TestClassifyRules(t *testing.T) {
	c := New(nil)

	cases := []struct {
		name string
		rec  record.Canonical
		want Category
	}{
		{
			name: "success with solutions",
			rec:  donation(true, "", record.Response{Parsed: true, Solutions: 5}),
			want: Successful,
		},
		{
			// Zero solutions alone is not enough on the donation path.
			name: "success with zero solutions and no already marker",
			rec:  donation(true, "", record.Response{Parsed: true, Solutions: 0}),
			want: Successful,
		},
		{
			name: "success with zero solutions and already message",
			rec:  donation(true, "", record.Response{Parsed: true, Solutions: 0, Message: "Already donated"}),
			want: AlreadySubmitted,
		},
		{
			name: "success with alreadyDonated flag",
			rec: record.Canonical{
				Success:        true,
				AlreadyDonated: true,
				Response:       record.Response{Parsed: true, Solutions: 5},
				Provenance:     record.ProvenanceDonation,
			},
			want: AlreadySubmitted,
		},
		{
			name: "success with response alreadyDonated flag",
			rec:  donation(true, "", record.Response{Parsed: true, Solutions: 2, AlreadyDonated: true}),
			want: AlreadySubmitted,
		},
		{
			name: "failure with already in error",
			rec:  donation(false, "donation Already submitted upstream", record.Response{}),
			want: AlreadySubmitted,
		},
		{
			name: "plain failure",
			rec:  donation(false, "connection refused", record.Response{}),
			want: Failed,
		},
		{
			name: "failure with opaque response",
			rec:  donation(false, "boom", record.Response{Parsed: false}),
			want: Failed,
		},
		{
			// The ledger path treats zero solutions as already submitted even
			// without any message.
			name: "ledger success with zero solutions",
			rec:  ledger(0),
			want: AlreadySubmitted,
		},
		{
			name: "ledger success with solutions",
			rec:  ledger(3),
			want: Successful,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.rec); got != tc.want {
				t.Fatalf("Classify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyInjectedPredicate(t *testing.T) {
	never := func(string, string, record.Canonical) bool { return false }
	c := New(never)

	rec := donation(false, "already donated", record.Response{})
	if got := c.Classify(rec); got != Failed {
		t.Fatalf("with a never-already predicate the failure path must stay Failed, got %v", got)
	}

	always := func(string, string, record.Canonical) bool { return true }
	c = New(always)
	if got := c.Classify(donation(true, "", record.Response{Parsed: true, Solutions: 9})); got != AlreadySubmitted {
		t.Fatalf("with an always-already predicate successes become AlreadySubmitted, got %v", got)
	}
}

func TestCategoryString(t *testing.T) {
	if Successful.String() != "successful" || AlreadySubmitted.String() != "already_submitted" || Failed.String() != "failed" {
		t.Fatal("category names changed")
	}
}
