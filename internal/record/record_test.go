package record

import (
	"testing"
)

func TestDecodeDonationObjectResponse(t *testing.T) {
	line := `{"timestamp":"2025-01-04T10:00:00Z","sourceAddress":"src1","sourceAddressIndex":3,"destinationAddress":"dst1","success":true,"response":{"solutions_consolidated":5,"message":"ok","donation_id":"abc"}}`

	rec, err := DecodeDonation([]byte(line))
	if err != nil {
		t.Fatalf("DecodeDonation returned error: %v", err)
	}
	if rec.Provenance != ProvenanceDonation {
		t.Fatalf("provenance = %q, want %q", rec.Provenance, ProvenanceDonation)
	}
	if !rec.Success {
		t.Fatal("success flag lost in decode")
	}
	if rec.SourceAddressIndex == nil || *rec.SourceAddressIndex != 3 {
		t.Fatalf("sourceAddressIndex = %v, want 3", rec.SourceAddressIndex)
	}
	if !rec.Response.Parsed {
		t.Fatal("object response should resolve as parsed")
	}
	if rec.Response.Solutions != 5 || rec.Response.Message != "ok" || rec.Response.DonationID != "abc" {
		t.Fatalf("unexpected response: %+v", rec.Response)
	}
}

func TestDecodeDonationEmbeddedStringResponse(t *testing.T) {
	line := `{"timestamp":"2025-01-04T10:00:00Z","sourceAddress":"src1","destinationAddress":"dst1","success":true,"response":"{\"solutions_consolidated\":7,\"message\":\"already donated\"}"}`

	rec, err := DecodeDonation([]byte(line))
	if err != nil {
		t.Fatalf("DecodeDonation returned error: %v", err)
	}
	if !rec.Response.Parsed {
		t.Fatal("embedded JSON string should resolve as parsed")
	}
	if rec.Response.Solutions != 7 {
		t.Fatalf("solutions = %d, want 7", rec.Response.Solutions)
	}
	if rec.Response.Message != "already donated" {
		t.Fatalf("message = %q", rec.Response.Message)
	}
}

func TestDecodeDonationOpaqueResponse(t *testing.T) {
	line := `{"timestamp":"2025-01-04T10:00:00Z","sourceAddress":"src1","destinationAddress":"dst1","success":false,"error":"boom","response":"not json at all"}`

	rec, err := DecodeDonation([]byte(line))
	if err != nil {
		t.Fatalf("DecodeDonation returned error: %v", err)
	}
	if rec.Response.Parsed {
		t.Fatal("opaque string response must not resolve as parsed")
	}
	if rec.Response.Solutions != 0 || rec.Response.Message != "" {
		t.Fatalf("opaque response should be empty, got %+v", rec.Response)
	}
	if rec.Error != "boom" {
		t.Fatalf("error = %q, want boom", rec.Error)
	}
}

func TestDecodeDonationMissingFields(t *testing.T) {
	rec, err := DecodeDonation([]byte(`{}`))
	if err != nil {
		t.Fatalf("DecodeDonation returned error: %v", err)
	}
	if rec.Timestamp != "" || rec.SourceAddress != "" || rec.DestinationAddress != "" {
		t.Fatalf("missing fields should decode to empty strings: %+v", rec)
	}
	if rec.SourceAddressIndex != nil {
		t.Fatal("absent sourceAddressIndex should stay nil")
	}
}

func TestDecodeDonationMalformed(t *testing.T) {
	if _, err := DecodeDonation([]byte(`{"timestamp":`)); err == nil {
		t.Fatal("malformed line must return an error")
	}
}

func TestDecodeConsolidationSuccess(t *testing.T) {
	line := `{"ts":"2025-01-04T11:30:00Z","sourceAddress":"src2","sourceIndex":1,"destinationAddress":"dst2","status":"success","solutionsConsolidated":3,"message":"consolidated"}`

	rec, ok, err := DecodeConsolidation([]byte(line))
	if err != nil {
		t.Fatalf("DecodeConsolidation returned error: %v", err)
	}
	if !ok {
		t.Fatal("success status must be forwarded")
	}
	if rec.Provenance != ProvenanceLedger {
		t.Fatalf("provenance = %q, want %q", rec.Provenance, ProvenanceLedger)
	}
	if !rec.Success {
		t.Fatal("normalized ledger record must carry success=true")
	}
	if rec.Timestamp != "2025-01-04T11:30:00Z" {
		t.Fatalf("ts not mapped to timestamp: %q", rec.Timestamp)
	}
	if rec.SourceAddressIndex == nil || *rec.SourceAddressIndex != 1 {
		t.Fatalf("sourceIndex not mapped: %v", rec.SourceAddressIndex)
	}
	if !rec.Response.Parsed || rec.Response.Solutions != 3 || rec.Response.Message != "consolidated" {
		t.Fatalf("solutionsConsolidated/message not mapped into response: %+v", rec.Response)
	}
}

func TestDecodeConsolidationFiltersNonSuccess(t *testing.T) {
	for _, status := range []string{"failed", "pending", "", "Success"} {
		line := `{"ts":"2025-01-04T11:30:00Z","sourceAddress":"src2","destinationAddress":"dst2","status":"` + status + `","solutionsConsolidated":3}`
		_, ok, err := DecodeConsolidation([]byte(line))
		if err != nil {
			t.Fatalf("status %q: unexpected error: %v", status, err)
		}
		if ok {
			t.Fatalf("status %q must be filtered before normalization", status)
		}
	}
}
