package classify

import (
	"strings"

	"donation-summary/internal/record"
)

// Category is the outcome assigned to every canonical record.
type Category int

const (
	// Successful donations moved new consolidated work to the destination.
	Successful Category = iota
	// AlreadySubmitted attempts added nothing because the destination had the
	// work already.
	AlreadySubmitted
	// Failed attempts are genuine errors.
	Failed
)

// String implements fmt.Stringer for log output.
func (c Category) String() string {
	switch c {
	case Successful:
		return "successful"
	case AlreadySubmitted:
		return "already_submitted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// AlreadyPredicate decides whether a record describes an attempt whose work
// was already received upstream. The detection is inherently fuzzy, so it is
// injectable rather than baked into the classification rules.
type AlreadyPredicate func(errMsg, respMsg string, rec record.Canonical) bool

// SubstringAlready is the default predicate: an explicit alreadyDonated flag
// on the record or its response, or the substring "already" in either the
// lowercased error or response message.
func SubstringAlready(errMsg, respMsg string, rec record.Canonical) bool {
	if rec.AlreadyDonated {
		return true
	}
	if rec.Response.Parsed && rec.Response.AlreadyDonated {
		return true
	}
	return strings.Contains(errMsg, "already") || strings.Contains(respMsg, "already")
}

// Classifier assigns each canonical record to exactly one category.
type Classifier struct {
	already AlreadyPredicate
}

// New constructs a Classifier. A nil predicate falls back to SubstringAlready.
func New(already AlreadyPredicate) *Classifier {
	if already == nil {
		already = SubstringAlready
	}
	return &Classifier{already: already}
}

// Classify applies the outcome rules in priority order.
//
// Donation-stream successes are AlreadySubmitted only on an explicit already
// signal (or zero solutions combined with an "already" message); ledger
// successes are AlreadySubmitted on zero solutions alone. The asymmetry is
// deliberate: the ledger records completions, so a zero-solution entry there
// means nothing new was consolidated, while a donation log needs the worker
// to say so.
func (c *Classifier) Classify(rec record.Canonical) Category {
	errMsg := strings.ToLower(rec.Error)
	respMsg := ""
	if rec.Response.Parsed {
		respMsg = strings.ToLower(rec.Response.Message)
	}
	isAlready := c.already(errMsg, respMsg, rec)

	switch {
	case rec.Provenance == record.ProvenanceLedger:
		// Only status=="success" ledger records survive normalization.
		if rec.Response.Solutions == 0 {
			return AlreadySubmitted
		}
		return Successful
	case rec.Success:
		if isAlready || (rec.Response.Parsed && rec.Response.Solutions == 0 && strings.Contains(respMsg, "already")) {
			return AlreadySubmitted
		}
		return Successful
	default:
		if isAlready {
			return AlreadySubmitted
		}
		return Failed
	}
}
