// Package identity validates and normalizes national identity numbers as they
// appear in the source workbook.
//
// Identifiers arrive dirty: dotted and dashed display forms ("3.282.071-5"),
// timestamps glued on after a colon, leading zeros, missing check digits.
// [Validate] never fails; it classifies the input and, whenever a checksum can
// be computed, returns the canonical 8-digit form. Callers persist the
// canonical form together with the raw input and the reason so that every
// automatic correction can be audited later.
package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Weights is the fixed positional weight vector applied to the 7-digit body.
var Weights = [7]int{2, 8, 3, 4, 7, 6, 9}

// Status classifies a validation outcome.
type Status string

const (
	StatusValid      Status = "valid"      // 8 digits, check digit matches
	StatusCorrected  Status = "corrected"  // 7 digits, check digit appended
	StatusSuspicious Status = "suspicious" // truncated input or check digit mismatch
	StatusInvalid    Status = "invalid"    // empty or unusable length
)

// Reasons reported by Validate.
const (
	ReasonEmpty     = "empty or undefined"
	ReasonTruncated = "likely truncated, missing trailing digits"
)

// Result is the outcome of validating one raw identifier.
type Result struct {
	NormalizedID     string `json:"normalizedId,omitempty"` // canonical 8-digit form; empty when not computable
	RawID            string `json:"rawId"`
	Valid            bool   `json:"valid"`
	Suspicious       bool   `json:"isSuspicious"`
	Status           Status `json:"status"`
	Reason           string `json:"reason,omitempty"`
	CorrectedDisplay string `json:"correctedDisplay,omitempty"` // d.ddd.ddd-c when the canonical form differs from the input
}

// HasID reports whether a canonical identifier could be derived.
func (r Result) HasID() bool {
	return r.NormalizedID != ""
}

// Validate classifies raw and derives its canonical form.
func Validate(raw string) Result {
	res := Result{RawID: raw}

	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "undefined") {
		res.Status = StatusInvalid
		res.Reason = ReasonEmpty
		return res
	}

	// A timestamp appended after a colon is an export artifact.
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}

	digits := stripNonDigits(s)

	switch len(digits) {
	case 6:
		res.Status = StatusSuspicious
		res.Suspicious = true
		res.Reason = ReasonTruncated

	case 7:
		check, _ := CheckDigit(digits)
		res.NormalizedID = digits + strconv.Itoa(check)
		res.Status = StatusCorrected
		res.Reason = fmt.Sprintf("check digit missing; calculated %d", check)

	case 8:
		body, provided := digits[:7], int(digits[7]-'0')
		check, _ := CheckDigit(body)
		res.NormalizedID = body + strconv.Itoa(check)
		if check == provided {
			res.Status = StatusValid
			res.Valid = true
		} else {
			res.Status = StatusSuspicious
			res.Suspicious = true
			res.Reason = fmt.Sprintf("check digit mismatch: provided %d, calculated %d", provided, check)
		}

	default:
		res.Status = StatusInvalid
		res.Reason = fmt.Sprintf("invalid length: %d digits", len(digits))
		return res
	}

	if res.NormalizedID != "" && res.NormalizedID != digits {
		res.CorrectedDisplay = Display(res.NormalizedID)
	}
	return res
}

// CheckDigit computes the check digit of a 7-digit body.
func CheckDigit(body string) (int, error) {
	if len(body) != len(Weights) {
		return 0, fmt.Errorf("check digit: body must have %d digits, got %d", len(Weights), len(body))
	}
	sum := 0
	for i := 0; i < len(body); i++ {
		d := body[i]
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("check digit: non-digit %q at position %d", d, i)
		}
		sum += int(d-'0') * Weights[i]
	}
	return (10 - sum%10) % 10, nil
}

// Display renders an 8-digit identifier as d.ddd.ddd-c.
// Other inputs are returned unchanged.
func Display(id string) string {
	if len(id) != 8 {
		return id
	}
	return id[:1] + "." + id[1:4] + "." + id[4:7] + "-" + id[7:]
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
