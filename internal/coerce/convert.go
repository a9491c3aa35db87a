// Package coerce converts heterogeneous workbook cells into canonical typed
// values.
//
// These functions handle the messy reality of hand-maintained spreadsheets:
//   - Dates in several day/month/year and ISO layouts, or raw Excel serials
//   - Spanish and English yes/no tokens
//   - "code: name" person references
//   - Numbers exported in scientific notation or with decimal commas
//   - Name spelling drift between sheets
//
// Every function is total: unparseable input yields nil (or ok=false), never
// a panic, a NaN or a guess.
package coerce

import (
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace, including non-breaking spaces
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
// - Replaces invalid UTF-8 sequences
func CleanCell(s string) string {
	if !utf8.ValidString(s) {
		s = string(SanitizeUTF8([]byte(s)))
	}
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// ToText returns the cleaned cell, or nil when it is empty.
func ToText(s string) *string {
	s = CleanCell(s)
	if s == "" {
		return nil
	}
	return &s
}

// ToFloat converts a cell to a float64.
// A lone comma is read as a decimal separator ("72,5"); otherwise commas are
// thousands separators. Returns nil for anything that is not a finite number.
func ToFloat(s string) *float64 {
	s = CleanCell(s)
	if s == "" {
		return nil
	}

	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.ReplaceAll(s, " ", "")

	if !numericRegex.MatchString(s) {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ToInt converts a cell to an int64, truncating any fractional part.
// Scientific notation ("4.5728634E7") is accepted because spreadsheets export
// long integers that way.
func ToInt(s string) *int64 {
	f := ToFloat(s)
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return nil
	}
	i := int64(t)
	return &i
}

// ParseBool maps yes/no tokens to a tri-state value.
// Returns nil when the token is not recognized; that is distinct from false.
func ParseBool(s string) *bool {
	var v bool
	switch strings.ToLower(CleanCell(s)) {
	case "si", "sí", "yes", "1", "true":
		v = true
	case "no", "0", "false":
		v = false
	default:
		return nil
	}
	return &v
}

// PersonRef is a parsed "<code>: <name>" reference.
type PersonRef struct {
	Code int64
	Name string
}

// ParsePersonRef parses the "<code>: <name>" convention.
// Returns nil if the colon is absent or the code segment is not an integer.
func ParsePersonRef(s string) *PersonRef {
	s = CleanCell(s)
	i := strings.Index(s, ":")
	if i < 0 {
		return nil
	}
	code, err := strconv.ParseInt(strings.TrimSpace(s[:i]), 10, 64)
	if err != nil {
		return nil
	}
	return &PersonRef{Code: code, Name: strings.TrimSpace(s[i+1:])}
}

// SanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func SanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
