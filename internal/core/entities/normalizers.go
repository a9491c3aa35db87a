package entities

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
	"github.com/JonMunkholm/periop-sync/internal/identity"
)

// Sheet names in the source workbook.
const (
	SheetClinicians     = "Clinicians"
	SheetPatients       = "Patients"
	SheetCases          = "Cases"
	SheetPreoperative   = "Preoperative"
	SheetPostoperative  = "Postoperative"
	SheetIntraoperative = "Intraoperative"
)

// sexCodes maps the spellings seen in the roster to a single letter.
var sexCodes = map[string]string{
	"m":         "M",
	"masculino": "M",
	"male":      "M",
	"h":         "M",
	"hombre":    "M",
	"f":         "F",
	"femenino":  "F",
	"female":    "F",
	"mujer":     "F",
	"x":         "X",
	"otro":      "X",
	"other":     "X",
}

// NormalizeSex converts sex spellings to M, F or X. Unknown values are
// returned unchanged.
func NormalizeSex(s string) string {
	if code, ok := sexCodes[coerce.NormalizeName(s)]; ok {
		return code
	}
	return strings.TrimSpace(s)
}

var asaClasses = map[string]string{
	"i": "1", "ii": "2", "iii": "3", "iv": "4", "v": "5", "vi": "6",
}

// NormalizeASA reduces "ASA III", "asa 3" or "IIIE" to the class digit.
// The emergency suffix is dropped; urgency lives on the case.
func NormalizeASA(s string) string {
	v := strings.ToLower(coerce.CleanCell(s))
	v = strings.TrimSpace(strings.TrimPrefix(v, "asa"))
	v = strings.TrimSpace(strings.TrimSuffix(v, "e"))
	if d, ok := asaClasses[v]; ok {
		return d
	}
	if _, err := strconv.Atoi(v); err == nil {
		return v
	}
	return strings.TrimSpace(s)
}

// NormalizePhase lower-cases an intraoperative phase label and folds
// diacritics so "Inducción" and "induccion" share a key.
func NormalizePhase(s string) string {
	return coerce.NormalizeName(s)
}

func text(row core.Row, name string) any {
	return database.Value(coerce.ToText(row.Get(name)))
}

func integer(row core.Row, name string) any {
	return database.Value(coerce.ToInt(row.Get(name)))
}

func float(row core.Row, name string) any {
	return database.Value(coerce.ToFloat(row.Get(name)))
}

func boolean(row core.Row, name string) any {
	return database.Value(coerce.ParseBool(row.Get(name)))
}

func date(bc *core.BuildContext, row core.Row, name string) any {
	return database.Value(bc.ParseDate(row.Get(name)))
}

// nonEmpty returns nil for "" so optional text stays NULL.
func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requiredDate parses a date column the row cannot be keyed without.
func requiredDate(bc *core.BuildContext, row core.Row, name string) (any, error) {
	raw := row.Get(name)
	t := bc.ParseDate(raw)
	if t == nil {
		return nil, core.ValidationError{Field: name, Value: raw, Message: "invalid date format (use DD/MM/YYYY or YYYY-MM-DD)"}
	}
	return *t, nil
}

// patientID returns the canonical identifier of the row's patient column.
// Inputs from which no checksum can be derived are rejected.
func patientID(row core.Row) (string, error) {
	res := identity.Validate(row.Get("patient_id"))
	if !res.HasID() {
		return "", fmt.Errorf("%w %q: %s", core.ErrInvalidIdentifier, res.RawID, res.Reason)
	}
	return res.NormalizedID, nil
}

// caseKey derives the key shared by a case and its sub-records.
func caseKey(bc *core.BuildContext, row core.Row) (string, error) {
	pid, err := patientID(row)
	if err != nil {
		return "", err
	}
	start, err := requiredDate(bc, row, "start_time")
	if err != nil {
		return "", err
	}
	return core.CompositeKey(pid, start), nil
}

// modified reads the optional last-modified column.
func modified(bc *core.BuildContext, row core.Row) any {
	return date(bc, row, "modified_at")
}
