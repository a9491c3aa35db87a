package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

// FieldType represents the expected data type for a sheet column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldInteger
	FieldBool
)

// FieldSpec defines validation rules for a single sheet column.
type FieldSpec struct {
	Name       string              // Column header as it appears in the sheet (case-insensitive)
	Type       FieldType           // Expected data type
	Required   bool                // Column must exist in the sheet header
	AllowEmpty bool                // If true, empty values are allowed even when Required
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation applied before validation
}

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(coerce.CleanCell(h))
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Row is one data row of a sheet.
type Row struct {
	Sheet  string
	Number int // 1-based row number in the sheet
	Cells  []string
	Header HeaderIndex
}

// Get returns the cleaned cell under the named header, or "" when the column
// is absent or the row is short.
func (r Row) Get(name string) string {
	pos, ok := r.Header[strings.ToLower(name)]
	if !ok || pos >= len(r.Cells) {
		return ""
	}
	return coerce.CleanCell(r.Cells[pos])
}

// Mode selects how rows are written.
type Mode string

const (
	// ModeFull upserts every row unconditionally.
	ModeFull Mode = "full"

	// ModeIncremental writes only rows the change detector flags.
	ModeIncremental Mode = "incremental"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFull:
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q (want full or incremental)", s)
	}
}

// Parent declares that records of an entity may only be written once the
// referenced parent row exists.
type Parent struct {
	Entity  string            // Key of the parent entity definition
	Columns map[string]string // Child column -> parent key column
}

// BuildContext carries what builders need beyond the row itself.
type BuildContext struct {
	Location   *time.Location
	Clinicians *coerce.Resolver
}

// ParseDate parses a workbook date in the configured zone.
func (bc *BuildContext) ParseDate(s string) *time.Time {
	return coerce.ParseDate(s, bc.Location)
}

// BuildFunc converts a sheet row into zero or more records for the entity's
// table. Returning an error rejects the whole row.
type BuildFunc func(bc *BuildContext, row Row) ([]database.Record, error)

// EntityDefinition contains everything needed to synchronize one entity.
type EntityDefinition struct {
	Key        string         // Unique identifier, also the table name: "patients"
	Label      string         // Display name: "Patients"
	Sheet      string         // Source sheet name
	Table      database.Table // Target table layout
	Parents    []Parent       // Rows that must exist before a record is written
	FieldSpecs []FieldSpec    // Sheet columns and their validation rules
	Build      BuildFunc

	// Salient columns are compared when neither side carries a
	// source_modified_at timestamp. Empty means every non-key column.
	Salient []string

	// IdentifierHeader names the sheet column quoted in row errors raised
	// before a record key exists.
	IdentifierHeader string

	// UsesClinicians marks builders that resolve clinician names, so the
	// roster is loaded from the store before the group runs.
	UsesClinicians bool

	// Candidate turns a stored row into a roster entry. Entities that set
	// it supply the roster for UsesClinicians builders.
	Candidate func(database.Record) (coerce.Candidate, bool)
}

// RequiredHeaders returns the names of the required sheet columns.
func (d EntityDefinition) RequiredHeaders() []string {
	var out []string
	for _, spec := range d.FieldSpecs {
		if spec.Required {
			out = append(out, spec.Name)
		}
	}
	return out
}
