package core

// validation.go provides row-level validation for sheet rows before building.
//
// Validation happens at two levels:
//  1. Header validation: Ensures required columns are present
//  2. Row validation: Checks each cell against its FieldSpec (type, format, enum values)
//
// ValidateRowFirst stops at the first problem; one row error per row is
// recorded.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/periop-sync/internal/coerce"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RowValidator validates rows against an entity's field specifications.
type RowValidator struct {
	specs     []FieldSpec
	headerIdx HeaderIndex
}

// NewRowValidator creates a validator for the given specs and header index.
func NewRowValidator(specs []FieldSpec, headerIdx HeaderIndex) *RowValidator {
	return &RowValidator{
		specs:     specs,
		headerIdx: headerIdx,
	}
}

// ValidateRowFirst validates a row and returns the first error only.
func (v *RowValidator) ValidateRowFirst(row []string) error {
	for _, spec := range v.specs {
		if err := v.validateField(row, spec); err != nil {
			return *err
		}
	}
	return nil
}

func (v *RowValidator) validateField(row []string, spec FieldSpec) *ValidationError {
	pos, ok := v.headerIdx[strings.ToLower(spec.Name)]
	if !ok {
		if spec.Required {
			return &ValidationError{Field: spec.Name, Message: "missing required column"}
		}
		return nil
	}

	raw := ""
	if pos < len(row) {
		raw = coerce.CleanCell(row[pos])
	}

	if raw == "" {
		if spec.Required && !spec.AllowEmpty {
			return &ValidationError{Field: spec.Name, Message: "required field is empty"}
		}
		return nil
	}

	if spec.Normalizer != nil {
		raw = spec.Normalizer(raw)
	}

	// Optional columns are coerced leniently: an unparseable value becomes NULL.
	if !spec.Required {
		return nil
	}
	if err := ValidateCell(raw, spec); err != nil {
		return &ValidationError{Field: spec.Name, Value: raw, Message: err.Error()}
	}
	return nil
}

// ValidateCell validates a single cell value against a field specification.
// Returns nil if valid, or an error describing the problem.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil // Empty values are allowed (will be NULL)
	}

	switch spec.Type {
	case FieldNumeric:
		if coerce.ToFloat(value) == nil {
			return fmt.Errorf("invalid number format")
		}
	case FieldInteger:
		if coerce.ToInt(value) == nil {
			return fmt.Errorf("invalid number format")
		}
	case FieldDate:
		// Layouts and serials are checked by the builder in the workbook
		// zone; here any structurally valid date in UTC is accepted.
		if coerce.ParseDate(value, nil) == nil {
			return fmt.Errorf("invalid date format (use DD/MM/YYYY or YYYY-MM-DD)")
		}
	case FieldBool:
		if coerce.ParseBool(value) == nil {
			return fmt.Errorf("must be si/no, yes/no, true/false, or 1/0")
		}
	case FieldEnum:
		if len(spec.EnumValues) > 0 {
			for _, ev := range spec.EnumValues {
				if strings.EqualFold(ev, value) {
					return nil
				}
			}
			return fmt.Errorf("invalid enum: value must be one of: %s", strings.Join(spec.EnumValues, ", "))
		}
	}
	return nil
}

// ValidateHeaders validates that all required columns exist in the headers.
// Returns a mapping from column name to index, or an error listing missing columns.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if spec.Required {
			key := strings.ToLower(spec.Name)
			if _, ok := idx[key]; !ok {
				missing = append(missing, spec.Name)
			}
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}
