package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/periop-sync/internal/database"
)

var (
	// ErrParentMissing is recorded when a record's parent row is not in the store.
	ErrParentMissing = errors.New("parent does not exist")

	// ErrInvalidIdentifier rejects rows whose patient identifier cannot be normalized.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrUnresolvedClinician rejects rows naming a clinician no stage could resolve.
	ErrUnresolvedClinician = errors.New("unresolved clinician")

	// ErrStoreUnavailable aborts a run when the store stops answering.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWorkbookNotFound is returned when the input workbook does not exist.
	ErrWorkbookNotFound = errors.New("workbook not found")

	// ErrSheetNotFound is returned by a SheetSource for an absent sheet.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrHeaderNotFound means no row in the search window held every required header.
	ErrHeaderNotFound = errors.New("header not found")
)

// ErrorKind classifies a row error.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindInvalidIdentifier   ErrorKind = "invalid_identifier"
	KindParentMissing       ErrorKind = "parent_missing"
	KindUnresolvedClinician ErrorKind = "unresolved_clinician"
	KindConstraint          ErrorKind = "constraint"
	KindStore               ErrorKind = "store"
	KindUnknown             ErrorKind = "unknown"
)

// RowError is one failed row or record, as stored in the audit artifact.
type RowError struct {
	Entity     string    `json:"entity"`
	Sheet      string    `json:"sheet"`
	Row        int       `json:"row"`
	Identifier string    `json:"identifier,omitempty"`
	Kind       ErrorKind `json:"kind"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}

func (e RowError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s row %d (%s): %s", e.Sheet, e.Row, e.Identifier, e.Message)
	}
	return fmt.Sprintf("%s row %d: %s", e.Sheet, e.Row, e.Message)
}

// classify maps an error to its kind.
func classify(err error) ErrorKind {
	var ve ValidationError
	switch {
	case errors.Is(err, ErrParentMissing):
		return KindParentMissing
	case errors.Is(err, ErrInvalidIdentifier):
		return KindInvalidIdentifier
	case errors.Is(err, ErrUnresolvedClinician):
		return KindUnresolvedClinician
	case errors.As(err, &ve):
		return KindValidation
	case database.IsAlreadyExists(err):
		return KindConstraint
	case database.IsUnavailable(err):
		return KindStore
	case errors.Is(err, errStoreOp):
		return KindStore
	default:
		return KindUnknown
	}
}

// errStoreOp tags failures returned by store calls.
var errStoreOp = errors.New("store")

func storeError(op string, err error) error {
	return fmt.Errorf("%w %s: %w", errStoreOp, op, err)
}

// newRowError builds the audit entry for err.
func newRowError(def EntityDefinition, row Row, identifier string, err error) RowError {
	return RowError{
		Entity:     def.Key,
		Sheet:      row.Sheet,
		Row:        row.Number,
		Identifier: identifier,
		Kind:       classify(err),
		Code:       MapError(err).Code,
		Message:    err.Error(),
	}
}
