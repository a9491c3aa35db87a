package core

// workbook.go reads sheets from the input workbook.
//
// Cells are read raw so dates arrive as serial day numbers and long integers
// keep their stored form; coercion happens per column in the builders.

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxHeaderSearchRows is how many leading rows are scanned for the header.
var MaxHeaderSearchRows = 20

// SheetSource yields the rows of named sheets.
type SheetSource interface {
	// Rows returns every row of the sheet, or ErrSheetNotFound.
	Rows(sheet string) ([][]string, error)
	Close() error
}

// Workbook is a SheetSource backed by an XLSX file.
type Workbook struct {
	f    *excelize.File
	path string
}

// OpenWorkbook opens the workbook at path. A missing file is reported as
// ErrWorkbookNotFound.
func OpenWorkbook(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWorkbookNotFound, path)
		}
		return nil, fmt.Errorf("stat workbook: %w", err)
	}

	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{f: f, path: path}, nil
}

// Sheets lists the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// Rows returns the rows of the sheet whose name matches case-insensitively.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	name, ok := w.lookup(sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	rows, err := w.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return rows, nil
}

func (w *Workbook) lookup(sheet string) (string, bool) {
	for _, name := range w.f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(name), sheet) {
			return name, true
		}
	}
	return "", false
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// MemorySource is an in-memory SheetSource.
type MemorySource map[string][][]string

// Rows returns a copy of the named sheet.
func (m MemorySource) Rows(sheet string) ([][]string, error) {
	for name, rows := range m {
		if strings.EqualFold(name, sheet) {
			out := make([][]string, len(rows))
			copy(out, rows)
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
}

// Close is a no-op.
func (MemorySource) Close() error { return nil }

// FindHeader locates the first row within the search window that contains
// every required header (case-insensitive, any column order) and returns
// its position with the header index.
func FindHeader(rows [][]string, specs []FieldSpec, limit int) (int, HeaderIndex, error) {
	if limit <= 0 {
		limit = MaxHeaderSearchRows
	}
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		if idx, err := ValidateHeaders(rows[i], specs); err == nil {
			return i, idx, nil
		}
	}

	var required []string
	for _, spec := range specs {
		if spec.Required {
			required = append(required, spec.Name)
		}
	}
	return -1, nil, fmt.Errorf("%w in first %d rows (expected: %s)", ErrHeaderNotFound, limit, strings.Join(required, ", "))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
