package core

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestFindHeader(t *testing.T) {
	specs := ownersDef().FieldSpecs

	tests := []struct {
		name    string
		rows    [][]string
		limit   int
		wantPos int
		wantErr bool
	}{
		{
			name:    "header on first row",
			rows:    [][]string{{"owner_id", "name"}, {"1", "Ana"}},
			wantPos: 0,
		},
		{
			name:    "title rows above header",
			rows:    [][]string{{"Registro 2019"}, {}, {"", "Name", "OWNER_ID"}, {"", "Ana", "1"}},
			wantPos: 2,
		},
		{
			name:    "header beyond search window",
			rows:    [][]string{{"x"}, {"y"}, {"owner_id", "name"}},
			limit:   2,
			wantErr: true,
		},
		{
			name:    "required column absent",
			rows:    [][]string{{"owner_id", "nombre"}},
			wantErr: true,
		},
		{
			name:    "empty sheet",
			rows:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, idx, err := FindHeader(tt.rows, specs, tt.limit)
			if tt.wantErr {
				if !errors.Is(err, ErrHeaderNotFound) {
					t.Fatalf("FindHeader() error = %v, want ErrHeaderNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindHeader() error = %v", err)
			}
			if pos != tt.wantPos {
				t.Errorf("pos = %d, want %d", pos, tt.wantPos)
			}
			if _, ok := idx["owner_id"]; !ok {
				t.Errorf("index missing owner_id: %v", idx)
			}
		})
	}
}

func TestMemorySource(t *testing.T) {
	src := MemorySource{"Owners": {{"owner_id"}, {"1"}}}

	rows, err := src.Rows("owners")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}

	if _, err := src.Rows("Pets"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Rows(Pets) error = %v, want ErrSheetNotFound", err)
	}
}

func TestOpenWorkbook_Missing(t *testing.T) {
	_, err := OpenWorkbook(filepath.Join(t.TempDir(), "absent.xlsx"))
	if !errors.Is(err, ErrWorkbookNotFound) {
		t.Errorf("OpenWorkbook() error = %v, want ErrWorkbookNotFound", err)
	}
}

func TestOpenWorkbook_ReadsRawCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Owners"); err != nil {
		t.Fatalf("SetSheetName() error = %v", err)
	}
	if err := f.SetSheetRow("Owners", "A1", &[]any{"owner_id", "name"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if err := f.SetSheetRow("Owners", "A2", &[]any{3282071, "Ana"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if _, err := f.NewSheet("Pets"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	_ = f.Close()

	wb, err := OpenWorkbook(path)
	if err != nil {
		t.Fatalf("OpenWorkbook() error = %v", err)
	}
	defer wb.Close()

	if got := wb.Sheets(); len(got) != 2 || got[0] != "Owners" {
		t.Errorf("Sheets() = %v", got)
	}

	rows, err := wb.Rows("OWNERS")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "3282071" || rows[1][1] != "Ana" {
		t.Errorf("rows = %v", rows)
	}

	if _, err := wb.Rows("Cases"); !errors.Is(err, ErrSheetNotFound) {
		t.Errorf("Rows(Cases) error = %v, want ErrSheetNotFound", err)
	}
}
