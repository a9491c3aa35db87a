package core

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testReport() *RunReport {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &RunReport{
		RunID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
		Mode:       ModeIncremental,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Entities: []EntityReport{
			{Entity: "owners", EntityStats: EntityStats{Checked: 3, Created: 2, Skipped: 1}},
			{Entity: "pets", EntityStats: EntityStats{Checked: 2, Updated: 1, Errors: 1}},
		},
		Errors: []RowError{{
			Entity: "pets", Sheet: "Pets", Row: 3, Identifier: "9",
			Kind: KindParentMissing, Code: "SYNC001", Message: "parent does not exist",
		}},
		Warnings: []string{"Vets: sheet \"Vets\" not found, skipped"},
	}
}

func TestAuditWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w := AuditWriter{Dir: dir}
	r := testReport()

	path, err := w.Write(r)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, want := filepath.Base(path), "sync_20240301T120000Z_0f8fad5b.json"; got != want {
		t.Errorf("file name = %s, want %s", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got AuditArtifact
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	if got.RunID != r.RunID || got.Mode != ModeIncremental {
		t.Errorf("artifact header = %+v", got)
	}
	if got.Stats["owners"].Created != 2 || got.Stats["pets"].Errors != 1 {
		t.Errorf("stats = %+v", got.Stats)
	}
	if len(got.Errors) != 1 || got.Errors[0].Code != "SYNC001" || got.Errors[0].Row != 3 {
		t.Errorf("errors = %+v", got.Errors)
	}
}

func TestAuditWriter_NeverOverwrites(t *testing.T) {
	w := AuditWriter{Dir: t.TempDir()}
	r := testReport()

	first, err := w.Write(r)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	second, err := w.Write(r)
	if err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if first == second {
		t.Fatalf("both writes used %s", first)
	}
	if !strings.HasSuffix(second, "_0f8fad5b_1.json") {
		t.Errorf("second artifact = %s, want _1 suffix", second)
	}
}

func TestAuditArtifact_EmptyErrorsIsArray(t *testing.T) {
	r := testReport()
	r.Errors = nil

	data, err := json.Marshal(NewAuditArtifact(r))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Contains(data, []byte(`"errors":[]`)) {
		t.Errorf("artifact = %s, want empty errors array", data)
	}
}

func TestRunReport_WriteSummary(t *testing.T) {
	r := testReport()
	r.ArtifactPath = "logs/sync.json"

	var buf bytes.Buffer
	if err := r.WriteSummary(&buf); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"entity", "owners", "pets", "total",
		"run 0f8fad5b-d9cb-469f-a165-70867728950e (incremental) completed in 1.5s with 1 error(s)",
		"1 row(s): The referenced parent record is not in the store (Code: SYNC001). Check the parent row on its own sheet for errors",
		"warning: Vets",
		"audit: logs/sync.json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRunReport_Totals(t *testing.T) {
	got := testReport().Totals()
	want := EntityStats{Checked: 5, Created: 2, Updated: 1, Skipped: 1, Errors: 1}
	if got != want {
		t.Errorf("Totals() = %+v, want %+v", got, want)
	}
}

func TestSyncRunRecord(t *testing.T) {
	r := testReport()
	rec := syncRunRecord(r)
	if rec["run_id"] != r.RunID || rec["checked"] != int64(5) || rec["errors"] != int64(1) {
		t.Errorf("record = %v", rec)
	}
	if _, ok := rec["artifact"]; ok {
		t.Error("artifact set without a path")
	}
	if err := SyncRunsTable.Validate(); err != nil {
		t.Errorf("SyncRunsTable invalid: %v", err)
	}
}

func TestRunReport_WriteSummaryGroupsCodes(t *testing.T) {
	r := testReport()
	r.Errors = append(r.Errors,
		RowError{Entity: "owners", Sheet: "Owners", Row: 4, Kind: KindValidation, Code: "VAL003", Message: "name: required field is empty"},
		RowError{Entity: "pets", Sheet: "Pets", Row: 5, Kind: KindParentMissing, Code: "SYNC001", Message: "parent does not exist: owners 7"},
	)

	var buf bytes.Buffer
	if err := r.WriteSummary(&buf); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	out := buf.String()

	parent := strings.Index(out, "2 row(s): The referenced parent record is not in the store (Code: SYNC001)")
	required := strings.Index(out, "1 row(s): Required field is empty (Code: VAL003)")
	if parent < 0 || required < 0 {
		t.Fatalf("summary missing grouped codes:\n%s", out)
	}
	if parent > required {
		t.Errorf("codes not in first-seen order:\n%s", out)
	}
}
