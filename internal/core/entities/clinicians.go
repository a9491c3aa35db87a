package entities

import (
	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

func init() {
	registerClinicians()
}

// CliniciansTable holds the clinician roster keyed by license code.
var CliniciansTable = database.Table{
	Name: "clinicians",
	Columns: []database.Column{
		{Name: "license_code", Kind: database.KindInt},
		{Name: "full_name", Kind: database.KindText},
		{Name: "specialty", Kind: database.KindText},
		{Name: core.ModifiedColumn, Kind: database.KindTime},
	},
	Key: []string{"license_code"},
}

func registerClinicians() {
	core.Register(core.EntityDefinition{
		Key:   "clinicians",
		Label: "Clinicians",
		Sheet: SheetClinicians,
		Table: CliniciansTable,
		FieldSpecs: []core.FieldSpec{
			{Name: "license_code", Type: core.FieldInteger, Required: true},
			{Name: "full_name", Type: core.FieldText, Required: true},
			{Name: "specialty", Type: core.FieldText, Required: false, AllowEmpty: true},
			{Name: "modified_at", Type: core.FieldDate, Required: false, AllowEmpty: true},
		},
		Salient:          []string{"full_name", "specialty"},
		IdentifierHeader: "license_code",
		Build:            buildClinician,
		Candidate:        clinicianCandidate,
	})
}

func buildClinician(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	code := coerce.ToInt(row.Get("license_code"))
	if code == nil {
		return nil, core.ValidationError{Field: "license_code", Value: row.Get("license_code"), Message: "invalid number format"}
	}
	return []database.Record{{
		"license_code":      *code,
		"full_name":         text(row, "full_name"),
		"specialty":         text(row, "specialty"),
		core.ModifiedColumn: modified(bc, row),
	}}, nil
}

func clinicianCandidate(rec database.Record) (coerce.Candidate, bool) {
	code, ok := rec["license_code"].(int64)
	if !ok {
		return coerce.Candidate{}, false
	}
	name, _ := rec["full_name"].(string)
	if name == "" {
		return coerce.Candidate{}, false
	}
	return coerce.Candidate{ID: code, Name: name}, true
}
