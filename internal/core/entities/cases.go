package entities

import (
	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

func init() {
	registerCases()
}

// CasesTable holds surgical episodes, unique per patient and start time.
var CasesTable = database.Table{
	Name: "cases",
	Columns: []database.Column{
		{Name: "case_key", Kind: database.KindText},
		{Name: "patient_id", Kind: database.KindText},
		{Name: "start_time", Kind: database.KindTime},
		{Name: "end_time", Kind: database.KindTime},
		{Name: "procedure", Kind: database.KindText},
		{Name: "urgent", Kind: database.KindBool},
		{Name: core.ModifiedColumn, Kind: database.KindTime},
	},
	Key: []string{"case_key"},
}

// caseFields are the columns that identify a case on every episode sheet.
var caseFields = []core.FieldSpec{
	{Name: "patient_id", Type: core.FieldText, Required: true},
	{Name: "start_time", Type: core.FieldDate, Required: true},
}

func registerCases() {
	core.Register(core.EntityDefinition{
		Key:   "cases",
		Label: "Cases",
		Sheet: SheetCases,
		Table: CasesTable,
		Parents: []core.Parent{
			{Entity: "patients", Columns: map[string]string{"patient_id": "patient_id"}},
		},
		FieldSpecs: append(append([]core.FieldSpec{}, caseFields...),
			core.FieldSpec{Name: "end_time", Type: core.FieldDate, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "procedure", Type: core.FieldText, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "urgent", Type: core.FieldBool, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "modified_at", Type: core.FieldDate, Required: false, AllowEmpty: true},
		),
		Salient:          []string{"end_time", "procedure"},
		IdentifierHeader: "patient_id",
		Build:            buildCase,
	})
}

func buildCase(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	pid, err := patientID(row)
	if err != nil {
		return nil, err
	}
	start, err := requiredDate(bc, row, "start_time")
	if err != nil {
		return nil, err
	}
	return []database.Record{{
		"case_key":          core.CompositeKey(pid, start),
		"patient_id":        pid,
		"start_time":        start,
		"end_time":          date(bc, row, "end_time"),
		"procedure":         text(row, "procedure"),
		"urgent":            boolean(row, "urgent"),
		core.ModifiedColumn: modified(bc, row),
	}}, nil
}
