package entities

import (
	"fmt"

	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
	"github.com/JonMunkholm/periop-sync/internal/identity"
)

func init() {
	registerPatients()
}

// PatientsTable stores patients under their canonical identifier together
// with the validation outcome of the raw value.
var PatientsTable = database.Table{
	Name: "patients",
	Columns: []database.Column{
		{Name: "patient_id", Kind: database.KindText},
		{Name: "raw_id", Kind: database.KindText},
		{Name: "id_status", Kind: database.KindText},
		{Name: "id_suspicious", Kind: database.KindBool},
		{Name: "id_reason", Kind: database.KindText},
		{Name: "id_display", Kind: database.KindText},
		{Name: "full_name", Kind: database.KindText},
		{Name: "birth_date", Kind: database.KindTime},
		{Name: "sex", Kind: database.KindText},
		{Name: core.ModifiedColumn, Kind: database.KindTime},
	},
	Key: []string{"patient_id"},
}

func registerPatients() {
	core.Register(core.EntityDefinition{
		Key:   "patients",
		Label: "Patients",
		Sheet: SheetPatients,
		Table: PatientsTable,
		FieldSpecs: []core.FieldSpec{
			{Name: "patient_id", Type: core.FieldText, Required: true},
			{Name: "full_name", Type: core.FieldText, Required: true, AllowEmpty: true},
			{Name: "birth_date", Type: core.FieldDate, Required: false, AllowEmpty: true},
			{Name: "sex", Type: core.FieldEnum, Required: false, AllowEmpty: true,
				EnumValues: []string{"M", "F", "X"}, Normalizer: NormalizeSex},
			{Name: "modified_at", Type: core.FieldDate, Required: false, AllowEmpty: true},
		},
		Salient:          []string{"full_name", "birth_date"},
		IdentifierHeader: "patient_id",
		Build:            buildPatient,
	})
}

func buildPatient(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	res := identity.Validate(row.Get("patient_id"))
	if !res.HasID() {
		return nil, fmt.Errorf("%w %q: %s", core.ErrInvalidIdentifier, res.RawID, res.Reason)
	}

	var sex any
	if s := row.Get("sex"); s != "" {
		sex = NormalizeSex(s)
	}

	return []database.Record{{
		"patient_id":        res.NormalizedID,
		"raw_id":            res.RawID,
		"id_status":         string(res.Status),
		"id_suspicious":     res.Suspicious,
		"id_reason":         nonEmpty(res.Reason),
		"id_display":        nonEmpty(res.CorrectedDisplay),
		"full_name":         text(row, "full_name"),
		"birth_date":        date(bc, row, "birth_date"),
		"sex":               sex,
		core.ModifiedColumn: modified(bc, row),
	}}, nil
}
