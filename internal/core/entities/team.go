package entities

import (
	"fmt"

	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

func init() {
	registerTeamAssignments()
}

// Team roles and the Cases sheet column each one is read from.
var teamRoles = []struct {
	Role   string
	Header string
}{
	{Role: "surgeon", Header: "surgeon"},
	{Role: "anesthetist", Header: "anesthetist"},
}

// TeamAssignmentsTable links a case to the clinician filling each role.
var TeamAssignmentsTable = database.Table{
	Name: "team_assignments",
	Columns: []database.Column{
		{Name: "case_key", Kind: database.KindText},
		{Name: "role", Kind: database.KindText},
		{Name: "clinician_code", Kind: database.KindInt},
		{Name: "source_name", Kind: database.KindText},
		{Name: "resolved_by", Kind: database.KindText},
		{Name: "match_score", Kind: database.KindFloat},
	},
	Key: []string{"case_key", "role"},
}

func registerTeamAssignments() {
	specs := append([]core.FieldSpec{}, caseFields...)
	for _, r := range teamRoles {
		specs = append(specs, core.FieldSpec{Name: r.Header, Type: core.FieldText, Required: false, AllowEmpty: true})
	}

	core.Register(core.EntityDefinition{
		Key:   "team_assignments",
		Label: "Team Assignments",
		Sheet: SheetCases,
		Table: TeamAssignmentsTable,
		Parents: []core.Parent{
			{Entity: "cases", Columns: map[string]string{"case_key": "case_key"}},
			{Entity: "clinicians", Columns: map[string]string{"clinician_code": "license_code"}},
		},
		FieldSpecs:       specs,
		Salient:          []string{"clinician_code"},
		IdentifierHeader: "patient_id",
		UsesClinicians:   true,
		Build:            buildTeamAssignments,
	})
}

// buildTeamAssignments emits one record per filled role. A name no resolver
// stage can place rejects the whole row.
func buildTeamAssignments(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	key, err := caseKey(bc, row)
	if err != nil {
		return nil, err
	}

	var recs []database.Record
	for _, r := range teamRoles {
		cell := row.Get(r.Header)
		if cell == "" {
			continue
		}
		if bc.Clinicians == nil {
			return nil, fmt.Errorf("%w: %s %q (no roster)", core.ErrUnresolvedClinician, r.Role, cell)
		}
		res, ok := bc.Clinicians.ResolveRef(cell)
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", core.ErrUnresolvedClinician, r.Role, cell)
		}
		recs = append(recs, database.Record{
			"case_key":       key,
			"role":           r.Role,
			"clinician_code": res.Code,
			"source_name":    cell,
			"resolved_by":    string(res.Method),
			"match_score":    res.Score,
		})
	}
	return recs, nil
}
