package entities

import (
	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/core"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

func init() {
	registerPreopEvaluations()
	registerPostopOutcomes()
	registerIntraopObservations()
}

var caseParent = core.Parent{Entity: "cases", Columns: map[string]string{"case_key": "case_key"}}

// ----------------------------------------------------------------------------
// Preoperative evaluations
// ----------------------------------------------------------------------------

// PreopEvaluationsTable is keyed by patient and evaluation date.
var PreopEvaluationsTable = database.Table{
	Name: "preop_evaluations",
	Columns: []database.Column{
		{Name: "preop_key", Kind: database.KindText},
		{Name: "patient_id", Kind: database.KindText},
		{Name: "eval_date", Kind: database.KindTime},
		{Name: "asa_score", Kind: database.KindInt},
		{Name: "weight_kg", Kind: database.KindFloat},
		{Name: "height_cm", Kind: database.KindFloat},
		{Name: "smoker", Kind: database.KindBool},
		{Name: core.ModifiedColumn, Kind: database.KindTime},
	},
	Key: []string{"preop_key"},
}

func registerPreopEvaluations() {
	core.Register(core.EntityDefinition{
		Key:   "preop_evaluations",
		Label: "Preoperative Evaluations",
		Sheet: SheetPreoperative,
		Table: PreopEvaluationsTable,
		Parents: []core.Parent{
			{Entity: "patients", Columns: map[string]string{"patient_id": "patient_id"}},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "patient_id", Type: core.FieldText, Required: true},
			{Name: "eval_date", Type: core.FieldDate, Required: true},
			{Name: "asa_score", Type: core.FieldInteger, Required: false, AllowEmpty: true, Normalizer: NormalizeASA},
			{Name: "weight_kg", Type: core.FieldNumeric, Required: false, AllowEmpty: true},
			{Name: "height_cm", Type: core.FieldNumeric, Required: false, AllowEmpty: true},
			{Name: "smoker", Type: core.FieldBool, Required: false, AllowEmpty: true},
			{Name: "modified_at", Type: core.FieldDate, Required: false, AllowEmpty: true},
		},
		Salient:          []string{"asa_score"},
		IdentifierHeader: "patient_id",
		Build:            buildPreopEvaluation,
	})
}

func buildPreopEvaluation(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	pid, err := patientID(row)
	if err != nil {
		return nil, err
	}
	evalDate, err := requiredDate(bc, row, "eval_date")
	if err != nil {
		return nil, err
	}
	return []database.Record{{
		"preop_key":         core.CompositeKey(pid, evalDate),
		"patient_id":        pid,
		"eval_date":         evalDate,
		"asa_score":         database.Value(coerce.ToInt(NormalizeASA(row.Get("asa_score")))),
		"weight_kg":         float(row, "weight_kg"),
		"height_cm":         float(row, "height_cm"),
		"smoker":            boolean(row, "smoker"),
		core.ModifiedColumn: modified(bc, row),
	}}, nil
}

// ----------------------------------------------------------------------------
// Postoperative outcomes
// ----------------------------------------------------------------------------

// PostopOutcomesTable is keyed by case and outcome date.
var PostopOutcomesTable = database.Table{
	Name: "postop_outcomes",
	Columns: []database.Column{
		{Name: "postop_key", Kind: database.KindText},
		{Name: "case_key", Kind: database.KindText},
		{Name: "outcome_date", Kind: database.KindTime},
		{Name: "complications", Kind: database.KindText},
		{Name: "pain_score", Kind: database.KindInt},
		{Name: "discharge_date", Kind: database.KindTime},
		{Name: core.ModifiedColumn, Kind: database.KindTime},
	},
	Key: []string{"postop_key"},
}

func registerPostopOutcomes() {
	core.Register(core.EntityDefinition{
		Key:     "postop_outcomes",
		Label:   "Postoperative Outcomes",
		Sheet:   SheetPostoperative,
		Table:   PostopOutcomesTable,
		Parents: []core.Parent{caseParent},
		FieldSpecs: append(append([]core.FieldSpec{}, caseFields...),
			core.FieldSpec{Name: "outcome_date", Type: core.FieldDate, Required: true},
			core.FieldSpec{Name: "complications", Type: core.FieldText, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "pain_score", Type: core.FieldInteger, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "discharge_date", Type: core.FieldDate, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "modified_at", Type: core.FieldDate, Required: false, AllowEmpty: true},
		),
		Salient:          []string{"complications", "pain_score"},
		IdentifierHeader: "patient_id",
		Build:            buildPostopOutcome,
	})
}

func buildPostopOutcome(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	key, err := caseKey(bc, row)
	if err != nil {
		return nil, err
	}
	outcomeDate, err := requiredDate(bc, row, "outcome_date")
	if err != nil {
		return nil, err
	}
	return []database.Record{{
		"postop_key":        core.CompositeKey(key, outcomeDate),
		"case_key":          key,
		"outcome_date":      outcomeDate,
		"complications":     text(row, "complications"),
		"pain_score":        integer(row, "pain_score"),
		"discharge_date":    date(bc, row, "discharge_date"),
		core.ModifiedColumn: modified(bc, row),
	}}, nil
}

// ----------------------------------------------------------------------------
// Intraoperative observations
// ----------------------------------------------------------------------------

// IntraopObservationsTable is keyed by case, phase and observation time.
var IntraopObservationsTable = database.Table{
	Name: "intraop_observations",
	Columns: []database.Column{
		{Name: "intraop_key", Kind: database.KindText},
		{Name: "case_key", Kind: database.KindText},
		{Name: "phase", Kind: database.KindText},
		{Name: "observed_at", Kind: database.KindTime},
		{Name: "heart_rate", Kind: database.KindInt},
		{Name: "spo2", Kind: database.KindFloat},
		{Name: "systolic", Kind: database.KindInt},
	},
	Key: []string{"intraop_key"},
}

func registerIntraopObservations() {
	core.Register(core.EntityDefinition{
		Key:     "intraop_observations",
		Label:   "Intraoperative Observations",
		Sheet:   SheetIntraoperative,
		Table:   IntraopObservationsTable,
		Parents: []core.Parent{caseParent},
		FieldSpecs: append(append([]core.FieldSpec{}, caseFields...),
			core.FieldSpec{Name: "phase", Type: core.FieldText, Required: true, Normalizer: NormalizePhase},
			core.FieldSpec{Name: "observed_at", Type: core.FieldDate, Required: true},
			core.FieldSpec{Name: "heart_rate", Type: core.FieldInteger, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "spo2", Type: core.FieldNumeric, Required: false, AllowEmpty: true},
			core.FieldSpec{Name: "systolic", Type: core.FieldInteger, Required: false, AllowEmpty: true},
		),
		Salient:          []string{"heart_rate", "spo2"},
		IdentifierHeader: "patient_id",
		Build:            buildIntraopObservation,
	})
}

func buildIntraopObservation(bc *core.BuildContext, row core.Row) ([]database.Record, error) {
	key, err := caseKey(bc, row)
	if err != nil {
		return nil, err
	}
	observedAt, err := requiredDate(bc, row, "observed_at")
	if err != nil {
		return nil, err
	}
	phase := NormalizePhase(row.Get("phase"))
	return []database.Record{{
		"intraop_key": core.CompositeKey(key, phase, observedAt),
		"case_key":    key,
		"phase":       phase,
		"observed_at": observedAt,
		"heart_rate":  integer(row, "heart_rate"),
		"spo2":        float(row, "spo2"),
		"systolic":    integer(row, "systolic"),
	}}, nil
}
