// Package core provides the synchronization engine that moves the
// perioperative workbook into the relational store.
//
// The package holds all domain logic independent of the CLI. It can be used
// by commands, scheduled jobs or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Entity Definitions: Registered via the registry, each entity has a
//     source sheet, field specs, parents and a builder producing records.
//   - Service: The entry point for a run ([Service.Run]) and schema creation.
//   - Change Detection: [NeedsWrite] decides whether a record must be written.
//   - Run Report: Per-entity counters and row errors, flushed once per run.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]:
//
//	core.Register(core.EntityDefinition{
//	    Key:   "cases",
//	    Sheet: "Cases",
//	    Table: casesTable,
//	    Parents: []core.Parent{
//	        {Entity: "patients", Columns: map[string]string{"patient_id": "patient_id"}},
//	    },
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "patient_id", Required: true, Type: core.FieldText},
//	        {Name: "start_time", Required: true, Type: core.FieldDate},
//	    },
//	    Build: buildCase,
//	})
//
// [Ordered] returns the definitions parents first, so a child group never runs
// before the groups it depends on.
//
// # Modes
//
// In [ModeFull] every record is upserted; an existence read only decides
// whether it counts as created or updated. In [ModeIncremental] every record
// goes through [NeedsWrite] and only flagged records are written.
//
// # Error Handling
//
// Row problems never stop a run. They are recorded as [RowError] values with
// a kind and a support code from [MapError]:
//
//   - SYNC001-SYNC004: Sync errors (missing parent, identifiers, clinicians)
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL007: Validation errors (formats, missing columns)
//   - FILE001-FILE004: Workbook errors (missing file, sheet or header)
//
// Only an unreachable store aborts a run, after the audit artifact is written.
package core
