package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JonMunkholm/periop-sync/internal/coerce"
	"github.com/JonMunkholm/periop-sync/internal/database"
)

// Two small entities stand in for the real registry: owners, and the pets
// that may only be written once their owner exists.

var ownersTable = database.Table{
	Name: "owners",
	Columns: []database.Column{
		{Name: "owner_id", Kind: database.KindText},
		{Name: "name", Kind: database.KindText},
		{Name: ModifiedColumn, Kind: database.KindTime},
	},
	Key: []string{"owner_id"},
}

var petsTable = database.Table{
	Name: "pets",
	Columns: []database.Column{
		{Name: "pet_key", Kind: database.KindText},
		{Name: "owner_id", Kind: database.KindText},
		{Name: "pet", Kind: database.KindText},
		{Name: "species", Kind: database.KindText},
	},
	Key: []string{"pet_key"},
}

func ownersDef() EntityDefinition {
	return EntityDefinition{
		Key:   "owners",
		Label: "Owners",
		Sheet: "Owners",
		Table: ownersTable,
		FieldSpecs: []FieldSpec{
			{Name: "owner_id", Type: FieldText, Required: true},
			{Name: "name", Type: FieldText, Required: true, AllowEmpty: true},
			{Name: "modified_at", Type: FieldDate, Required: false, AllowEmpty: true},
		},
		Salient:          []string{"name"},
		IdentifierHeader: "owner_id",
		Build: func(bc *BuildContext, row Row) ([]database.Record, error) {
			return []database.Record{{
				"owner_id":     row.Get("owner_id"),
				"name":         database.Value(coerce.ToText(row.Get("name"))),
				ModifiedColumn: database.Value(bc.ParseDate(row.Get("modified_at"))),
			}}, nil
		},
		Candidate: func(rec database.Record) (coerce.Candidate, bool) {
			name, _ := rec["name"].(string)
			return coerce.Candidate{ID: int64(len(name)), Name: name}, name != ""
		},
	}
}

func petsDef() EntityDefinition {
	return EntityDefinition{
		Key:   "pets",
		Label: "Pets",
		Sheet: "Pets",
		Table: petsTable,
		Parents: []Parent{
			{Entity: "owners", Columns: map[string]string{"owner_id": "owner_id"}},
		},
		FieldSpecs: []FieldSpec{
			{Name: "owner_id", Type: FieldText, Required: true},
			{Name: "pet", Type: FieldText, Required: true},
			{Name: "species", Type: FieldText, Required: false, AllowEmpty: true},
		},
		IdentifierHeader: "owner_id",
		Build: func(bc *BuildContext, row Row) ([]database.Record, error) {
			owner, pet := row.Get("owner_id"), row.Get("pet")
			return []database.Record{{
				"pet_key":  CompositeKey(owner, pet),
				"owner_id": owner,
				"pet":      pet,
				"species":  database.Value(coerce.ToText(row.Get("species"))),
			}}, nil
		},
	}
}

// setupRegistry replaces the registry with the test entities.
func setupRegistry(t *testing.T, defs ...EntityDefinition) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	if len(defs) == 0 {
		defs = []EntityDefinition{ownersDef(), petsDef()}
	}
	for _, def := range defs {
		Register(def)
	}
}

func openStore(t *testing.T) database.Store {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestService builds a migrated service over store.
func newTestService(t *testing.T, store database.Store, opts Options) *Service {
	t.Helper()
	if opts.AuditDir == "" {
		opts.AuditDir = t.TempDir()
	}
	svc, err := NewService(store, opts)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if err := svc.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return svc
}

func run(t *testing.T, svc *Service, mode Mode, src SheetSource) *RunReport {
	t.Helper()
	report, err := svc.Run(context.Background(), RunOptions{Mode: mode, Source: src})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return report
}

func assertStats(t *testing.T, r *RunReport, entity string, want EntityStats) {
	t.Helper()
	if got := r.Stats(entity); got != want {
		t.Errorf("%s stats = %+v, want %+v", entity, got, want)
	}
}

// flakyStore fails every write after the first okWrites with an
// unavailable error.
type flakyStore struct {
	database.Store

	mu       sync.Mutex
	okWrites int
	writes   int
}

func (f *flakyStore) Upsert(ctx context.Context, t database.Table, rec database.Record) error {
	f.mu.Lock()
	f.writes++
	n := f.writes
	f.mu.Unlock()
	if n > f.okWrites {
		return fmt.Errorf("upsert %s: %w: connection refused", t.Name, database.ErrUnavailable)
	}
	return f.Store.Upsert(ctx, t, rec)
}

// racingStore reports every row as absent but rejects inserts as if a
// concurrent writer had won.
type racingStore struct {
	database.Store
}

func (racingStore) Get(context.Context, database.Table, database.Record) (database.Record, error) {
	return nil, database.ErrNotFound
}

func (racingStore) Insert(_ context.Context, t database.Table, _ database.Record) error {
	return fmt.Errorf("insert %s: %w", t.Name, database.ErrAlreadyExists)
}

// cancelingStore cancels the run context after its first successful write.
type cancelingStore struct {
	database.Store
	cancel context.CancelFunc
}

func (c *cancelingStore) Upsert(ctx context.Context, t database.Table, rec database.Record) error {
	if err := c.Store.Upsert(ctx, t, rec); err != nil {
		return err
	}
	c.cancel()
	return nil
}
