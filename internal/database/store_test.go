package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var testTable = Table{
	Name: "people",
	Columns: []Column{
		{Name: "id", Kind: KindText},
		{Name: "name", Kind: KindText},
		{Name: "age", Kind: KindInt},
		{Name: "weight", Kind: KindFloat},
		{Name: "active", Kind: KindBool},
		{Name: "seen_at", Kind: KindTime},
	},
	Key: []string{"id"},
}

var pairTable = Table{
	Name: "pairs",
	Columns: []Column{
		{Name: "a", Kind: KindText},
		{Name: "b", Kind: KindInt},
	},
	Key: []string{"a", "b"},
}

func openTestStore(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "test.db"), Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx, testTable, pairTable); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

// ----------------------------------------------------------------------------
// Round trip Tests
// ----------------------------------------------------------------------------

func TestSQLite_InsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seen := time.Date(2019, 10, 18, 11, 38, 0, 0, time.UTC)
	rec := Record{
		"id":      "32820715",
		"name":    "María Pérez",
		"age":     int64(54),
		"weight":  72.5,
		"active":  true,
		"seen_at": seen,
	}
	if err := s.Insert(ctx, testTable, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Get(ctx, testTable, Record{"id": "32820715"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	for k, want := range rec {
		if !Equal(got[k], want) {
			t.Errorf("%s = %#v, want %#v", k, got[k], want)
		}
	}
	if ts, ok := got["seen_at"].(time.Time); !ok || ts.Location() != time.UTC {
		t.Errorf("seen_at = %#v, want UTC time", got["seen_at"])
	}
}

func TestSQLite_NullColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var missingName *string
	if err := s.Insert(ctx, testTable, Record{"id": "1", "name": missingName}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	got, err := s.Get(ctx, testTable, Record{"id": "1"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	for _, col := range []string{"name", "age", "weight", "active", "seen_at"} {
		if got[col] != nil {
			t.Errorf("%s = %#v, want nil", col, got[col])
		}
	}
}

func TestSQLite_GetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), testTable, Record{"id": "nope"})
	if !IsNotFound(err) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLite_InsertDuplicateIsAlreadyExists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, testTable, Record{"id": "1", "name": "a"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	err := s.Insert(ctx, testTable, Record{"id": "1", "name": "b"})
	if !IsAlreadyExists(err) {
		t.Fatalf("second Insert() error = %v, want ErrAlreadyExists", err)
	}
	if IsUnavailable(err) {
		t.Error("constraint error must not be classified as unavailable")
	}
}

func TestSQLite_UpsertReplacesNonKeyColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, testTable, Record{"id": "1", "name": "a", "age": int64(3)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Upsert(ctx, testTable, Record{"id": "1", "name": "b"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.Get(ctx, testTable, Record{"id": "1"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["name"] != "b" {
		t.Errorf("name = %v, want b", got["name"])
	}
	if got["age"] != nil {
		t.Errorf("age = %v, want nil after full-row upsert", got["age"])
	}

	all, err := s.List(ctx, testTable)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() = %d rows, want 1", len(all))
	}
}

func TestSQLite_KeyOnlyTableUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Upsert(ctx, pairTable, Record{"a": "x", "b": int64(1)}); err != nil {
			t.Fatalf("Upsert() #%d error = %v", i, err)
		}
	}
	ok, err := s.Exists(ctx, pairTable, Record{"a": "x", "b": int64(1)})
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v, want true", ok, err)
	}
	ok, err = s.Exists(ctx, pairTable, Record{"a": "x", "b": int64(2)})
	if err != nil || ok {
		t.Errorf("Exists(other) = %v, %v, want false", ok, err)
	}
}

func TestSQLite_ListOrderedByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := s.Insert(ctx, testTable, Record{"id": id}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.List(ctx, testTable)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, r := range all {
		ids = append(ids, r["id"].(string))
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("List() ids = %v, want [a b c]", ids)
	}
}

// ----------------------------------------------------------------------------
// Error path Tests
// ----------------------------------------------------------------------------

func TestSQLite_RejectsBadRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  Record
	}{
		{name: "missing key", rec: Record{"name": "a"}},
		{name: "nil key", rec: Record{"id": nil}},
		{name: "unknown column", rec: Record{"id": "1", "shoe_size": int64(42)}},
		{name: "wrong kind", rec: Record{"id": "1", "age": "old"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Upsert(ctx, testTable, tt.rec); err == nil {
				t.Error("Upsert() expected error")
			}
		})
	}
}

func TestSQLite_ClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "closed.db"), Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Migrate(ctx, testTable); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	_, err = s.Get(ctx, testTable, Record{"id": "1"})
	if !IsUnavailable(err) {
		t.Errorf("Get() on closed store error = %v, want ErrUnavailable", err)
	}
}

func TestMigrate_RejectsInvalidTable(t *testing.T) {
	s := openTestStore(t)
	bad := Table{Name: "bad", Columns: []Column{{Name: "a"}}, Key: []string{"b"}}
	if err := s.Migrate(context.Background(), bad); err == nil {
		t.Error("Migrate() expected error for undeclared key column")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background(), testTable, pairTable); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

// ----------------------------------------------------------------------------
// Open Tests
// ----------------------------------------------------------------------------

func TestOpen_Schemes(t *testing.T) {
	ctx := context.Background()

	for _, url := range []string{"", "mysql://localhost/db", "localhost"} {
		if _, err := Open(ctx, url, Options{}); err == nil {
			t.Errorf("Open(%q) expected error", url)
		}
	}

	s, err := Open(ctx, "file:"+filepath.Join(t.TempDir(), "uri.db"), Options{})
	if err != nil {
		t.Fatalf("Open(file:) error = %v", err)
	}
	_ = s.Close()
}

func TestDriver(t *testing.T) {
	tests := map[string]string{
		"postgres://u@h/db":   "postgres",
		"postgresql://u@h/db": "postgres",
		"sqlite://x.db":       "sqlite",
		"file:x.db":           "sqlite",
		"mysql://h/db":        "",
	}
	for url, want := range tests {
		if got := Driver(url); got != want {
			t.Errorf("Driver(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestClassify_SQLiteUniqueText(t *testing.T) {
	err := sqliteDialect{}.classify(errors.New("constraint failed: UNIQUE constraint failed: people.id (2067)"))
	if !IsAlreadyExists(err) {
		t.Errorf("classify() = %v, want ErrAlreadyExists", err)
	}
}
