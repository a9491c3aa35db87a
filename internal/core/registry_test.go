package core

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/periop-sync/internal/database"
)

func simpleDef(key string, parents ...string) EntityDefinition {
	def := EntityDefinition{
		Key:   key,
		Sheet: key,
		Table: database.Table{
			Columns: []database.Column{{Name: "id", Kind: database.KindText}},
			Key:     []string{"id"},
		},
		Build: func(*BuildContext, Row) ([]database.Record, error) { return nil, nil },
	}
	for _, p := range parents {
		def.Parents = append(def.Parents, Parent{Entity: p, Columns: map[string]string{"id": "id"}})
	}
	return def
}

func keys(defs []EntityDefinition) string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Key
	}
	return strings.Join(out, ",")
}

func TestOrdered(t *testing.T) {
	setupRegistry(t,
		simpleDef("team", "cases", "clinicians"),
		simpleDef("preop", "patients"),
		simpleDef("cases", "patients"),
		simpleDef("patients"),
		simpleDef("clinicians"),
		simpleDef("postop", "cases"),
	)

	defs, err := Ordered()
	if err != nil {
		t.Fatalf("Ordered() error = %v", err)
	}
	if got, want := keys(defs), "clinicians,patients,cases,postop,preop,team"; got != want {
		t.Errorf("Ordered() = %s, want %s", got, want)
	}
}

func TestOrdered_Errors(t *testing.T) {
	tests := []struct {
		name string
		defs []EntityDefinition
		want string
	}{
		{"unknown parent", []EntityDefinition{simpleDef("cases", "patients")}, "unknown parent"},
		{"self parent", []EntityDefinition{simpleDef("cases", "cases")}, "parent of itself"},
		{"cycle", []EntityDefinition{simpleDef("a", "b"), simpleDef("b", "c"), simpleDef("c", "a")}, "cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupRegistry(t, tt.defs...)
			_, err := Ordered()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Ordered() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	setupRegistry(t, simpleDef("patients"))

	def, ok := Get("patients")
	if !ok {
		t.Fatal("Get() did not find registered entity")
	}
	if def.Table.Name != "patients" {
		t.Errorf("Table.Name = %q, want default to key", def.Table.Name)
	}
	if EntityCount() != 1 {
		t.Errorf("EntityCount() = %d", EntityCount())
	}
	if _, ok := Get("cases"); ok {
		t.Error("Get() found unregistered entity")
	}
}

func TestRegister_Panics(t *testing.T) {
	noBuild := simpleDef("x")
	noBuild.Build = nil
	badTable := simpleDef("y")
	badTable.Table.Key = []string{"missing"}

	tests := []struct {
		name string
		defs []EntityDefinition
	}{
		{"duplicate", []EntityDefinition{simpleDef("a"), simpleDef("a")}},
		{"no build", []EntityDefinition{noBuild}},
		{"bad table", []EntityDefinition{badTable}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Clear()
			t.Cleanup(Clear)
			defer func() {
				if recover() == nil {
					t.Error("Register() did not panic")
				}
			}()
			for _, def := range tt.defs {
				Register(def)
			}
		})
	}
}

func TestEntityDefinition_RequiredHeaders(t *testing.T) {
	got := strings.Join(ownersDef().RequiredHeaders(), ",")
	if got != "owner_id,name" {
		t.Errorf("RequiredHeaders() = %s", got)
	}
}
