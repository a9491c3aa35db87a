// Package database persists synchronized entities to a relational store.
//
// Tables are described at runtime with Table and Column so the same record
// layer serves both backends: PostgreSQL through a pgx pool and SQLite through
// the pure-Go modernc driver. Records are plain column maps whose values are
// string, int64, float64, bool, time.Time or nil.
package database

import (
	"fmt"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is a single table column.
type Column struct {
	Name string
	Kind Kind
}

// Table describes a fixed table layout. Key lists the primary key columns in
// order; every key column must also appear in Columns.
type Table struct {
	Name    string
	Columns []Column
	Key     []string
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IsKey reports whether name is part of the primary key.
func (t Table) IsKey(name string) bool {
	for _, k := range t.Key {
		if k == name {
			return true
		}
	}
	return false
}

// Validate checks that the table is well formed.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	if len(t.Key) == 0 {
		return fmt.Errorf("table %s: no key columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %s: column with no name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, k := range t.Key {
		if !seen[k] {
			return fmt.Errorf("table %s: key column %s not declared", t.Name, k)
		}
	}
	return nil
}

// Record is one row keyed by column name.
type Record map[string]any

// KeyOf returns a record holding only the key columns of rec.
func (t Table) KeyOf(rec Record) Record {
	key := make(Record, len(t.Key))
	for _, k := range t.Key {
		key[k] = rec[k]
	}
	return key
}

// keyArgs returns the key values of rec in key order, failing on any missing
// or null key column.
func (t Table) keyArgs(rec Record) ([]any, error) {
	args := make([]any, len(t.Key))
	for i, k := range t.Key {
		v, ok := rec[k]
		if !ok || v == nil {
			return nil, fmt.Errorf("%s: key column %s is empty", t.Name, k)
		}
		args[i] = v
	}
	return args, nil
}

// Value unwraps the optional pointer types produced by cell coercion into
// plain record values. Nil pointers become nil.
func Value(v any) any {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *int64:
		if p == nil {
			return nil
		}
		return *p
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	case *bool:
		if p == nil {
			return nil
		}
		return *p
	case *time.Time:
		if p == nil {
			return nil
		}
		return p.UTC()
	case time.Time:
		return p.UTC()
	case int:
		return int64(p)
	default:
		return v
	}
}

// Equal compares two record values the way they round-trip through a store:
// times by instant, numbers by value across int64/float64, nil only with nil.
func Equal(a, b any) bool {
	a, b = Value(a), Value(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
		return false
	}
	return a == b
}
