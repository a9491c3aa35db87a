package database

// sql.go builds the statements shared by both backends and runs them through
// a minimal connection interface. Statements are written with "?"
// placeholders; the PostgreSQL dialect rebinds them to $n.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// dialect captures what differs between backends.
type dialect interface {
	name() string
	columnType(Kind) string
	rebind(query string) string
	encode(Kind, any) (any, error)
	decode(Kind, any) (any, error)
	classify(error) error
}

// conn is the subset of a driver connection the record layer needs.
type conn interface {
	exec(ctx context.Context, query string, args ...any) (int64, error)
	query(ctx context.Context, query string, args []any, scan func(vals []any) error) error
	ping(ctx context.Context) error
	close() error
}

// sqlStore implements Store on top of a dialect and a connection.
type sqlStore struct {
	d dialect
	c conn
}

func (s *sqlStore) Migrate(ctx context.Context, tables ...Table) error {
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, err := s.c.exec(ctx, createTableSQL(s.d, t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, s.d.classify(err))
		}
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, t Table, key Record) (Record, error) {
	args, err := t.keyArgs(key)
	if err != nil {
		return nil, err
	}
	if args, err = s.encodeKey(t, args); err != nil {
		return nil, err
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(quoteColumns(t.ColumnNames()), ", "),
		quoteIdentifier(t.Name),
		keyPredicate(t))

	var found Record
	err = s.c.query(ctx, s.d.rebind(q), args, func(vals []any) error {
		rec, err := s.decodeRow(t, vals)
		if err != nil {
			return err
		}
		found = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.Name, s.d.classify(err))
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *sqlStore) Exists(ctx context.Context, t Table, key Record) (bool, error) {
	args, err := t.keyArgs(key)
	if err != nil {
		return false, err
	}
	if args, err = s.encodeKey(t, args); err != nil {
		return false, err
	}

	q := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", quoteIdentifier(t.Name), keyPredicate(t))

	exists := false
	err = s.c.query(ctx, s.d.rebind(q), args, func([]any) error {
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", t.Name, s.d.classify(err))
	}
	return exists, nil
}

func (s *sqlStore) Insert(ctx context.Context, t Table, rec Record) error {
	q, args, err := s.insertStatement(t, rec)
	if err != nil {
		return err
	}
	if _, err := s.c.exec(ctx, s.d.rebind(q), args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, s.d.classify(err))
	}
	return nil
}

func (s *sqlStore) Upsert(ctx context.Context, t Table, rec Record) error {
	q, args, err := s.insertStatement(t, rec)
	if err != nil {
		return err
	}
	q += " " + onConflictSQL(t)
	if _, err := s.c.exec(ctx, s.d.rebind(q), args...); err != nil {
		return fmt.Errorf("upsert %s: %w", t.Name, s.d.classify(err))
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, t Table) ([]Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoteColumns(t.ColumnNames()), ", "),
		quoteIdentifier(t.Name),
		strings.Join(quoteColumns(t.Key), ", "))

	var out []Record
	err := s.c.query(ctx, q, nil, func(vals []any) error {
		rec, err := s.decodeRow(t, vals)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.Name, s.d.classify(err))
	}
	return out, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	if err := s.c.ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.d.name(), s.d.classify(err))
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.c.close()
}

func (s *sqlStore) insertStatement(t Table, rec Record) (string, []any, error) {
	if _, err := t.keyArgs(rec); err != nil {
		return "", nil, err
	}
	for name := range rec {
		if _, ok := t.Column(name); !ok {
			return "", nil, fmt.Errorf("%s: unknown column %s", t.Name, name)
		}
	}

	cols := make([]string, 0, len(t.Columns))
	args := make([]any, 0, len(t.Columns))
	for _, c := range t.Columns {
		v, err := s.d.encode(c.Kind, Value(rec[c.Name]))
		if err != nil {
			return "", nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		cols = append(cols, c.Name)
		args = append(args, v)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(t.Name),
		strings.Join(quoteColumns(cols), ", "),
		placeholders(len(cols)))
	return q, args, nil
}

func (s *sqlStore) encodeKey(t Table, args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, k := range t.Key {
		c, _ := t.Column(k)
		v, err := s.d.encode(c.Kind, Value(args[i]))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, k, err)
		}
		out[i] = v
	}
	return out, nil
}

func (s *sqlStore) decodeRow(t Table, vals []any) (Record, error) {
	if len(vals) != len(t.Columns) {
		return nil, fmt.Errorf("%s: scanned %d values for %d columns", t.Name, len(vals), len(t.Columns))
	}
	rec := make(Record, len(t.Columns))
	for i, c := range t.Columns {
		v, err := s.d.decode(c.Kind, vals[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		rec[c.Name] = v
	}
	return rec, nil
}

func createTableSQL(d dialect, t Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		def := quoteIdentifier(c.Name) + " " + d.columnType(c.Kind)
		if t.IsKey(c.Name) {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteColumns(t.Key), ", ")))
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdentifier(t.Name), strings.Join(defs, ",\n\t"))
}

// onConflictSQL replaces every non-key column from the incoming row. Tables
// made only of key columns have nothing to update.
func onConflictSQL(t Table) string {
	var sets []string
	for _, c := range t.Columns {
		if t.IsKey(c.Name) {
			continue
		}
		col := quoteIdentifier(c.Name)
		sets = append(sets, col+" = excluded."+col)
	}
	target := strings.Join(quoteColumns(t.Key), ", ")
	if len(sets) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", target)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", target, strings.Join(sets, ", "))
}

func keyPredicate(t Table) string {
	conds := make([]string, len(t.Key))
	for i, k := range t.Key {
		conds[i] = quoteIdentifier(k) + " = ?"
	}
	return strings.Join(conds, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// rebindDollar rewrites "?" placeholders as $1, $2, ...
// Statements built here never carry a literal '?'.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteColumns quotes each column name in the slice.
func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentifier(col)
	}
	return quoted
}

// errTypeMismatch reports a value that does not fit its column kind.
var errTypeMismatch = errors.New("value does not match column kind")

func mismatch(k Kind, v any) error {
	return fmt.Errorf("%w: %T for %s", errTypeMismatch, v, k)
}
