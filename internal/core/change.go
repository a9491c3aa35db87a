package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/periop-sync/internal/database"
)

// ModifiedColumn is the optional last-modified timestamp an entity may carry
// from the source.
const ModifiedColumn = "source_modified_at"

// Decision is the change detector's verdict for one record.
type Decision struct {
	NeedsUpdate bool
	IsNew       bool
	Reason      string
}

// NeedsWrite decides whether source must be written given the stored row.
//
// A missing row is always new. When both sides carry a source_modified_at
// timestamp they decide alone: only a strictly newer source is written.
// Otherwise the entity's salient columns are compared and any difference
// requires a write.
func NeedsWrite(def EntityDefinition, source, existing database.Record) Decision {
	if existing == nil {
		return Decision{NeedsUpdate: true, IsNew: true, Reason: "new"}
	}

	if src, ok := timestamp(source[ModifiedColumn]); ok {
		if cur, ok := timestamp(existing[ModifiedColumn]); ok {
			if src.After(cur) {
				return Decision{NeedsUpdate: true, Reason: "source newer"}
			}
			return Decision{Reason: "source not newer"}
		}
	}

	for _, col := range salientColumns(def) {
		if !database.Equal(source[col], existing[col]) {
			return Decision{NeedsUpdate: true, Reason: "changed " + col}
		}
	}
	return Decision{Reason: "unchanged"}
}

func salientColumns(def EntityDefinition) []string {
	if len(def.Salient) > 0 {
		return def.Salient
	}
	var cols []string
	for _, c := range def.Table.Columns {
		if !def.Table.IsKey(c.Name) && c.Name != ModifiedColumn {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func timestamp(v any) (time.Time, bool) {
	switch t := database.Value(v).(type) {
	case time.Time:
		return t, !t.IsZero()
	default:
		return time.Time{}, false
	}
}

// CompositeKey joins key parts into a deterministic string key. Times are
// rendered in UTC RFC 3339 and nil parts as empty segments.
func CompositeKey(parts ...any) string {
	segs := make([]string, len(parts))
	for i, p := range parts {
		segs[i] = keyPart(p)
	}
	return strings.Join(segs, "|")
}

func keyPart(v any) string {
	switch x := database.Value(v).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// recordKey renders the table key of rec for bucketing and error messages.
func recordKey(t database.Table, rec database.Record) string {
	parts := make([]any, len(t.Key))
	for i, k := range t.Key {
		parts[i] = rec[k]
	}
	return CompositeKey(parts...)
}
