package coerce

// resolver.go resolves free-text clinician names to license codes.
//
// Resolution runs in two explicit stages:
//  1. Alias: exact lookup of the normalized name in the manual alias map
//  2. Similarity: threshold-gated search over the known roster
//
// Each stage can be called on its own; Resolve chains them and reports which
// stage produced the code.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MaxAliasFileSize bounds the alias side file.
var MaxAliasFileSize int64 = 10 * 1024 * 1024

// AliasMap maps normalized name variants to canonical license codes.
type AliasMap map[string]int64

// Add registers a variant under its normalized form.
func (m AliasMap) Add(variant string, code int64) {
	if key := NormalizeName(variant); key != "" {
		m[key] = code
	}
}

// LoadAliases reads the two-column alias file (name variant, canonical code).
// A missing path or file yields an empty map and no error. The returned line
// numbers are rows that were skipped because the code was not an integer.
func LoadAliases(path string) (AliasMap, []int, error) {
	if path == "" {
		return AliasMap{}, nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return AliasMap{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open alias map: %w", err)
	}
	defer f.Close()
	return ParseAliases(f)
}

// ParseAliases parses alias rows from r. A header row is tolerated.
func ParseAliases(r io.Reader) (AliasMap, []int, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAliasFileSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read alias map: %w", err)
	}
	if int64(len(data)) > MaxAliasFileSize {
		return nil, nil, fmt.Errorf("alias map exceeds %d bytes", MaxAliasFileSize)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = SanitizeUTF8(data)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse alias map: %w", err)
	}

	aliases := AliasMap{}
	var skipped []int
	for i, rec := range records {
		line := i + 1
		if len(rec) < 2 || (CleanCell(rec[0]) == "" && CleanCell(rec[1]) == "") {
			continue
		}
		code := ToInt(rec[1])
		if code == nil {
			if i == 0 {
				continue // header
			}
			skipped = append(skipped, line)
			continue
		}
		aliases.Add(rec[0], *code)
	}
	return aliases, skipped, nil
}

// Method names the stage that resolved a name.
type Method string

const (
	MethodCode       Method = "code"
	MethodAlias      Method = "alias"
	MethodSimilarity Method = "similarity"
)

// Resolution is the outcome of resolving a clinician reference.
type Resolution struct {
	Code   int64
	Method Method
	Score  float64
}

// Resolver resolves clinician names through the alias map, then the roster.
type Resolver struct {
	aliases   AliasMap
	roster    []Candidate
	threshold float64
}

// NewResolver creates a resolver. A threshold <= 0 uses DefaultMatchThreshold.
func NewResolver(aliases AliasMap, roster []Candidate, threshold float64) *Resolver {
	if aliases == nil {
		aliases = AliasMap{}
	}
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Resolver{aliases: aliases, roster: roster, threshold: threshold}
}

// ResolveAlias looks the normalized name up in the alias map.
func (r *Resolver) ResolveAlias(name string) (int64, bool) {
	code, ok := r.aliases[NormalizeName(name)]
	return code, ok
}

// ResolveSimilar finds the closest roster entry at or above the threshold.
func (r *Resolver) ResolveSimilar(name string) (Match, bool) {
	return MatchName(name, r.roster, r.threshold)
}

// Resolve runs the alias stage, then the similarity stage.
func (r *Resolver) Resolve(name string) (Resolution, bool) {
	if strings.TrimSpace(name) == "" {
		return Resolution{}, false
	}
	if code, ok := r.ResolveAlias(name); ok {
		return Resolution{Code: code, Method: MethodAlias, Score: 1}, true
	}
	if m, ok := r.ResolveSimilar(name); ok {
		return Resolution{Code: m.ID, Method: MethodSimilarity, Score: m.Score}, true
	}
	return Resolution{}, false
}

// ResolveRef resolves a raw cell that may be "<code>: <name>" or a bare name.
// An explicit code wins; otherwise the name goes through Resolve.
func (r *Resolver) ResolveRef(cell string) (Resolution, bool) {
	if ref := ParsePersonRef(cell); ref != nil {
		return Resolution{Code: ref.Code, Method: MethodCode, Score: 1}, true
	}
	if code := parseBareCode(cell); code != nil {
		return Resolution{Code: *code, Method: MethodCode, Score: 1}, true
	}
	return r.Resolve(cell)
}

func parseBareCode(cell string) *int64 {
	s := CleanCell(cell)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
