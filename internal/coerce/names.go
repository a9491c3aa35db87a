package coerce

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMatchThreshold is the minimum similarity for a name match.
const DefaultMatchThreshold = 0.8

// Candidate is a canonical record a free-text name may resolve to.
type Candidate struct {
	ID   int64
	Name string
}

// Match is the best candidate found for a name.
type Match struct {
	Candidate
	Score float64
}

// NormalizeName lower-cases a name, removes diacritics and collapses
// whitespace so that "Dra.  María Pérez" and "dra. maria perez" compare equal.
func NormalizeName(s string) string {
	s = CleanCell(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity scores two names in [0, 1] after normalization.
func Similarity(a, b string) float64 {
	a, b = NormalizeName(a), NormalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

// MatchName returns the best-scoring candidate for name when its score meets
// threshold. Ties keep the earlier candidate. A threshold <= 0 uses
// DefaultMatchThreshold.
func MatchName(name string, candidates []Candidate, threshold float64) (Match, bool) {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	var best Match
	found := false
	for _, c := range candidates {
		score := Similarity(name, c.Name)
		if !found || score > best.Score {
			best = Match{Candidate: c, Score: score}
			found = true
		}
	}
	if !found || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}
