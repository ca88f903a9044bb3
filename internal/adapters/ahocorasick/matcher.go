// Package ahocorasick matches step text against literal binding patterns
// using an Aho-Corasick automaton. It wraps the petar-dambovaliev/aho-corasick
// library: one pass over the step text yields every literal it contains, and
// a full-span check keeps only literals equal to the whole text.
package ahocorasick

import (
	"slices"
	"strings"
	"unicode"

	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Normalize folds case and collapses runs of whitespace to one space, so
// "I  Have a cart " and "i have a cart" compare equal.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " "))
}

// LiteralMatcher finds the literal patterns equal to a step text under
// Normalize.
type LiteralMatcher struct {
	automaton aho.AhoCorasick
	// owners[i] lists the original pattern indices whose normalized form is
	// the i-th automaton pattern.
	owners [][]int
	unique []string
}

// NewLiteralMatcher compiles the automaton over the normalized patterns.
// Patterns that normalize to "" never match.
func NewLiteralMatcher(patterns []string) *LiteralMatcher {
	m := &LiteralMatcher{}
	byNorm := make(map[string]int, len(patterns))
	for i, p := range patterns {
		n := Normalize(p)
		if n == "" {
			continue
		}
		j, ok := byNorm[n]
		if !ok {
			j = len(m.unique)
			byNorm[n] = j
			m.unique = append(m.unique, n)
			m.owners = append(m.owners, nil)
		}
		m.owners[j] = append(m.owners[j], i)
	}
	if len(m.unique) > 0 {
		builder := aho.NewAhoCorasickBuilder(aho.Opts{
			DFA: true,
		})
		m.automaton = builder.Build(m.unique)
	}
	return m
}

// Len returns the number of distinct normalized patterns.
func (m *LiteralMatcher) Len() int { return len(m.unique) }

// Match returns the indices (into the slice given to NewLiteralMatcher) of
// the patterns equal to text, in ascending order.
func (m *LiteralMatcher) Match(text string) []int {
	if len(m.unique) == 0 {
		return nil
	}
	norm := Normalize(text)
	if norm == "" {
		return nil
	}
	var out []int
	iter := m.automaton.IterOverlappingByte([]byte(norm))
	for next := iter.Next(); next != nil; next = iter.Next() {
		hit := *next
		// Containment is only a candidate; the literal must span the text.
		if hit.Start() != 0 || hit.End() != len(norm) {
			continue
		}
		out = append(out, m.owners[hit.Pattern()]...)
	}
	if len(out) > 1 {
		slices.Sort(out)
	}
	return out
}
