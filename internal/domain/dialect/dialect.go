// Package dialect holds the localized Gherkin keyword table.
//
// A Table is built once at startup from the localization resources and is
// read-only afterwards; every component that needs keywords receives the same
// *Table. Unknown language codes resolve to the fallback dialect.
package dialect

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCode is the dialect used when a document declares no language or
// an unknown one.
const DefaultCode = "en"

// Category is a keyword class.
type Category int

const (
	Feature Category = iota
	Background
	Scenario
	ScenarioOutline
	Examples
	Given
	When
	Then
	And
	But

	numCategories
)

var categoryIDs = map[string]Category{
	"feature":         Feature,
	"background":      Background,
	"scenario":        Scenario,
	"scenarioOutline": ScenarioOutline,
	"examples":        Examples,
	"given":           Given,
	"when":            When,
	"then":            Then,
	"and":             And,
	"but":             But,
}

// String returns the resource identifier of c.
func (c Category) String() string {
	for id, cat := range categoryIDs {
		if cat == c {
			return id
		}
	}
	return "unknown"
}

// StepCategories are the keyword classes that start a step.
var StepCategories = []Category{Given, When, Then, And, But}

// StructuralCategories are the keyword classes that open a block and are
// followed by a colon.
var StructuralCategories = []Category{Feature, Background, Scenario, ScenarioOutline, Examples}

// Dialect is the keyword set of one language.
type Dialect struct {
	code     string
	keywords [numCategories][]string

	stepKeywords []string
}

// Code returns the language code, e.g. "de".
func (d *Dialect) Code() string { return d.code }

// Keywords returns the keywords of the given categories in resource order
// with duplicates removed.
func (d *Dialect) Keywords(cats ...Category) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cats {
		if c < 0 || c >= numCategories {
			continue
		}
		for _, kw := range d.keywords[c] {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

// StepKeywords returns every step keyword, longest first, so that a prefix
// scan prefers "Gegeben seien" over "Gegeben sei".
func (d *Dialect) StepKeywords() []string {
	return d.stepKeywords
}

// SplitStep splits line into its leading step keyword and the rest of the
// line. A keyword must be followed by whitespace or the end of the line,
// except one ending in an apostrophe ("Lorsqu'il"): "Android" does not start
// with "And".
func (d *Dialect) SplitStep(line string) (keyword, rest string, ok bool) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	for _, kw := range d.stepKeywords {
		after, found := strings.CutPrefix(trimmed, kw)
		if !found {
			continue
		}
		if after == "" || strings.HasSuffix(kw, "'") {
			return kw, after, true
		}
		if r, _ := utf8.DecodeRuneInString(after); unicode.IsSpace(r) {
			return kw, after, true
		}
	}
	return "", "", false
}

// HasStepPrefix reports whether the trimmed line starts with a step keyword.
func (d *Dialect) HasStepPrefix(trimmed string) bool {
	_, _, ok := d.SplitStep(trimmed)
	return ok
}

// HasBlockPrefix reports whether the trimmed line opens a block of one of the
// given categories, i.e. starts with "<keyword>:".
func (d *Dialect) HasBlockPrefix(trimmed string, cats ...Category) bool {
	for _, c := range cats {
		for _, kw := range d.keywords[c] {
			if strings.HasPrefix(trimmed, kw+":") {
				return true
			}
		}
	}
	return false
}

func (d *Dialect) finalize() {
	steps := d.Keywords(StepCategories...)
	sort.SliceStable(steps, func(i, j int) bool {
		return len(steps[i]) > len(steps[j])
	})
	d.stepKeywords = steps
}

// Table maps language codes to dialects.
type Table struct {
	dialects map[string]*Dialect
	fallback *Dialect
}

// Resolve returns the dialect for code. Region suffixes are tried without
// the region ("de-AT" falls back to "de"); anything else unknown resolves to
// the fallback dialect. Never returns nil.
func (t *Table) Resolve(code string) *Dialect {
	if d, ok := t.Lookup(code); ok {
		return d
	}
	return t.fallback
}

// Lookup returns the dialect registered for code, if any.
func (t *Table) Lookup(code string) (*Dialect, bool) {
	key := normalizeCode(code)
	if d, ok := t.dialects[key]; ok {
		return d, true
	}
	if i := strings.IndexAny(key, "-_"); i > 0 {
		d, ok := t.dialects[key[:i]]
		return d, ok
	}
	return nil, false
}

// Fallback returns the dialect used for unknown codes.
func (t *Table) Fallback() *Dialect { return t.fallback }

// Codes returns all registered language codes, sorted.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.dialects))
	for c := range t.dialects {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
