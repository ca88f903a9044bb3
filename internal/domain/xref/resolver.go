// Package xref answers cross-language queries over the two indexes: which
// existing steps complete the step being typed, which bindings implement a
// step, and which steps a binding implements.
//
// A Resolver reads the feature store and binding index it was given and holds
// no state of its own beyond compiled patterns, which are rebuilt whenever the
// binding index version moves. Like the indexes it is owned by the
// coordinator loop and not safe for concurrent use.
package xref

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/binding"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/completion"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// LiteralMatcher finds the literal patterns equal to a step text. Match
// returns indices into the pattern slice the matcher was built from.
type LiteralMatcher interface {
	Match(text string) []int
}

// MatcherFactory compiles literal patterns into a LiteralMatcher.
type MatcherFactory func(literals []string) LiteralMatcher

// Location is a declaration or step position in a file.
type Location struct {
	Path  string        `json:"path"`
	Range feature.Range `json:"range"`
}

// Resolver joins step occurrences and binding declarations.
type Resolver struct {
	features   *feature.Store
	bindings   *binding.Index
	newMatcher MatcherFactory
	log        *slog.Logger

	compiledAt int
	decls      []binding.Declaration
	regexes    []*regexp.Regexp // parallel to decls; nil for literals and malformed patterns
	literals   []int            // decl indices of literal patterns
	matcher    LiteralMatcher
}

// NewResolver creates a resolver over the given indexes.
func NewResolver(features *feature.Store, bindings *binding.Index, newMatcher MatcherFactory, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		features:   features,
		bindings:   bindings,
		newMatcher: newMatcher,
		log:        log,
		compiledAt: -1,
	}
}

// CompletionsFor returns the existing steps that complete the step typed on
// lines[line] of path, together with the typed step body. The step on that
// very line is excluded; candidates contain the typed body case-insensitively
// and are deduplicated by text and sorted.
func (r *Resolver) CompletionsFor(path string, line int, lines []string, d *dialect.Dialect) ([]feature.StepOccurrence, string) {
	current := ""
	if line >= 0 && line < len(lines) {
		current = lines[line]
	}
	typed := completion.StripStepKeyword(current, d)
	needle := strings.ToLower(typed)

	var candidates []feature.StepOccurrence
	for _, occ := range r.features.Occurrences() {
		if occ.Path == path && occ.Range.Start.Line == line {
			continue
		}
		if strings.Contains(strings.ToLower(occ.Text), needle) {
			candidates = append(candidates, occ)
		}
	}
	out := feature.DistinctText(candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out, typed
}

// DefinitionsFor returns the declarations whose pattern matches the step.
// Regex patterns must match the whole text; literal patterns must equal it
// under case and whitespace folding. Malformed regexes never match.
func (r *Resolver) DefinitionsFor(step feature.StepOccurrence) []binding.Declaration {
	r.compile()
	var hits []int
	for i, re := range r.regexes {
		if re != nil && re.MatchString(step.Text) {
			hits = append(hits, i)
		}
	}
	if r.matcher != nil {
		for _, li := range r.matcher.Match(step.Text) {
			hits = append(hits, r.literals[li])
		}
	}
	sort.Ints(hits)
	out := make([]binding.Declaration, 0, len(hits))
	for _, i := range hits {
		out = append(out, r.decls[i])
	}
	return out
}

// ReferencesFor returns the locations of the bindings implementing the step
// on line of path.
func (r *Resolver) ReferencesFor(path string, line int) ([]Location, error) {
	step, ok, err := r.features.StepAt(path, line)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, specerr.Newf(specerr.NoStepAtPosition, "no step at %s:%d", path, line)
	}
	decls := r.DefinitionsFor(step)
	out := make([]Location, 0, len(decls))
	for _, d := range decls {
		out = append(out, DeclarationLocation(d))
	}
	return out, nil
}

// StepsFor returns every step occurrence the declaration implements, in path
// and line order.
func (r *Resolver) StepsFor(decl binding.Declaration) []feature.StepOccurrence {
	var match func(string) bool
	switch decl.Kind {
	case binding.Literal:
		if r.newMatcher == nil {
			return nil
		}
		m := r.newMatcher([]string{decl.Pattern})
		match = func(text string) bool { return len(m.Match(text)) > 0 }
	default:
		re, err := compilePattern(decl.Pattern)
		if err != nil {
			return nil
		}
		match = re.MatchString
	}
	var out []feature.StepOccurrence
	for _, occ := range r.features.Occurrences() {
		if match(occ.Text) {
			out = append(out, occ)
		}
	}
	return out
}

// Unbound returns the step occurrences no declaration matches.
func (r *Resolver) Unbound() []feature.StepOccurrence {
	var out []feature.StepOccurrence
	for _, occ := range r.features.Occurrences() {
		if len(r.DefinitionsFor(occ)) == 0 {
			out = append(out, occ)
		}
	}
	return out
}

// DeclarationLocation converts the attribute span of d into a Location.
func DeclarationLocation(d binding.Declaration) Location {
	return Location{
		Path: d.Path,
		Range: feature.Range{
			Start: feature.Position{Line: d.Range.StartLine, Character: d.Range.StartCol},
			End:   feature.Position{Line: d.Range.EndLine, Character: d.Range.EndCol},
		},
	}
}

// StepLocation converts a step occurrence into a Location.
func StepLocation(s feature.StepOccurrence) Location {
	return Location{Path: s.Path, Range: s.Range}
}

func compilePattern(p string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + p + `)$`)
}

// compile rebuilds the pattern tables when the binding index has moved.
func (r *Resolver) compile() {
	if r.compiledAt == r.bindings.Version() {
		return
	}
	r.decls = r.bindings.AllDeclarations()
	r.regexes = make([]*regexp.Regexp, len(r.decls))
	r.literals = r.literals[:0]
	var literalPatterns []string
	for i, d := range r.decls {
		if d.Kind == binding.Literal {
			r.literals = append(r.literals, i)
			literalPatterns = append(literalPatterns, d.Pattern)
			continue
		}
		re, err := compilePattern(d.Pattern)
		if err != nil {
			r.log.Debug("skipping malformed binding pattern", "path", d.Path, "method", d.Method, "pattern", d.Pattern, "err", err)
			continue
		}
		r.regexes[i] = re
	}
	r.matcher = nil
	if len(literalPatterns) > 0 && r.newMatcher != nil {
		r.matcher = r.newMatcher(literalPatterns)
	}
	r.compiledAt = r.bindings.Version()
}
