package xref

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/ahocorasick"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/binding"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/slogutil"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/localization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepParser treats every line starting with an English step keyword as a
// step of one scenario.
type stepParser struct{}

func (stepParser) Parse(text string) (*ports.FeatureDocument, []ports.SyntaxError) {
	block := &ports.Block{Kind: ports.BlockScenario, Keyword: "Scenario", Line: 1}
	for i, line := range feature.SplitLines(text) {
		trimmed := strings.TrimLeft(line, " ")
		for _, kw := range []string{"Given ", "When ", "Then ", "And "} {
			if strings.HasPrefix(trimmed, kw) {
				block.Steps = append(block.Steps, ports.StepNode{
					Keyword: kw,
					Text:    strings.TrimSpace(trimmed[len(kw):]),
					Line:    i + 1,
					Column:  len(line) - len(trimmed) + 1,
				})
			}
		}
	}
	return &ports.FeatureDocument{Feature: &ports.FeatureNode{Children: []*ports.Block{block}}}, nil
}

type jsonTree struct{ src []byte }

func (t *jsonTree) Source() []byte { return t.src }
func (t *jsonTree) Close()         {}

// jsonFrontEnd reads FileSymbols from JSON source.
type jsonFrontEnd struct{}

func (jsonFrontEnd) Parse(source []byte, _ ports.SyntaxTree) (ports.SyntaxTree, error) {
	return &jsonTree{src: source}, nil
}

func (jsonFrontEnd) Extract(tree ports.SyntaxTree) (*ports.FileSymbols, error) {
	var syms ports.FileSymbols
	err := json.Unmarshal(tree.Source(), &syms)
	return &syms, err
}

type fixture struct {
	features *feature.Store
	bindings *binding.Index
	resolver *Resolver
	en       *dialect.Dialect
}

func newTestResolver(t *testing.T) *fixture {
	t.Helper()
	table, err := dialect.Load(localization.FS, ".", dialect.DefaultCode)
	require.NoError(t, err)
	log := slogutil.NewDiscardLogger()
	fs := feature.NewStore(stepParser{}, table, log)
	ix := binding.NewIndex(jsonFrontEnd{}, nil, log)
	t.Cleanup(ix.Close)
	factory := func(literals []string) LiteralMatcher { return ahocorasick.NewLiteralMatcher(literals) }
	return &fixture{
		features: fs,
		bindings: ix,
		resolver: NewResolver(fs, ix, factory, log),
		en:       table.Resolve("en"),
	}
}

func (f *fixture) bind(t *testing.T, path string, decls ...ports.AnnotatedMethod) {
	t.Helper()
	data, err := json.Marshal(ports.FileSymbols{BindingClasses: []string{"Steps"}, Methods: decls})
	require.NoError(t, err)
	_, err = f.bindings.ScanFile(path, data)
	require.NoError(t, err)
}

func method(name string, line int, attribute string, pattern ...string) ports.AnnotatedMethod {
	a := ports.Attribute{Name: attribute, Range: ports.Span{StartLine: line, StartCol: 9, EndLine: line, EndCol: 40}}
	for _, p := range pattern {
		a.Args = append(a.Args, ports.AttributeArg{Value: p, IsString: true})
	}
	return ports.AnnotatedMethod{
		Name:       name,
		Class:      "Steps",
		Range:      ports.Span{StartLine: line, EndLine: line + 4},
		Attributes: []ports.Attribute{a},
	}
}

func texts(occs []feature.StepOccurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.Text
	}
	return out
}

// =============================================================================
// CompletionsFor
// =============================================================================

func TestCompletionsFor(t *testing.T) {
	f := newTestResolver(t)
	f.features.Index("/w/a.feature", "Feature: A\n  Scenario: S\n    Given I am logged in\n    When I open the cart\n")
	f.features.Index("/w/b.feature", "Feature: B\n  Scenario: S\n    Given I am logged in\n    Then I see AMOUNT due\n")
	text := "Feature: C\n  Scenario: S\n    Given I am\n"
	f.features.ApplyChange("/w/c.feature", text)

	lines, err := f.features.LinesOf("/w/c.feature")
	require.NoError(t, err)

	got, typed := f.resolver.CompletionsFor("/w/c.feature", 2, lines, f.en)
	assert.Equal(t, "I am", typed)
	assert.Equal(t, []string{"I am logged in"}, texts(got), "deduplicated, current step excluded")
}

func TestCompletionsFor_CaseInsensitiveAndSorted(t *testing.T) {
	f := newTestResolver(t)
	f.features.Index("/w/a.feature", "Feature: A\n  Scenario: S\n    Then I see amount due\n    Given the Amount is 5\n    When I pay\n")
	f.features.ApplyChange("/w/c.feature", "Feature: C\n  Scenario: S\n    And amount\n")
	lines, _ := f.features.LinesOf("/w/c.feature")

	got, _ := f.resolver.CompletionsFor("/w/c.feature", 2, lines, f.en)
	assert.Equal(t, []string{"I see amount due", "the Amount is 5"}, texts(got))
}

func TestCompletionsFor_EmptyBodyOffersEverything(t *testing.T) {
	f := newTestResolver(t)
	f.features.Index("/w/a.feature", "Feature: A\n  Scenario: S\n    Given b\n    Given a\n")
	f.features.ApplyChange("/w/c.feature", "Feature: C\n  Scenario: S\n    Given \n")
	lines, _ := f.features.LinesOf("/w/c.feature")

	got, typed := f.resolver.CompletionsFor("/w/c.feature", 2, lines, f.en)
	assert.Equal(t, "", typed)
	assert.Equal(t, []string{"a", "b"}, texts(got))
}

// =============================================================================
// DefinitionsFor / ReferencesFor
// =============================================================================

func TestDefinitionsFor_RegexFullMatch(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs",
		method("HaveItems", 3, "Given", `I have (\d+) items`),
		method("Have", 9, "Given", `I have`),
	)

	got := f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "I have 3 items"})
	require.Len(t, got, 1)
	assert.Equal(t, "HaveItems", got[0].Method)

	assert.Empty(t, f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "I have 3 items today"}))
}

func TestDefinitionsFor_Alternation(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs", method("A", 3, "When", `a|b`))

	assert.Len(t, f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "b"}), 1)
	assert.Empty(t, f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "ab"}))
}

func TestDefinitionsFor_MalformedRegexSkipped(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs",
		method("Bad", 3, "Given", `I have (`),
		method("Good", 9, "Given", `I have \(`),
	)
	got := f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "I have ("})
	require.Len(t, got, 1)
	assert.Equal(t, "Good", got[0].Method)
}

func TestDefinitionsFor_LiteralMethodName(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs",
		method("I_have_a_cart", 3, "Given"),
		method("a_cart", 9, "Given"),
	)
	got := f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "I have  a Cart"})
	require.Len(t, got, 1)
	assert.Equal(t, "I_have_a_cart", got[0].Method)
	assert.Equal(t, binding.Literal, got[0].Kind)
}

func TestDefinitionsFor_RecompilesAfterIndexChange(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs", method("A", 3, "Given", `one`))
	assert.Len(t, f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "one"}), 1)

	f.bind(t, "/w/Steps.cs", method("A", 3, "Given", `two`))
	assert.Empty(t, f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "one"}))
	assert.Len(t, f.resolver.DefinitionsFor(feature.StepOccurrence{Text: "two"}), 1)
}

func TestReferencesFor(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs", method("LoggedIn", 7, "Given", `I am logged in`))
	f.features.ApplyChange("/w/a.feature", "Feature: A\n  Scenario: S\n    Given I am logged in\n")

	locs, err := f.resolver.ReferencesFor("/w/a.feature", 2)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "/w/Steps.cs", locs[0].Path)
	assert.Equal(t, feature.Position{Line: 7, Character: 9}, locs[0].Range.Start)

	_, err = f.resolver.ReferencesFor("/w/a.feature", 1)
	assert.True(t, specerr.HasCode(err, specerr.NoStepAtPosition))

	_, err = f.resolver.ReferencesFor("/w/missing.feature", 0)
	assert.True(t, specerr.HasCode(err, specerr.UnknownDocument))
}

// =============================================================================
// StepsFor / Unbound
// =============================================================================

func TestStepsFor(t *testing.T) {
	f := newTestResolver(t)
	f.bind(t, "/w/Steps.cs",
		method("Pay", 3, "When", `I pay (\d+)`),
		method("I_log_out", 9, "Then"),
	)
	f.features.Index("/w/a.feature", "Feature: A\n  Scenario: S\n    When I pay 5\n    Then I log out\n")
	f.features.Index("/w/b.feature", "Feature: B\n  Scenario: S\n    When I pay 10\n    When I pay nothing\n")

	decls := f.bindings.AllDeclarations()
	require.Len(t, decls, 2)

	paid := f.resolver.StepsFor(decls[0])
	assert.Equal(t, []string{"I pay 5", "I pay 10"}, texts(paid))
	assert.Equal(t, "/w/b.feature", paid[1].Path)

	assert.Equal(t, []string{"I log out"}, texts(f.resolver.StepsFor(decls[1])))
	assert.Equal(t, []string{"I pay nothing"}, texts(f.resolver.Unbound()))
}
