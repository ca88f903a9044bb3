// Package gherkin implements ports.FeatureParser with the cucumber Gherkin
// parser. The cucumber AST is flattened into the ports document model so the
// domain never depends on cucumber message types.
package gherkin

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/google/uuid"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// errorLine matches one error of a composite parse error: "(3:5): message".
var errorLine = regexp.MustCompile(`^\((\d+):(\d+)\): (.*)$`)

// Parser is a stateless cucumber-backed FeatureParser.
type Parser struct {
	newID func() string
}

// NewParser creates a parser that tags AST nodes with random UUIDs.
func NewParser() *Parser {
	return &Parser{newID: uuid.NewString}
}

// Parse implements ports.FeatureParser.
func (p *Parser) Parse(text string) (*ports.FeatureDocument, []ports.SyntaxError) {
	doc, err := gherkin.ParseGherkinDocument(strings.NewReader(text), p.newID)
	if err != nil {
		return nil, SyntaxErrors(err)
	}
	return convert(doc, strings.Split(text, "\n")), nil
}

// SyntaxErrors splits a cucumber parse error into positioned errors. An error
// without recognizable positions becomes a single error at 1:1.
func SyntaxErrors(err error) []ports.SyntaxError {
	var out []ports.SyntaxError
	for _, line := range strings.Split(err.Error(), "\n") {
		m := errorLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		ln, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		out = append(out, ports.SyntaxError{Message: m[3], Line: ln, Column: col})
	}
	if len(out) == 0 {
		msg := err.Error()
		var pe interface{ Unwrap() []error }
		if errors.As(err, &pe) && len(pe.Unwrap()) > 0 {
			msg = pe.Unwrap()[0].Error()
		}
		out = append(out, ports.SyntaxError{Message: msg, Line: 1, Column: 1})
	}
	return out
}

func convert(doc *messages.GherkinDocument, lines []string) *ports.FeatureDocument {
	out := &ports.FeatureDocument{}
	if doc == nil || doc.Feature == nil {
		return out
	}
	f := doc.Feature
	out.Language = f.Language
	node := &ports.FeatureNode{
		Keyword: f.Keyword,
		Name:    f.Name,
		Line:    lineOf(f.Location),
	}
	for _, child := range f.Children {
		switch {
		case child.Rule != nil:
			node.Children = append(node.Children, convertRule(child.Rule, lines))
		case child.Background != nil:
			node.Children = append(node.Children, convertBackground(child.Background, lines))
		case child.Scenario != nil:
			node.Children = append(node.Children, convertScenario(child.Scenario, lines))
		}
	}
	out.Feature = node
	return out
}

func convertRule(r *messages.Rule, lines []string) *ports.Block {
	b := &ports.Block{Kind: ports.BlockRule, Keyword: r.Keyword, Name: r.Name, Line: lineOf(r.Location)}
	for _, child := range r.Children {
		switch {
		case child.Background != nil:
			b.Children = append(b.Children, convertBackground(child.Background, lines))
		case child.Scenario != nil:
			b.Children = append(b.Children, convertScenario(child.Scenario, lines))
		}
	}
	return b
}

func convertBackground(bg *messages.Background, lines []string) *ports.Block {
	return &ports.Block{
		Kind:    ports.BlockBackground,
		Keyword: bg.Keyword,
		Name:    bg.Name,
		Line:    lineOf(bg.Location),
		Steps:   convertSteps(bg.Steps, lines),
	}
}

func convertScenario(sc *messages.Scenario, lines []string) *ports.Block {
	kind := ports.BlockScenario
	if len(sc.Examples) > 0 {
		kind = ports.BlockScenarioOutline
	}
	return &ports.Block{
		Kind:    kind,
		Keyword: sc.Keyword,
		Name:    sc.Name,
		Line:    lineOf(sc.Location),
		Steps:   convertSteps(sc.Steps, lines),
	}
}

func convertSteps(steps []*messages.Step, lines []string) []ports.StepNode {
	out := make([]ports.StepNode, 0, len(steps))
	for _, st := range steps {
		line := lineOf(st.Location)
		out = append(out, ports.StepNode{
			Keyword: st.Keyword,
			Text:    st.Text,
			Line:    line,
			Column:  keywordColumn(lines, line),
		})
	}
	return out
}

func lineOf(loc *messages.Location) int {
	if loc == nil {
		return 0
	}
	return int(loc.Line)
}

// keywordColumn returns the 1-based rune column of the first non-blank
// character of a 1-based line.
func keywordColumn(lines []string, line int) int {
	if line < 1 || line > len(lines) {
		return 1
	}
	text := strings.TrimSuffix(lines[line-1], "\r")
	trimmed := strings.TrimLeft(text, " \t")
	return utf8.RuneCountInString(text[:len(text)-len(trimmed)]) + 1
}
