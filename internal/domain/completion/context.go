// Package completion decides which keywords are legal at a cursor position.
//
// Everything here is a pure function of the document lines, the cursor line
// and the dialect. Gherkin nests strictly (Feature > Background/Scenario >
// steps), so the nearest enclosing block keyword above the cursor determines
// what may follow; no parse tree is needed.
package completion

import (
	"strings"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
)

// Context is the structural position of the line being edited.
type Context int

const (
	Root Context = iota
	Feature
	Scenario
	ScenarioOutline
	Step
	None
)

func (c Context) String() string {
	switch c {
	case Root:
		return "root"
	case Feature:
		return "feature"
	case Scenario:
		return "scenario"
	case ScenarioOutline:
		return "scenarioOutline"
	case Step:
		return "step"
	case None:
		return "none"
	}
	return "unknown"
}

// Resolve returns the context of lines[lineIndex]. A cursor past the last
// line is resolved by the upward scan alone.
func Resolve(lines []string, lineIndex int, d *dialect.Dialect) Context {
	if lineIndex >= 0 && lineIndex < len(lines) {
		current := strings.TrimSpace(lines[lineIndex])
		if IsStepContext(current, d) {
			return Step
		}
		if d.HasBlockPrefix(current, dialect.StructuralCategories...) {
			return None
		}
		if strings.HasPrefix(current, "#") || strings.HasPrefix(current, "|") || strings.HasPrefix(current, `"`) {
			return None
		}
	}
	return scanUpward(lines, lineIndex, d)
}

// IsStepContext reports whether line starts with a step keyword.
func IsStepContext(line string, d *dialect.Dialect) bool {
	return d.HasStepPrefix(strings.TrimSpace(line))
}

func scanUpward(lines []string, lineIndex int, d *dialect.Dialect) Context {
	if lineIndex > len(lines) {
		lineIndex = len(lines)
	}
	for i := lineIndex - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		switch {
		case d.HasBlockPrefix(line, dialect.ScenarioOutline):
			return ScenarioOutline
		case d.HasBlockPrefix(line, dialect.Scenario):
			return Scenario
		case d.HasBlockPrefix(line, dialect.Feature):
			return Feature
		}
	}
	return Root
}

// contextCategories lists the keyword classes completable in each context.
// Step and None complete nothing: steps are completed from the index.
var contextCategories = map[Context][]dialect.Category{
	Root:    {dialect.Feature},
	Feature: {dialect.Scenario, dialect.ScenarioOutline, dialect.Background},
	Scenario: {
		dialect.Scenario, dialect.ScenarioOutline, dialect.Background,
		dialect.Given, dialect.When, dialect.Then, dialect.And, dialect.But,
	},
	ScenarioOutline: {
		dialect.Scenario, dialect.ScenarioOutline, dialect.Background,
		dialect.Given, dialect.When, dialect.Then, dialect.And, dialect.But,
		dialect.Examples,
	},
	Step: nil,
	None: nil,
}

// Keywords returns the keywords completable in c.
func Keywords(c Context, d *dialect.Dialect) []string {
	return d.Keywords(contextCategories[c]...)
}

// StripStepKeyword returns the step body typed after the leading step
// keyword, trimmed. A line without a step keyword yields "".
func StripStepKeyword(line string, d *dialect.Dialect) string {
	_, rest, ok := d.SplitStep(line)
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}
