package gherkin

import (
	"errors"
	"testing"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopping = `Feature: Shopping
  Background:
    Given I am logged in

  Scenario: Pay
    When I pay 5
    Then I see a receipt

  Rule: Refunds
    Scenario Outline: Refund <n>
      When I refund <n>

      Examples:
        | n |
        | 1 |
`

func TestParse_Structure(t *testing.T) {
	doc, errs := NewParser().Parse(shopping)
	require.Empty(t, errs)
	require.NotNil(t, doc.Feature)

	f := doc.Feature
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, "Feature", f.Keyword)
	assert.Equal(t, "Shopping", f.Name)
	assert.Equal(t, 1, f.Line)
	require.Len(t, f.Children, 3)

	bg := f.Children[0]
	assert.Equal(t, ports.BlockBackground, bg.Kind)
	require.Len(t, bg.Steps, 1)
	assert.Equal(t, ports.StepNode{Keyword: "Given ", Text: "I am logged in", Line: 3, Column: 5}, bg.Steps[0])

	sc := f.Children[1]
	assert.Equal(t, ports.BlockScenario, sc.Kind)
	assert.Equal(t, "Pay", sc.Name)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, "I pay 5", sc.Steps[0].Text)
	assert.Equal(t, 6, sc.Steps[0].Line)

	rule := f.Children[2]
	assert.Equal(t, ports.BlockRule, rule.Kind)
	require.Len(t, rule.Children, 1)
	outline := rule.Children[0]
	assert.Equal(t, ports.BlockScenarioOutline, outline.Kind)
	require.Len(t, outline.Steps, 1)
	assert.Equal(t, "I refund <n>", outline.Steps[0].Text)
	assert.Equal(t, 7, outline.Steps[0].Column)
}

func TestParse_Language(t *testing.T) {
	doc, errs := NewParser().Parse("# language: de\nFunktionalität: F\n  Szenario: S\n    Angenommen ich bin da\n")
	require.Empty(t, errs)
	assert.Equal(t, "de", doc.Language)
	require.Len(t, doc.Feature.Children, 1)
	assert.Equal(t, "ich bin da", doc.Feature.Children[0].Steps[0].Text)
}

func TestParse_EmptyDocument(t *testing.T) {
	doc, errs := NewParser().Parse("# just a comment\n")
	require.Empty(t, errs)
	require.NotNil(t, doc)
	assert.Nil(t, doc.Feature)
}

func TestParse_Errors(t *testing.T) {
	doc, errs := NewParser().Parse("Feature: F\n  Scenario: S\n    Given ok\n  nonsense here\n")
	assert.Nil(t, doc)
	require.NotEmpty(t, errs)
	assert.Equal(t, 4, errs[0].Line)
	assert.Positive(t, errs[0].Column)
	assert.NotEmpty(t, errs[0].Message)
}

func TestSyntaxErrors_Fallback(t *testing.T) {
	errs := SyntaxErrors(errors.New("something odd"))
	require.Len(t, errs, 1)
	assert.Equal(t, ports.SyntaxError{Message: "something odd", Line: 1, Column: 1}, errs[0])
}

func TestSyntaxErrors_Composite(t *testing.T) {
	errs := SyntaxErrors(errors.New("Parser errors:\n(4:3): expected: #EOF, got 'nonsense'\n(7:1): unexpected end of file"))
	require.Len(t, errs, 2)
	assert.Equal(t, ports.SyntaxError{Message: "expected: #EOF, got 'nonsense'", Line: 4, Column: 3}, errs[0])
	assert.Equal(t, 7, errs[1].Line)
}
