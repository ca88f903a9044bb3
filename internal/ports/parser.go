package ports

// FeatureParser turns Gherkin text into a FeatureDocument.
// The concrete implementation (cucumber/gherkin) lives in internal/adapters/gherkin.
// Exactly one of the two results is meaningful: a nil error slice means the
// document parsed; a non-empty slice means the document must not be trusted
// and the returned *FeatureDocument is nil.
type FeatureParser interface {
	// Parse parses the full text of one feature file. Positions in both the
	// document and the errors are 1-based, as the grammar reports them.
	Parse(text string) (*FeatureDocument, []SyntaxError)
}

// SyntaxError is one grammar error. Line and Column are 1-based.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

// FeatureDocument is the parsed structure of a feature file.
// Feature is nil for a document that holds only comments or whitespace.
type FeatureDocument struct {
	Language string
	Feature  *FeatureNode
}

// FeatureNode is the root "Feature:" block.
type FeatureNode struct {
	Keyword  string
	Name     string
	Line     int
	Children []*Block
}

// BlockKind tags the children of a feature or rule.
type BlockKind int

const (
	BlockBackground BlockKind = iota
	BlockScenario
	BlockScenarioOutline
	BlockRule
)

// Block is a background, scenario, scenario outline or rule. Rules carry
// their own Children; the other kinds carry Steps.
type Block struct {
	Kind     BlockKind
	Keyword  string
	Name     string
	Line     int
	Steps    []StepNode
	Children []*Block
}

// StepNode is one step line. Keyword includes its trailing space as written
// ("Given "); Text is the remainder of the line. Line and Column are 1-based
// and point at the keyword.
type StepNode struct {
	Keyword string
	Text    string
	Line    int
	Column  int
}
