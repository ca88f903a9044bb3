package feature

import (
	"strings"
	"unicode/utf8"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a 0-based half-open source range.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ParseError is a grammar error mapped onto the document.
type ParseError struct {
	Message string `json:"message"`
	Range   Range  `json:"range"`
}

// StepOccurrence is one step line in one feature file.
type StepOccurrence struct {
	Text    string `json:"text"`
	Keyword string `json:"keyword"`
	Path    string `json:"path"`
	Range   Range  `json:"range"`
}

// SameText is the completion equality: occurrences with identical text are
// one candidate regardless of where they live.
func (s StepOccurrence) SameText(o StepOccurrence) bool {
	return s.Text == o.Text
}

// DistinctText keeps the first occurrence of every text in input order, so
// the result never holds two occurrences for which SameText holds.
func DistinctText(occs []StepOccurrence) []StepOccurrence {
	var out []StepOccurrence
	first := make(map[string]int)
	for _, occ := range occs {
		if i, ok := first[occ.Text]; ok && out[i].SameText(occ) {
			continue
		}
		first[occ.Text] = len(out)
		out = append(out, occ)
	}
	return out
}

// Identical compares text, file and position.
func (s StepOccurrence) Identical(o StepOccurrence) bool {
	return s.Text == o.Text && s.Path == o.Path && s.Range == o.Range
}

// File is one known feature file.
type File struct {
	Path string

	// open buffer, nil when the editor has not opened the file
	buffer *string
	// last content observed on disk
	diskText string

	lines  []string
	doc    *ports.FeatureDocument
	errors []ParseError

	// nil until first requested after a parse
	steps []StepOccurrence
}

// IsOpen reports whether the editor buffer is authoritative.
func (f *File) IsOpen() bool { return f.buffer != nil }

// Text returns the open buffer, or the last disk content when closed.
func (f *File) Text() string {
	if f.buffer != nil {
		return *f.buffer
	}
	return f.diskText
}

// Errors returns the errors of the latest parse.
func (f *File) Errors() []ParseError { return f.errors }

// Parsed reports whether the latest parse succeeded.
func (f *File) Parsed() bool { return f.doc != nil }

// Document returns the latest successful parse of the current text, or nil.
func (f *File) Document() *ports.FeatureDocument { return f.doc }

// replace installs a new parse result and drops the cached steps.
func (f *File) replace(lines []string, doc *ports.FeatureDocument, errs []ParseError) {
	f.lines = lines
	f.doc = doc
	f.errors = errs
	f.steps = nil
}

// Steps returns the step occurrences of the latest successful parse. A file
// whose latest parse failed has none.
func (f *File) Steps() []StepOccurrence {
	if f.doc == nil || f.doc.Feature == nil {
		return nil
	}
	if f.steps == nil {
		f.steps = collectSteps(f.Path, f.doc.Feature.Children, make([]StepOccurrence, 0))
	}
	return f.steps
}

func collectSteps(path string, blocks []*ports.Block, out []StepOccurrence) []StepOccurrence {
	for _, b := range blocks {
		if b.Kind == ports.BlockRule {
			out = collectSteps(path, b.Children, out)
			continue
		}
		for _, st := range b.Steps {
			out = append(out, toOccurrence(path, st))
		}
	}
	return out
}

func toOccurrence(path string, st ports.StepNode) StepOccurrence {
	line := st.Line - 1
	if line < 0 {
		line = 0
	}
	col := st.Column - 1
	if col < 0 {
		col = 0
	}
	width := utf8.RuneCountInString(st.Keyword) + utf8.RuneCountInString(st.Text)
	return StepOccurrence{
		Text:    st.Text,
		Keyword: strings.TrimSpace(st.Keyword),
		Path:    path,
		Range: Range{
			Start: Position{Line: line, Character: col},
			End:   Position{Line: line, Character: col + width},
		},
	}
}
