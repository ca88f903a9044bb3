package app

import (
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// fakeFrontEnd extracts bindings from a line-oriented subset of C#:
//
//	[Binding]
//	public class Steps
//	{
//	    [Given("pattern")]
//	    public void Method() { }
//	}
//
// Attributes and method signatures must sit on their own lines.
type fakeFrontEnd struct {
	parses atomic.Int32
}

type fakeTree struct{ source []byte }

func (t *fakeTree) Source() []byte { return t.source }
func (t *fakeTree) Close()         {}

var (
	fakeClassLine  = regexp.MustCompile(`\bclass\s+(\w+)`)
	fakeAttrLine   = regexp.MustCompile(`^\s*\[(\w+)(?:\("((?:[^"\\]|\\.)*)"\))?\]\s*$`)
	fakeMethodLine = regexp.MustCompile(`\bvoid\s+(\w+)\s*\(`)
)

func (f *fakeFrontEnd) Parse(source []byte, _ ports.SyntaxTree) (ports.SyntaxTree, error) {
	f.parses.Add(1)
	return &fakeTree{source: append([]byte(nil), source...)}, nil
}

func (f *fakeFrontEnd) Extract(tree ports.SyntaxTree) (*ports.FileSymbols, error) {
	syms := &ports.FileSymbols{}
	var (
		class        string
		bindingNext  bool
		isBinding    bool
		attrs        []ports.Attribute
		firstAttrRow = -1
	)
	for row, line := range strings.Split(string(tree.Source()), "\n") {
		if m := fakeClassLine.FindStringSubmatch(line); m != nil {
			class, isBinding, bindingNext = m[1], bindingNext, false
			if isBinding {
				syms.BindingClasses = append(syms.BindingClasses, class)
			}
			attrs, firstAttrRow = nil, -1
			continue
		}
		if m := fakeAttrLine.FindStringSubmatch(line); m != nil {
			if m[1] == "Binding" {
				bindingNext = true
				continue
			}
			start := strings.Index(line, "[")
			a := ports.Attribute{
				Name:  m[1],
				Range: ports.Span{StartLine: row, StartCol: start, EndLine: row, EndCol: strings.LastIndex(line, "]") + 1},
			}
			if m[2] != "" {
				a.Args = []ports.AttributeArg{{Value: m[2], IsString: true}}
			}
			if firstAttrRow < 0 {
				firstAttrRow = row
			}
			attrs = append(attrs, a)
			continue
		}
		if m := fakeMethodLine.FindStringSubmatch(line); m != nil {
			if isBinding && len(attrs) > 0 {
				syms.Methods = append(syms.Methods, ports.AnnotatedMethod{
					Name:       m[1],
					Class:      class,
					Range:      ports.Span{StartLine: firstAttrRow, EndLine: row, EndCol: len(line)},
					Attributes: attrs,
				})
			}
			attrs, firstAttrRow = nil, -1
		}
	}
	return syms, nil
}
