package app

import (
	"context"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/binding"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/completion"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/workspace"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/xref"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// stepCommitCharacters accept a step completion on Enter.
var stepCommitCharacters = []string{"\n"}

// Completion returns the completion items at a position of a feature file.
// On a step line the items are existing steps replacing the typed step body;
// elsewhere they are the keywords legal in the enclosing block, replacing
// the line from its first non-blank column.
func (c *Coordinator) Completion(ctx context.Context, path string, line, character int) ([]protocol.CompletionItem, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	items := []protocol.CompletionItem{}
	err = c.do(ctx, func() error {
		if c.classify.KindOf(p) == workspace.KindBinding {
			return nil
		}
		lines, err := c.features.LinesOf(p)
		if err != nil {
			return err
		}
		d, err := c.features.LanguageOf(p)
		if err != nil {
			return err
		}
		current := ""
		if line >= 0 && line < len(lines) {
			current = lines[line]
		}

		kind := completion.Resolve(lines, line, d)
		if kind == completion.Step {
			steps, typed := c.xref.CompletionsFor(p, line, lines, d)
			start := max(character-utf8.RuneCountInString(typed), 0)
			items = stepItems(steps, line, start, character)
			return nil
		}
		items = keywordItems(completion.Keywords(kind, d), current, line, character)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func stepItems(steps []feature.StepOccurrence, line, start, end int) []protocol.CompletionItem {
	kind := protocol.CompletionItemKindValue
	out := make([]protocol.CompletionItem, 0, len(steps))
	for _, st := range steps {
		out = append(out, protocol.CompletionItem{
			Label:            st.Text,
			Kind:             &kind,
			TextEdit:         protocol.TextEdit{Range: lineRange(line, start, end), NewText: st.Text},
			CommitCharacters: stepCommitCharacters,
		})
	}
	return out
}

func keywordItems(keywords []string, current string, line, character int) []protocol.CompletionItem {
	kind := protocol.CompletionItemKindKeyword
	typed := strings.ToLower(strings.TrimSpace(current))
	start := min(feature.LineStart(current), max(character, 0))
	out := make([]protocol.CompletionItem, 0, len(keywords))
	for _, kw := range keywords {
		if !strings.Contains(strings.ToLower(kw), typed) {
			continue
		}
		out = append(out, protocol.CompletionItem{
			Label:    kw,
			Kind:     &kind,
			TextEdit: protocol.TextEdit{Range: lineRange(line, start, character), NewText: kw},
		})
	}
	return out
}

func lineRange(line, start, end int) protocol.Range {
	return toRange(feature.Range{
		Start: feature.Position{Line: line, Character: start},
		End:   feature.Position{Line: line, Character: end},
	})
}

// Definition returns the bindings implementing the step on line of a
// feature file. Binding files have no definitions.
func (c *Coordinator) Definition(ctx context.Context, path string, line, character int) ([]protocol.Location, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	locs := []protocol.Location{}
	err = c.do(ctx, func() error {
		if c.classify.KindOf(p) == workspace.KindBinding {
			return nil
		}
		found, err := c.xref.ReferencesFor(p, line)
		if err != nil {
			return err
		}
		locs = toLocations(found)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// References answers from both sides: on a feature file it returns the
// bindings implementing the step on line; on a binding file it returns the
// steps implemented by the bindings declared at line.
func (c *Coordinator) References(ctx context.Context, path string, line, character int) ([]protocol.Location, error) {
	p, err := canonical(path)
	if err != nil {
		return nil, err
	}
	locs := []protocol.Location{}
	err = c.do(ctx, func() error {
		if c.classify.KindOf(p) != workspace.KindBinding {
			found, err := c.xref.ReferencesFor(p, line)
			if err != nil {
				return err
			}
			locs = toLocations(found)
			return nil
		}
		if !c.handlers[workspace.KindBinding].known(p) {
			return specerr.New(specerr.UnknownDocument, p)
		}
		locs = toLocations(c.stepsImplementedAt(p, line))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locs, nil
}

// stepsImplementedAt collects the steps bound by the declarations at line,
// without duplicates, in declaration order.
func (c *Coordinator) stepsImplementedAt(path string, line int) []xref.Location {
	type key struct {
		path string
		line int
	}
	seen := make(map[key]bool)
	var out []xref.Location
	for _, d := range c.bindings.DeclarationsAt(path, line) {
		for _, st := range c.xref.StepsFor(d) {
			k := key{st.Path, st.Range.Start.Line}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, xref.StepLocation(st))
		}
	}
	return out
}

func toLocations(in []xref.Location) []protocol.Location {
	out := make([]protocol.Location, 0, len(in))
	for _, l := range in {
		out = append(out, toLocation(l))
	}
	return out
}

// Steps lists every step occurrence with the number of bindings implementing
// it. With unboundOnly only steps without a binding are listed.
func (c *Coordinator) Steps(ctx context.Context, unboundOnly bool) (socket.StepsResult, error) {
	var result socket.StepsResult
	err := c.do(ctx, func() error {
		steps := []socket.StepInfo{}
		for _, occ := range c.features.Occurrences() {
			n := len(c.xref.DefinitionsFor(occ))
			if unboundOnly && n > 0 {
				continue
			}
			steps = append(steps, socket.StepInfo{
				Text:     occ.Text,
				Keyword:  strings.TrimSpace(occ.Keyword),
				Path:     occ.Path,
				Line:     occ.Range.Start.Line + 1,
				Bindings: n,
			})
		}
		result = socket.StepsResult{Steps: steps, Count: len(steps)}
		return nil
	})
	return result, err
}

// Bindings lists every step binding with the number of steps it implements.
func (c *Coordinator) Bindings(ctx context.Context) (socket.BindingsResult, error) {
	var result socket.BindingsResult
	err := c.do(ctx, func() error {
		decls := c.bindings.AllDeclarations()
		out := make([]socket.BindingInfo, 0, len(decls))
		for _, d := range decls {
			out = append(out, bindingInfo(d, len(c.xref.StepsFor(d))))
		}
		result = socket.BindingsResult{Bindings: out, Count: len(out)}
		return nil
	})
	return result, err
}

func bindingInfo(d binding.Declaration, steps int) socket.BindingInfo {
	return socket.BindingInfo{
		Pattern:   d.Pattern,
		Kind:      d.Kind.String(),
		Path:      d.Path,
		Line:      d.Range.StartLine + 1,
		Class:     d.Class,
		Method:    d.Method,
		Attribute: d.Attribute,
		Steps:     steps,
	}
}

// Health reports index sizes. Uptime is filled in by the socket server.
func (c *Coordinator) Health(ctx context.Context) (socket.HealthResult, error) {
	var result socket.HealthResult
	err := c.do(ctx, func() error {
		fs := c.features.Stats()
		bs := c.bindings.Stats()
		result = socket.HealthResult{
			Status:       "ok",
			Root:         c.root,
			FeatureFiles: fs.Files,
			OpenFiles:    fs.Open + len(c.openBindings),
			FailedFiles:  fs.Failed,
			Steps:        fs.Steps,
			BindingFiles: bs.Files,
			Declarations: bs.Declarations,
			FrontEnd:     c.bindings.FrontEnd() != nil,
			Cache:        c.bindings.Cache() != nil,
		}
		return nil
	})
	return result, err
}
