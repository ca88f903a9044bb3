package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// bindingAttribute marks a class whose methods are step bindings.
const bindingAttribute = "Binding"

// extractor walks one C# compilation unit.
type extractor struct {
	source  []byte
	out     *ports.FileSymbols
	binding map[string]bool
}

func extractCSharp(root *tree_sitter.Node, source []byte) *ports.FileSymbols {
	e := &extractor{source: source, out: &ports.FileSymbols{}, binding: make(map[string]bool)}
	e.walk(root)
	return e.out
}

// walk descends through namespaces to class declarations. ERROR nodes are
// entered too so a half-typed file still yields its intact classes.
func (e *extractor) walk(n *tree_sitter.Node) {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "class_declaration":
			e.class(c)
		case "namespace_declaration", "file_scoped_namespace_declaration", "declaration_list", "ERROR":
			e.walk(c)
		}
	}
}

func (e *extractor) class(n *tree_sitter.Node) {
	name := e.fieldText(n, "name", "identifier")
	if name == "" {
		return
	}
	isBinding := false
	for _, a := range e.attributes(n) {
		if trimAttributeSuffix(a.Name) == bindingAttribute {
			isBinding = true
		}
	}
	if isBinding && !e.binding[name] {
		e.binding[name] = true
		e.out.BindingClasses = append(e.out.BindingClasses, name)
	}

	bases := e.bases(n)
	if looksLikeAttribute(name, bases) {
		e.out.AttributeClasses = append(e.out.AttributeClasses, ports.ClassDecl{Name: name, Bases: bases})
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = childByKind(n, "declaration_list")
	}
	if body == nil {
		return
	}
	for i := uint(0); i < uint(body.ChildCount()); i++ {
		member := body.Child(i)
		switch member.Kind() {
		case "method_declaration":
			if !isBinding {
				continue
			}
			if m, ok := e.method(member, name); ok {
				e.out.Methods = append(e.out.Methods, m)
			}
		case "class_declaration":
			e.class(member)
		}
	}
}

func looksLikeAttribute(name string, bases []string) bool {
	if strings.HasSuffix(name, "Attribute") {
		return true
	}
	for _, b := range bases {
		if strings.HasSuffix(stripGeneric(b), "Attribute") {
			return true
		}
	}
	return false
}

// bases returns the base types of a class as written.
func (e *extractor) bases(n *tree_sitter.Node) []string {
	list := childByKind(n, "base_list")
	if list == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < uint(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		switch c.Kind() {
		case "identifier", "qualified_name", "generic_name", "alias_qualified_name", "predefined_type":
			out = append(out, e.text(c))
		case "primary_constructor_base_type":
			if t := c.NamedChild(0); t != nil {
				out = append(out, e.text(t))
			}
		}
	}
	return out
}

func (e *extractor) method(n *tree_sitter.Node, class string) (ports.AnnotatedMethod, bool) {
	attrs := e.attributes(n)
	if len(attrs) == 0 {
		return ports.AnnotatedMethod{}, false
	}
	name := e.fieldText(n, "name", "identifier")
	if name == "" {
		return ports.AnnotatedMethod{}, false
	}
	return ports.AnnotatedMethod{
		Name:       name,
		Class:      class,
		Range:      span(n),
		Attributes: attrs,
	}, true
}

// attributes collects the attributes applied to a declaration. Lists with a
// target specifier ([return: X]) do not apply to the declaration itself.
func (e *extractor) attributes(n *tree_sitter.Node) []ports.Attribute {
	var out []ports.Attribute
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		list := n.Child(i)
		if list.Kind() != "attribute_list" {
			continue
		}
		if childByKind(list, "attribute_target_specifier") != nil {
			continue
		}
		for j := uint(0); j < uint(list.ChildCount()); j++ {
			if a := list.Child(j); a.Kind() == "attribute" {
				out = append(out, e.attribute(a))
			}
		}
	}
	return out
}

func (e *extractor) attribute(n *tree_sitter.Node) ports.Attribute {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = n.NamedChild(0)
	}
	a := ports.Attribute{Range: span(n)}
	if nameNode != nil {
		a.Name = simpleName(e.text(nameNode))
	}
	if args := childByKind(n, "attribute_argument_list"); args != nil {
		for i := uint(0); i < uint(args.ChildCount()); i++ {
			if c := args.Child(i); c.Kind() == "attribute_argument" {
				a.Args = append(a.Args, e.argument(c))
			}
		}
	}
	return a
}

// argument reads one attribute argument. Named arguments appear either as a
// name_equals/name_colon child or as an identifier followed by "=" or ":",
// depending on the grammar version.
func (e *extractor) argument(n *tree_sitter.Node) ports.AttributeArg {
	var arg ports.AttributeArg
	var value *tree_sitter.Node
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "name_equals", "name_colon":
			if id := childByKind(c, "identifier"); id != nil {
				arg.Name = e.text(id)
			}
		case "=", ":":
			if value != nil && value.Kind() == "identifier" {
				arg.Name = e.text(value)
			}
			value = nil
		default:
			if c.IsNamed() {
				value = c
			}
		}
	}
	if value != nil && value.Kind() == "assignment_expression" && arg.Name == "" {
		left, right := value.ChildByFieldName("left"), value.ChildByFieldName("right")
		if left != nil && right != nil && left.Kind() == "identifier" {
			arg.Name = e.text(left)
			value = right
		}
	}
	if value == nil {
		return arg
	}
	raw := e.text(value)
	if s, ok := decodeStringLiteral(value.Kind(), raw); ok {
		arg.Value = s
		arg.IsString = true
		return arg
	}
	arg.Value = raw
	return arg
}

func (e *extractor) text(n *tree_sitter.Node) string {
	return string(e.source[n.StartByte():n.EndByte()])
}

// fieldText returns the text of a field child, falling back to the first
// child of kind fallback.
func (e *extractor) fieldText(n *tree_sitter.Node, field, fallback string) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		c = childByKind(n, fallback)
	}
	if c == nil {
		return ""
	}
	return e.text(c)
}

// childByKind finds the first child with the given kind.
func childByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

func span(n *tree_sitter.Node) ports.Span {
	start, end := n.StartPosition(), n.EndPosition()
	return ports.Span{
		StartLine: int(start.Row),
		StartCol:  int(start.Column),
		EndLine:   int(end.Row),
		EndCol:    int(end.Column),
	}
}

// simpleName drops namespace and alias qualifiers: "global::A.B.C" is "C".
func simpleName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func stripGeneric(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		return name[:i]
	}
	return name
}

func trimAttributeSuffix(name string) string {
	if trimmed := strings.TrimSuffix(name, "Attribute"); trimmed != "" {
		return trimmed
	}
	return name
}
