package ports

// SyntaxTree is an opaque parsed binding source file. The binding index keeps
// the latest tree of every file so the front-end can re-parse incrementally.
type SyntaxTree interface {
	// Source returns the bytes the tree was parsed from.
	Source() []byte
	// Close releases native resources. Safe to call more than once.
	Close()
}

// HostFrontEnd parses C# binding sources and extracts the declarations the
// binding index resolves. The concrete implementation (tree-sitter) lives in
// internal/adapters/treesitter. When nil (pure Go build), the binding index
// stays empty and only feature-side features work.
type HostFrontEnd interface {
	// Parse builds a syntax tree. When previous is non-nil it is the last tree
	// of the same file and may be reused for an incremental parse; it is not
	// closed by Parse.
	Parse(source []byte, previous SyntaxTree) (SyntaxTree, error)

	// Extract walks a tree produced by Parse and returns the file-local facts
	// the binding index needs. Extraction is purely syntactic: which
	// attributes are step bindings is resolved later across all files.
	Extract(tree SyntaxTree) (*FileSymbols, error)
}

// FileSymbols is the per-file extraction result. It is also the unit persisted
// by BindingCache, so every field must survive a gob round trip.
type FileSymbols struct {
	// BindingClasses names the classes annotated with [Binding].
	BindingClasses []string `json:"binding_classes,omitempty"`
	// AttributeClasses lists class declarations that look like attribute
	// classes (the class name or a base type ends in "Attribute"), so custom
	// step attributes can be resolved across files.
	AttributeClasses []ClassDecl `json:"attribute_classes,omitempty"`
	// Methods lists attributed methods declared inside [Binding] classes.
	Methods []AnnotatedMethod `json:"methods,omitempty"`
}

// ClassDecl is a class name and its base types as written.
type ClassDecl struct {
	Name  string   `json:"name"`
	Bases []string `json:"bases"`
}

// AnnotatedMethod is a method declaration with its attributes.
type AnnotatedMethod struct {
	Name       string      `json:"name"`
	Class      string      `json:"class"`
	Range      Span        `json:"range"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute is one attribute application, e.g. [Given(@"I am (.*)")].
// Name is the written name with any namespace qualifier removed.
type Attribute struct {
	Name  string         `json:"name"`
	Args  []AttributeArg `json:"args,omitempty"`
	Range Span           `json:"range"`
}

// AttributeArg is one attribute argument. Name is empty for positional
// arguments. Value holds the decoded string when IsString is set and the raw
// source text otherwise.
type AttributeArg struct {
	Name     string `json:"name,omitempty"`
	Value    string `json:"value"`
	IsString bool   `json:"is_string"`
}

// Span is a 0-based source range.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}
