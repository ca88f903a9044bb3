package binding

import (
	"strings"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// builtinStepAttributes are the step attributes every binding assembly can
// use without declaring them. StepDefinitionBase is the common base class
// custom attributes derive from.
var builtinStepAttributes = []string{"Given", "When", "Then", "StepDefinition", "StepDefinitionBase"}

// keywordAttributes are the attributes whose name doubles as a step keyword.
// A method-name pattern starting with one of them has it stripped.
var keywordAttributes = []string{"Given", "When", "Then"}

// namedPatternArgs are the named arguments that carry the pattern when no
// positional string is given, in precedence order.
var namedPatternArgs = []string{"Regex", "Expression", "Pattern"}

// NormalizeAttribute reduces an attribute or class name to the form used for
// identity: the last segment of a qualified name without the Attribute
// suffix. "TechTalk.SpecFlow.GivenAttribute" becomes "Given".
func NormalizeAttribute(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if trimmed := strings.TrimSuffix(name, "Attribute"); trimmed != "" {
		name = trimmed
	}
	return name
}

// stepAttributeSet computes the attribute names that mark step bindings: the
// builtins plus every attribute class deriving from one of them, directly or
// through other classes in the unit.
func stepAttributeSet(classes []ports.ClassDecl) map[string]bool {
	set := make(map[string]bool, len(builtinStepAttributes)+len(classes))
	for _, name := range builtinStepAttributes {
		set[name] = true
	}
	for changed := true; changed; {
		changed = false
		for _, c := range classes {
			name := NormalizeAttribute(c.Name)
			if set[name] {
				continue
			}
			for _, base := range c.Bases {
				if set[NormalizeAttribute(base)] {
					set[name] = true
					changed = true
					break
				}
			}
		}
	}
	return set
}

// patternFor picks the pattern of one step attribute: a positional string
// argument, then a named pattern argument, then the method name.
func patternFor(attr ports.Attribute, method string) (string, Kind) {
	for _, arg := range attr.Args {
		if arg.Name == "" && arg.IsString {
			return arg.Value, Regex
		}
	}
	for _, want := range namedPatternArgs {
		for _, arg := range attr.Args {
			if arg.IsString && strings.EqualFold(arg.Name, want) {
				return arg.Value, Regex
			}
		}
	}
	return methodNamePattern(method, NormalizeAttribute(attr.Name)), Literal
}

// methodNamePattern turns I_have_entered_a_number into "I have entered a
// number". A leading keyword matching the attribute (Given_I_am) is dropped.
func methodNamePattern(method, attribute string) string {
	words := strings.FieldsFunc(method, func(r rune) bool { return r == '_' })
	if len(words) > 1 {
		for _, kw := range keywordAttributes {
			if strings.EqualFold(words[0], kw) && (attribute == kw || attribute == "StepDefinition") {
				words = words[1:]
				break
			}
		}
	}
	return strings.Join(words, " ")
}
