package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStringLiteral(t *testing.T) {
	tests := []struct {
		name string
		kind string
		raw  string
		want string
		ok   bool
	}{
		{"plain", "string_literal", `"I am logged in"`, "I am logged in", true},
		{"regex escapes", "string_literal", `"I have (\\d+) items"`, `I have (\d+) items`, true},
		{"quote escape", "string_literal", `"say \"hi\""`, `say "hi"`, true},
		{"unicode escape", "string_literal", `"caf\u00e9"`, "café", true},
		{"bad unicode escape", "string_literal", `"\u12"`, `\u12`, true},
		{"hex escape", "string_literal", `"\x41B"`, "\u041b", true},
		{"newline", "string_literal", `"a\nb"`, "a\nb", true},
		{"utf8 suffix", "string_literal", `"abc"u8`, "abc", true},
		{"verbatim", "verbatim_string_literal", `@"I have (\d+) ""items"""`, `I have (\d+) "items"`, true},
		{"raw single line", "raw_string_literal", `"""a "quoted" (\d+)"""`, `a "quoted" (\d+)`, true},
		{"raw multi line", "raw_string_literal", "\"\"\"\n    first\n      second\n    \"\"\"", "first\n  second", true},
		{"raw four quotes", "raw_string_literal", `""""has """ inside""""`, `has """ inside`, true},
		{"interpolated", "interpolated_string_expression", `$"x{y}"`, "", false},
		{"identifier", "identifier", `Pattern`, "", false},
		{"malformed", "string_literal", `"`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeStringLiteral(tt.kind, tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
