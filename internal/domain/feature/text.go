package feature

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// SplitLines splits text on \r\n, \r or \n. Consecutive breaks produce empty
// lines; a trailing break produces a trailing empty line.
func SplitLines(text string) []string {
	return lineBreak.Split(text, -1)
}

var languageDirective = regexp.MustCompile(`^\s*#\s*language\s*:\s*([A-Za-z0-9_-]+)\s*$`)

// LanguageTag returns the code declared by a "#language: xx" directive, or ""
// when there is none. Only the comment header before the first content line
// is searched, matching where the grammar accepts the directive.
func LanguageTag(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			return ""
		}
		if m := languageDirective.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// ErrorRange converts a 1-based grammar position into a 0-based single-line
// range. The line is clamped into the document, the start column into the
// line, and the range ends at the next space after the start or at the end
// of the line.
func ErrorRange(line, column int, lines []string) Range {
	if len(lines) == 0 {
		lines = []string{""}
	}
	lineIdx := clamp(line-1, 0, len(lines)-1)
	text := []rune(lines[lineIdx])
	start := clamp(column-1, 0, len(text))
	end := len(text)
	for i := start; i < len(text); i++ {
		if text[i] == ' ' {
			end = i
			break
		}
	}
	return Range{
		Start: Position{Line: lineIdx, Character: start},
		End:   Position{Line: lineIdx, Character: end},
	}
}

// toParseErrors maps grammar errors onto the document text.
func toParseErrors(errs []ports.SyntaxError, lines []string) []ParseError {
	out := make([]ParseError, len(errs))
	for i, e := range errs {
		out[i] = ParseError{Message: e.Message, Range: ErrorRange(e.Line, e.Column, lines)}
	}
	return out
}

// LineStart returns the column of the first non-blank character, or the line
// length when the line is blank.
func LineStart(line string) int {
	for i, r := range []rune(line) {
		if r != ' ' && r != '\t' {
			return i
		}
	}
	return utf8.RuneCountInString(line)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
