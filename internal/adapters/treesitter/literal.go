package treesitter

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// decodeStringLiteral returns the value of a C# string literal node.
// Interpolated strings and anything else that is not a compile-time string
// report ok == false.
func decodeStringLiteral(kind, raw string) (string, bool) {
	switch kind {
	case "string_literal":
		return decodeRegular(raw)
	case "verbatim_string_literal":
		return decodeVerbatim(raw)
	case "raw_string_literal":
		return decodeRaw(raw)
	}
	return "", false
}

// decodeRegular handles "..." with backslash escapes and an optional u8
// suffix.
func decodeRegular(raw string) (string, bool) {
	raw = strings.TrimSuffix(raw, "u8")
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", false
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			i++
			continue
		}
		esc := body[i+1]
		i += 2
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'u', 'U', 'x':
			n := hexRunLength(body[i:], esc)
			r, err := strconv.ParseUint(body[i:i+n], 16, 32)
			if n == 0 || err != nil || !utf8.ValidRune(rune(r)) {
				b.WriteByte('\\')
				b.WriteByte(esc)
				continue
			}
			b.WriteRune(rune(r))
			i += n
		default:
			// \\ \" \' and unknown escapes yield the escaped character.
			b.WriteByte(esc)
		}
	}
	return b.String(), true
}

// hexRunLength returns how many hex digits the escape consumes: exactly 4
// for \u, exactly 8 for \U, 1 to 4 for \x.
func hexRunLength(s string, esc byte) int {
	want, exact := 4, true
	switch esc {
	case 'U':
		want = 8
	case 'x':
		exact = false
	}
	n := 0
	for n < want && n < len(s) && isHex(s[n]) {
		n++
	}
	if exact && n != want {
		return 0
	}
	return n
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// decodeVerbatim handles @"..." where "" stands for one quote.
func decodeVerbatim(raw string) (string, bool) {
	raw = strings.TrimSuffix(raw, "u8")
	if !strings.HasPrefix(raw, `@"`) || len(raw) < 3 || raw[len(raw)-1] != '"' {
		return "", false
	}
	return strings.ReplaceAll(raw[2:len(raw)-1], `""`, `"`), true
}

// decodeRaw handles """...""" raw literals. A multi-line raw literal drops
// its first and last line and removes the closing line's indentation from
// every content line.
func decodeRaw(raw string) (string, bool) {
	raw = strings.TrimSuffix(raw, "u8")
	n := 0
	for n < len(raw) && raw[n] == '"' {
		n++
	}
	if n < 3 || len(raw) < 2*n || strings.Repeat(`"`, n) != raw[len(raw)-n:] {
		return "", false
	}
	body := raw[n : len(raw)-n]
	if !strings.ContainsAny(body, "\r\n") {
		return body, true
	}
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return body, true
	}
	indent := lines[len(lines)-1]
	content := lines[1 : len(lines)-1]
	for i, l := range content {
		content[i] = strings.TrimPrefix(l, indent)
	}
	return strings.Join(content, "\n"), true
}
