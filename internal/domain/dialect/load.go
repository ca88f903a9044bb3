package dialect

import (
	"bufio"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// Load reads every <code>.txt resource in dir and builds a Table whose
// fallback is fallbackCode. Any malformed line, unknown keyword id or
// missing category is a DialectLoad error: the table is unusable without a
// complete keyword set.
func Load(fsys fs.FS, dir, fallbackCode string) (*Table, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, specerr.Wrap(specerr.DialectLoad, "read localization dir "+dir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var dialects []*Dialect
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		f, err := fsys.Open(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, specerr.Wrap(specerr.DialectLoad, "open "+entry.Name(), err)
		}
		code := strings.TrimSuffix(entry.Name(), ".txt")
		d, err := Parse(code, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		dialects = append(dialects, d)
	}
	return NewTable(fallbackCode, dialects...)
}

// NewTable assembles a table from parsed dialects. The fallback code must be
// among them.
func NewTable(fallbackCode string, dialects ...*Dialect) (*Table, error) {
	t := &Table{dialects: make(map[string]*Dialect, len(dialects))}
	for _, d := range dialects {
		t.dialects[normalizeCode(d.code)] = d
	}
	fb, ok := t.dialects[normalizeCode(fallbackCode)]
	if !ok {
		return nil, specerr.Newf(specerr.DialectLoad, "fallback dialect %q not found", fallbackCode)
	}
	t.fallback = fb
	return t, nil
}

// Parse reads one localization resource. Blank lines and lines starting with
// '#' are ignored.
func Parse(code string, r io.Reader) (*Dialect, error) {
	d := &Dialect{code: normalizeCode(code)}
	seen := make(map[Category]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, list, ok := strings.Cut(line, ";")
		if !ok {
			return nil, specerr.Newf(specerr.DialectLoad, "%s:%d: missing ';' separator", code, lineNo)
		}
		cat, known := categoryIDs[strings.TrimSpace(id)]
		if !known {
			return nil, specerr.Newf(specerr.DialectLoad, "%s:%d: %q is not a valid gherkin keyword", code, lineNo, id)
		}
		for _, kw := range strings.Split(list, ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" {
				d.keywords[cat] = append(d.keywords[cat], kw)
			}
		}
		if len(d.keywords[cat]) == 0 {
			return nil, specerr.Newf(specerr.DialectLoad, "%s:%d: %s has no keywords", code, lineNo, id)
		}
		seen[cat] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, specerr.Wrap(specerr.DialectLoad, "read "+code, err)
	}

	for c := Category(0); c < numCategories; c++ {
		if !seen[c] {
			return nil, specerr.Newf(specerr.DialectLoad, "%s: category %s missing", code, c)
		}
	}
	d.finalize()
	return d, nil
}
