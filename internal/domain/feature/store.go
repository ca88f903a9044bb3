// Package feature is the feature document store: it owns every known
// feature file, its latest parse, and the step occurrences derived from it.
//
// A Store is not safe for concurrent use. The coordinator owns it and calls
// it from a single goroutine.
package feature

import (
	"log/slog"
	"sort"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// Store holds all known feature files keyed by canonical path.
type Store struct {
	parser   ports.FeatureParser
	dialects *dialect.Table
	log      *slog.Logger

	files   map[string]*File
	version uint64
}

// NewStore creates an empty store.
func NewStore(parser ports.FeatureParser, dialects *dialect.Table, log *slog.Logger) *Store {
	return &Store{
		parser:   parser,
		dialects: dialects,
		log:      log,
		files:    make(map[string]*File),
	}
}

// ApplyChange records text as the open buffer of path and re-parses it.
// Paths are expected in canonical form (see workspace.Canonicalize).
// The returned errors are empty on success. After a failed parse the file
// contributes no steps until it parses again.
func (s *Store) ApplyChange(path, text string) []ParseError {
	f := s.file(path)
	buf := text
	f.buffer = &buf
	return s.reparse(f, text)
}

// Index records text read from disk for path. An open buffer wins over disk
// content: for open files only the disk copy is updated and no parse runs.
func (s *Store) Index(path, text string) []ParseError {
	f := s.file(path)
	f.diskText = text
	if f.IsOpen() {
		return f.errors
	}
	return s.reparse(f, text)
}

// Close drops the open buffer of path. The last parse is kept.
func (s *Store) Close(path string) error {
	f, ok := s.files[path]
	if !ok {
		return specerr.New(specerr.UnknownDocument, path)
	}
	f.buffer = nil
	s.version++
	return nil
}

// Remove forgets path. Open files stay known: the editor buffer still exists.
func (s *Store) Remove(path string) bool {
	f, ok := s.files[path]
	if !ok {
		return false
	}
	if f.IsOpen() {
		f.diskText = ""
		return false
	}
	delete(s.files, path)
	s.version++
	return true
}

// Rename re-keys oldPath to newPath in one step. Returns false when oldPath
// is unknown, in which case the caller should index newPath from disk.
func (s *Store) Rename(oldPath, newPath string) bool {
	f, ok := s.files[oldPath]
	if !ok {
		return false
	}
	delete(s.files, oldPath)
	f.Path = newPath
	f.steps = nil
	s.files[newPath] = f
	s.version++
	return true
}

// Get returns the file at path.
func (s *Store) Get(path string) (*File, bool) {
	f, ok := s.files[path]
	return f, ok
}

// LanguageOf resolves the dialect declared by the file's "#language:"
// directive. Missing or unknown codes resolve to the fallback dialect.
func (s *Store) LanguageOf(path string) (*dialect.Dialect, error) {
	f, ok := s.files[path]
	if !ok {
		return nil, specerr.New(specerr.UnknownDocument, path)
	}
	return s.dialects.Resolve(LanguageTag(f.lines)), nil
}

// LinesOf returns the current text of path split into lines.
func (s *Store) LinesOf(path string) ([]string, error) {
	f, ok := s.files[path]
	if !ok {
		return nil, specerr.New(specerr.UnknownDocument, path)
	}
	return f.lines, nil
}

// AllStepOccurrences returns every step deduplicated by text. Files are
// visited in path order and the first occurrence of each text is kept.
// Completion filters Occurrences itself, since it must drop the line being
// edited before deduplicating; this is the listing form.
func (s *Store) AllStepOccurrences() []StepOccurrence {
	return DistinctText(s.Occurrences())
}

// Occurrences returns every step of every file without deduplication.
func (s *Store) Occurrences() []StepOccurrence {
	var out []StepOccurrence
	for _, path := range s.Paths() {
		out = append(out, s.files[path].Steps()...)
	}
	return out
}

// StepAt returns the step starting on line (0-based) of path.
func (s *Store) StepAt(path string, line int) (StepOccurrence, bool, error) {
	f, ok := s.files[path]
	if !ok {
		return StepOccurrence{}, false, specerr.New(specerr.UnknownDocument, path)
	}
	for _, st := range f.Steps() {
		if st.Range.Start.Line == line {
			return st, true, nil
		}
	}
	return StepOccurrence{}, false, nil
}

// Paths returns all known paths, sorted.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of known files.
func (s *Store) Len() int { return len(s.files) }

// Version increments on every mutation.
func (s *Store) Version() uint64 { return s.version }

// Stats summarizes the store.
type Stats struct {
	Files  int `json:"files"`
	Open   int `json:"open"`
	Failed int `json:"failed"`
	Steps  int `json:"steps"`
}

// Stats counts files and steps.
func (s *Store) Stats() Stats {
	var st Stats
	for _, f := range s.files {
		st.Files++
		if f.IsOpen() {
			st.Open++
		}
		if !f.Parsed() {
			st.Failed++
		}
		st.Steps += len(f.Steps())
	}
	return st
}

func (s *Store) file(path string) *File {
	f, ok := s.files[path]
	if !ok {
		f = &File{Path: path}
		s.files[path] = f
	}
	return f
}

func (s *Store) reparse(f *File, text string) []ParseError {
	lines := SplitLines(text)
	doc, errs := s.parser.Parse(text)
	s.version++
	if len(errs) > 0 {
		parsed := toParseErrors(errs, lines)
		f.replace(lines, nil, parsed)
		s.log.Debug("feature parse failed", "path", f.Path, "errors", len(parsed))
		return parsed
	}
	if doc == nil {
		doc = &ports.FeatureDocument{}
	}
	f.replace(lines, doc, nil)
	return nil
}
