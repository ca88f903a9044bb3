// Package workspace classifies documents and canonicalizes their paths.
// The set of document kinds is closed: every path is a feature file, a
// binding file, or ignored.
package workspace

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// DocKind is the closed set of document kinds the index tracks.
type DocKind int

const (
	KindIgnored DocKind = iota
	KindFeature
	KindBinding
)

func (k DocKind) String() string {
	switch k {
	case KindFeature:
		return "feature"
	case KindBinding:
		return "binding"
	}
	return "ignored"
}

// Classifier maps file extensions to document kinds.
type Classifier struct {
	exts map[string]DocKind
}

// NewClassifier builds a classifier. Extensions include the leading dot and
// are matched case-insensitively.
func NewClassifier(featureExts, bindingExts []string) Classifier {
	c := Classifier{exts: make(map[string]DocKind)}
	for _, e := range featureExts {
		c.exts[strings.ToLower(e)] = KindFeature
	}
	for _, e := range bindingExts {
		c.exts[strings.ToLower(e)] = KindBinding
	}
	return c
}

// KindOf returns the kind of path.
func (c Classifier) KindOf(path string) DocKind {
	return c.exts[strings.ToLower(filepath.Ext(path))]
}

var driveLetter = regexp.MustCompile(`^/[A-Za-z]:`)

// Canonicalize turns an editor URI or a file path into an absolute, cleaned
// path. "file://" URIs are percent-decoded.
func Canonicalize(pathOrURI string) (string, error) {
	p := pathOrURI
	if strings.HasPrefix(p, "file:") {
		u, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("parse uri %q: %w", pathOrURI, err)
		}
		p = u.Path
		if driveLetter.MatchString(p) {
			p = p[1:]
		}
	}
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(filepath.FromSlash(p))
	if err != nil {
		return "", fmt.Errorf("abs %q: %w", p, err)
	}
	return filepath.Clean(abs), nil
}

// URI converts a canonical path to a file URI.
func URI(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}
