package treesitter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unsafe"

	"github.com/ebitengine/purego"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// GrammarName is the base name of the C# grammar shared library and the
// suffix of its C entry point.
const GrammarName = "c_sharp"

// entryPoint is the C function returning the static TSLanguage.
const entryPoint = "tree_sitter_" + GrammarName

// DefaultGrammarPaths returns where lean builds look for the grammar: the
// workspace-local .specflow/grammars first, then ~/.specflow/grammars.
func DefaultGrammarPaths(workspaceRoot string) []string {
	var paths []string
	if workspaceRoot != "" {
		paths = append(paths, filepath.Join(workspaceRoot, ".specflow", "grammars"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".specflow", "grammars"))
	}
	return paths
}

// GrammarLibrary returns the file name of the grammar library on this
// platform: c_sharp.so, or c_sharp.dylib on macOS.
func GrammarLibrary() string {
	if runtime.GOOS == "darwin" {
		return GrammarName + ".dylib"
	}
	return GrammarName + ".so"
}

// FindGrammar returns the grammar library in the first directory of paths
// that holds one, or "".
func FindGrammar(paths []string) string {
	lib := GrammarLibrary()
	for _, dir := range paths {
		candidate := filepath.Join(dir, lib)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// loadGrammar opens the library found on paths and returns its language.
// The library stays mapped for the life of the process: trees parsed with
// the language point into it.
func loadGrammar(paths []string) (*tree_sitter.Language, error) {
	lib := FindGrammar(paths)
	if lib == "" {
		return nil, fmt.Errorf("C# grammar %s not found in %s", GrammarLibrary(), strings.Join(paths, ", "))
	}
	handle, err := purego.Dlopen(lib, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", lib, err)
	}
	sym, err := purego.Dlsym(handle, entryPoint)
	if err != nil {
		return nil, fmt.Errorf("%s: missing %s: %w", lib, entryPoint, err)
	}
	var language func() uintptr
	purego.RegisterFunc(&language, sym)

	ptr := language()
	if ptr == 0 {
		return nil, fmt.Errorf("%s: %s() returned null", lib, entryPoint)
	}
	// ptr is a static TSLanguage* owned by the library and never moved by
	// the Go GC.
	return tree_sitter.NewLanguage(*(*unsafe.Pointer)(unsafe.Pointer(&ptr))), nil
}
