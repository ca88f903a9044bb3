package treesitter

import (
	"bytes"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ComputeEdit describes the change from old to updated as a single replaced
// region: the bytes between their common prefix and common suffix. Editors
// send whole documents, so this recovers the edit tree-sitter needs to reuse
// the unchanged parts of the previous tree.
func ComputeEdit(old, updated []byte) tree_sitter.InputEdit {
	limit := min(len(old), len(updated))
	prefix := 0
	for prefix < limit && old[prefix] == updated[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < limit-prefix && old[len(old)-1-suffix] == updated[len(updated)-1-suffix] {
		suffix++
	}
	oldEnd := len(old) - suffix
	newEnd := len(updated) - suffix
	return tree_sitter.InputEdit{
		StartByte:      uint(prefix),
		OldEndByte:     uint(oldEnd),
		NewEndByte:     uint(newEnd),
		StartPosition:  pointAt(old, prefix),
		OldEndPosition: pointAt(old, oldEnd),
		NewEndPosition: pointAt(updated, newEnd),
	}
}

// pointAt converts a byte offset into a row and byte column.
func pointAt(src []byte, offset int) tree_sitter.Point {
	head := src[:offset]
	row := bytes.Count(head, []byte{'\n'})
	col := offset
	if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
		col = offset - i - 1
	}
	return tree_sitter.Point{Row: uint(row), Column: uint(col)}
}
