// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// BindingCache persists per-file binding extraction results so a restart does
// not re-parse unchanged C# files. Entries are keyed by canonical path and
// validated by a content hash: a lookup with a different hash is a miss.
//
// Crash safety: SaveSymbols must be transactional. A crash mid-write must not
// corrupt previously committed entries.
type BindingCache interface {
	// LoadSymbols returns the cached extraction for path when the stored hash
	// equals hash. ok is false on a miss.
	LoadSymbols(path string, hash uint64) (syms *FileSymbols, ok bool, err error)

	// SaveSymbols stores a batch of entries in one transaction, replacing
	// prior entries for the same paths.
	SaveSymbols(entries map[string]CachedSymbols) error

	// DeleteSymbols removes the entries for paths. Deleting a missing entry
	// is not an error.
	DeleteSymbols(paths ...string) error

	// Close releases the underlying database.
	Close() error
}

// CachedSymbols is one cache entry: an extraction and the hash of the source
// it was extracted from.
type CachedSymbols struct {
	Hash    uint64       `json:"hash"`
	Symbols *FileSymbols `json:"symbols"`
}
