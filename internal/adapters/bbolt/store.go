// Package bbolt implements the ports.BindingCache interface using bbolt
// (embedded B+ tree). Every workspace has its own database file; one bucket
// maps canonical binding file paths to their framed extraction. Writes are
// transactional: a crash mid-write cannot corrupt previously committed data.
package bbolt

import (
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// Bucket keys
var (
	bucketSymbols = []byte("symbols")
)

// Store implements ports.BindingCache backed by bbolt.
type Store struct {
	db *bolt.DB
}

var _ ports.BindingCache = (*Store)(nil)

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSymbols returns the cached extraction for path when its stored hash
// matches. An entry with another hash, or of an older format, is a miss.
func (s *Store) LoadSymbols(path string, hash uint64) (*ports.FileSymbols, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSymbols)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(path))
		if stored, ok := entryHash(v); !ok || stored != hash {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	syms, err := decodeEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	return syms, true, nil
}

// SaveSymbols writes a batch of entries in one transaction. Keys are written
// in sorted order, which keeps bbolt page splits cheap.
func (s *Store) SaveSymbols(entries map[string]ports.CachedSymbols) error {
	if len(entries) == 0 {
		return nil
	}
	paths := make([]string, 0, len(entries))
	encoded := make(map[string][]byte, len(entries))
	for path, e := range entries {
		data, err := encodeEntry(e)
		if err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
		encoded[path] = data
	}
	sort.Strings(paths)

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSymbols)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if err := b.Put([]byte(path), encoded[path]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSymbols removes the entries for paths.
// Idempotent: deleting a missing entry is not an error.
func (s *Store) DeleteSymbols(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSymbols)
		if b == nil {
			return nil
		}
		for _, path := range paths {
			if err := b.Delete([]byte(path)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Paths lists the cached paths in key order.
func (s *Store) Paths() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSymbols)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

// Prune deletes every cached entry whose path keep rejects and returns how
// many were removed. The startup scan uses it to drop files that vanished
// while the daemon was down.
func (s *Store) Prune(keep func(path string) bool) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSymbols)
		if b == nil {
			return nil
		}
		var stale [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			if !keep(string(k)) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
