// Binary framing for cached binding extractions.
//
// Entry format:
//
//	version: uint8
//	hash:    uint64 (little-endian)
//	payload: gob-encoded ports.FileSymbols
//
// The hash sits in a fixed header so a lookup can reject a stale entry
// without decoding the payload.
package bbolt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/ports"
)

// entryVersion is bumped whenever ports.FileSymbols changes shape. Entries of
// another version read as misses.
const entryVersion = 1

// headerSize is the byte size of the version byte plus the hash.
const headerSize = 1 + 8

func encodeEntry(e ports.CachedSymbols) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + 256)
	var header [headerSize]byte
	header[0] = entryVersion
	binary.LittleEndian.PutUint64(header[1:], e.Hash)
	buf.Write(header[:])

	syms := e.Symbols
	if syms == nil {
		syms = &ports.FileSymbols{}
	}
	if err := gob.NewEncoder(&buf).Encode(syms); err != nil {
		return nil, fmt.Errorf("encode symbols: %w", err)
	}
	return buf.Bytes(), nil
}

// entryHash reads the header of an encoded entry. ok is false for a short or
// foreign-version entry.
func entryHash(data []byte) (hash uint64, ok bool) {
	if len(data) < headerSize || data[0] != entryVersion {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[1:headerSize]), true
}

func decodeEntry(data []byte) (*ports.FileSymbols, error) {
	if _, ok := entryHash(data); !ok {
		return nil, fmt.Errorf("decode symbols: bad header")
	}
	var syms ports.FileSymbols
	if err := gob.NewDecoder(bytes.NewReader(data[headerSize:])).Decode(&syms); err != nil {
		return nil, fmt.Errorf("decode symbols: %w", err)
	}
	return &syms, nil
}
