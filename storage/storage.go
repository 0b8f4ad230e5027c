// Package storage persists feature frames under a location key.
//
// Every backend stores one frame per location and overwrites on Save. The
// location of a block's cache entry is derived with CachePath, so the CSV
// backend writes real files there and the key/value backends use it as a key.
package storage

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/on-the-ground/featurino/frame"
)

var (
	// ErrNotFound is returned by Load when nothing was saved under the location.
	ErrNotFound = fmt.Errorf("cache entry not found")

	ErrUnknownBackend = fmt.Errorf("unknown storage backend")
)

// Backend saves and loads frames by location.
type Backend interface {
	// Save writes f under location, creating or overwriting the entry.
	Save(f *frame.Frame, location string) error
	// Load reads back the frame saved under location. ErrNotFound if absent.
	Load(location string) (*frame.Frame, error)
	// Exists reports whether an entry is saved under location.
	Exists(location string) (bool, error)
}

const cacheSuffix = "_features_cache.csv"

// CachePath returns the location of the cache entry for a block prefix.
func CachePath(dataDir, prefix string) string {
	return filepath.Join(dataDir, prefix+cacheSuffix)
}

// Kind names a backend implementation in configuration.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindBolt   Kind = "bolt"
	KindPebble Kind = "pebble"
	KindMemDB  Kind = "memdb"
)

// Open builds a backend of the given kind. path is the bolt file or pebble
// directory and is ignored by the csv and memdb backends.
func Open(kind Kind, path string) (Backend, error) {
	switch kind {
	case KindCSV, "":
		return NewCSV(), nil
	case KindBolt:
		return OpenBolt(path)
	case KindPebble:
		return OpenPebble(path)
	case KindMemDB:
		return NewMemDB()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// Close releases the backend if it holds resources.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
