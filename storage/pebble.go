package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/on-the-ground/featurino/frame"
)

var _ Backend = (*Pebble)(nil)

// Pebble keeps every entry as CSV bytes in a pebble store keyed by location.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the pebble store in dir.
func OpenPebble(dir string) (*Pebble, error) {
	if dir == "" {
		return nil, fmt.Errorf("pebble backend needs a directory")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db %s: %w", dir, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Save(f *frame.Frame, location string) error {
	data, err := encodeBytes(f)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(location), data, pebble.Sync)
}

func (p *Pebble) Load(location string) (*frame.Frame, error) {
	val, closer, err := p.db.Get([]byte(location))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	return Decode(bytes.NewReader(val))
}

func (p *Pebble) Exists(location string) (bool, error) {
	_, closer, err := p.db.Get([]byte(location))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
