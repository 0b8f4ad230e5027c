package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/on-the-ground/featurino/frame"
)

var _ Backend = CSV{}

// CSV keeps every entry in its own file at the location path.
type CSV struct{}

func NewCSV() CSV {
	return CSV{}
}

// Save creates the parent directory if needed, writes to a temporary sibling
// file and renames it over location, so readers never see a half-written entry.
func (CSV) Save(f *frame.Frame, location string) (err error) {
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", location, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(location), "."+filepath.Base(location)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, f); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", location, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), location); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

func (CSV) Load(location string) (*frame.Frame, error) {
	file, err := os.Open(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	} else if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return f, nil
}

// Exists is true only for a regular file at location.
func (CSV) Exists(location string) (bool, error) {
	info, err := os.Stat(location)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
