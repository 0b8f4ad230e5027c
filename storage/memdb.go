package storage

import (
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/on-the-ground/featurino/frame"
)

var _ Backend = MemDB{}

const (
	memTable = "cache_entries"
	memIndex = "id"
)

type memEntry struct {
	Location string
	Frame    *frame.Frame
}

// MemDB keeps entries in an in-process go-memdb table. Entries live as long
// as the MemDB value; useful for tests and dry runs.
type MemDB struct {
	db *memdb.MemDB
}

func NewMemDB() (MemDB, error) {
	db, err := memdb.NewMemDB(&memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memTable: {
				Name: memTable,
				Indexes: map[string]*memdb.IndexSchema{
					memIndex: {
						Name:    memIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Location"},
					},
				},
			},
		},
	})
	if err != nil {
		return MemDB{}, err
	}
	return MemDB{db: db}, nil
}

// Save inserts or replaces the entry. Frames are immutable so the pointer is stored as is.
func (m MemDB) Save(f *frame.Frame, location string) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(memTable, &memEntry{Location: location, Frame: f}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (m MemDB) Load(location string) (*frame.Frame, error) {
	entry, err := m.first(location)
	if err != nil {
		return nil, err
	}
	return entry.Frame, nil
}

func (m MemDB) Exists(location string) (bool, error) {
	_, err := m.first(location)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (m MemDB) first(location string) (*memEntry, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memTable, memIndex, location)
	if err != nil {
		return nil, err
	} else if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	entry, ok := raw.(*memEntry)
	if !ok {
		return nil, fmt.Errorf("unexpected type: %T", raw)
	}
	return entry, nil
}
