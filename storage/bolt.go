package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/on-the-ground/featurino/frame"
	bolt "go.etcd.io/bbolt"
)

var _ Backend = (*Bolt)(nil)

var defaultBucket = []byte("features")

// Bolt keeps every entry as CSV bytes in a single bolt bucket keyed by location.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) the bolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt backend needs a file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}
	b, err := NewBolt(db, defaultBucket)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewBolt uses an already opened db. The bucket is created if missing.
func NewBolt(db *bolt.DB, bucket []byte) (*Bolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

func (b *Bolt) Save(f *frame.Frame, location string) error {
	data, err := encodeBytes(f)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(location), data)
	})
}

func (b *Bolt) Load(location string) (f *frame.Frame, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(b.bucket).Get([]byte(location))
		if val == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		// val is only valid inside the transaction; Decode copies it out.
		f, err = Decode(bytes.NewReader(val))
		return err
	})
	return
}

func (b *Bolt) Exists(location string) (exists bool, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(b.bucket).Get([]byte(location)) != nil
		return nil
	})
	return
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
