package storage

import (
	"errors"

	ristretto "github.com/dgraph-io/ristretto/v2"
	"github.com/on-the-ground/featurino/frame"
)

var _ Backend = (*Cached)(nil)

// DefaultCacheMaxCost bounds the decoded frames held by Cached, in bytes of cell text.
const DefaultCacheMaxCost = 64 << 20

// Cached puts a ristretto cache of decoded frames in front of another backend.
// Writes go through to the inner backend; Exists always asks the inner backend.
type Cached struct {
	inner Backend
	cache *ristretto.Cache[string, *frame.Frame]
}

func NewCached(inner Backend, maxCost int64) (*Cached, error) {
	if maxCost <= 0 {
		maxCost = DefaultCacheMaxCost
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, *frame.Frame]{
		NumCounters: 1e4,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Save(f *frame.Frame, location string) error {
	if err := c.inner.Save(f, location); err != nil {
		c.cache.Del(location)
		return err
	}
	c.set(location, f)
	return nil
}

func (c *Cached) Load(location string) (*frame.Frame, error) {
	if f, ok := c.cache.Get(location); ok {
		return f, nil
	}
	f, err := c.inner.Load(location)
	if err != nil {
		return nil, err
	}
	c.set(location, f)
	return f, nil
}

func (c *Cached) Exists(location string) (bool, error) {
	return c.inner.Exists(location)
}

// InMemory reports whether location is currently held by the cache.
func (c *Cached) InMemory(location string) bool {
	_, ok := c.cache.Get(location)
	return ok
}

func (c *Cached) set(location string, f *frame.Frame) {
	c.cache.Set(location, f, cost(f))
	c.cache.Wait()
}

func (c *Cached) Close() error {
	c.cache.Close()
	return Close(c.inner)
}

func cost(f *frame.Frame) int64 {
	var n int64
	for _, col := range f.Columns() {
		n += int64(len(col)) + 1
	}
	for i := 0; i < f.Len(); i++ {
		for _, cell := range f.Row(i) {
			n += int64(len(cell)) + 1
		}
	}
	return n
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
