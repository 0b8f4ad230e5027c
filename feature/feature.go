// Package feature computes, caches and merges one logical group of derived columns.
//
// A Definition supplies the computation; a Block wraps it with two cache
// layers, an in-process slot and a durable storage entry at
// storage.CachePath(dataDir, prefix). Every non-key column a definition
// returns is stored and merged as <prefix>__<name>.
package feature

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/on-the-ground/featurino/frame"
	"github.com/on-the-ground/featurino/storage"
	"go.uber.org/zap"
)

var (
	// ErrEmptyFeatures is returned when a computation produced no rows or no columns.
	ErrEmptyFeatures = fmt.Errorf("computed features are empty, build your features first")

	// ErrCacheMissing means a load was attempted without a cache entry.
	// BuildFeatures checks availability first, so seeing it points at a bug
	// or at the entry being removed underneath the block.
	ErrCacheMissing = fmt.Errorf("can't find cache entry")

	// ErrMissingMergeKey is returned when computed features lack a merge-key column.
	ErrMissingMergeKey = fmt.Errorf("computed features lack merge key columns")

	// ErrInvalidDefinition is returned by NewBlock for an unusable definition or config.
	ErrInvalidDefinition = fmt.Errorf("invalid feature definition")
)

// Separator joins a block prefix and a computed column name.
const Separator = "__"

// Definition is the computation step of a feature block.
//
// ComputeFeatures must be a pure function of df; caching is the block's job.
// Its result must hold every mergeOn column plus the new feature columns.
// Per-block parameters belong in the fields of the implementing type.
type Definition interface {
	// Prefix namespaces the block's columns and names its cache entry.
	// It must be stable across runs.
	Prefix() string
	ComputeFeatures(df *frame.Frame, mergeOn []string) (*frame.Frame, error)
}

// Name returns the type name of a definition, used in logs and errors.
func Name(def Definition) string {
	t := reflect.TypeOf(def)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Config holds the construction parameters every block of a pipeline shares.
type Config struct {
	// DataDir is where cache entries live.
	DataDir string
	// MergeOn is the column set joining features back to the input frame.
	MergeOn []string
	// ForceReload recomputes features even if a cache entry exists.
	ForceReload bool
	// Backend persists cache entries. Nil means a new storage.CSV per block.
	Backend storage.Backend
	Logger  *zap.Logger
}

// Source tells which branch produced a block's features.
type Source string

const (
	SourceNone   Source = ""
	SourceBuilt  Source = "built"
	SourceMemory Source = "memory"
	SourceLoaded Source = "loaded"
)

func validate(def Definition, cfg Config) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	prefix := def.Prefix()
	if prefix == "" {
		return fmt.Errorf("%w: %s has an empty prefix", ErrInvalidDefinition, Name(def))
	}
	if strings.ContainsAny(prefix, `/\`) {
		return fmt.Errorf("%w: prefix %q contains a path separator", ErrInvalidDefinition, prefix)
	}
	if len(cfg.MergeOn) == 0 {
		return fmt.Errorf("%w: no merge key columns", ErrInvalidDefinition)
	}
	return nil
}
