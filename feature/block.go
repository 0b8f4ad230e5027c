package feature

import (
	"fmt"
	"slices"

	"github.com/on-the-ground/featurino/frame"
	"github.com/on-the-ground/featurino/storage"
	"go.uber.org/zap"
)

// BuildOption adjusts a single BuildFeatures call.
type BuildOption func(*buildOptions)

type buildOptions struct {
	forceReload *bool
}

// WithForceReload overrides Config.ForceReload for one call.
func WithForceReload(force bool) BuildOption {
	return func(o *buildOptions) {
		o.forceReload = &force
	}
}

// HasForceReload reports whether opts already carry a force-reload override.
func HasForceReload(opts []BuildOption) bool {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.forceReload != nil
}

// Block owns the caches of one Definition.
type Block struct {
	def     Definition
	name    string
	prefix  string
	dataDir string
	mergeOn []string
	force   bool
	backend storage.Backend
	logger  *zap.Logger

	// cached holds the last features this instance built or loaded.
	cached *frame.Frame
	source Source
}

// NewBlock validates def and cfg and returns a block with an empty in-memory slot.
func NewBlock(def Definition, cfg Config) (*Block, error) {
	if err := validate(def, cfg); err != nil {
		return nil, err
	}
	backend := cfg.Backend
	if backend == nil {
		backend = storage.NewCSV()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := Name(def)
	return &Block{
		def:     def,
		name:    name,
		prefix:  def.Prefix(),
		dataDir: cfg.DataDir,
		mergeOn: slices.Clone(cfg.MergeOn),
		force:   cfg.ForceReload,
		backend: backend,
		logger:  logger.With(zap.String("block", name), zap.String("prefix", def.Prefix())),
	}, nil
}

func (b *Block) Name() string      { return b.name }
func (b *Block) Prefix() string    { return b.prefix }
func (b *Block) CachePath() string { return storage.CachePath(b.dataDir, b.prefix) }

// Source reports which branch the last successful BuildFeatures call took.
func (b *Block) Source() Source { return b.source }

// BuildFeatures returns df joined with this block's features on the merge key.
//
// Features are computed when forced or when no cache entry exists, taken
// from memory when this instance already holds them, and loaded from the
// backend otherwise. df itself is never modified.
func (b *Block) BuildFeatures(df *frame.Frame, opts ...BuildOption) (*frame.Frame, error) {
	o := buildOptions{forceReload: &b.force}
	for _, opt := range opts {
		opt(&o)
	}

	onDisk, err := b.backend.Exists(b.CachePath())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to check cache: %w", b.name, err)
	}

	var (
		features *frame.Frame
		source   Source
	)
	switch {
	case *o.forceReload || !onDisk:
		if features, err = b.build(df); err != nil {
			return nil, err
		}
		source = SourceBuilt
		b.logger.Info("features have been calculated", zap.Int("rows", features.Len()))
	case !b.cached.Empty():
		features, source = b.cached, SourceMemory
		b.logger.Info("using in-memory features", zap.Int("rows", features.Len()))
	default:
		if features, err = b.load(); err != nil {
			return nil, err
		}
		source = SourceLoaded
		b.logger.Info("loaded features from cache", zap.Int("rows", features.Len()), zap.String("path", b.CachePath()))
	}

	b.cached, b.source = features, source

	merged, err := frame.InnerJoin(df, features, b.mergeOn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to merge features: %w", b.name, err)
	}
	return merged, nil
}

func (b *Block) build(df *frame.Frame) (*frame.Frame, error) {
	computed, err := b.def.ComputeFeatures(df, slices.Clone(b.mergeOn))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to compute features: %w", b.name, err)
	}
	if computed.Empty() {
		return nil, fmt.Errorf("%s: %w", b.name, ErrEmptyFeatures)
	}
	if missing := computed.Missing(b.mergeOn...); len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %v", b.name, ErrMissingMergeKey, missing)
	}
	prefixed, err := b.prefixColumns(computed)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to prefix columns: %w", b.name, err)
	}
	if err := b.save(prefixed); err != nil {
		return nil, err
	}
	return prefixed, nil
}

// prefixColumns renames every non merge-key column to <prefix>__<name>.
func (b *Block) prefixColumns(f *frame.Frame) (*frame.Frame, error) {
	names := make(map[string]string, f.Width())
	for _, c := range f.Columns() {
		if !slices.Contains(b.mergeOn, c) {
			names[c] = b.prefix + Separator + c
		}
	}
	return f.Rename(names)
}

func (b *Block) save(f *frame.Frame) error {
	if f.Empty() {
		return fmt.Errorf("%s: %w", b.name, ErrEmptyFeatures)
	}
	if err := b.backend.Save(f, b.CachePath()); err != nil {
		return fmt.Errorf("%s: failed to save features: %w", b.name, err)
	}
	return nil
}

func (b *Block) load() (*frame.Frame, error) {
	if ok, err := b.backend.Exists(b.CachePath()); err != nil {
		return nil, fmt.Errorf("%s: failed to check cache: %w", b.name, err)
	} else if !ok {
		return nil, fmt.Errorf("%s: %w: %s", b.name, ErrCacheMissing, b.CachePath())
	}
	f, err := b.backend.Load(b.CachePath())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load features: %w", b.name, err)
	}
	return f, nil
}
