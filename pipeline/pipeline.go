// Package pipeline chains feature blocks over one raw frame.
//
// Each Pipe builds (or fetches) one block's features against the frame
// accumulated so far and merges them in. FeaturesDF hands out the result and
// starts a new round from the raw frame.
package pipeline

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/featurino/feature"
	"github.com/on-the-ground/featurino/frame"
	"go.uber.org/zap"
)

// ErrDuplicatePipe is returned when a definition type is piped a second time.
var ErrDuplicatePipe = fmt.Errorf("feature block piped twice")

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger. Blocks inherit it unless cfg has its own.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics records every successful pipe in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

type Pipeline struct {
	cfg    feature.Config
	start  *frame.Frame
	all    *frame.Frame
	force  bool
	piped  map[reflect.Type]struct{}
	round  uuid.UUID
	steps  []StepReport
	logger *zap.Logger

	metrics *Metrics
}

// New starts a pipeline over a copy of raw. cfg is handed to every block the
// pipeline creates.
func New(raw *frame.Frame, cfg feature.Config, opts ...Option) *Pipeline {
	start := raw.Copy()
	p := &Pipeline{
		cfg:    cfg,
		start:  start,
		all:    start,
		piped:  make(map[reflect.Type]struct{}),
		round:  uuid.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.Logger == nil {
		p.cfg.Logger = p.logger
	}
	return p
}

// SetForceReload sets the force-reload default for blocks piped afterwards
// without their own override.
func (p *Pipeline) SetForceReload(force bool) *Pipeline {
	p.force = force
	return p
}

// Pipe merges the features of def into the accumulated frame.
//
// A definition type can be piped once per pipeline; FeaturesDF does not lift
// that restriction. On error the accumulated frame is left as it was.
func (p *Pipeline) Pipe(def feature.Definition, opts ...feature.BuildOption) error {
	key := reflect.TypeOf(def)
	if _, ok := p.piped[key]; ok {
		p.logger.Warn("tried to pipe a feature block twice",
			zap.String("block", feature.Name(def)),
			zap.Stringer("round", p.round),
		)
		return fmt.Errorf("%w: %s", ErrDuplicatePipe, feature.Name(def))
	}

	block, err := feature.NewBlock(def, p.cfg)
	if err != nil {
		return err
	}

	if !feature.HasForceReload(opts) {
		opts = append(slices.Clone(opts), feature.WithForceReload(p.force))
	}

	began := time.Now()
	out, err := block.BuildFeatures(p.all, opts...)
	if err != nil {
		return err
	}
	ended := time.Now()

	p.all = out
	p.piped[key] = struct{}{}

	step := newStepReport(p.round, block, out, began, ended)
	p.steps = append(p.steps, step)
	if p.metrics != nil {
		p.metrics.observe(step)
	}
	p.logger.Debug("piped feature block",
		zap.String("block", step.Block),
		zap.String("source", string(step.Source)),
		zap.Int("rows", step.Rows),
		zap.Duration("took", step.Duration()),
		zap.Stringer("round", p.round),
	)
	return nil
}

// MustPipe is Pipe for chained setup code; it panics on error.
func (p *Pipeline) MustPipe(def feature.Definition, opts ...feature.BuildOption) *Pipeline {
	if err := p.Pipe(def, opts...); err != nil {
		panic(err)
	}
	return p
}

// FeaturesDF returns the accumulated frame and starts a new round: the
// accumulated frame goes back to the raw frame and the force-reload default
// to false. Piped definition types stay registered.
func (p *Pipeline) FeaturesDF() *frame.Frame {
	result := p.all
	p.all = p.start
	p.force = false
	p.steps = nil
	p.round = uuid.New()
	return result
}

// Steps describes every block piped in the current round, in order.
func (p *Pipeline) Steps() []StepReport {
	return slices.Clone(p.steps)
}

// Round identifies the current round in logs and step reports.
func (p *Pipeline) Round() uuid.UUID {
	return p.round
}
