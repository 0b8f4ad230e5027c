package pipeline_test

import (
	"os"
	"testing"

	"github.com/on-the-ground/featurino/feature"
	"github.com/on-the-ground/featurino/features/iris"
	"github.com/on-the-ground/featurino/frame"
	"github.com/on-the-ground/featurino/log"
	"github.com/on-the-ground/featurino/pipeline"
	"github.com/on-the-ground/featurino/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func rawIris() *frame.Frame {
	return frame.MustNew(
		[]string{"id", "sepal_length", "petal_length"},
		[][]string{
			{"1", "5.1", "1.4"},
			{"2", "4.9", "1.3"},
			{"3", "6.3", "4.9"},
		},
	)
}

func rawIrisWithWidths() *frame.Frame {
	return frame.MustNew(
		[]string{"id", "sepal_length", "petal_length", "sepal_width", "petal_width"},
		[][]string{
			{"1", "5.1", "1.4", "3.5", "0.2"},
			{"2", "4.9", "1.3", "3", "0.2"},
			{"3", "6.3", "4.9", "3.3", "1.6"},
		},
	)
}

// squares multiplies at run time; constant folding would be exact and differ
// from float64 arithmetic.
func squares(vals ...float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v * v
	}
	return out
}

func config(dir string) feature.Config {
	return feature.Config{DataDir: dir, MergeOn: []string{"id"}}
}

// counting wraps a definition and counts computations.
type counting struct {
	feature.Definition
	calls *int
}

func (c counting) ComputeFeatures(df *frame.Frame, mergeOn []string) (*frame.Frame, error) {
	*c.calls++
	return c.Definition.ComputeFeatures(df, mergeOn)
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	p := pipeline.New(rawIris(), config(dir), pipeline.WithLogger(log.NewTest()))

	require.NoError(t, p.Pipe(iris.Lengths{}))
	out := p.FeaturesDF()

	assert.Equal(t,
		[]string{"id", "sepal_length", "petal_length", "lengths__sepal_squared", "lengths__petal_squared"},
		out.Columns(),
	)
	sepal, err := out.Floats("lengths__sepal_squared")
	require.NoError(t, err)
	petal, err := out.Floats("lengths__petal_squared")
	require.NoError(t, err)
	assert.Equal(t, squares(5.1, 4.9, 6.3), sepal)
	assert.Equal(t, squares(1.4, 1.3, 4.9), petal)

	path := storage.CachePath(dir, "lengths")
	require.FileExists(t, path)
	cached, err := storage.NewCSV().Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "lengths__sepal_squared", "lengths__petal_squared"}, cached.Columns())
	assert.Equal(t, 3, cached.Len())
}

func TestPipeline_ChainsBlocks(t *testing.T) {
	p := pipeline.New(rawIrisWithWidths(), config(t.TempDir()))

	out := p.MustPipe(iris.Lengths{}).MustPipe(iris.Widths{}).FeaturesDF()

	assert.Equal(t, []string{
		"id", "sepal_length", "petal_length", "sepal_width", "petal_width",
		"lengths__sepal_squared", "lengths__petal_squared", "widths__sepal_plus_petal",
	}, out.Columns())
	sums, err := out.Floats("widths__sepal_plus_petal")
	require.NoError(t, err)
	assert.Equal(t, []float64{3.7, 3.2, 4.9}, sums)
}

func TestPipeline_DuplicatePipeRejected(t *testing.T) {
	dir := t.TempDir()
	once := pipeline.New(rawIris(), config(dir))
	require.NoError(t, once.Pipe(iris.Lengths{}))
	want := once.FeaturesDF()

	core, logs := observer.New(zapcore.InfoLevel)
	p := pipeline.New(rawIris(), config(dir), pipeline.WithLogger(zap.New(core)))

	require.NoError(t, p.Pipe(iris.Lengths{}))
	steps := p.Steps()

	err := p.Pipe(iris.Lengths{CustomParam: "other"})
	assert.ErrorIs(t, err, pipeline.ErrDuplicatePipe)
	assert.Equal(t, 1, logs.FilterMessage("tried to pipe a feature block twice").Len())
	assert.Equal(t, steps, p.Steps())

	out := p.FeaturesDF()
	assert.True(t, want.Equal(out), "got %v", out)
	assert.Equal(t, want.Fingerprint(), out.Fingerprint())
}

func TestPipeline_FeaturesDFResetsRound(t *testing.T) {
	dir := t.TempDir()
	raw := rawIrisWithWidths()
	p := pipeline.New(raw, config(dir))

	round := p.Round()
	require.NoError(t, p.Pipe(iris.Lengths{}))
	first := p.FeaturesDF()
	assert.Equal(t, 7, first.Width())
	assert.NotEqual(t, round, p.Round())
	assert.Empty(t, p.Steps())

	require.NoError(t, p.Pipe(iris.Widths{}))
	second := p.FeaturesDF()
	assert.Equal(t, append(raw.Columns(), "widths__sepal_plus_petal"), second.Columns(),
		"second round must start from the raw frame")

	// nothing piped: the raw frame comes back
	assert.True(t, raw.Equal(p.FeaturesDF()))
}

func TestPipeline_RegistryIsNotClearedByFeaturesDF(t *testing.T) {
	p := pipeline.New(rawIris(), config(t.TempDir()))

	require.NoError(t, p.Pipe(iris.Lengths{}))
	p.FeaturesDF()

	err := p.Pipe(iris.Lengths{})
	assert.ErrorIs(t, err, pipeline.ErrDuplicatePipe)
	assert.True(t, rawIris().Equal(p.FeaturesDF()))
}

func TestPipeline_ForceReloadDefault(t *testing.T) {
	dir := t.TempDir()
	calls := 0

	// warm the cache
	require.NoError(t, pipeline.New(rawIris(), config(dir)).Pipe(counting{iris.Lengths{}, &calls}))
	require.Equal(t, 1, calls)

	// cached: no computation
	p := pipeline.New(rawIris(), config(dir))
	require.NoError(t, p.Pipe(counting{iris.Lengths{}, &calls}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, feature.SourceLoaded, p.Steps()[0].Source)

	// forced through the pipeline default
	p = pipeline.New(rawIris(), config(dir)).SetForceReload(true)
	require.NoError(t, p.Pipe(counting{iris.Lengths{}, &calls}))
	assert.Equal(t, 2, calls)
	assert.Equal(t, feature.SourceBuilt, p.Steps()[0].Source)

	// a call-level override wins over the pipeline default
	p = pipeline.New(rawIris(), config(dir)).SetForceReload(true)
	require.NoError(t, p.Pipe(counting{iris.Lengths{}, &calls}, feature.WithForceReload(false)))
	assert.Equal(t, 2, calls)

	// FeaturesDF puts the default back to false
	p = pipeline.New(rawIrisWithWidths(), config(dir)).SetForceReload(true)
	p.FeaturesDF()
	require.NoError(t, p.Pipe(counting{iris.Lengths{}, &calls}))
	assert.Equal(t, 2, calls)
}

func TestPipeline_FailedPipeLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	// no sepal_width column: Widths cannot compute
	p := pipeline.New(rawIris(), config(dir))

	err := p.Pipe(iris.Widths{})
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
	assert.Empty(t, p.Steps())
	assert.NoFileExists(t, storage.CachePath(dir, "widths"))

	// the failed type is not registered, so piping it again fails the same way
	err = p.Pipe(iris.Widths{})
	assert.ErrorIs(t, err, frame.ErrMissingColumn)

	assert.True(t, rawIris().Equal(p.FeaturesDF()))
}

func TestPipeline_CopiesRawFrame(t *testing.T) {
	raw := rawIris()
	p := pipeline.New(raw, config(t.TempDir()))
	require.NoError(t, p.Pipe(iris.Lengths{}))
	p.FeaturesDF()

	assert.True(t, rawIris().Equal(raw))
}

func TestPipeline_StepReports(t *testing.T) {
	p := pipeline.New(rawIrisWithWidths(), config(t.TempDir()))
	p.MustPipe(iris.Lengths{}).MustPipe(iris.Widths{})

	steps := p.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "Lengths", steps[0].Block)
	assert.Equal(t, "lengths", steps[0].Prefix)
	assert.Equal(t, "widths", steps[1].Prefix)
	for _, s := range steps {
		assert.Equal(t, p.Round(), s.Round)
		assert.Equal(t, feature.SourceBuilt, s.Source)
		assert.Equal(t, 3, s.Rows)
		assert.GreaterOrEqual(t, s.Duration().Nanoseconds(), int64(0))
	}

	out := p.FeaturesDF()
	assert.Equal(t, out.Fingerprint(), steps[1].Fingerprint)
}

func TestPipeline_SharedBackend(t *testing.T) {
	mem, err := storage.NewMemDB()
	require.NoError(t, err)
	cfg := feature.Config{MergeOn: []string{"id"}, Backend: mem}
	calls := 0

	require.NoError(t, pipeline.New(rawIris(), cfg).Pipe(counting{iris.Lengths{}, &calls}))
	require.NoError(t, pipeline.New(rawIris(), cfg).Pipe(counting{iris.Lengths{}, &calls}))
	assert.Equal(t, 1, calls)

	_, err = os.Stat(storage.CachePath("", "lengths"))
	assert.True(t, os.IsNotExist(err), "memdb backend must not touch the filesystem")
}

func TestPipeline_MustPipePanics(t *testing.T) {
	p := pipeline.New(rawIris(), config(t.TempDir()))
	p.MustPipe(iris.Lengths{})
	assert.Panics(t, func() { p.MustPipe(iris.Lengths{}) })
}
