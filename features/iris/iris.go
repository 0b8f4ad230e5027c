// Package iris holds two small feature blocks over the iris flower dataset.
// They exist to show how definitions are written, not for their meaning.
package iris

import (
	"github.com/on-the-ground/featurino/feature"
	"github.com/on-the-ground/featurino/frame"
	"go.uber.org/zap"
)

var (
	_ feature.Definition = Lengths{}
	_ feature.Definition = Widths{}
)

// Lengths squares the sepal and petal lengths.
type Lengths struct {
	// CustomParam is only reported; it shows where per-block parameters go.
	CustomParam string
	Logger      *zap.Logger
}

func (Lengths) Prefix() string { return "lengths" }

func (l Lengths) ComputeFeatures(df *frame.Frame, mergeOn []string) (*frame.Frame, error) {
	if l.CustomParam != "" && l.Logger != nil {
		l.Logger.Info("computing lengths features", zap.String("custom_param", l.CustomParam))
	}

	sepal, err := df.Floats("sepal_length")
	if err != nil {
		return nil, err
	}
	petal, err := df.Floats("petal_length")
	if err != nil {
		return nil, err
	}

	out, err := df.Select(mergeOn...)
	if err != nil {
		return nil, err
	}
	if out, err = out.WithFloatColumn("sepal_squared", mul(sepal, sepal)); err != nil {
		return nil, err
	}
	return out.WithFloatColumn("petal_squared", mul(petal, petal))
}

// Widths adds the sepal and petal widths.
type Widths struct{}

func (Widths) Prefix() string { return "widths" }

func (Widths) ComputeFeatures(df *frame.Frame, mergeOn []string) (*frame.Frame, error) {
	sepal, err := df.Floats("sepal_width")
	if err != nil {
		return nil, err
	}
	petal, err := df.Floats("petal_width")
	if err != nil {
		return nil, err
	}

	out, err := df.Select(mergeOn...)
	if err != nil {
		return nil, err
	}
	sum := make([]float64, len(sepal))
	for i := range sepal {
		sum[i] = sepal[i] + petal[i]
	}
	return out.WithFloatColumn("sepal_plus_petal", sum)
}

func mul(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}
