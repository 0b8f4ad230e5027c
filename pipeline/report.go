package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/featurino/feature"
	"github.com/on-the-ground/featurino/frame"
	"github.com/rickb777/date/v2/timespan"
)

// StepReport records one successful Pipe.
type StepReport struct {
	Round  uuid.UUID
	Block  string
	Prefix string
	Source feature.Source
	// Rows and Fingerprint describe the accumulated frame after the step.
	Rows        int
	Fingerprint uint64
	Span        timespan.TimeSpan
}

func newStepReport(round uuid.UUID, b *feature.Block, out *frame.Frame, began, ended time.Time) StepReport {
	return StepReport{
		Round:       round,
		Block:       b.Name(),
		Prefix:      b.Prefix(),
		Source:      b.Source(),
		Rows:        out.Len(),
		Fingerprint: out.Fingerprint(),
		Span:        timespan.BetweenTimes(began, ended),
	}
}

func (s StepReport) Duration() time.Duration {
	return s.Span.Duration()
}
