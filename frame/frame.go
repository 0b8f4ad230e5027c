// Package frame provides the immutable table type shared by feature blocks,
// storage backends and pipelines.
//
// Cells are kept in their textual form so that a frame written through the
// CSV codec and read back compares equal to the original.
package frame

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrMissingColumn   = fmt.Errorf("missing column")
	ErrDuplicateColumn = fmt.Errorf("duplicate column")
	ErrRowWidth        = fmt.Errorf("row width does not match header")
	ErrNotNumeric      = fmt.Errorf("value is not numeric")
)

// Frame is an ordered set of named columns over ordered rows.
// The zero value and nil are both empty frames.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a frame from a header and rows. Both are copied.
func New(columns []string, rows [][]string) (*Frame, error) {
	index, err := indexOf(columns)
	if err != nil {
		return nil, err
	}
	copied := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrRowWidth, i, len(row), len(columns))
		}
		copied[i] = slices.Clone(row)
	}
	return &Frame{
		columns: slices.Clone(columns),
		index:   index,
		rows:    copied,
	}, nil
}

// MustNew is New that panics on error. Intended for literals in tests and examples.
func MustNew(columns []string, rows [][]string) *Frame {
	f, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return f
}

func indexOf(columns []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		index[c] = i
	}
	return index, nil
}

// Columns returns a copy of the header.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.columns)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

// Empty reports whether the frame has no rows or no columns.
func (f *Frame) Empty() bool {
	return f.Len() == 0 || f.Width() == 0
}

func (f *Frame) Has(column string) bool {
	if f == nil {
		return false
	}
	_, ok := f.index[column]
	return ok
}

// Missing returns the subset of columns that the frame does not have, in the given order.
func (f *Frame) Missing(columns ...string) []string {
	var missing []string
	for _, c := range columns {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []string {
	return slices.Clone(f.rows[i])
}

// Value returns the cell at row i in the named column.
func (f *Frame) Value(i int, column string) (string, error) {
	j, ok := f.index[column]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}
	return f.rows[i][j], nil
}

// Column returns a copy of the named column.
func (f *Frame) Column(column string) ([]string, error) {
	if !f.Has(column) {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}
	j := f.index[column]
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Floats parses the named column as float64 values.
func (f *Frame) Floats(column string) ([]float64, error) {
	cells, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrNotNumeric, column, i, c)
		}
		out[i] = v
	}
	return out, nil
}

// FormatFloat renders v in the shortest form that parses back to the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	if f == nil {
		return &Frame{index: map[string]int{}}
	}
	return MustNew(f.columns, f.rows)
}

// Select returns a frame holding only the named columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	if missing := f.Missing(columns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingColumn, missing)
	}
	rows := make([][]string, f.Len())
	for i := range rows {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = f.rows[i][f.index[c]]
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Rename returns a frame whose columns are renamed according to names.
// Columns absent from names keep their name.
func (f *Frame) Rename(names map[string]string) (*Frame, error) {
	columns := f.Columns()
	for i, c := range columns {
		if to, ok := names[c]; ok {
			columns[i] = to
		}
	}
	var rows [][]string
	if f != nil {
		rows = f.rows
	}
	return New(columns, rows)
}

// WithColumn returns a frame with values appended as a new column.
func (f *Frame) WithColumn(name string, values []string) (*Frame, error) {
	if f.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(values) != f.Len() {
		return nil, fmt.Errorf("%w: column %q has %d values, frame has %d rows", ErrRowWidth, name, len(values), f.Len())
	}
	rows := make([][]string, f.Len())
	for i := range rows {
		rows[i] = append(slices.Clone(f.rows[i]), values[i])
	}
	return New(append(f.Columns(), name), rows)
}

// WithFloatColumn is WithColumn for numeric values.
func (f *Frame) WithFloatColumn(name string, values []float64) (*Frame, error) {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = FormatFloat(v)
	}
	return f.WithColumn(name, cells)
}

// Equal reports whether both frames have the same header and cells in the same order.
func (f *Frame) Equal(other *Frame) bool {
	if !slices.Equal(f.Columns(), other.Columns()) || f.Len() != other.Len() {
		return false
	}
	for i := 0; i < f.Len(); i++ {
		if !slices.Equal(f.rows[i], other.rows[i]) {
			return false
		}
	}
	return true
}

// Fingerprint hashes header and cells. Equal frames have equal fingerprints.
func (f *Frame) Fingerprint() uint64 {
	d := xxhash.New()
	write := func(cells []string) {
		for _, c := range cells {
			_, _ = d.WriteString(c)
			_, _ = d.Write([]byte{0x1f})
		}
		_, _ = d.Write([]byte{0x1e})
	}
	write(f.Columns())
	for i := 0; i < f.Len(); i++ {
		write(f.rows[i])
	}
	return d.Sum64()
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows x %v)", f.Len(), f.Columns())
}
