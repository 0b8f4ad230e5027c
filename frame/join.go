package frame

import (
	"fmt"
	"strings"
)

const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

// InnerJoin keeps the rows of left that have a matching key tuple in right.
//
// The result holds every left column followed by the non-key columns of right.
// Row order follows left; several matches for one left row appear in right order.
// Non-key columns present on both sides are suffixed with _x and _y. A suffixed
// name that is already taken gets the suffix again, e.g. a_y_y.
func InnerJoin(left, right *Frame, on []string) (*Frame, error) {
	if missing := left.Missing(on...); len(missing) > 0 {
		return nil, fmt.Errorf("left frame: %w: %v", ErrMissingColumn, missing)
	}
	if missing := right.Missing(on...); len(missing) > 0 {
		return nil, fmt.Errorf("right frame: %w: %v", ErrMissingColumn, missing)
	}

	isKey := make(map[string]bool, len(on))
	for _, k := range on {
		isKey[k] = true
	}

	var rightCols []string
	for _, c := range right.Columns() {
		if !isKey[c] {
			rightCols = append(rightCols, c)
		}
	}

	taken := make(map[string]bool, left.Width()+len(rightCols))
	for _, c := range left.Columns() {
		taken[c] = true
	}
	for _, c := range rightCols {
		taken[c] = true
	}
	suffixed := func(c, suffix string) string {
		name := c + suffix
		for taken[name] {
			name += suffix
		}
		taken[name] = true
		return name
	}

	columns := left.Columns()
	for i, c := range columns {
		if !isKey[c] && right.Has(c) {
			columns[i] = suffixed(c, leftSuffix)
		}
	}
	for _, c := range rightCols {
		if left.Has(c) {
			c = suffixed(c, rightSuffix)
		}
		columns = append(columns, c)
	}

	matches := make(map[string][]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		k := right.keyOf(i, on)
		matches[k] = append(matches[k], i)
	}

	var rows [][]string
	for i := 0; i < left.Len(); i++ {
		for _, j := range matches[left.keyOf(i, on)] {
			row := left.Row(i)
			for _, c := range rightCols {
				row = append(row, right.rows[j][right.index[c]])
			}
			rows = append(rows, row)
		}
	}
	return New(columns, rows)
}

func (f *Frame) keyOf(i int, on []string) string {
	var sb strings.Builder
	for _, k := range on {
		sb.WriteString(f.rows[i][f.index[k]])
		sb.WriteByte(0)
	}
	return sb.String()
}
