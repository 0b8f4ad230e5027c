package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/on-the-ground/featurino/frame"
)

// Encode writes f as CSV: one header row, then the rows, no index column.
func Encode(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < f.Len(); i++ {
		if err := cw.Write(f.Row(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a frame written by Encode.
func Decode(r io.Reader) (*frame.Frame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return frame.New(nil, nil)
	}
	return frame.New(records[0], records[1:])
}

func encodeBytes(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
