package matrix

import (
	"fmt"
	"slices"
)

// Frame is a set of equally long named columns, either numeric or categorical. It is the
// raw (untransformed) feature table.
type Frame struct {
	rows        int
	order       []string
	numeric     map[string][]float64
	categorical map[string][]string
}

func NewFrame(rows int) *Frame {
	return &Frame{
		rows:        rows,
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}
}

func (f *Frame) Rows() int { return f.rows }

// Columns returns column names in insertion order.
func (f *Frame) Columns() []string {
	return slices.Clone(f.order)
}

func (f *Frame) SetNumeric(name string, values []float64) error {
	if err := f.checkColumn(name, len(values)); err != nil {
		return err
	}
	f.numeric[name] = values
	return nil
}

func (f *Frame) SetCategorical(name string, values []string) error {
	if err := f.checkColumn(name, len(values)); err != nil {
		return err
	}
	f.categorical[name] = values
	return nil
}

func (f *Frame) checkColumn(name string, n int) error {
	if n != f.rows {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, n, f.rows)
	}
	if slices.Contains(f.order, name) {
		return fmt.Errorf("column %s already set", name)
	}
	f.order = append(f.order, name)
	return nil
}

// Numeric returns the column values. The slice must not be modified.
func (f *Frame) Numeric(name string) ([]float64, bool) {
	v, ok := f.numeric[name]
	return v, ok
}

// Categorical returns the column values. The slice must not be modified.
func (f *Frame) Categorical(name string) ([]string, bool) {
	v, ok := f.categorical[name]
	return v, ok
}
