// Package matrix holds the numeric containers exchanged between the feature pipeline and
// the regressor.
package matrix

import (
	"fmt"
	"math"
)

// Matrix is a read-only row major view.
type Matrix interface {
	Rows() int
	Cols() int
	// Value returns the entry at (i, j) and whether it is present. Absent entries are
	// treated as missing by tree models.
	Value(i, j int) (float64, bool)
}

// Dense stores every entry; NaN marks a missing value.
type Dense struct {
	rows, cols int
	data       []float64
}

func NewDense(rows, cols int, data []float64) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid dense shape %dx%d", rows, cols)
	}
	if data == nil {
		data = make([]float64, rows*cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("dense data length %d does not match shape %dx%d", len(data), rows, cols)
	}
	return &Dense{rows: rows, cols: cols, data: data}, nil
}

func (d *Dense) Rows() int { return d.rows }
func (d *Dense) Cols() int { return d.cols }

func (d *Dense) At(i, j int) float64 {
	return d.data[i*d.cols+j]
}

func (d *Dense) Set(i, j int, v float64) {
	d.data[i*d.cols+j] = v
}

func (d *Dense) Value(i, j int) (float64, bool) {
	v := d.data[i*d.cols+j]
	return v, !math.IsNaN(v)
}

// Row returns a copy of row i.
func (d *Dense) Row(i int) []float64 {
	out := make([]float64, d.cols)
	copy(out, d.data[i*d.cols:(i+1)*d.cols])
	return out
}

// CSR is a compressed sparse row matrix. Entries that are not stored are absent.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

func NewCSR(rows, cols int, indptr, indices []int, data []float64) (*CSR, error) {
	if len(indptr) != rows+1 {
		return nil, fmt.Errorf("csr indptr length %d, want %d", len(indptr), rows+1)
	}
	if len(indices) != len(data) {
		return nil, fmt.Errorf("csr indices length %d does not match data length %d", len(indices), len(data))
	}
	if indptr[0] != 0 || indptr[rows] != len(data) {
		return nil, fmt.Errorf("csr indptr bounds [%d, %d] do not cover %d entries", indptr[0], indptr[rows], len(data))
	}
	for i := 0; i < rows; i++ {
		if indptr[i] > indptr[i+1] {
			return nil, fmt.Errorf("csr indptr not monotonic at row %d", i)
		}
		for k := indptr[i]; k < indptr[i+1]; k++ {
			if indices[k] < 0 || indices[k] >= cols {
				return nil, fmt.Errorf("csr column index %d out of range at row %d", indices[k], i)
			}
			if k > indptr[i] && indices[k] <= indices[k-1] {
				return nil, fmt.Errorf("csr column indices not sorted at row %d", i)
			}
		}
	}
	return &CSR{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}, nil
}

func (c *CSR) Rows() int { return c.rows }
func (c *CSR) Cols() int { return c.cols }

// NNZ is the number of stored entries.
func (c *CSR) NNZ() int { return len(c.data) }

func (c *CSR) Value(i, j int) (float64, bool) {
	lo, hi := c.indptr[i], c.indptr[i+1]
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case c.indices[mid] == j:
			v := c.data[mid]
			return v, !math.IsNaN(v)
		case c.indices[mid] < j:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// CSRBuilder appends rows of (column, value) pairs in column order.
type CSRBuilder struct {
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

func NewCSRBuilder(cols int) *CSRBuilder {
	return &CSRBuilder{cols: cols, indptr: []int{0}}
}

// Add stores v at column j of the current row. Explicit zeros are dropped.
func (b *CSRBuilder) Add(j int, v float64) {
	if v == 0 {
		return
	}
	b.indices = append(b.indices, j)
	b.data = append(b.data, v)
}

func (b *CSRBuilder) EndRow() {
	b.indptr = append(b.indptr, len(b.data))
}

func (b *CSRBuilder) Build() (*CSR, error) {
	return NewCSR(len(b.indptr)-1, b.cols, b.indptr, b.indices, b.data)
}
