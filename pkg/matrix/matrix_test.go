package matrix

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDense(t *testing.T) {
	d, err := NewDense(2, 2, []float64{1, math.NaN(), 0, 4})
	require.NoError(t, err)

	v, ok := d.Value(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = d.Value(0, 1)
	assert.False(t, ok, "NaN is missing")

	v, ok = d.Value(1, 0)
	assert.True(t, ok, "zero is present in dense input")
	assert.Equal(t, 0.0, v)

	row := d.Row(1)
	row[0] = 99
	assert.Equal(t, 0.0, d.At(1, 0))

	_, err = NewDense(2, 2, []float64{1})
	assert.Error(t, err)
}

func TestCSR(t *testing.T) {
	b := NewCSRBuilder(4)
	b.Add(1, 3)
	b.Add(3, 0)
	b.EndRow()
	b.EndRow()
	b.Add(0, 1)
	b.Add(2, -2)
	b.EndRow()
	c, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, c.Rows())
	assert.Equal(t, 4, c.Cols())
	assert.Equal(t, 3, c.NNZ())

	v, ok := c.Value(0, 1)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = c.Value(0, 3)
	assert.False(t, ok, "explicit zeros are not stored")

	_, ok = c.Value(1, 0)
	assert.False(t, ok)

	v, ok = c.Value(2, 2)
	assert.True(t, ok)
	assert.Equal(t, -2.0, v)
}

func TestNewCSRValidation(t *testing.T) {
	tests := []struct {
		name    string
		indptr  []int
		indices []int
		data    []float64
	}{
		{name: "short indptr", indptr: []int{0}, indices: nil, data: nil},
		{name: "length mismatch", indptr: []int{0, 1}, indices: []int{0, 1}, data: []float64{1}},
		{name: "column out of range", indptr: []int{0, 1}, indices: []int{5}, data: []float64{1}},
		{name: "unsorted columns", indptr: []int{0, 2}, indices: []int{1, 0}, data: []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSR(1, 2, tt.indptr, tt.indices, tt.data)
			assert.Error(t, err)
		})
	}
}

func TestFrame(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.SetNumeric("risk_score", []float64{1.2, 3}))
	require.NoError(t, f.SetCategorical("protocol_name", []string{"Chest Pain", "Chest Pain"}))

	assert.Error(t, f.SetNumeric("risk_score", []float64{1, 2}))
	assert.Error(t, f.SetNumeric("num_app", []float64{1}))
	assert.Equal(t, []string{"risk_score", "protocol_name"}, f.Columns())

	v, ok := f.Numeric("risk_score")
	assert.True(t, ok)
	assert.Equal(t, []float64{1.2, 3}, v)

	_, ok = f.Numeric("protocol_name")
	assert.False(t, ok)
}
