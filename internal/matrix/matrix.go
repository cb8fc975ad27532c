// Package matrix holds the square interaction matrices of a particle-life
// world and the strategies that generate them.
//
// Entry (i, j) is how strongly particles of type i are attracted (positive)
// or repelled (negative) by particles of type j, usually within [-1, 1].
package matrix

import (
	"fmt"
	"strings"
)

// Matrix is a square matrix of interaction strengths.
type Matrix interface {
	Size() int
	Get(i, j int) float64
	Set(i, j int, v float64)
	Clone() Matrix
	Equal(other Matrix) bool
}

// Dense is a row-major Matrix.
type Dense struct {
	n      int
	values []float64
}

// NewDense returns a zeroed n×n matrix. Negative n is treated as 0.
func NewDense(n int) *Dense {
	if n < 0 {
		n = 0
	}
	return &Dense{n: n, values: make([]float64, n*n)}
}

// FromRows builds a Dense from a square slice of rows.
func FromRows(rows [][]float64) (*Dense, error) {
	m := NewDense(len(rows))
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(rows))
		}
		copy(m.values[i*m.n:], row)
	}
	return m, nil
}

func (m *Dense) Size() int               { return m.n }
func (m *Dense) Get(i, j int) float64    { return m.values[i*m.n+j] }
func (m *Dense) Set(i, j int, v float64) { m.values[i*m.n+j] = v }

// Zero resets every entry to 0.
func (m *Dense) Zero() {
	for i := range m.values {
		m.values[i] = 0
	}
}

// Clone returns a deep copy.
func (m *Dense) Clone() Matrix {
	c := NewDense(m.n)
	copy(c.values, m.values)
	return c
}

// Equal reports whether other has the same size and entries.
func (m *Dense) Equal(other Matrix) bool {
	if other == nil || other.Size() != m.n {
		return false
	}
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if other.Get(i, j) != m.Get(i, j) {
				return false
			}
		}
	}
	return true
}

// Rows returns a copy of the matrix as a slice of rows.
func (m *Dense) Rows() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = append([]float64(nil), m.values[i*m.n:(i+1)*m.n]...)
	}
	return rows
}

func (m *Dense) String() string {
	var b strings.Builder
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%+.2f", m.Get(i, j))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
