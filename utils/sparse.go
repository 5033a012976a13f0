package utils

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// CSR holds a sparse matrix whose stored pattern is kept even where values
// are zero, so that patterns built from products and sums do not depend on
// the values.
type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

func NewCSR(nr, nc int, indptr, ind []int, data []float64) (R CSR) {
	if len(indptr) != nr+1 || len(ind) != len(data) {
		panic(fmt.Errorf("inconsistent CSR arrays: nr = %v, len(indptr) = %v, len(ind) = %v, len(data) = %v",
			nr, len(indptr), len(ind), len(data)))
	}
	R = CSR{
		sparse.NewCSR(nr, nc, indptr, ind, data),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// NewCSRFromDense stores the entries of A for which keep(i, j) is true
func NewCSRFromDense(A mat.Matrix, keep func(i, j int) bool) (R CSR) {
	var (
		nr, nc = A.Dims()
		indptr = make([]int, nr+1)
		ind    []int
		data   []float64
	)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if keep(i, j) {
				ind = append(ind, j)
				data = append(data, A.At(i, j))
			}
		}
		indptr[i+1] = len(ind)
	}
	return NewCSR(nr, nc, indptr, ind, data)
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}
func (m CSR) NNZ() int { return len(m.RawMatrix().Ind) }

func (m *CSR) SetReadOnly(name ...string) CSR {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m CSR) IsReadOnly() bool { return m.readOnly }

// Row returns the stored columns and values of row i, sharing storage
func (m CSR) Row(i int) (cols []int, vals []float64) {
	var (
		raw = m.RawMatrix()
	)
	return raw.Ind[raw.Indptr[i]:raw.Indptr[i+1]], raw.Data[raw.Indptr[i]:raw.Indptr[i+1]]
}

func (m CSR) Copy() (R CSR) { // Does not change receiver
	var (
		raw    = m.RawMatrix()
		nr, nc = m.Dims()
		indptr = make([]int, len(raw.Indptr))
		ind    = make([]int, len(raw.Ind))
		data   = make([]float64, len(raw.Data))
	)
	copy(indptr, raw.Indptr)
	copy(ind, raw.Ind)
	copy(data, raw.Data)
	return NewCSR(nr, nc, indptr, ind, data)
}

func (m CSR) Scale(a float64) CSR { // Changes receiver
	var (
		data = m.Data()
	)
	m.checkWritable()
	for i := range data {
		data[i] *= a
	}
	return m
}

// AXPY returns m + a*B on the union of both patterns
func (m CSR) AXPY(a float64, B CSR) (R CSR) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		indptr = make([]int, nr+1)
		ind    []int
		data   []float64
	)
	if nrB, ncB := B.Dims(); nrB != nr || ncB != nc {
		panic(fmt.Errorf("dimension mismatch in AXPY: %vx%v and %vx%v", nr, nc, nrB, ncB))
	}
	for i := 0; i < nr; i++ {
		colsM, valsM := m.Row(i)
		colsB, valsB := B.Row(i)
		row := make(map[int]float64, len(colsM)+len(colsB))
		for k, j := range colsM {
			row[j] += valsM[k]
		}
		for k, j := range colsB {
			row[j] += a * valsB[k]
		}
		cols := make([]int, 0, len(row))
		for j := range row {
			cols = append(cols, j)
		}
		sort.Ints(cols)
		for _, j := range cols {
			ind = append(ind, j)
			data = append(data, row[j])
		}
		indptr[i+1] = len(ind)
	}
	return NewCSR(nr, nc, indptr, ind, data)
}

// Kron returns the Kronecker product m ⊗ B, first factor slowest
func (m CSR) Kron(B CSR) (R CSR) { // Does not change receiver
	var (
		nrM, ncM = m.Dims()
		nrB, ncB = B.Dims()
		nr       = nrM * nrB
		indptr   = make([]int, nr+1)
		ind      = make([]int, 0, m.NNZ()*B.NNZ())
		data     = make([]float64, 0, m.NNZ()*B.NNZ())
	)
	for iM := 0; iM < nrM; iM++ {
		colsM, valsM := m.Row(iM)
		for iB := 0; iB < nrB; iB++ {
			colsB, valsB := B.Row(iB)
			for k, jM := range colsM {
				for l, jB := range colsB {
					ind = append(ind, jM*ncB+jB)
					data = append(data, valsM[k]*valsB[l])
				}
			}
			indptr[iM*nrB+iB+1] = len(ind)
		}
	}
	return NewCSR(nr, ncM*ncB, indptr, ind, data)
}

func (m CSR) ToDense() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	for i := 0; i < nr; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			R.M.Set(i, j, R.M.At(i, j)+vals[k])
		}
	}
	return
}

// MaxAbs is the largest stored magnitude
func (m CSR) MaxAbs() (max float64) {
	for _, val := range m.Data() {
		if math.Abs(val) > max {
			max = math.Abs(val)
		}
	}
	return
}

func (m CSR) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
