package linalg

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// LU is a sparse direct factorization of an assembled AIJ matrix
type LU struct {
	n      int
	matrix *sparse.Matrix
	rhs    []float64
}

func NewLU(A *AIJ) (lu *LU, err error) {
	var (
		n = A.Size()
	)
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	lu = &LU{n: n, rhs: make([]float64, n+1)}
	if lu.matrix, err = sparse.Create(int64(n), config); err != nil {
		err = fmt.Errorf("creating sparse matrix: %v", err)
		return
	}
	// 1-based indexing
	for i := 0; i < n; i++ {
		cols, vals := A.Row(i)
		for k, j := range cols {
			lu.matrix.GetElement(int64(i+1), int64(j+1)).Real += vals[k]
		}
	}
	if err = lu.matrix.Factor(); err != nil {
		lu.matrix.Destroy()
		err = fmt.Errorf("matrix factorization failed: %v", err)
	}
	return
}

func (lu *LU) Solve(b, x []float64) error {
	return lu.solve(b, x, false)
}

func (lu *LU) SolveTranspose(b, x []float64) error {
	return lu.solve(b, x, true)
}

func (lu *LU) solve(b, x []float64, trans bool) (err error) {
	var (
		sol []float64
	)
	copy(lu.rhs[1:], b)
	if trans {
		sol, err = lu.matrix.SolveTransposed(lu.rhs)
	} else {
		sol, err = lu.matrix.Solve(lu.rhs)
	}
	if err != nil {
		return fmt.Errorf("matrix solve failed: %v", err)
	}
	copy(x, sol[1:lu.n+1])
	return
}

func (lu *LU) Destroy() {
	if lu.matrix != nil {
		lu.matrix.Destroy()
		lu.matrix = nil
	}
}
