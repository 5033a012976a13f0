package linalg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// laplacian assembles the 1D finite difference Laplacian with identity end rows
func laplacian(t *testing.T, n int) (A *AIJ) {
	var (
		p = NewPreallocator(n)
	)
	assemble := func(m Mat) {
		require.NoError(t, m.SetValues([]int{0}, []int{0}, []float64{1}))
		require.NoError(t, m.SetValues([]int{n - 1}, []int{n - 1}, []float64{1}))
		lg := make([]int, n)
		for i := range lg {
			lg[i] = i
		}
		lg[0], lg[n-1] = -1, -1
		for e := 0; e < n-1; e++ {
			rows := []int{lg[e], lg[e+1]}
			require.NoError(t, m.SetValues(rows, rows, []float64{1, -1, -1, 1}))
		}
		require.NoError(t, m.Assemble())
	}
	assemble(p)
	A = NewAIJ(n, 1, p.NNZ())
	assemble(A)
	assert.Equal(t, p.Total(), A.NNZ())
	return
}

func TestAIJ(t *testing.T) {
	{
		A := laplacian(t, 5)
		assert.Equal(t, 1., A.At(0, 0))
		assert.Equal(t, 0., A.At(0, 1))
		assert.Equal(t, 2., A.At(2, 2))
		assert.Equal(t, -1., A.At(2, 3))
		assert.Equal(t, 1+2+3+2+1, A.NNZ())
		y := make([]float64, 5)
		A.Mult([]float64{0, 1, 1, 1, 0}, y)
		assert.Equal(t, []float64{0, 1, 0, 1, 0}, y)
		A.MultTranspose([]float64{0, 1, 2, 3, 0}, y)
		assert.Equal(t, []float64{0, 0, 0, 4, 0}, y)
		assert.True(t, A.ToDense().IsSymmetric(0))
	}
	// Insertion outside the pattern
	{
		A := NewAIJ(2, 1, []int{1, 1})
		require.NoError(t, A.SetValues([]int{0}, []int{1}, []float64{3}))
		require.NoError(t, A.SetValues([]int{0, -1}, []int{1, -1}, []float64{1, 5, 7, 7}))
		assert.Equal(t, 4., A.At(0, 1))
		assert.Equal(t, 0., A.At(0, 0))
		err := A.SetValues([]int{0}, []int{0}, []float64{1})
		assert.True(t, errors.Is(err, ErrNewNonzero))
		assert.Panics(t, func() { A.Mult([]float64{1, 1}, []float64{0, 0}) })
	}
	// A recorded pattern rejects columns outside it
	{
		p := NewPreallocator(3)
		require.NoError(t, p.SetValues([]int{0}, []int{0, 2}, []float64{0, 0}))
		require.NoError(t, p.SetValues([]int{1, 2}, []int{-1, 1}, []float64{0, 0, 0, 0}))
		require.NoError(t, p.SetValues([]int{2}, []int{2}, []float64{0}))
		assert.Equal(t, [][]int{{0, 2}, {1}, {1, 2}}, p.Pattern())

		// counts alone accept any column while the row has room
		loose := NewAIJ(3, 1, p.NNZ())
		require.NoError(t, loose.SetValues([]int{0}, []int{1}, []float64{1}))

		A := NewAIJFromPattern(1, p)
		assert.Equal(t, p.Total(), A.NNZ())
		err := A.SetValues([]int{0}, []int{1}, []float64{1})
		assert.True(t, errors.Is(err, ErrNewNonzero))
		require.NoError(t, A.SetValues([]int{0}, []int{0, 2}, []float64{2, 5}))
		require.NoError(t, A.SetValues([]int{2}, []int{1, 2}, []float64{4, 3}))
		require.NoError(t, A.Assemble())
		assert.Equal(t, 2., A.At(0, 0))
		assert.Equal(t, 5., A.At(0, 2))
		assert.Equal(t, 0., A.At(1, 1))
		assert.Equal(t, 3., A.At(2, 2))
	}
	// Zeroing keeps the pattern
	{
		A := laplacian(t, 4)
		nnz := A.NNZ()
		A.ZeroEntries()
		assert.Equal(t, nnz, A.NNZ())
		assert.Equal(t, 0., A.At(1, 1))
		assert.False(t, A.Assembled())
	}
}

func TestLU(t *testing.T) {
	{
		A := NewAIJ(3, 1, []int{3, 3, 3})
		require.NoError(t, A.SetValues([]int{0, 1, 2}, []int{0, 1, 2}, []float64{
			4, 1, 0,
			2, 5, 1,
			0, 3, 6,
		}))
		require.NoError(t, A.Assemble())
		lu, err := NewLU(A)
		require.NoError(t, err)
		defer lu.Destroy()
		b := []float64{1, 2, 3}
		x := make([]float64, 3)
		require.NoError(t, lu.Solve(b, x))
		Ax := make([]float64, 3)
		A.Mult(x, Ax)
		assert.InDeltaSlice(t, b, Ax, 1.e-12)
		require.NoError(t, lu.SolveTranspose(b, x))
		A.MultTranspose(x, Ax)
		assert.InDeltaSlice(t, b, Ax, 1.e-12)
	}
}

func TestKSP(t *testing.T) {
	var (
		n = 20
	)
	A := laplacian(t, n)
	b := make([]float64, n)
	for i := 1; i < n-1; i++ {
		b[i] = 1
	}
	check := func(x []float64) {
		r := make([]float64, n)
		A.Mult(x, r)
		assert.InDeltaSlice(t, b, r, 1.e-8)
	}
	{
		opts := NewOptions(nil, "")
		opts.Set("pc_type", "jacobi")
		opts.Set("ksp_rtol", 1.e-12)
		ksp, err := NewKSP(opts, A, A)
		require.NoError(t, err)
		require.NoError(t, ksp.SetUp())
		x := make([]float64, n)
		require.NoError(t, ksp.Solve(b, x))
		check(x)
		assert.True(t, ksp.Iterations > 1)
	}
	{
		opts := NewOptions(nil, "")
		opts.Set("ksp_type", "preonly")
		ksp, err := NewKSP(opts, A, A)
		require.NoError(t, err)
		require.NoError(t, ksp.SetUp())
		x := make([]float64, n)
		require.NoError(t, ksp.Solve(b, x))
		check(x)
		assert.Equal(t, 1, ksp.Iterations)
		ksp.Destroy()
	}
	// Nested prefixes
	{
		opts := NewOptions(nil, "fdm_")
		opts.Set("pc_type", "ksp")
		opts.Viper().Set("fdm_ksp_pc_type", "jacobi")
		opts.Viper().Set("fdm_ksp_ksp_rtol", 1.e-12)
		pc, err := NewPC(opts, A, A)
		require.NoError(t, err)
		require.NoError(t, pc.SetUp())
		x := make([]float64, n)
		require.NoError(t, pc.Apply(b, x))
		check(x)
		var buf bytes.Buffer
		pc.View(&buf, 0)
		assert.Contains(t, buf.String(), "type=ksp")
		assert.Contains(t, buf.String(), "(fdm_ksp_) type=cg")
		assert.Contains(t, buf.String(), "type=jacobi")
		pc.Destroy()
	}
	{
		opts := NewOptions(nil, "")
		opts.Set("ksp_type", "cg")
		opts.Set("ksp_max_it", 2)
		opts.Set("pc_type", "none")
		ksp, err := NewKSP(opts, A, A)
		require.NoError(t, err)
		require.NoError(t, ksp.SetUp())
		x := make([]float64, n)
		err = ksp.Solve(b, x)
		assert.True(t, errors.Is(err, ErrDiverged))
	}
	{
		opts := NewOptions(nil, "")
		opts.Set("pc_type", "ilu")
		_, err := NewPC(opts, A, A)
		assert.Error(t, err)
		opts.Set("pc_type", "none")
		opts.Set("ksp_type", "gmres")
		_, err = NewKSP(opts, A, A)
		assert.Error(t, err)
	}
}
