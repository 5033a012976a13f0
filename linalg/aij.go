package linalg

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/fdmpc/utils"
)

// ErrNewNonzero is returned when an insertion needs a new entry in a row
// that is already full. A matrix built by NewAIJFromPattern is full from the
// start, so any column outside its pattern is rejected.
var ErrNewNonzero = errors.New("new nonzero outside the preallocated pattern")

/*
Mat is the assembly surface used by the Kronecker assembler. SetValues adds
the dense block vals (len(rows) x len(cols), row major) into the matrix,
silently dropping negative rows and columns.
*/
type Mat interface {
	Size() int
	SetValues(rows, cols []int, vals []float64) error
	ZeroEntries()
	Assemble() error
}

// Operator is the action of a square linear map
type Operator interface {
	Size() int
	Mult(x, y []float64)
	MultTranspose(x, y []float64)
}

// AIJ is a square sparse matrix with a fixed per row capacity, compressed
// to CSR on Assemble.
type AIJ struct {
	n, bs     int
	capacity  []int
	cols      [][]int
	vals      [][]float64
	csr       utils.CSR
	assembled bool
}

// NewAIJ allocates a matrix of n rows with block size bs and room for nnz[i]
// nonzeros in row i, in whatever columns are written first.
func NewAIJ(n, bs int, nnz []int) (A *AIJ) {
	if len(nnz) != n {
		panic(fmt.Errorf("preallocation has %d rows, matrix has %d", len(nnz), n))
	}
	A = &AIJ{
		n:        n,
		bs:       bs,
		capacity: append([]int{}, nnz...),
		cols:     make([][]int, n),
		vals:     make([][]float64, n),
	}
	for i, c := range nnz {
		A.cols[i] = make([]int, 0, c)
		A.vals[i] = make([]float64, 0, c)
	}
	return
}

// NewAIJFromPattern allocates a matrix holding exactly the pattern recorded
// by p, with zero values.
func NewAIJFromPattern(bs int, p *Preallocator) (A *AIJ) {
	A = NewAIJ(p.n, bs, p.NNZ())
	for i, cols := range p.Pattern() {
		A.cols[i] = append(A.cols[i], cols...)
		A.vals[i] = A.vals[i][:len(cols)]
	}
	return
}

func (A *AIJ) Size() int      { return A.n }
func (A *AIJ) BlockSize() int { return A.bs }

func (A *AIJ) SetValues(rows, cols []int, vals []float64) (err error) {
	if len(vals) != len(rows)*len(cols) {
		panic(fmt.Errorf("block of %d values for %d rows and %d columns", len(vals), len(rows), len(cols)))
	}
	for ii, i := range rows {
		if i < 0 {
			continue
		}
		for jj, j := range cols {
			if j < 0 {
				continue
			}
			if err = A.add(i, j, vals[ii*len(cols)+jj]); err != nil {
				return
			}
		}
	}
	A.assembled = false
	return
}

func (A *AIJ) add(i, j int, val float64) error {
	var (
		cols = A.cols[i]
		pos  = sort.SearchInts(cols, j)
	)
	if pos < len(cols) && cols[pos] == j {
		A.vals[i][pos] += val
		return nil
	}
	if len(cols) == A.capacity[i] {
		return fmt.Errorf("row %d, column %d: %w", i, j, ErrNewNonzero)
	}
	A.cols[i] = append(cols, 0)
	copy(A.cols[i][pos+1:], A.cols[i][pos:])
	A.cols[i][pos] = j
	A.vals[i] = append(A.vals[i], 0)
	copy(A.vals[i][pos+1:], A.vals[i][pos:])
	A.vals[i][pos] = val
	return nil
}

// ZeroEntries keeps the pattern and zeroes the values
func (A *AIJ) ZeroEntries() {
	for i := range A.vals {
		for k := range A.vals[i] {
			A.vals[i][k] = 0
		}
	}
	A.assembled = false
}

func (A *AIJ) Assemble() error {
	var (
		indptr = make([]int, A.n+1)
		ind    = make([]int, 0, A.NNZ())
		data   = make([]float64, 0, A.NNZ())
	)
	for i := 0; i < A.n; i++ {
		ind = append(ind, A.cols[i]...)
		data = append(data, A.vals[i]...)
		indptr[i+1] = len(ind)
	}
	A.csr = utils.NewCSR(A.n, A.n, indptr, ind, data)
	A.assembled = true
	return nil
}

func (A *AIJ) Assembled() bool { return A.assembled }

func (A *AIJ) NNZ() (nnz int) {
	for _, c := range A.cols {
		nnz += len(c)
	}
	return
}

// CSR returns the assembled matrix
func (A *AIJ) CSR() utils.CSR {
	A.checkAssembled()
	return A.csr
}

func (A *AIJ) At(i, j int) float64 {
	var (
		cols = A.cols[i]
		pos  = sort.SearchInts(cols, j)
	)
	if pos < len(cols) && cols[pos] == j {
		return A.vals[i][pos]
	}
	return 0
}

func (A *AIJ) Row(i int) (cols []int, vals []float64) {
	return A.cols[i], A.vals[i]
}

func (A *AIJ) Diagonal() (d []float64) {
	d = make([]float64, A.n)
	for i := range d {
		d[i] = A.At(i, i)
	}
	return
}

func (A *AIJ) Mult(x, y []float64) {
	A.checkAssembled()
	zero(y)
	A.csr.M.MulVecTo(y, false, x)
}

func (A *AIJ) MultTranspose(x, y []float64) {
	A.checkAssembled()
	zero(y)
	A.csr.M.MulVecTo(y, true, x)
}

func (A *AIJ) ToDense() utils.Matrix {
	R := utils.NewMatrix(A.n, A.n)
	for i := 0; i < A.n; i++ {
		for k, j := range A.cols[i] {
			R.M.Set(i, j, A.vals[i][k])
		}
	}
	return R
}

func (A *AIJ) checkAssembled() {
	if !A.assembled {
		panic(fmt.Errorf("matrix used before Assemble()"))
	}
}

// Preallocator records the pattern written by an assembly dry run
type Preallocator struct {
	n    int
	rows []map[int]struct{}
}

func NewPreallocator(n int) *Preallocator {
	p := &Preallocator{n: n, rows: make([]map[int]struct{}, n)}
	for i := range p.rows {
		p.rows[i] = make(map[int]struct{})
	}
	return p
}

func (p *Preallocator) Size() int { return p.n }

func (p *Preallocator) SetValues(rows, cols []int, vals []float64) error {
	if len(vals) != len(rows)*len(cols) {
		panic(fmt.Errorf("block of %d values for %d rows and %d columns", len(vals), len(rows), len(cols)))
	}
	for _, i := range rows {
		if i < 0 {
			continue
		}
		for _, j := range cols {
			if j >= 0 {
				p.rows[i][j] = struct{}{}
			}
		}
	}
	return nil
}

func (p *Preallocator) ZeroEntries() {}

func (p *Preallocator) Assemble() error { return nil }

// NNZ is the number of distinct columns written to every row
func (p *Preallocator) NNZ() (nnz []int) {
	nnz = make([]int, p.n)
	for i, r := range p.rows {
		nnz[i] = len(r)
	}
	return
}

// Pattern is the sorted column set of every row
func (p *Preallocator) Pattern() (pattern [][]int) {
	pattern = make([][]int, p.n)
	for i, r := range p.rows {
		pattern[i] = make([]int, 0, len(r))
		for j := range r {
			pattern[i] = append(pattern[i], j)
		}
		sort.Ints(pattern[i])
	}
	return
}

func (p *Preallocator) Total() (total int) {
	for _, r := range p.rows {
		total += len(r)
	}
	return
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}
