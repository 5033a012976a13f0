package fdmpc

import (
	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/space"
	"github.com/notargets/fdmpc/utils"
)

/*
ChangeOfBasis interpolates from the FDM basis to the nodal basis of the
same space. On every cell and component it applies the tensor product of
the interval bases S along each direction.

Mult zeroes the inputs on eliminated dofs and overwrites shared dofs, the
value being the same from every cell. MultTranspose sums the contribution
of the owning cell of every dof only, then zeroes the eliminated outputs.
*/
type ChangeOfBasis struct {
	V     *space.FunctionSpace
	S     []utils.Matrix // per catalog slot
	bc    []int
	owner []int
	work  []float64
}

func NewChangeOfBasis(V *space.FunctionSpace, bcs []space.DirichletBC, ops []*FDM1D.OperatorSet) (P *ChangeOfBasis) {
	P = &ChangeOfBasis{
		V:     V,
		S:     make([]utils.Matrix, len(ops)),
		bc:    V.BCDofs(bcs),
		owner: make([]int, V.NumDofs()),
		work:  make([]float64, V.NumDofs()),
	}
	for i, o := range ops {
		P.S[i] = o.S
	}
	for i := range P.owner {
		P.owner[i] = -1
	}
	for e := 0; e < V.Mesh.NumCells; e++ {
		for k := 0; k < V.NumComponents; k++ {
			for _, dof := range V.CellDofs(e, k) {
				if P.owner[dof] < 0 {
					P.owner[dof] = e
				}
			}
		}
	}
	return
}

func (P *ChangeOfBasis) Size() int { return P.V.NumDofs() }

func (P *ChangeOfBasis) factors(k int) (mats []utils.Matrix) {
	mats = make([]utils.Matrix, P.V.Mesh.TDim)
	for d := range mats {
		mats[d] = P.S[P.V.Slot(k, d)]
	}
	return
}

func (P *ChangeOfBasis) Mult(x, y []float64) {
	var (
		V  = P.V
		xz = P.work
	)
	copy(xz, x)
	for _, dof := range P.bc {
		xz[dof] = 0
	}
	for e := 0; e < V.Mesh.NumCells; e++ {
		for k := 0; k < V.NumComponents; k++ {
			dofs := V.CellDofs(e, k)
			local := make([]float64, len(dofs))
			for i, dof := range dofs {
				local[i] = xz[dof]
			}
			local = kronMult(P.factors(k), V.PShape[k], local, false)
			for i, dof := range dofs {
				y[dof] = local[i]
			}
		}
	}
}

func (P *ChangeOfBasis) MultTranspose(x, y []float64) {
	var (
		V = P.V
	)
	for i := range y {
		y[i] = 0
	}
	for e := 0; e < V.Mesh.NumCells; e++ {
		for k := 0; k < V.NumComponents; k++ {
			dofs := V.CellDofs(e, k)
			local := make([]float64, len(dofs))
			for i, dof := range dofs {
				if P.owner[dof] == e {
					local[i] = x[dof]
				}
			}
			local = kronMult(P.factors(k), V.PShape[k], local, true)
			for i, dof := range dofs {
				y[dof] += local[i]
			}
		}
	}
	for _, dof := range P.bc {
		y[dof] = 0
	}
}

// kronMult applies (M_0 ⊗ M_1 ⊗ ..) to x, laid out with shape pshape and
// axis 0 slowest, or its transpose.
func kronMult(mats []utils.Matrix, pshape utils.Index, x []float64, trans bool) (y []float64) {
	var (
		nd = len(pshape)
	)
	y = append([]float64{}, x...)
	stride := 1
	for d := nd - 1; d >= 0; d-- {
		var (
			n     = pshape[d]
			M     = mats[d]
			outer = len(x) / (n * stride)
			z     = make([]float64, len(x))
		)
		for o := 0; o < outer; o++ {
			for s := 0; s < stride; s++ {
				base := o*n*stride + s
				for i := 0; i < n; i++ {
					var sum float64
					for j := 0; j < n; j++ {
						mij := M.At(i, j)
						if trans {
							mij = M.At(j, i)
						}
						sum += mij * y[base+j*stride]
					}
					z[base+i*stride] = sum
				}
			}
		}
		y = z
		stride *= n
	}
	return
}

/*
FDMOperator is the operator of the nodal space expressed in the FDM
basis, Pᵀ A P, with identity rows on the eliminated dofs.
*/
type FDMOperator struct {
	A     linalg.Operator
	P     *ChangeOfBasis
	bc    []int
	work0 []float64
	work1 []float64
}

func NewFDMOperator(A linalg.Operator, P *ChangeOfBasis) *FDMOperator {
	n := P.Size()
	return &FDMOperator{
		A:     A,
		P:     P,
		bc:    P.bc,
		work0: make([]float64, n),
		work1: make([]float64, n),
	}
}

func (op *FDMOperator) Size() int { return op.P.Size() }

func (op *FDMOperator) Mult(x, y []float64) {
	op.P.Mult(x, op.work0)
	op.A.Mult(op.work0, op.work1)
	op.P.MultTranspose(op.work1, y)
	for _, dof := range op.bc {
		y[dof] = x[dof]
	}
}

func (op *FDMOperator) MultTranspose(x, y []float64) {
	op.P.Mult(x, op.work0)
	op.A.MultTranspose(op.work0, op.work1)
	op.P.MultTranspose(op.work1, y)
	for _, dof := range op.bc {
		y[dof] = x[dof]
	}
}
