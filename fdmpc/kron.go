package fdmpc

import (
	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/space"
	"github.com/notargets/fdmpc/utils"
)

/*
Assembler builds the sparse FDM matrix of a space from Kronecker products
of interval operators, scaled by the cell coefficients.

Ops holds the interval operator set of every catalog slot. Rows and columns
of dofs eliminated by strong conditions receive only an identity diagonal.
*/
type Assembler struct {
	V       *space.FunctionSpace
	Coefs   *Coefficients
	Flags   *BCFlags
	Ops     []*FDM1D.OperatorSet
	Eta     float64
	Reverse bool // visit cells and facets in reverse order

	lgmap []int
}

func NewAssembler(V *space.FunctionSpace, bcs []space.DirichletBC, coefs *Coefficients, flags *BCFlags,
	ops []*FDM1D.OperatorSet, eta float64) (a *Assembler) {
	a = &Assembler{
		V:     V,
		Coefs: coefs,
		Flags: flags,
		Ops:   ops,
		Eta:   eta,
		lgmap: V.LGMap(bcs),
	}
	return
}

// Assemble inserts the operator into A. A Preallocator records the pattern
// only; any other target is zeroed first and the coefficients are
// recomputed from the current form.
func (a *Assembler) Assemble(A linalg.Mat) (err error) {
	if _, prealloc := A.(*linalg.Preallocator); !prealloc {
		A.ZeroEntries()
		a.Coefs.Assemble()
	}
	for i, row := range a.lgmap {
		if row < 0 {
			if err = A.SetValues([]int{i}, []int{i}, []float64{1}); err != nil {
				return
			}
		}
	}
	fullBq := a.Coefs.Bq != nil && len(a.Coefs.Bq.Shape) == 2
	if fullBq {
		if err = a.assembleReaction(A); err != nil {
			return
		}
	}
	if err = a.assembleCells(A, !fullBq); err != nil {
		return
	}
	if err = a.assembleFacets(A); err != nil {
		return
	}
	return A.Assemble()
}

func (a *Assembler) cells() (order []int) {
	var (
		ncells = a.V.Mesh.NumOwnedCells
	)
	order = make([]int, ncells)
	for i := range order {
		order[i] = i
		if a.Reverse {
			order[i] = ncells - 1 - i
		}
	}
	return
}

// assembleReaction adds the mass of every cell coupled across components by
// the full reaction matrix, Be ⊗ Bq[e], with rows interleaved by component.
func (a *Assembler) assembleReaction(A linalg.Mat) (err error) {
	var (
		V     = a.V
		tdim  = V.Mesh.TDim
		bs    = V.BlockSize
		ncomp = V.NumComponents
		Be    = a.Ops[V.Slot(0, 0)].Mass()
	)
	for d := 1; d < tdim; d++ {
		Be = Be.Kron(a.Ops[V.Slot(0, d)].Mass())
	}
	for _, e := range a.cells() {
		Bq := utils.NewCSRFromDense(utils.NewMatrix(ncomp, ncomp, a.Coefs.Bq.Cell(e)).M,
			func(i, j int) bool { return true })
		Ae := Be.Kron(Bq)
		nodes := V.CellNodes[e]
		rows := make([]int, 0, len(nodes)*bs)
		for _, node := range nodes {
			for c := 0; c < bs; c++ {
				rows = append(rows, a.lgmap[node*bs+c])
			}
		}
		if err = setSubmat(A, Ae, rows); err != nil {
			return
		}
	}
	return
}

// assembleCells adds mu[k][0] A_0 ⊗ B_1 ⊗ .. + .. + B_0 ⊗ .. ⊗ mu[k][d] A_d
// for every component, plus bq[k] B_0 ⊗ .. ⊗ B_d when withBq is set.
func (a *Assembler) assembleCells(A linalg.Mat, withBq bool) (err error) {
	var (
		V    = a.V
		tdim = V.Mesh.TDim
	)
	for _, e := range a.cells() {
		var (
			mu = a.Coefs.Mu(e)
			bq []float64
		)
		if withBq {
			bq = a.Coefs.BqDiag(e)
		}
		for k := 0; k < V.NumComponents; k++ {
			var (
				flags = a.Flags.Cell(e, k)
				ops   = a.Ops[V.Slot(k, 0)]
				Be    = ops.Mass()
				Ae    = ops.Stiffness(flags[0], flags[1]).Copy().Scale(mu[k][0])
			)
			if bq != nil {
				Ae = Ae.AXPY(bq[k], Be)
			}
			for d := 1; d < tdim; d++ {
				ops = a.Ops[V.Slot(k, d)]
				Ae = Ae.Kron(ops.Mass()).AXPY(mu[k][d], Be.Kron(ops.Stiffness(flags[2*d], flags[2*d+1])))
				Be = Be.Kron(ops.Mass())
			}
			rows := make([]int, 0, V.SDim())
			for _, dof := range V.CellDofs(e, k) {
				rows = append(rows, a.lgmap[dof])
			}
			if err = setSubmat(A, Ae, rows); err != nil {
				return
			}
		}
	}
	return
}

// setSubmat adds the local sparse matrix Ae at rows x rows, dropping
// negative rows and columns.
func setSubmat(A linalg.Mat, Ae utils.CSR, rows []int) (err error) {
	for i, row := range rows {
		if row < 0 {
			continue
		}
		cols, vals := Ae.Row(i)
		gcols := make([]int, len(cols))
		for k, j := range cols {
			gcols[k] = rows[j]
		}
		if err = A.SetValues([]int{row}, gcols, vals); err != nil {
			return
		}
	}
	return
}
