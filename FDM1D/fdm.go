package FDM1D

import (
	"fmt"

	"github.com/notargets/fdmpc/utils"
)

// OperatorSet holds the interval operators in the FDM basis. Catalog[0] is
// the mass matrix and Catalog[1+bc0+2*bc1] is the stiffness matrix with the
// endpoint states bc0 (x=0) and bc1 (x=1), 1 meaning Dirichlet. Entries are
// read only, callers copy before scaling.
type OperatorSet struct {
	Continuous bool
	Degree     int
	Eta        float64
	S          utils.Matrix // FDM basis tabulated on the GLL nodes
	A, B       utils.Matrix // dense stiffness and mass in the FDM basis
	Catalog    [5]utils.CSR
	Dfdm       *utils.Matrix // normal derivatives at both endpoints, nil for CG
}

func (ops *OperatorSet) Size() int { return ops.Degree + 1 }

func (ops *OperatorSet) Mass() utils.CSR { return ops.Catalog[0] }

func (ops *OperatorSet) Stiffness(bc0, bc1 int) utils.CSR { return ops.Catalog[1+bc0+2*bc1] }

func (ops *OperatorSet) String() string {
	kind := "CG"
	if !ops.Continuous {
		kind = fmt.Sprintf("IPDG(eta=%g)", ops.Eta)
	}
	return fmt.Sprintf("%s degree %d", kind, ops.Degree)
}

// Setup returns the reference stiffness and mass, the FDM basis S and the
// FDM basis normal derivatives on both endpoints. The interior functions
// diagonalize the interior stiffness and are B-orthogonal to the endpoint
// functions.
func Setup(degree int) (Ahat, Bhat, S, Dfdm utils.Matrix, err error) {
	var (
		n = degree + 1
	)
	if degree < 1 {
		err = fmt.Errorf("FDM basis needs degree >= 1, have %d", degree)
		return
	}
	Ahat, Bhat = SEMhat(degree)
	S = utils.NewIdentity(n)
	if n > 2 {
		var (
			kd = utils.NewRange(1, n-2)
			rd = utils.Index{0, n - 1}

			Skk utils.Matrix
		)
		if _, Skk, err = SymEig(Ahat.SubMatrix(kd, kd), Bhat.SubMatrix(kd, kd)); err != nil {
			return
		}
		S.SetBlock(1, 1, Skk)
		// S[kd,rd] = Skk Skkᵀ Bhat[kd,rd] (-Srr), with Srr the identity
		Skr := Skk.Mul(Skk.Transpose()).Mul(Bhat.SubMatrix(kd, rd)).Scale(-1)
		for i, k := range kd {
			S.Set(k, 0, Skr.At(i, 0))
			S.Set(k, n-1, Skr.At(i, 1))
		}
	}

	// Facet normal derivatives
	_, D := NewLineBasis(degree).Tabulate([]float64{0, 1})
	Dfacet := D.Transpose()
	for i := 0; i < n; i++ {
		Dfacet.Set(i, 0, -Dfacet.At(i, 0))
	}
	Dfdm = S.Transpose().Mul(Dfacet)
	return
}

// Sparsify keeps the diagonal (when diag is set) and the full rows and
// columns listed in dense. With no dense indices the two off-diagonal
// corners are kept instead.
func Sparsify(A utils.Matrix, dense []int, diag bool) utils.CSR {
	var (
		n, _    = A.Dims()
		isDense = make([]bool, n)
	)
	for _, j := range dense {
		isDense[j] = true
	}
	return utils.NewCSRFromDense(A, func(i, j int) bool {
		switch {
		case diag && i == j:
			return true
		case isDense[i] || isDense[j]:
			return true
		case len(dense) == 0:
			return (i == 0 && j == n-1) || (i == n-1 && j == 0)
		}
		return false
	})
}

// SetupCG builds the catalog for a continuous line element, with strong
// Dirichlet endpoints decoupled from the rest of the interval.
func SetupCG(degree int) (ops *OperatorSet, err error) {
	var (
		Ahat, Bhat, S utils.Matrix
	)
	if Ahat, Bhat, S, _, err = Setup(degree); err != nil {
		return
	}
	ops = &OperatorSet{
		Continuous: true,
		Degree:     degree,
		S:          S,
		A:          S.Transpose().Mul(Ahat).Mul(S),
		B:          S.Transpose().Mul(Bhat).Mul(S),
	}
	ops.Catalog[0] = Sparsify(ops.B, nil, true)
	for bc1 := 0; bc1 < 2; bc1++ {
		for bc0 := 0; bc0 < 2; bc0++ {
			ops.Catalog[1+bc0+2*bc1] = Sparsify(applyStrongBCs(ops.A, bc0, bc1), []int{0, degree}, true)
		}
	}
	ops.setReadOnly()
	return
}

// SetupIPDG builds the catalog for a discontinuous line element with the
// symmetric interior penalty treatment of weak Dirichlet endpoints.
func SetupIPDG(degree int, eta float64) (ops *OperatorSet, err error) {
	var (
		Ahat, Bhat, S, Dfdm utils.Matrix
	)
	if Ahat, Bhat, S, Dfdm, err = Setup(degree); err != nil {
		return
	}
	ops = &OperatorSet{
		Degree: degree,
		Eta:    eta,
		S:      S,
		A:      S.Transpose().Mul(Ahat).Mul(S),
		B:      S.Transpose().Mul(Bhat).Mul(S),
		Dfdm:   &Dfdm,
	}
	ops.Catalog[0] = Sparsify(ops.B, nil, true)
	for bc1 := 0; bc1 < 2; bc1++ {
		for bc0 := 0; bc0 < 2; bc0++ {
			ops.Catalog[1+bc0+2*bc1] = Sparsify(applyWeakBCs(ops.A, Dfdm, bc0, bc1, eta), []int{0, degree}, true)
		}
	}
	ops.Dfdm.SetReadOnly("Dfdm")
	ops.setReadOnly()
	return
}

func (ops *OperatorSet) setReadOnly() {
	ops.S.SetReadOnly("S")
	ops.A.SetReadOnly("A")
	ops.B.SetReadOnly("B")
	for i := range ops.Catalog {
		ops.Catalog[i].SetReadOnly(fmt.Sprintf("Catalog[%d]", i))
	}
}

func applyStrongBCs(A utils.Matrix, bc0, bc1 int) (Abc utils.Matrix) {
	var (
		n, _ = A.Dims()
		k0   = 1
		k1   = n - 1
	)
	if bc0 == 1 {
		k0 = 0
	}
	if bc1 == 1 {
		k1 = n
	}
	Abc = A.Copy()
	for i := k0; i < k1; i++ {
		for j := k0; j < k1; j++ {
			if i != j {
				Abc.Set(i, j, 0)
			}
		}
	}
	return
}

func applyWeakBCs(A, Dfdm utils.Matrix, bc0, bc1 int, eta float64) (Abc utils.Matrix) {
	var (
		n, _ = A.Dims()
		bcs  = [2]int{bc0, bc1}
		ends = [2]int{0, n - 1}
	)
	Abc = A.Copy()
	for side, j := range ends {
		if bcs[side] != 1 {
			continue
		}
		for i := 0; i < n; i++ {
			Abc.AddAt(i, j, -Dfdm.At(i, side))
		}
		for i := 0; i < n; i++ {
			Abc.AddAt(j, i, -Dfdm.At(i, side))
		}
		Abc.AddAt(j, j, eta)
	}
	return
}
