package FDM1D

import (
	"fmt"

	"github.com/notargets/fdmpc/utils"
	"gonum.org/v1/gonum/mat"
)

// SEMhat returns the unit interval stiffness and mass matrices of the GLL
// Lagrange basis of the given degree, integrated with a degree+1 point
// Gauss-Legendre rule.
func SEMhat(degree int) (Ahat, Bhat utils.Matrix) {
	var (
		lb   = NewLineBasis(degree)
		x, w = GaussRule(degree + 1)
	)
	J, D := lb.Tabulate(x)
	Ahat = weightedGram(D, w)
	Bhat = weightedGram(J, w)
	return
}

// weightedGram returns Tᵀ diag(w) T for a tabulation T[q][j]
func weightedGram(T utils.Matrix, w []float64) (G utils.Matrix) {
	var (
		nq, n = T.Dims()
	)
	G = utils.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for q := 0; q < nq; q++ {
				sum += w[q] * T.At(q, i) * T.At(q, j)
			}
			G.M.Set(i, j, sum)
		}
	}
	return
}

// SymEig solves the symmetric definite generalized eigenproblem A v = λ B v
// by Cholesky reduction. The eigenvectors are the columns of V and are
// B-orthonormal.
func SymEig(A, B utils.Matrix) (eigs []float64, V utils.Matrix, err error) {
	var (
		n, _ = A.Dims()
		chol mat.Cholesky
		L    mat.TriDense
		Linv mat.TriDense
		C    mat.Dense
		eig  mat.EigenSym
		W    mat.Dense
	)
	if ok := chol.Factorize(symmetric(B)); !ok {
		err = fmt.Errorf("mass matrix is not positive definite")
		return
	}
	chol.LTo(&L)
	if err = Linv.InverseTri(&L); err != nil {
		return
	}
	C.Product(&Linv, A.M, Linv.T())
	if ok := eig.Factorize(symmetric(&C), true); !ok {
		err = fmt.Errorf("eigenvalue decomposition failed")
		return
	}
	eigs = eig.Values(nil)
	eig.VectorsTo(&W)
	V = utils.NewMatrix(n, n)
	V.M.Mul(Linv.T(), &W)
	return
}

func symmetric(A mat.Matrix) (S *mat.SymDense) {
	var (
		n, _ = A.Dims()
	)
	S = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			S.SetSym(i, j, 0.5*(A.At(i, j)+A.At(j, i)))
		}
	}
	return
}
