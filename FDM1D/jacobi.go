package FDM1D

import (
	"math"

	"github.com/notargets/fdmpc/utils"
	"gonum.org/v1/gonum/mat"
)

// JacobiGL returns the Gauss-Lobatto points of degree N on [-1,1]
func JacobiGL(alpha, beta float64, N int) (X utils.Vector) {
	var (
		x    = make([]float64, N+1)
		xint utils.Vector
	)
	if N == 1 {
		x[0] = -1
		x[1] = 1
		X = utils.NewVector(N+1, x)
		return
	}
	xint, _ = JacobiGQ(alpha+1, beta+1, N-2)
	x[0] = -1
	x[N] = 1
	dataXint := xint.Data()
	for i := 1; i < N; i++ {
		x[i] = dataXint[i-1]
	}
	X = utils.NewVector(len(x), x)
	return
}

// JacobiGQ returns the N+1 point Gauss quadrature on [-1,1] for the Jacobi
// weight, using the Golub-Welsch eigenvalue method
func JacobiGQ(alpha, beta float64, N int) (X, W utils.Vector) {
	var (
		x, w       []float64
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return utils.NewVector(len(x), x), utils.NewVector(len(w), w)
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal: diag(2./(h1(1:N)+2).*sqrt((1:N).*((1:N)+alpha+beta) .* ((1:N)+alpha).*((1:N)+beta)./(h1(1:N)+1)./(h1(1:N)+3)),1);
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := newSymTriDiagonal(d0, d1)

	var eig mat.EigenSym
	ok := eig.Factorize(JJ, true)
	if !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(x)
	X = utils.NewVector(N+1, x)

	VVr = mat.NewDense(len(x), len(x), nil)
	eig.VectorsTo(VVr)
	w = make([]float64, len(x))
	copy(w, VVr.RawRowView(0))
	W = utils.NewVector(len(x), w).POW(2).Scale(gamma0(alpha, beta))
	return X, W
}

func newSymTriDiagonal(d0, d1 []float64) (S *mat.SymDense) {
	var (
		n = len(d0)
	)
	S = mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		S.SetSym(i, i, d0[i])
		if i < n-1 {
			S.SetSym(i, i+1, d1[i])
		}
	}
	return
}

func Vandermonde1D(N int, R utils.Vector) (V utils.Matrix) {
	V = utils.NewMatrix(R.Len(), N+1)
	for j := 0; j < N+1; j++ {
		V.SetCol(j, JacobiP(R, 0, 0, j))
	}
	return
}

func GradVandermonde1D(r utils.Vector, N int) (Vr utils.Matrix) {
	Vr = utils.NewMatrix(r.Len(), N+1)
	for i := 0; i < N+1; i++ {
		Vr.SetCol(i, GradJacobiP(r, 0, 0, i))
	}
	return
}

// JacobiP evaluates the orthonormal Jacobi polynomial of order N at r
func JacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	var (
		Nc = r.Len()
		rd = r.Data()
	)
	rg := 1. / math.Sqrt(gamma0(alpha, beta))
	pOld := utils.ConstArray(Nc, rg)
	if N == 0 {
		return pOld
	}
	ab := alpha + beta
	rg1 := 1. / math.Sqrt(gamma1(alpha, beta))
	pCur := make([]float64, Nc)
	for i := 0; i < Nc; i++ {
		pCur[i] = rg1 * ((ab+2.0)*rd[i]/2.0 + (alpha-beta)/2.0)
	}
	if N == 1 {
		return pCur
	}

	a1 := alpha + 1.
	b1 := beta + 1.
	ab1 := ab + 1.
	aold := 2.0 * math.Sqrt(a1*b1/(ab+3.0)) / (ab + 2.0)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		ip2 := ip1 + 1
		h1 := 2.0*ip1 + ab
		anew := 2.0 / (h1 + 2.0) * math.Sqrt(ip2*(ip1+ab1)*(ip1+a1)*(ip1+b1)/(h1+1.0)/(h1+3.0))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2.0)
		pNew := make([]float64, Nc)
		for j := range pNew {
			pNew[j] = (-aold*pOld[j] + (rd[j]-bnew)*pCur[j]) / anew
		}
		pOld, pCur = pCur, pNew
		aold = anew
	}
	return pCur
}

func GradJacobiP(r utils.Vector, alpha, beta float64, N int) (p []float64) {
	if N == 0 {
		p = make([]float64, r.Len())
		return
	}
	p = JacobiP(r, alpha+1, beta+1, N-1)
	fN := float64(N)
	fac := math.Sqrt(fN * (fN + alpha + beta + 1))
	for i, val := range p {
		p[i] = val * fac
	}
	return
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func gamma1(alpha, beta float64) float64 {
	ab := alpha + beta
	a1 := alpha + 1.
	b1 := beta + 1.
	return a1 * b1 * gamma0(alpha, beta) / (ab + 3.0)
}
