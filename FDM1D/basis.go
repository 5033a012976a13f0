package FDM1D

import (
	"github.com/notargets/fdmpc/utils"
)

// LineBasis is the Lagrange basis on the Gauss-Lobatto-Legendre nodes of
// the unit interval [0,1].
type LineBasis struct {
	Degree int
	Nodes  utils.Vector // GLL nodes on [0,1]
	Vinv   utils.Matrix // inverse of the orthonormal Vandermonde matrix
}

func NewLineBasis(degree int) (lb *LineBasis) {
	var (
		r = JacobiGL(0, 0, degree)
	)
	Vinv, err := Vandermonde1D(degree, r).Inverse()
	if err != nil {
		panic(err)
	}
	lb = &LineBasis{
		Degree: degree,
		Nodes:  r.Copy().Add(1).Scale(0.5),
		Vinv:   Vinv,
	}
	return
}

// Tabulate returns phi[q][j] and dphi[q][j], the basis functions and their
// derivatives with respect to the unit interval coordinate at points x.
func (lb *LineBasis) Tabulate(x []float64) (phi, dphi utils.Matrix) {
	var (
		r = make([]float64, len(x))
	)
	for i, xi := range x {
		r[i] = 2*xi - 1
	}
	R := utils.NewVector(len(r), r)
	phi = Vandermonde1D(lb.Degree, R).Mul(lb.Vinv)
	dphi = GradVandermonde1D(R, lb.Degree).Mul(lb.Vinv).Scale(2)
	return
}

// GaussRule returns the npts point Gauss-Legendre rule on [0,1]
func GaussRule(npts int) (x, w []float64) {
	X, W := JacobiGQ(0, 0, npts-1)
	x, w = X.Data(), W.Data()
	for i := range x {
		x[i] = 0.5 * (x[i] + 1)
		w[i] *= 0.5
	}
	return
}

// QuadraturePoints is the number of Gauss points per direction that
// integrates polynomials of the given degree exactly.
func QuadraturePoints(degree int) int {
	return degree/2 + 1
}
