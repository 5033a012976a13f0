package form

import (
	"fmt"
)

// Argument is the physical value and gradient of a test or trial function
// at a point. Grad[i][j] is the derivative of component i along x_j.
type Argument struct {
	Value []float64
	Grad  [][]float64
}

func NewArgument(ncomp, gdim int) (a Argument) {
	a.Value = make([]float64, ncomp)
	a.Grad = make([][]float64, ncomp)
	for i := range a.Grad {
		a.Grad[i] = make([]float64, gdim)
	}
	return
}

func (a Argument) Zero() {
	for i := range a.Value {
		a.Value[i] = 0
		for j := range a.Grad[i] {
			a.Grad[i][j] = 0
		}
	}
}

// Integrand is a cell integrand bilinear in the test function v and the
// trial function u.
type Integrand func(x []float64, cell int, v, u Argument) float64

const (
	ExteriorFacet       = "exterior_facet"
	ExteriorFacetTop    = "exterior_facet_top"
	ExteriorFacetBottom = "exterior_facet_bottom"
	InteriorFacet       = "interior_facet"
)

// FacetIntegral describes a facet term of the form. A nil SubDomain means
// everywhere.
type FacetIntegral struct {
	Type      string
	SubDomain []int
}

func (fi FacetIntegral) String() string {
	if fi.SubDomain == nil {
		return fmt.Sprintf("%s(everywhere)", fi.Type)
	}
	return fmt.Sprintf("%s(%v)", fi.Type, fi.SubDomain)
}

// Form is a bilinear form with a single cell integrand and the facet
// integrals it carries. Coefficients of the integrand may change between
// updates, so it is evaluated afresh on every call. Reaction is set when the
// integrand has a zeroth order term, whatever its current value.
type Form struct {
	Name     string
	Cell     Integrand
	Facets   []FacetIntegral
	Reaction bool
}

// Diffusion returns the form of -div(alpha grad u) + beta u with scalar
// coefficient functions of position and cell. A nil beta drops the reaction
// term.
func Diffusion(alpha, beta func(x []float64, cell int) float64) *Form {
	return &Form{
		Name:     "diffusion",
		Reaction: beta != nil,
		Cell: func(x []float64, cell int, v, u Argument) (val float64) {
			var a, b = 1., 0.
			if alpha != nil {
				a = alpha(x, cell)
			}
			if beta != nil {
				b = beta(x, cell)
			}
			for i := range v.Grad {
				for j := range v.Grad[i] {
					val += a * v.Grad[i][j] * u.Grad[i][j]
				}
				val += b * v.Value[i] * u.Value[i]
			}
			return
		},
	}
}

// Anisotropic returns the form of -div(K grad u) with a constant symmetric
// tensor K acting on every component.
func Anisotropic(K [][]float64) *Form {
	return &Form{
		Name: "anisotropic diffusion",
		Cell: func(x []float64, cell int, v, u Argument) (val float64) {
			for i := range v.Grad {
				for a := range v.Grad[i] {
					for b := range u.Grad[i] {
						val += v.Grad[i][a] * K[a][b] * u.Grad[i][b]
					}
				}
			}
			return
		},
	}
}
