package fdmpc

import (
	"fmt"
	"math"

	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/form"
	"github.com/notargets/fdmpc/mesh"
	"github.com/notargets/fdmpc/space"
	"github.com/notargets/fdmpc/utils"
)

// Field stores a tensor of the given shape per cell, once per cell when
// the data is a cell integral, or at each quadrature point with the
// quadrature weight folded in.
type Field struct {
	Shape     []int
	NumPoints int
	Data      []float64
}

func newField(ncells, npoints int, shape ...int) *Field {
	f := &Field{Shape: shape, NumPoints: npoints}
	f.Data = make([]float64, ncells*npoints*f.Size())
	return f
}

func (f *Field) Size() int { return utils.Index(f.Shape).Prod() }

func (f *Field) point(e, q int) []float64 {
	var (
		size = f.Size()
		i0   = (e*f.NumPoints + q) * size
	)
	return f.Data[i0 : i0+size]
}

// Cell returns the integral over cell e, the sum over its points
func (f *Field) Cell(e int) (val []float64) {
	val = make([]float64, f.Size())
	for q := 0; q < f.NumPoints; q++ {
		for i, v := range f.point(e, q) {
			val[i] += v
		}
	}
	return
}

func (f *Field) zero() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}

// FacetField stores a tensor per (cell, local facet), the facet average of
// the restriction of a cell quantity. Only interior facets are filled.
type FacetField struct {
	Shape     []int
	NumFacets int
	Data      []float64
}

func newFacetField(ncells, nfacets int, shape ...int) *FacetField {
	f := &FacetField{Shape: shape, NumFacets: nfacets}
	f.Data = make([]float64, ncells*nfacets*f.Size())
	return f
}

func (f *FacetField) Size() int { return utils.Index(f.Shape).Prod() }

func (f *FacetField) At(e, lf int) []float64 {
	var (
		size = f.Size()
		i0   = (e*f.NumFacets + lf) * size
	)
	return f.Data[i0 : i0+size]
}

type ExtractOptions struct {
	QuadDegree   int
	DiscardMixed bool
	CellAverage  bool
	Procs        int // goroutines over cells, 0 for one per CPU
}

/*
Coefficients approximates the form by cell-wise tensors.

	Gq       diffusion, shape (tdim) for scalars, (ncomp, tdim) when mixed
	         terms are discarded, (ncomp, tdim, ncomp, tdim) otherwise
	Bq       reaction, shape () for scalars, (ncomp) for Piola mappings,
	         (ncomp, ncomp) for blocked vector spaces; nil without a
	         reaction term in the form
	GqFacet  per interior facet side, shape (tdim, gdim, gdim), Piola only
	PTFacet  per interior facet side, transposed Piola map (ncomp, gdim)
*/
type Coefficients struct {
	V       *space.FunctionSpace
	Form    *form.Form
	Mapping space.Mapping
	Opts    ExtractOptions
	Gq, Bq  *Field
	GqFacet *FacetField
	PTFacet *FacetField

	ncomp, vsize int
	rule         [][]float64 // tensor Gauss points
	weights      []float64
}

// ExtractCoefficients builds the coefficient fields of the cell integrand
// of f on V and assembles them once.
func ExtractCoefficients(V *space.FunctionSpace, f *form.Form, opts ExtractOptions) (c *Coefficients, err error) {
	var (
		m     = V.Mesh
		tdim  = m.TDim
		ncomp = V.NumComponents
	)
	c = &Coefficients{
		V:       V,
		Form:    f,
		Mapping: V.Element.Mapping(),
		Opts:    opts,
		ncomp:   ncomp,
		vsize:   ncomp,
	}
	switch c.Mapping {
	case space.Identity:
	case space.CovariantPiola, space.ContravariantPiola:
		c.vsize = m.GDim
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedMapping, c.Mapping)
		return
	}
	c.rule, c.weights = tensorRule(tdim, FDM1D.QuadraturePoints(opts.QuadDegree))
	npoints := 1
	if !opts.CellAverage {
		npoints = len(c.weights)
	}
	switch {
	case !opts.DiscardMixed:
		c.Gq = newField(m.NumCells, npoints, ncomp, tdim, ncomp, tdim)
	case ncomp == 1 && c.Mapping == space.Identity:
		c.Gq = newField(m.NumCells, npoints, tdim)
	default:
		c.Gq = newField(m.NumCells, npoints, ncomp, tdim)
	}
	switch {
	case !f.Reaction:
	case c.Mapping != space.Identity:
		c.Bq = newField(m.NumCells, npoints, ncomp)
	case ncomp == 1:
		c.Bq = newField(m.NumCells, npoints)
	default:
		c.Bq = newField(m.NumCells, npoints, ncomp, ncomp)
	}
	if c.Mapping != space.Identity {
		c.GqFacet = newFacetField(m.NumCells, m.NumFacetsPerCell(), tdim, m.GDim, m.GDim)
		c.PTFacet = newFacetField(m.NumCells, m.NumFacetsPerCell(), ncomp, m.GDim)
	}
	c.Assemble()
	return
}

// Assemble recomputes every field in place from the current form
func (c *Coefficients) Assemble() {
	var (
		m = c.V.Mesh
	)
	c.Gq.zero()
	if c.Bq != nil {
		c.Bq.zero()
	}
	// every cell writes its own slots of Gq and Bq
	utils.NewCellPartitions(c.Opts.Procs, m.NumCells).ForEach(c.assembleCell)
	if c.GqFacet != nil {
		c.assembleFacets()
	}
}

// pullback returns the Piola map P (gdim x ncomp) at a point, nil for the
// identity mapping.
func pullback(mapping space.Mapping, F, Finv utils.Matrix, detF float64, orientation int) (P *utils.Matrix, err error) {
	var (
		gdim, tdim = F.Dims()
	)
	switch mapping {
	case space.Identity:
	case space.CovariantPiola:
		R := Finv.Transpose()
		P = &R
	case space.ContravariantPiola:
		scale := 1 / detF
		if tdim < gdim {
			scale *= float64(1 - 2*orientation)
		}
		R := F.Copy().Scale(scale)
		P = &R
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedMapping, mapping)
	}
	return
}

// setGrad sets the physical gradient of the unit reference gradient of
// component i along reference direction a.
func setGrad(arg form.Argument, P *utils.Matrix, Finv utils.Matrix, i, a int) {
	var (
		_, gdim = Finv.Dims()
	)
	arg.Zero()
	if P == nil {
		for x := 0; x < gdim; x++ {
			arg.Grad[i][x] = Finv.At(a, x)
		}
		return
	}
	for r := range arg.Grad {
		for x := 0; x < gdim; x++ {
			arg.Grad[r][x] = P.At(r, i) * Finv.At(a, x)
		}
	}
}

func setValue(arg form.Argument, P *utils.Matrix, i int) {
	arg.Zero()
	if P == nil {
		arg.Value[i] = 1
		return
	}
	for r := range arg.Value {
		arg.Value[r] = P.At(r, i)
	}
}

func (c *Coefficients) assembleCell(e int) {
	var (
		m         = c.V.Mesh
		tdim      = m.TDim
		ncomp     = c.ncomp
		v, u      = form.NewArgument(c.vsize, m.GDim), form.NewArgument(c.vsize, m.GDim)
		integrand = c.Form.Cell
	)
	for q, X := range c.rule {
		x, F := m.Geometry(e, X)
		Finv, detF := mesh.JacobianInverse(F)
		P, err := pullback(c.Mapping, F, Finv, detF, m.Orientations[e])
		if err != nil {
			panic(err)
		}
		var (
			wq = c.weights[q] * math.Abs(detF)
			pq = 0
		)
		if !c.Opts.CellAverage {
			pq = q
		}
		G := c.Gq.point(e, pq)
		if c.Opts.DiscardMixed {
			for k := 0; k < ncomp; k++ {
				for a := 0; a < tdim; a++ {
					setGrad(v, P, Finv, k, a)
					setGrad(u, P, Finv, k, a)
					G[k*tdim+a] += wq * integrand(x, e, v, u)
				}
			}
		} else {
			for i := 0; i < ncomp; i++ {
				for a := 0; a < tdim; a++ {
					setGrad(v, P, Finv, i, a)
					for j := 0; j < ncomp; j++ {
						for b := 0; b < tdim; b++ {
							setGrad(u, P, Finv, j, b)
							G[((i*tdim+a)*ncomp+j)*tdim+b] += wq * integrand(x, e, v, u)
						}
					}
				}
			}
		}
		if c.Bq == nil {
			continue
		}
		B := c.Bq.point(e, pq)
		switch len(c.Bq.Shape) {
		case 0, 1:
			for k := 0; k < ncomp; k++ {
				setValue(v, P, k)
				setValue(u, P, k)
				B[k] += wq * integrand(x, e, v, u)
			}
		case 2:
			for i := 0; i < ncomp; i++ {
				setValue(v, P, i)
				for j := 0; j < ncomp; j++ {
					setValue(u, P, j)
					B[i*ncomp+j] += wq * integrand(x, e, v, u)
				}
			}
		}
	}
}

// assembleFacets averages the diffusion tensor with identity pull back and
// the transposed Piola map over both sides of every interior facet.
func (c *Coefficients) assembleFacets() {
	var (
		m    = c.V.Mesh
		tdim = m.TDim
		gdim = m.GDim
		v, u = form.NewArgument(gdim, gdim), form.NewArgument(gdim, gdim)
	)
	for i := range c.GqFacet.Data {
		c.GqFacet.Data[i] = 0
	}
	for i := range c.PTFacet.Data {
		c.PTFacet.Data[i] = 0
	}
	frule, fweights := tensorRule(tdim-1, FDM1D.QuadraturePoints(c.Opts.QuadDegree))
	for _, facet := range m.InteriorFacets {
		for s := 0; s < 2; s++ {
			var (
				e    = facet.Cells[s]
				lf   = facet.LocalFacet[s]
				idir = lf / 2
				G    = c.GqFacet.At(e, lf)
				PT   = c.PTFacet.At(e, lf)
				area float64
			)
			for q, Xf := range frule {
				X := make([]float64, 0, tdim)
				X = append(X, Xf[:idir]...)
				X = append(X, float64(lf%2))
				X = append(X, Xf[idir:]...)
				x, F := m.Geometry(e, X)
				Finv, detF := mesh.JacobianInverse(F)
				P, err := pullback(c.Mapping, F, Finv, detF, m.Orientations[e])
				if err != nil {
					panic(err)
				}
				ws := fweights[q] * mesh.FacetMeasure(F, lf)
				area += ws
				for d := 0; d < tdim; d++ {
					for i := 0; i < gdim; i++ {
						setGrad(v, nil, Finv, i, d)
						for j := 0; j < gdim; j++ {
							setGrad(u, nil, Finv, j, d)
							G[(d*gdim+i)*gdim+j] += ws * math.Abs(detF) * c.Form.Cell(x, e, v, u)
						}
					}
				}
				for k := 0; k < c.ncomp; k++ {
					for r := 0; r < gdim; r++ {
						PT[k*gdim+r] += ws * P.At(r, k)
					}
				}
			}
			for i := range G {
				G[i] /= area
			}
			for i := range PT {
				PT[i] /= area
			}
		}
	}
}

// Mu returns the diffusion coefficient of every component along every
// reference direction on cell e, mu[k][d].
func (c *Coefficients) Mu(e int) (mu [][]float64) {
	var (
		tdim = c.V.Mesh.TDim
		G    = c.Gq.Cell(e)
	)
	mu = make([][]float64, c.ncomp)
	for k := range mu {
		mu[k] = make([]float64, tdim)
		for d := 0; d < tdim; d++ {
			switch len(c.Gq.Shape) {
			case 1:
				mu[k][d] = G[d]
			case 2:
				mu[k][d] = G[k*tdim+d]
			default:
				mu[k][d] = G[((k*tdim+d)*c.ncomp+k)*tdim+d]
			}
		}
	}
	return
}

// BqDiag returns the per-component reaction coefficient on cell e, nil when
// the reaction is absent or a full matrix.
func (c *Coefficients) BqDiag(e int) (bq []float64) {
	if c.Bq == nil || len(c.Bq.Shape) == 2 {
		return
	}
	B := c.Bq.Cell(e)
	bq = make([]float64, c.ncomp)
	for k := range bq {
		bq[k] = B[k%len(B)]
	}
	return
}

// tensorRule is the Gauss rule with npts points per direction on [0,1]^dim
func tensorRule(dim, npts int) (X [][]float64, W []float64) {
	x, w := FDM1D.GaussRule(npts)
	total := 1
	for d := 0; d < dim; d++ {
		total *= npts
	}
	X = make([][]float64, total)
	W = make([]float64, total)
	for q := range X {
		X[q] = make([]float64, dim)
		W[q] = 1
		rem := q
		for d := dim - 1; d >= 0; d-- {
			i := rem % npts
			rem /= npts
			X[q][d] = x[i]
			W[q] *= w[i]
		}
	}
	return
}
