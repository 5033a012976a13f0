package Poisson

import (
	"fmt"
	"math"

	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/form"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/mesh"
	"github.com/notargets/fdmpc/space"
	"github.com/notargets/fdmpc/utils"
)

/*
Poisson is a continuous spectral element discretization of a second order
elliptic form, assembled exactly with Gauss quadrature in the nodal (GLL)
basis. Rows and columns of Dirichlet dofs are replaced by the identity.
*/
type Poisson struct {
	Mesh       *mesh.Mesh
	Space      *space.FunctionSpace
	Form       *form.Form
	BCs        []space.DirichletBC
	QuadDegree int
	A          *linalg.AIJ

	lgmap  []int
	phi    []utils.Matrix // per slot, basis at the Gauss points
	dphi   []utils.Matrix
	points []float64
	wts    []float64
}

func NewPoisson(m *mesh.Mesh, e space.Element, f *form.Form, bcs []space.DirichletBC) (p *Poisson, err error) {
	var (
		V *space.FunctionSpace
	)
	if e.Mapping() != space.Identity {
		err = fmt.Errorf("reference operator needs an identity mapped element, have %v", e)
		return
	}
	if V, err = space.NewFunctionSpace(m, e); err != nil {
		return
	}
	for _, line := range V.Lines {
		if !line.Continuous {
			err = fmt.Errorf("reference operator has no facet terms, %v is discontinuous", e)
			return
		}
	}
	p = &Poisson{
		Mesh:       m,
		Space:      V,
		Form:       f,
		BCs:        bcs,
		QuadDegree: 2*e.Degree + 1,
		lgmap:      V.LGMap(bcs),
	}
	p.points, p.wts = FDM1D.GaussRule(FDM1D.QuadraturePoints(p.QuadDegree))
	for _, line := range V.Lines {
		phi, dphi := FDM1D.NewLineBasis(line.Degree).Tabulate(p.points)
		p.phi = append(p.phi, phi)
		p.dphi = append(p.dphi, dphi)
	}
	err = p.Assemble()
	return
}

// Assemble preallocates and fills A from the current form
func (p *Poisson) Assemble() (err error) {
	var (
		n = p.Space.NumDofs()
	)
	prealloc := linalg.NewPreallocator(n)
	if err = p.assemble(prealloc); err != nil {
		return
	}
	p.A = linalg.NewAIJFromPattern(p.Space.BlockSize, prealloc)
	return p.assemble(p.A)
}

func (p *Poisson) assemble(A linalg.Mat) (err error) {
	var (
		V     = p.Space
		m     = p.Mesh
		tdim  = m.TDim
		ncomp = V.NumComponents
		sdim  = V.SDim()
		npts  = len(p.points)
		nq    = cube(tdim, npts).Prod()
		nloc  = ncomp * sdim
	)
	A.ZeroEntries()
	for i, row := range p.lgmap {
		if row < 0 {
			if err = A.SetValues([]int{i}, []int{i}, []float64{1}); err != nil {
				return
			}
		}
	}
	args := make([]form.Argument, nloc)
	for i := range args {
		args[i] = form.NewArgument(ncomp, m.GDim)
	}
	for e := 0; e < m.NumOwnedCells; e++ {
		var (
			Ae   = utils.NewMatrix(nloc, nloc)
			rows = make([]int, 0, nloc)
		)
		for k := 0; k < ncomp; k++ {
			for _, dof := range V.CellDofs(e, k) {
				rows = append(rows, p.lgmap[dof])
			}
		}
		for q := 0; q < nq; q++ {
			qsub := unravel(q, cube(tdim, npts))
			X := make([]float64, tdim)
			w := 1.
			for d, qd := range qsub {
				X[d] = p.points[qd]
				w *= p.wts[qd]
			}
			x, F := m.Geometry(e, X)
			Finv, detF := mesh.JacobianInverse(F)
			w *= math.Abs(detF)
			for k := 0; k < ncomp; k++ {
				for i := 0; i < sdim; i++ {
					p.tabulate(args[k*sdim+i], V.PShape[k], k, i, qsub, Finv)
				}
			}
			for i := 0; i < nloc; i++ {
				for j := 0; j < nloc; j++ {
					Ae.AddAt(i, j, w*p.Form.Cell(x, e, args[i], args[j]))
				}
			}
		}
		// the cell matrix is dense, rows of different components may couple
		for i, row := range rows {
			if row < 0 {
				continue
			}
			vals := make([]float64, nloc)
			for j := range vals {
				vals[j] = Ae.At(i, j)
			}
			if err = A.SetValues([]int{row}, rows, vals); err != nil {
				return
			}
		}
	}
	return A.Assemble()
}

// tabulate sets the value and physical gradient of local basis function i
// of component k at the Gauss point with tensor index qsub.
func (p *Poisson) tabulate(arg form.Argument, pshape utils.Index, k, i int, qsub []int, Finv utils.Matrix) {
	var (
		tdim = len(pshape)
		isub = unravel(i, pshape)
		val  = 1.
		ref  = make([]float64, tdim)
	)
	for a := range ref {
		ref[a] = 1
	}
	for d := 0; d < tdim; d++ {
		slot := p.Space.Slot(k, d)
		phi := p.phi[slot].At(qsub[d], isub[d])
		dphi := p.dphi[slot].At(qsub[d], isub[d])
		val *= phi
		for a := range ref {
			if a == d {
				ref[a] *= dphi
			} else {
				ref[a] *= phi
			}
		}
	}
	arg.Zero()
	arg.Value[k] = val
	for x := range arg.Grad[k] {
		for a := 0; a < tdim; a++ {
			arg.Grad[k][x] += ref[a] * Finv.At(a, x)
		}
	}
}

// RHS returns the load vector of a source acting on every component, with
// zero values on the Dirichlet dofs.
func (p *Poisson) RHS(source func(x []float64) float64) (b []float64) {
	var (
		V    = p.Space
		m    = p.Mesh
		tdim = m.TDim
		npts = len(p.points)
		nq   = cube(tdim, npts).Prod()
		arg  = form.NewArgument(V.NumComponents, m.GDim)
	)
	b = make([]float64, V.NumDofs())
	for e := 0; e < m.NumOwnedCells; e++ {
		for q := 0; q < nq; q++ {
			qsub := unravel(q, cube(tdim, npts))
			X := make([]float64, tdim)
			w := 1.
			for d, qd := range qsub {
				X[d] = p.points[qd]
				w *= p.wts[qd]
			}
			x, F := m.Geometry(e, X)
			Finv, detF := mesh.JacobianInverse(F)
			w *= math.Abs(detF) * source(x)
			for k := 0; k < V.NumComponents; k++ {
				for i, dof := range V.CellDofs(e, k) {
					p.tabulate(arg, V.PShape[k], k, i, qsub, Finv)
					b[dof] += w * arg.Value[k]
				}
			}
		}
	}
	for i, row := range p.lgmap {
		if row < 0 {
			b[i] = 0
		}
	}
	return
}

func cube(dim, n int) (shape utils.Index) {
	shape = make(utils.Index, dim)
	for d := range shape {
		shape[d] = n
	}
	return
}

// unravel returns the tensor index of i for the shape, axis 0 slowest
func unravel(i int, shape utils.Index) (sub []int) {
	sub = make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		sub[d] = i % shape[d]
		i /= shape[d]
	}
	return
}
