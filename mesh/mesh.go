package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/fdmpc/utils"
	"gonum.org/v1/gonum/mat"
)

// Facet is one local facet of a cell. Local facet 2*d+s lies on the
// reference plane X_d = s. Exterior facets carry their boundary label,
// interior facets carry SubDomain = -1.
type Facet struct {
	Interior  bool
	SubDomain int
}

// InteriorFacet joins two cells through their local facets
type InteriorFacet struct {
	Cells      [2]int
	LocalFacet [2]int
}

/*
Mesh is a structured tensor product mesh of intervals, quadrilaterals or
hexahedra, possibly embedded in a higher dimensional space (GDim > TDim).

	CellVertices holds 2^TDim vertices per cell, vertex bits ordered with
	reference axis 0 slowest.
	Lattice holds the integer position of each cell along every axis, used
	to number tensor product degrees of freedom.
*/
type Mesh struct {
	TDim, GDim     int
	NumCells       int
	NumOwnedCells  int
	Coords         [][]float64
	CellVertices   [][]int
	CellFacets     [][]Facet
	InteriorFacets []InteriorFacet
	Lattice        [][]int
	Orientations   []int
	Layering       *Layering
}

func (m *Mesh) NumFacetsPerCell() int { return 2 * m.TDim }

func (m *Mesh) Extruded() bool { return m.Layering != nil }

func (m *Mesh) String() string {
	kind := "box"
	if m.Extruded() {
		kind = "extruded"
	}
	return fmt.Sprintf("%s mesh: tdim = %d, gdim = %d, cells = %d, interior facets = %d",
		kind, m.TDim, m.GDim, m.NumCells, len(m.InteriorFacets))
}

// Transform maps the vertex coordinates through f. The geometric dimension
// follows the length of the returned coordinates.
func (m *Mesh) Transform(f func(x []float64) []float64) {
	for i, x := range m.Coords {
		m.Coords[i] = f(x)
	}
	if len(m.Coords) > 0 {
		m.GDim = len(m.Coords[0])
	}
}

// Geometry evaluates the multilinear cell map at the reference point X in
// [0,1]^TDim, returning the physical point and the Jacobian F (GDim x TDim).
func (m *Mesh) Geometry(cell int, X []float64) (x []float64, F utils.Matrix) {
	var (
		verts = m.CellVertices[cell]
	)
	if len(X) != m.TDim {
		panic(fmt.Errorf("reference point has dimension %d, mesh has %d", len(X), m.TDim))
	}
	x = make([]float64, m.GDim)
	F = utils.NewMatrix(m.GDim, m.TDim)
	for v, iv := range verts {
		var (
			N  = 1.
			dN = make([]float64, m.TDim)
		)
		for d := 0; d < m.TDim; d++ {
			dN[d] = 1
		}
		for d := 0; d < m.TDim; d++ {
			var (
				bit = (v >> uint(m.TDim-1-d)) & 1
				phi = 1 - X[d]
				dp  = -1.
			)
			if bit == 1 {
				phi, dp = X[d], 1
			}
			for a := 0; a < m.TDim; a++ {
				if a == d {
					dN[a] *= dp
				} else {
					dN[a] *= phi
				}
			}
			N *= phi
		}
		for i, xi := range m.Coords[iv] {
			x[i] += N * xi
			for a := 0; a < m.TDim; a++ {
				F.M.Set(i, a, F.At(i, a)+dN[a]*xi)
			}
		}
	}
	return
}

// JacobianInverse returns the (pseudo) inverse of F and the measure
// |det F|, sqrt(det(FᵀF)) on manifolds.
func JacobianInverse(F utils.Matrix) (Finv utils.Matrix, detF float64) {
	var (
		gdim, tdim = F.Dims()
	)
	if gdim == tdim {
		var (
			err error
		)
		detF = mat.Det(F.M)
		if Finv, err = F.Inverse(); err != nil {
			panic(fmt.Errorf("degenerate cell: %v", err))
		}
		return
	}
	FtF := F.Transpose().Mul(F)
	detF = math.Sqrt(mat.Det(FtF.M))
	FtFinv, err := FtF.Inverse()
	if err != nil {
		panic(fmt.Errorf("degenerate cell: %v", err))
	}
	Finv = FtFinv.Mul(F.Transpose())
	return
}

// FacetMeasure is the surface Jacobian of local facet f, the volume of the
// parallelotope spanned by the tangential columns of F.
func FacetMeasure(F utils.Matrix, f int) float64 {
	var (
		gdim, tdim = F.Dims()
		idir       = f / 2
		tangents   []int
	)
	if tdim == 1 {
		return 1
	}
	for d := 0; d < tdim; d++ {
		if d != idir {
			tangents = append(tangents, d)
		}
	}
	T := F.SliceCols(tangents)
	if gdim == len(tangents) {
		return math.Abs(mat.Det(T.M))
	}
	return math.Sqrt(math.Abs(mat.Det(T.Transpose().Mul(T).M)))
}
