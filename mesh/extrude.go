package mesh

import (
	"fmt"
)

// Layering records the column structure of an extruded mesh. Cells of one
// column are numbered consecutively from the bottom layer up.
type Layering struct {
	Base        *Mesh
	Layers      []int // cells per column
	ColumnStart []int // first extruded cell of each column
	ToBase      []int // base cell of each extruded cell
	ToLayer     []int // layer of each extruded cell
	Variable    bool
}

// BottomFacet and TopFacet are the local horizontal facets of an extruded cell
func (m *Mesh) BottomFacet() int { return 2 * (m.TDim - 1) }
func (m *Mesh) TopFacet() int    { return 2*(m.TDim-1) + 1 }

// IsHorizontal reports whether local facet f of an extruded mesh is a
// bottom or top facet.
func (m *Mesh) IsHorizontal(f int) bool {
	return m.Extruded() && f/2 == m.TDim-1
}

/*
Extrude stacks cells on top of every base cell along a new last axis.
layers holds either a single count for every column, or one count per
base cell for variable layer meshes. Each layer has thickness
height/max(layers).

The horizontal entries of CellFacets are left as zero values; the bottom
and top boundaries are synthetic and are resolved by the caller from the
column structure.
*/
func Extrude(base *Mesh, layers []int, height float64) (m *Mesh) {
	var (
		tdim    = base.TDim + 1
		nbase   = base.NumCells
		maxL    int
		lay     = &Layering{Base: base}
		nlevels int
	)
	if base.Extruded() {
		panic(fmt.Errorf("cannot extrude an extruded mesh"))
	}
	if tdim > 3 {
		panic(fmt.Errorf("extruded meshes have at most 3 dimensions"))
	}
	switch len(layers) {
	case 1:
		lay.Layers = make([]int, nbase)
		for c := range lay.Layers {
			lay.Layers[c] = layers[0]
		}
	case nbase:
		lay.Layers = append([]int{}, layers...)
		lay.Variable = true
	default:
		panic(fmt.Errorf("need 1 or %d layer counts, have %d", nbase, len(layers)))
	}
	lay.ColumnStart = make([]int, nbase+1)
	for c, nl := range lay.Layers {
		if nl < 1 {
			panic(fmt.Errorf("column %d has no layers", c))
		}
		if nl > maxL {
			maxL = nl
		}
		lay.ColumnStart[c+1] = lay.ColumnStart[c] + nl
	}
	nlevels = maxL + 1
	ncells := lay.ColumnStart[nbase]
	m = &Mesh{
		TDim:          tdim,
		GDim:          base.GDim + 1,
		NumCells:      ncells,
		NumOwnedCells: ncells,
		Coords:        make([][]float64, len(base.Coords)*nlevels),
		CellVertices:  make([][]int, ncells),
		CellFacets:    make([][]Facet, ncells),
		Lattice:       make([][]int, ncells),
		Orientations:  make([]int, ncells),
		Layering:      lay,
	}
	for bv, x := range base.Coords {
		for z := 0; z < nlevels; z++ {
			m.Coords[bv*nlevels+z] = append(append([]float64{}, x...), height*float64(z)/float64(maxL))
		}
	}
	// Neighbor column through each base facet
	neighbor := make([][]int, nbase)
	for c := range neighbor {
		neighbor[c] = make([]int, base.NumFacetsPerCell())
		for f := range neighbor[c] {
			neighbor[c][f] = -1
		}
	}
	for _, bf := range base.InteriorFacets {
		neighbor[bf.Cells[0]][bf.LocalFacet[0]] = bf.Cells[1]
		neighbor[bf.Cells[1]][bf.LocalFacet[1]] = bf.Cells[0]
	}
	lay.ToBase = make([]int, ncells)
	lay.ToLayer = make([]int, ncells)
	for c := 0; c < nbase; c++ {
		for l := 0; l < lay.Layers[c]; l++ {
			k := lay.ColumnStart[c] + l
			lay.ToBase[k], lay.ToLayer[k] = c, l
			bverts := base.CellVertices[c]
			verts := make([]int, 2*len(bverts))
			for vb, bv := range bverts {
				verts[2*vb] = bv*nlevels + l
				verts[2*vb+1] = bv*nlevels + l + 1
			}
			m.CellVertices[k] = verts
			m.Lattice[k] = append(append([]int{}, base.Lattice[c]...), l)
			m.Orientations[k] = base.Orientations[c]
			facets := make([]Facet, 2*tdim)
			for f, bf := range base.CellFacets[c] {
				switch nb := neighbor[c][f]; {
				case !bf.Interior:
					facets[f] = bf
				case l < lay.Layers[nb]:
					facets[f] = Facet{Interior: true, SubDomain: -1}
				default:
					facets[f] = Facet{SubDomain: -1}
				}
			}
			m.CellFacets[k] = facets
		}
	}
	for _, bf := range base.InteriorFacets {
		c0, c1 := bf.Cells[0], bf.Cells[1]
		nl := lay.Layers[c0]
		if lay.Layers[c1] < nl {
			nl = lay.Layers[c1]
		}
		for l := 0; l < nl; l++ {
			m.InteriorFacets = append(m.InteriorFacets, InteriorFacet{
				Cells:      [2]int{lay.ColumnStart[c0] + l, lay.ColumnStart[c1] + l},
				LocalFacet: bf.LocalFacet,
			})
		}
	}
	for c := 0; c < nbase; c++ {
		for l := 0; l < lay.Layers[c]-1; l++ {
			k := lay.ColumnStart[c] + l
			m.InteriorFacets = append(m.InteriorFacets, InteriorFacet{
				Cells:      [2]int{k, k + 1},
				LocalFacet: [2]int{m.TopFacet(), m.BottomFacet()},
			})
		}
	}
	return
}
