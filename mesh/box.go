package mesh

import (
	"fmt"
)

// NewBoxMesh builds a structured mesh of the box [0,L_0] x .. x [0,L_{d-1}]
// with n[d] cells along axis d. Boundary facets on X_d = s are labelled
// 2*d+s+1, so a unit square gets labels 1 (x=0), 2 (x=1), 3 (y=0), 4 (y=1).
func NewBoxMesh(n []int, L []float64) (m *Mesh) {
	var (
		tdim   = len(n)
		nverts = 1
		ncells = 1
	)
	if tdim < 1 || tdim > 3 || len(L) != tdim {
		panic(fmt.Errorf("box mesh needs 1 to 3 axes with one length each, have %d cells and %d lengths",
			len(n), len(L)))
	}
	for d := 0; d < tdim; d++ {
		if n[d] < 1 {
			panic(fmt.Errorf("box mesh needs at least one cell along axis %d", d))
		}
		nverts *= n[d] + 1
		ncells *= n[d]
	}
	m = &Mesh{
		TDim:          tdim,
		GDim:          tdim,
		NumCells:      ncells,
		NumOwnedCells: ncells,
		Coords:        make([][]float64, nverts),
		CellVertices:  make([][]int, ncells),
		CellFacets:    make([][]Facet, ncells),
		Lattice:       make([][]int, ncells),
		Orientations:  make([]int, ncells),
	}
	// Vertices, axis 0 slowest
	vshape := make([]int, tdim)
	for d := range vshape {
		vshape[d] = n[d] + 1
	}
	for iv := 0; iv < nverts; iv++ {
		sub := unravel(iv, vshape)
		x := make([]float64, tdim)
		for d := 0; d < tdim; d++ {
			x[d] = L[d] * float64(sub[d]) / float64(n[d])
		}
		m.Coords[iv] = x
	}
	for k := 0; k < ncells; k++ {
		sub := unravel(k, n)
		m.Lattice[k] = sub
		verts := make([]int, 1<<uint(tdim))
		for v := range verts {
			vsub := make([]int, tdim)
			for d := 0; d < tdim; d++ {
				vsub[d] = sub[d] + (v>>uint(tdim-1-d))&1
			}
			verts[v] = ravel(vsub, vshape)
		}
		m.CellVertices[k] = verts
		facets := make([]Facet, 2*tdim)
		for d := 0; d < tdim; d++ {
			for s := 0; s < 2; s++ {
				f := 2*d + s
				nsub := append([]int{}, sub...)
				nsub[d] += 2*s - 1
				if nsub[d] < 0 || nsub[d] >= n[d] {
					facets[f] = Facet{SubDomain: f + 1}
					continue
				}
				facets[f] = Facet{Interior: true, SubDomain: -1}
				if s == 1 {
					m.InteriorFacets = append(m.InteriorFacets, InteriorFacet{
						Cells:      [2]int{k, ravel(nsub, n)},
						LocalFacet: [2]int{f, f - 1},
					})
				}
			}
		}
		m.CellFacets[k] = facets
	}
	return
}

func unravel(i int, shape []int) (sub []int) {
	sub = make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		sub[d] = i % shape[d]
		i /= shape[d]
	}
	return
}

func ravel(sub, shape []int) (i int) {
	for d := range shape {
		i = i*shape[d] + sub[d]
	}
	return
}
