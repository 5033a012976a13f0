package space

import (
	"fmt"
	"sort"
)

// AllComponents selects every component of a vector space
const AllComponents = -1

// DirichletBC constrains the dofs on the closure of the facets of a sub
// domain. SubDomain is an int, a []int of labels, or one of the literals
// "on_boundary", "top" and "bottom".
type DirichletBC struct {
	SubDomain interface{}
	Component int
}

func NewDirichletBC(subDomain interface{}) DirichletBC {
	return DirichletBC{SubDomain: subDomain, Component: AllComponents}
}

func NewComponentBC(subDomain interface{}, component int) DirichletBC {
	return DirichletBC{SubDomain: subDomain, Component: component}
}

func (bc DirichletBC) String() string {
	if bc.Component == AllComponents {
		return fmt.Sprintf("DirichletBC(%v)", bc.SubDomain)
	}
	return fmt.Sprintf("DirichletBC(%v, component %d)", bc.SubDomain, bc.Component)
}

// Labels returns the integer labels of the sub domain, and the literal
// name if it has one.
func (bc DirichletBC) Labels() (labels []int, literal string) {
	switch sd := bc.SubDomain.(type) {
	case int:
		labels = []int{sd}
	case []int:
		labels = sd
	case string:
		switch sd {
		case "on_boundary", "top", "bottom":
			literal = sd
		default:
			panic(fmt.Errorf("unknown sub domain %q", sd))
		}
	default:
		panic(fmt.Errorf("unsupported sub domain type %T", bc.SubDomain))
	}
	return
}

// onFacet reports whether local facet f of a cell belongs to the sub domain
func (V *FunctionSpace) onFacet(bc DirichletBC, cell, f int) bool {
	var (
		m           = V.Mesh
		facet       = m.CellFacets[cell][f]
		labels, lit = bc.Labels()
	)
	if m.IsHorizontal(f) {
		lay := m.Layering
		switch lit {
		case "bottom":
			return f == m.BottomFacet() && lay.ToLayer[cell] == 0
		case "top":
			return f == m.TopFacet() && lay.ToLayer[cell] == lay.Layers[lay.ToBase[cell]]-1
		}
		return false
	}
	if facet.Interior {
		return false
	}
	switch lit {
	case "on_boundary":
		return true
	case "top", "bottom":
		return false
	}
	for _, l := range labels {
		if l == facet.SubDomain {
			return true
		}
	}
	return false
}

// BoundaryDofs returns the sorted dofs constrained by bc. Only components
// whose interval factor normal to the facet is continuous have dofs on it.
func (V *FunctionSpace) BoundaryDofs(bc DirichletBC) (dofs []int) {
	var (
		m    = V.Mesh
		seen = make(map[int]bool)
		sdim = V.SDim()
	)
	if bc.Component != AllComponents && (!V.Blocked() || bc.Component >= V.NumComponents) {
		panic(fmt.Errorf("component %d is not a valid block component of %v", bc.Component, V.Element))
	}
	for e := 0; e < m.NumCells; e++ {
		for f := 0; f < m.NumFacetsPerCell(); f++ {
			if !V.onFacet(bc, e, f) {
				continue
			}
			var (
				d = f / 2
				s = f % 2
			)
			for k := 0; k < V.NumComponents; k++ {
				if bc.Component != AllComponents && k != bc.Component {
					continue
				}
				line := V.Lines[V.Slot(k, d)]
				if !line.Continuous {
					continue
				}
				cdofs := V.CellDofs(e, k)
				for i := 0; i < sdim; i++ {
					if unravel(i, V.PShape[k])[d] == s*line.Degree {
						seen[cdofs[i]] = true
					}
				}
			}
		}
	}
	for dof := range seen {
		dofs = append(dofs, dof)
	}
	sort.Ints(dofs)
	return
}

// BCDofs is the sorted union of the dofs of all bcs
func (V *FunctionSpace) BCDofs(bcs []DirichletBC) (dofs []int) {
	var (
		seen = make(map[int]bool)
	)
	for _, bc := range bcs {
		for _, dof := range V.BoundaryDofs(bc) {
			if !seen[dof] {
				seen[dof] = true
				dofs = append(dofs, dof)
			}
		}
	}
	sort.Ints(dofs)
	return
}

// LGMap maps every dof to its global row, -1 for dofs eliminated by bcs
func (V *FunctionSpace) LGMap(bcs []DirichletBC) (lgmap []int) {
	lgmap = make([]int, V.NumDofs())
	for i := range lgmap {
		lgmap[i] = i
	}
	for _, dof := range V.BCDofs(bcs) {
		lgmap[dof] = -1
	}
	return
}
