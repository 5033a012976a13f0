package fdmpc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/notargets/fdmpc/form"
	"github.com/notargets/fdmpc/mesh"
	"github.com/notargets/fdmpc/space"
)

// Sub domain values of the synthetic horizontal boundaries of extruded meshes
const (
	bottomLabel = -2
	topLabel    = -4
)

/*
BCFlags marks, for every cell and local facet, whether the facet carries a
Dirichlet condition (1) or not (0). Interior facets are always 0. When
some condition targets a single component the flags are stored per
component, otherwise one set is shared by all components.
*/
type BCFlags struct {
	NumCells      int
	NumFacets     int
	NumComponents int // 0 when shared by all components
	Data          []int
}

// Cell returns the facet flags of cell e for component k
func (b *BCFlags) Cell(e, k int) []int {
	var (
		i0 = e * b.NumFacets
	)
	if b.NumComponents > 0 {
		i0 = (e*b.NumComponents + k) * b.NumFacets
	}
	return b.Data[i0 : i0+b.NumFacets]
}

type bcflagsKey struct {
	V    *space.FunctionSpace
	Form *form.Form
	bcs  string
}

var bcflagsCache = struct {
	sync.Mutex
	flags map[bcflagsKey]*BCFlags
}{flags: make(map[bcflagsKey]*BCFlags)}

// GetBCFlags resolves the Dirichlet state of every cell facet from the
// strong conditions bcs and the exterior facet integrals of f, which act
// as weak conditions on every component. Results are cached.
func GetBCFlags(V *space.FunctionSpace, bcs []space.DirichletBC, f *form.Form) (flags *BCFlags) {
	key := bcflagsKey{V: V, Form: f, bcs: fmt.Sprint(bcs)}
	bcflagsCache.Lock()
	defer bcflagsCache.Unlock()
	if flags = bcflagsCache.flags[key]; flags != nil {
		return
	}
	flags = resolveBCFlags(V, bcs, f)
	bcflagsCache.flags[key] = flags
	return
}

func resolveBCFlags(V *space.FunctionSpace, bcs []space.DirichletBC, f *form.Form) (flags *BCFlags) {
	var (
		m       = V.Mesh
		nfacets = m.NumFacetsPerCell()
		labels  = make(map[int]map[int]bool)
		maskall = make(map[int]bool)
	)
	addLabel := func(comp, label int) {
		if labels[comp] == nil {
			labels[comp] = make(map[int]bool)
		}
		labels[comp][label] = true
	}
	addLiteral := func(comp int, lit string) {
		switch lit {
		case "on_boundary":
			maskall[comp] = true
		case "bottom":
			addLabel(comp, bottomLabel)
		case "top":
			addLabel(comp, topLabel)
		}
	}
	for _, bc := range bcs {
		ls, lit := bc.Labels()
		for _, l := range ls {
			addLabel(bc.Component, l)
		}
		addLiteral(bc.Component, lit)
	}
	if f != nil {
		for _, fi := range f.Facets {
			if !strings.HasPrefix(fi.Type, form.ExteriorFacet) {
				continue
			}
			switch {
			case fi.SubDomain != nil:
				for _, l := range fi.SubDomain {
					addLabel(space.AllComponents, l)
				}
			case fi.Type == form.ExteriorFacetBottom:
				addLabel(space.AllComponents, bottomLabel)
			case fi.Type == form.ExteriorFacetTop:
				addLabel(space.AllComponents, topLabel)
			default:
				maskall[space.AllComponents] = true
			}
		}
	}
	interior, sub := cellToFacets(m)
	marked := func(comp, s int) bool {
		return labels[comp][s] || (maskall[comp] && s >= -1)
	}
	perComponent := false
	for comp := range labels {
		perComponent = perComponent || comp != space.AllComponents
	}
	for comp := range maskall {
		perComponent = perComponent || comp != space.AllComponents
	}
	flags = &BCFlags{NumCells: m.NumCells, NumFacets: nfacets}
	if !perComponent {
		flags.Data = make([]int, m.NumCells*nfacets)
		for e := 0; e < m.NumCells; e++ {
			for lf := 0; lf < nfacets; lf++ {
				if !interior[e][lf] && marked(space.AllComponents, sub[e][lf]) {
					flags.Data[e*nfacets+lf] = 1
				}
			}
		}
		return
	}
	ncomp := V.NumComponents
	flags.NumComponents = ncomp
	flags.Data = make([]int, m.NumCells*ncomp*nfacets)
	for e := 0; e < m.NumCells; e++ {
		for k := 0; k < ncomp; k++ {
			fl := flags.Cell(e, k)
			for lf := 0; lf < nfacets; lf++ {
				s := sub[e][lf]
				if interior[e][lf] {
					continue
				}
				if marked(space.AllComponents, s) || marked(k, s) {
					fl[lf] = 1
				}
			}
		}
	}
	return
}

// cellToFacets returns the interior state and sub domain of every local
// facet. The horizontal facets of extruded meshes are completed from a
// trace indicator over the column levels.
func cellToFacets(m *mesh.Mesh) (interior [][]bool, sub [][]int) {
	var (
		nfacets = m.NumFacetsPerCell()
	)
	interior = make([][]bool, m.NumCells)
	sub = make([][]int, m.NumCells)
	for e := 0; e < m.NumCells; e++ {
		interior[e] = make([]bool, nfacets)
		sub[e] = make([]int, nfacets)
		for lf, facet := range m.CellFacets[e] {
			interior[e][lf] = facet.Interior
			sub[e][lf] = facet.SubDomain
		}
	}
	if !m.Extruded() {
		return
	}
	var (
		lay   = m.Layering
		nbase = len(lay.Layers)
		// level z of column c
		level = func(c, z int) int { return lay.ColumnStart[c] + c + z }
		trace = make([]int, lay.ColumnStart[nbase]+nbase)
	)
	for _, facet := range m.InteriorFacets {
		for s := 0; s < 2; s++ {
			if lf := facet.LocalFacet[s]; m.IsHorizontal(lf) && lf == m.TopFacet() {
				e := facet.Cells[s]
				trace[level(lay.ToBase[e], lay.ToLayer[e]+1)] += 2
			}
		}
	}
	for c := 0; c < nbase; c++ {
		trace[level(c, 0)] = bottomLabel
		trace[level(c, lay.Layers[c])] = topLabel
	}
	for e := 0; e < m.NumCells; e++ {
		var (
			c = lay.ToBase[e]
			l = lay.ToLayer[e]
		)
		for lf, z := range map[int]int{m.BottomFacet(): l, m.TopFacet(): l + 1} {
			if w := trace[level(c, z)]; w > 0 {
				interior[e][lf], sub[e][lf] = true, -1
			} else {
				interior[e][lf], sub[e][lf] = false, w
			}
		}
	}
	return
}
