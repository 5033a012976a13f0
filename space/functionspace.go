package space

import (
	"fmt"

	"github.com/notargets/fdmpc/mesh"
	"github.com/notargets/fdmpc/utils"
)

type nodeKey [4]int

/*
FunctionSpace numbers the tensor product degrees of freedom of an element
on a structured mesh. The local nodes of a component on a cell form a
tensor of shape PShape[k] with reference axis 0 slowest.

For blocked spaces (BlockSize == NumComponents) CellNodes holds one node
per local tensor entry and the components of node n are the dofs
n*BlockSize+c. Otherwise CellNodes holds the dofs of every component one
after the other.
*/
type FunctionSpace struct {
	Mesh          *mesh.Mesh
	Element       Element
	Lines         []LineElement
	Shift         int
	NumComponents int
	BlockSize     int
	PShape        []utils.Index
	CellNodes     [][]int
	NumNodes      int
}

func NewFunctionSpace(m *mesh.Mesh, e Element) (V *FunctionSpace, err error) {
	var (
		lines []LineElement
	)
	if e.Dim != m.TDim {
		err = fmt.Errorf("element %v does not match a mesh of dimension %d", e, m.TDim)
		return
	}
	if lines, err = e.LineElements(); err != nil {
		return
	}
	V = &FunctionSpace{
		Mesh:          m,
		Element:       e,
		Lines:         lines,
		Shift:         e.Shift(),
		NumComponents: e.NumComponents(),
		BlockSize:     e.BlockSize(),
	}
	V.PShape = make([]utils.Index, V.NumComponents)
	for k := range V.PShape {
		V.PShape[k] = make(utils.Index, m.TDim)
		for d := range V.PShape[k] {
			V.PShape[k][d] = lines[V.Slot(k, d)].Size()
		}
	}
	V.number()
	return
}

// Reconstruct returns the space of the element in another variant. The
// numbering is shared.
func (V *FunctionSpace) Reconstruct(variant string) (R *FunctionSpace) {
	if V.Element.Variant == variant {
		return V
	}
	R = &FunctionSpace{}
	*R = *V
	R.Element = V.Element.Reconstruct(variant)
	return
}

// Slot is the catalog slot used by component k along reference direction d
func (V *FunctionSpace) Slot(k, d int) int {
	return (d + V.Shift*k) % V.Mesh.TDim
}

func (V *FunctionSpace) Blocked() bool { return V.BlockSize == V.NumComponents }

// SDim is the number of local nodes of a single component
func (V *FunctionSpace) SDim() int { return V.PShape[0].Prod() }

func (V *FunctionSpace) NumDofs() int { return V.NumNodes * V.BlockSize }

// CellDofs returns the dofs of component k on a cell in local tensor order
func (V *FunctionSpace) CellDofs(cell, k int) (dofs utils.Index) {
	var (
		nodes = V.CellNodes[cell]
		sdim  = V.SDim()
	)
	if V.Blocked() {
		return utils.Index(nodes).Scale(V.BlockSize).Add(k)
	}
	return utils.Index(nodes[k*sdim : (k+1)*sdim]).Copy()
}

func (V *FunctionSpace) String() string {
	return fmt.Sprintf("%v on %v: %d dofs, block size %d", V.Element, V.Mesh, V.NumDofs(), V.BlockSize)
}

func (V *FunctionSpace) number() {
	var (
		m      = V.Mesh
		ids    = make(map[nodeKey]int)
		sdim   = V.SDim()
		ncomp  = V.NumComponents
		nkeyed = ncomp
	)
	if V.Blocked() {
		nkeyed = 1
	}
	V.CellNodes = make([][]int, m.NumCells)
	for e := 0; e < m.NumCells; e++ {
		nodes := make([]int, 0, nkeyed*sdim)
		for k := 0; k < nkeyed; k++ {
			pshape := V.PShape[k]
			for i := 0; i < sdim; i++ {
				var (
					key = nodeKey{k}
					sub = unravel(i, pshape)
				)
				for d, id := range sub {
					line := V.Lines[V.Slot(k, d)]
					if line.Continuous {
						key[d+1] = m.Lattice[e][d]*line.Degree + id
					} else {
						key[d+1] = m.Lattice[e][d]*line.Size() + id
					}
				}
				n, ok := ids[key]
				if !ok {
					n = len(ids)
					ids[key] = n
				}
				nodes = append(nodes, n)
			}
		}
		V.CellNodes[e] = nodes
	}
	V.NumNodes = len(ids)
}

func unravel(i int, shape utils.Index) (sub []int) {
	sub = make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		sub[d] = i % shape[d]
		i /= shape[d]
	}
	return
}
