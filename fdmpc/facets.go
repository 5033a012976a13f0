package fdmpc

import (
	"fmt"

	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/utils"
)

// assembleFacets adds the symmetric interior penalty coupling across every
// interior facet for the components whose normal interval is discontinuous.
// The coupling is a dense 2n x 2n interval operator on the two adjacent
// cells, tensored with the masses of the tangential directions.
func (a *Assembler) assembleFacets(A linalg.Mat) (err error) {
	var (
		V     = a.V
		m     = V.Mesh
		tdim  = m.TDim
		piola = a.Coefs.GqFacet != nil
		hasDG bool
	)
	for _, ops := range a.Ops {
		hasDG = hasDG || ops.Dfdm != nil
	}
	if !hasDG || len(m.InteriorFacets) == 0 {
		return
	}
	if tdim < m.GDim {
		return fmt.Errorf("%w: interior penalty on a %d dimensional manifold in %d dimensions",
			ErrUnsupportedGeometry, tdim, m.GDim)
	}
	facets := m.InteriorFacets
	for n := range facets {
		if a.Reverse {
			n = len(facets) - 1 - n
		}
		var (
			facet = facets[n]
			cells = facet.Cells
			lfd   = facet.LocalFacet
			idir  = lfd[0] / 2
			mu    [2][][]float64
		)
		if lfd[1]/2 != idir {
			panic(fmt.Errorf("facet between cells %v joins directions %d and %d", cells, idir, lfd[1]/2))
		}
		if !piola {
			mu[0], mu[1] = a.Coefs.Mu(cells[0]), a.Coefs.Mu(cells[1])
		}
		for k := 0; k < V.NumComponents; k++ {
			ops := a.Ops[V.Slot(k, idir)]
			if ops.Dfdm == nil {
				continue
			}
			// smu[s] is the weight of side s coupling side i to side j
			coupling := func(i, j int) (smu [2]float64) {
				sij := 0.5
				if i != j {
					sij = -0.5
				}
				for s := 0; s < 2; s++ {
					if piola {
						smu[s] = sij * a.piolaCoupling(cells, lfd, s, i, j, k, idir)
					} else {
						smu[s] = sij * mu[s][k][idir]
					}
				}
				return
			}
			Ae := a.facetOperator(ops, lfd, coupling)
			for d := 0; d < tdim; d++ {
				if d != idir {
					Ae = Ae.Kron(a.Ops[V.Slot(k, d)].Mass())
				}
			}
			rows := make([]int, 0, 2*V.SDim())
			for s := 0; s < 2; s++ {
				dofs := V.CellDofs(cells[s], k).Apply(func(dof int) int { return a.lgmap[dof] })
				rows = append(rows, utils.PullAxis(dofs, V.PShape[k], idir)...)
			}
			if err = setSubmat(A, Ae, rows); err != nil {
				return
			}
		}
	}
	return
}

// piolaCoupling is p_iᵀ M_s p_j with p the row k of the facet averaged
// transposed Piola map of each side and M_s the facet diffusion tensor of
// side s along idir.
func (a *Assembler) piolaCoupling(cells, lfd [2]int, s, i, j, k, idir int) (val float64) {
	var (
		gdim = a.V.Mesh.GDim
		M    = a.Coefs.GqFacet.At(cells[s], lfd[s])[idir*gdim*gdim : (idir+1)*gdim*gdim]
		pi   = a.Coefs.PTFacet.At(cells[i], lfd[i])[k*gdim : (k+1)*gdim]
		pj   = a.Coefs.PTFacet.At(cells[j], lfd[j])[k*gdim : (k+1)*gdim]
	)
	for r := 0; r < gdim; r++ {
		for c := 0; c < gdim; c++ {
			val += pi[r] * M[r*gdim+c] * pj[c]
		}
	}
	return
}

// facetOperator builds the interval coupling of the two sides along the
// facet normal. Side i owns rows i*n..(i+1)*n-1 and its facet node is the
// endpoint on local facet lfd[i].
func (a *Assembler) facetOperator(ops *FDM1D.OperatorSet, lfd [2]int, coupling func(i, j int) [2]float64) utils.CSR {
	var (
		n      = ops.Size()
		Dfacet = *ops.Dfdm
		Ad     = utils.NewMatrix(2*n, 2*n)
		dense  = make([]int, 0, 2)
	)
	for j := 0; j < 2; j++ {
		var (
			j0    = j * n
			jface = lfd[j] % 2
			jj    = j0 + (n-1)*jface
		)
		dense = append(dense, jj)
		for i := 0; i < 2; i++ {
			var (
				i0    = i * n
				iface = lfd[i] % 2
				ii    = i0 + (n-1)*iface
				smu   = coupling(i, j)
			)
			Ad.AddAt(ii, jj, a.Eta*(smu[0]+smu[1]))
			for r := 0; r < n; r++ {
				Ad.AddAt(i0+r, jj, -smu[i]*Dfacet.At(r, iface))
				Ad.AddAt(ii, j0+r, -smu[j]*Dfacet.At(r, jface))
			}
		}
	}
	return FDM1D.Sparsify(Ad, dense, false)
}
