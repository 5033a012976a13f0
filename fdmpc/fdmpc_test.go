package fdmpc

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/form"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/mesh"
	"github.com/notargets/fdmpc/model_problems/Poisson"
	"github.com/notargets/fdmpc/space"
	"github.com/notargets/fdmpc/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeDofs(V *space.FunctionSpace, bcs []space.DirichletBC) (free utils.Index) {
	for i, row := range V.LGMap(bcs) {
		if row >= 0 {
			free = append(free, i)
		}
	}
	return
}

// applyColumns returns the free block of the preconditioner, applied to
// every free unit vector.
func applyColumns(t *testing.T, pc *FDMPC, free utils.Index) (Y utils.Matrix) {
	var (
		n = pc.V.NumDofs()
		x = make([]float64, n)
		y = make([]float64, n)
	)
	Y = utils.NewMatrix(len(free), len(free))
	for c, j := range free {
		x[j] = 1
		require.NoError(t, pc.Apply(x, y))
		x[j] = 0
		for r, i := range free {
			Y.Set(r, c, y[i])
		}
	}
	return
}

func checkStructure(t *testing.T, pc *FDMPC, bcs []space.DirichletBC) {
	var (
		A = pc.Pmat
	)
	assert.Equal(t, pc.NNZ, A.NNZ())
	D := A.ToDense()
	assert.True(t, D.IsSymmetric(1.e-10*D.MaxAbs()))
	for _, dof := range pc.Vfdm.BCDofs(bcs) {
		cols, vals := A.Row(dof)
		assert.Equal(t, []int{dof}, cols)
		assert.Equal(t, []float64{1}, vals)
	}
	for i, d := range A.Diagonal() {
		assert.True(t, d > 0, "diagonal %d is %g", i, d)
	}
}

func TestPoisson1D(t *testing.T) {
	var (
		m   = mesh.NewBoxMesh([]int{4}, []float64{1})
		f   = form.Diffusion(nil, nil)
		bcs = []space.DirichletBC{space.NewDirichletBC("on_boundary")}
	)
	ref, err := Poisson.NewPoisson(m, space.NewElement("Q", 3, 1), f, bcs)
	require.NoError(t, err)
	assert.Equal(t, 13, ref.Space.NumDofs())
	pc := NewFDMPC(nil, "")
	require.NoError(t, pc.Initialize(ref.A, &Problem{Space: ref.Space, Form: f, BCs: bcs}, nil))
	defer pc.Destroy()
	checkStructure(t, pc, bcs)
	// In 1D the preconditioner is the exact inverse on the free dofs
	{
		free := freeDofs(ref.Space, bcs)
		Y := applyColumns(t, pc, free)
		Yinv, err := Y.Inverse()
		require.NoError(t, err)
		Aff := ref.A.ToDense().SubMatrix(free, free)
		tol := 1.e-8 * Aff.MaxAbs()
		for i := range free {
			for j := range free {
				assert.InDelta(t, Aff.At(i, j), Yinv.At(i, j), tol)
			}
		}
	}
	// Dirichlet values pass through
	{
		x := make([]float64, 13)
		y := make([]float64, 13)
		x[0], x[12] = 3, -2
		require.NoError(t, pc.Apply(x, y))
		assert.Equal(t, 3., y[0])
		assert.Equal(t, -2., y[12])
	}
}

func TestPoisson2D(t *testing.T) {
	var (
		m   = mesh.NewBoxMesh([]int{4, 4}, []float64{1, 1})
		f   = form.Diffusion(nil, nil)
		bcs = []space.DirichletBC{space.NewDirichletBC([]int{1, 3})}
	)
	ref, err := Poisson.NewPoisson(m, space.NewElement("Q", 2, 2), f, bcs)
	require.NoError(t, err)
	pc := NewFDMPC(nil, "")
	require.NoError(t, pc.Initialize(ref.A, &Problem{Space: ref.Space, Form: f, BCs: bcs}, nil))
	defer pc.Destroy()
	checkStructure(t, pc, bcs)
	assert.Equal(t, 81, pc.Pmat.Size())
	// On an affine Cartesian mesh the sparse FDM matrix is exact
	{
		opts := linalg.NewOptions(nil, "")
		opts.Set("ksp_rtol", 1.e-10)
		ksp, err := linalg.NewKSPWithPC(opts, ref.A, pc)
		require.NoError(t, err)
		require.NoError(t, ksp.SetUp())
		b := ref.RHS(func(x []float64) float64 { return 1 })
		x := make([]float64, len(b))
		require.NoError(t, ksp.Solve(b, x))
		assert.True(t, ksp.Iterations <= 5, "%d iterations", ksp.Iterations)
		r := make([]float64, len(b))
		ref.A.Mult(x, r)
		assert.InDeltaSlice(t, b, r, 1.e-8)
	}
	{
		var buf bytes.Buffer
		pc.View(&buf, 0)
		assert.Contains(t, buf.String(), "PC Object: type=fdm")
		assert.Contains(t, buf.String(), "  PC Object: type=lu")
		assert.Contains(t, buf.String(), "CG degree 2")
	}
}

func TestReaction(t *testing.T) {
	var (
		m   = mesh.NewBoxMesh([]int{2, 2}, []float64{1, 1})
		f   = form.Diffusion(nil, func(x []float64, cell int) float64 { return 1 })
		bcs = []space.DirichletBC{space.NewDirichletBC(1)}
	)
	ref, err := Poisson.NewPoisson(m, space.NewVectorElement("Q", 2, 2, 2), f, bcs)
	require.NoError(t, err)
	pc := NewFDMPC(nil, "")
	require.NoError(t, pc.Initialize(ref.A, &Problem{Space: ref.Space, Form: f, BCs: bcs}, nil))
	defer pc.Destroy()
	require.NotNil(t, pc.Coefs.Bq)
	assert.Equal(t, []int{2, 2}, pc.Coefs.Bq.Shape)
	assert.InDeltaSlice(t, []float64{0.25, 0, 0, 0.25}, pc.Coefs.Bq.Cell(3), 1.e-14)
	checkStructure(t, pc, bcs)
	{
		opts := linalg.NewOptions(nil, "")
		opts.Set("ksp_rtol", 1.e-10)
		ksp, err := linalg.NewKSPWithPC(opts, ref.A, pc)
		require.NoError(t, err)
		b := ref.RHS(func(x []float64) float64 { return x[0] })
		x := make([]float64, len(b))
		require.NoError(t, ksp.Solve(b, x))
		assert.True(t, ksp.Iterations <= 5, "%d iterations", ksp.Iterations)
	}
}

func TestSIPG1D(t *testing.T) {
	var (
		m = mesh.NewBoxMesh([]int{2}, []float64{2})
		f = form.Diffusion(nil, nil)
	)
	V, err := space.NewFunctionSpace(m, space.NewElement("DQ", 2, 1).Reconstruct(space.FDM))
	require.NoError(t, err)
	assert.Equal(t, 6, V.NumDofs())
	// no Dirichlet facets, the matrix is singular
	pc := NewFDMPC(nil, "")
	pc.Options.Set("pc_type", "jacobi")
	require.NoError(t, pc.Initialize(nil, &Problem{Space: V, Form: f}, AppContext{"eta": 9.}))
	defer pc.Destroy()
	assert.Nil(t, pc.P)
	checkStructure(t, pc, nil)
	// Outward normal derivatives of the FDM endpoint modes
	{
		ops, err := FDM1D.Get(false, 2, 9)
		require.NoError(t, err)
		D := *ops.Dfdm
		assert.InDelta(t, 3.5, D.At(0, 0), 1.e-12)
		assert.InDelta(t, 1.5, D.At(0, 1), 1.e-12)
		assert.InDelta(t, 1.5, D.At(2, 0), 1.e-12)
		assert.InDelta(t, 3.5, D.At(2, 1), 1.e-12)
		assert.Same(t, ops, pc.Ops[0])
	}
	// Trace dofs 2 (cell 0, x=1) and 3 (cell 1, x=1)
	{
		A := pc.Pmat
		assert.InDelta(t, -9+0.5*(3.5+3.5), A.At(2, 3), 1.e-12)
		assert.InDelta(t, -5.5, A.At(3, 2), 1.e-12)
		assert.InDelta(t, 37./12+9-3.5, A.At(2, 2), 1.e-12)
		assert.InDelta(t, 103./12, A.At(3, 3), 1.e-12)
		assert.Equal(t, 0., A.At(0, 5))
		assert.Equal(t, 0., A.At(1, 4))
	}
}

func TestPiola(t *testing.T) {
	var (
		m = mesh.NewBoxMesh([]int{2, 2}, []float64{1, 1})
		f = form.Diffusion(nil, nil)
	)
	V, err := space.NewFunctionSpace(m, space.NewElement("RTCF", 2, 2).Reconstruct(space.FDM))
	require.NoError(t, err)
	{
		c, err := ExtractCoefficients(V, f, ExtractOptions{QuadDegree: 5, DiscardMixed: true, CellAverage: true})
		require.NoError(t, err)
		assert.Nil(t, c.Bq)
		for e := 0; e < 4; e++ {
			mu := c.Mu(e)
			assert.InDeltaSlice(t, []float64{4, 4}, mu[0], 1.e-12)
			assert.InDeltaSlice(t, []float64{4, 4}, mu[1], 1.e-12)
		}
		// Cell 0 touches its neighbors through local facets 1 and 3
		for _, lf := range []int{1, 3} {
			G := c.GqFacet.At(0, lf)
			assert.InDeltaSlice(t, []float64{1, 0, 0, 1, 1, 0, 0, 1}, G, 1.e-12)
			assert.InDeltaSlice(t, []float64{2, 0, 0, 2}, c.PTFacet.At(0, lf), 1.e-12)
		}
		assert.InDeltaSlice(t, make([]float64, 8), c.GqFacet.At(0, 0), 0)
	}
	bcs := []space.DirichletBC{space.NewDirichletBC("on_boundary")}
	pc := NewFDMPC(nil, "")
	require.NoError(t, pc.Initialize(nil, &Problem{Space: V, Form: f, BCs: bcs}, nil))
	defer pc.Destroy()
	checkStructure(t, pc, bcs)
	assert.Equal(t, 40, pc.Pmat.Size())
}

func TestOrderIndependence(t *testing.T) {
	var (
		m = mesh.NewBoxMesh([]int{3, 2}, []float64{1.5, 1})
		f = form.Diffusion(func(x []float64, cell int) float64 { return 1 + x[0]*x[1] }, nil)
	)
	for _, family := range []string{"Q", "DQ"} {
		V, err := space.NewFunctionSpace(m, space.NewElement(family, 3, 2).Reconstruct(space.FDM))
		require.NoError(t, err)
		var dense [2]utils.Matrix
		for i, reverse := range []bool{false, true} {
			pc := NewFDMPC(nil, "")
			pc.Options.Set("pc_type", "jacobi")
			pc.Reverse = reverse
			problem := &Problem{Space: V, Form: f, BCs: []space.DirichletBC{space.NewDirichletBC(2)}}
			if family == "DQ" {
				problem.BCs = nil
			}
			require.NoError(t, pc.Initialize(nil, problem, nil))
			dense[i] = pc.Pmat.ToDense()
			pc.Destroy()
		}
		assert.InDeltaSlice(t, dense[0].Data(), dense[1].Data(), 1.e-12*dense[0].MaxAbs())
	}
}

func TestUpdate(t *testing.T) {
	var (
		m     = mesh.NewBoxMesh([]int{2, 3}, []float64{1, 1})
		scale = 1.
		f     = form.Diffusion(func(x []float64, cell int) float64 { return scale }, nil)
		bcs   = []space.DirichletBC{space.NewDirichletBC(3)}
	)
	V, err := space.NewFunctionSpace(m, space.NewElement("Q", 2, 2))
	require.NoError(t, err)
	pc := NewFDMPC(nil, "")
	require.NoError(t, pc.Initialize(nil, &Problem{Space: V, Form: f, BCs: bcs}, nil))
	defer pc.Destroy()
	A0 := pc.Pmat.ToDense()
	// Idempotent
	{
		require.NoError(t, pc.Update())
		assert.InDeltaSlice(t, A0.Data(), pc.Pmat.ToDense().Data(), 1.e-14)
		assert.Equal(t, pc.NNZ, pc.Pmat.NNZ())
	}
	// Coefficients are read again
	{
		scale = 2
		require.NoError(t, pc.Update())
		A1 := pc.Pmat.ToDense()
		isBC := make(map[int]bool)
		for _, dof := range V.BCDofs(bcs) {
			isBC[dof] = true
		}
		n := V.NumDofs()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				exp := 2 * A0.At(i, j)
				if isBC[i] {
					exp = A0.At(i, j)
				}
				assert.InDelta(t, exp, A1.At(i, j), 1.e-12)
			}
		}
	}
}

func TestReactionUpdate(t *testing.T) {
	var (
		m   = mesh.NewBoxMesh([]int{2, 2}, []float64{1, 1})
		bcs = []space.DirichletBC{space.NewDirichletBC(1)}
	)
	// A reaction that vanishes at setup still enters later updates
	for _, e := range []space.Element{space.NewElement("Q", 2, 2), space.NewVectorElement("Q", 2, 2, 2)} {
		V, err := space.NewFunctionSpace(m, e)
		require.NoError(t, err)
		beta := 0.
		f := form.Diffusion(nil, func(x []float64, cell int) float64 { return beta })
		pc := NewFDMPC(nil, "")
		require.NoError(t, pc.Initialize(nil, &Problem{Space: V, Form: f, BCs: bcs}, nil))
		require.NotNil(t, pc.Coefs.Bq)
		beta = 10
		require.NoError(t, pc.Update())
		assert.Equal(t, pc.NNZ, pc.Pmat.NNZ())

		fresh := NewFDMPC(nil, "")
		require.NoError(t, fresh.Initialize(nil, &Problem{Space: V, Form: f, BCs: bcs}, nil))
		assert.InDeltaSlice(t, fresh.Pmat.ToDense().Data(), pc.Pmat.ToDense().Data(), 1.e-12)
		pc.Destroy()
		fresh.Destroy()
	}
	// No reaction term, no reaction field
	{
		V, err := space.NewFunctionSpace(m, space.NewElement("Q", 2, 2))
		require.NoError(t, err)
		c, err := ExtractCoefficients(V, form.Diffusion(nil, nil), ExtractOptions{QuadDegree: 5, DiscardMixed: true, CellAverage: true})
		require.NoError(t, err)
		assert.Nil(t, c.Bq)
	}
}

func TestAppContext(t *testing.T) {
	{
		eta, quadDeg, err := AppContext(nil).settings(2)
		require.NoError(t, err)
		assert.Equal(t, 9., eta)
		assert.Equal(t, 5, quadDeg)
	}
	// Integer penalties and float degrees, as decoded from YAML or JSON
	{
		ctx := AppContext{
			"eta":                      16,
			"form_compiler_parameters": map[string]interface{}{"quadrature_degree": 4.},
		}
		eta, quadDeg, err := ctx.settings(2)
		require.NoError(t, err)
		assert.Equal(t, 16., eta)
		assert.Equal(t, 4, quadDeg)
	}
	{
		_, _, err := AppContext{"eta": "large"}.settings(2)
		assert.Error(t, err)
		_, _, err = AppContext{"form_compiler_parameters": 3}.settings(2)
		assert.Error(t, err)
	}
	{
		V, err := space.NewFunctionSpace(mesh.NewBoxMesh([]int{2}, []float64{2}), space.NewElement("DQ", 2, 1).Reconstruct(space.FDM))
		require.NoError(t, err)
		pc := NewFDMPC(nil, "")
		pc.Options.Set("pc_type", "jacobi")
		require.NoError(t, pc.Initialize(nil, &Problem{Space: V, Form: form.Diffusion(nil, nil)}, AppContext{"eta": 25}))
		defer pc.Destroy()
		assert.Equal(t, 25., pc.Eta)
		assert.Equal(t, 25., pc.Ops[0].Eta)
	}
}

func TestLifecycle(t *testing.T) {
	var (
		m = mesh.NewBoxMesh([]int{2}, []float64{1})
		f = form.Diffusion(nil, nil)
		x = make([]float64, 5)
	)
	V, err := space.NewFunctionSpace(m, space.NewElement("Q", 2, 1))
	require.NoError(t, err)
	problem := &Problem{Space: V, Form: f, BCs: []space.DirichletBC{space.NewDirichletBC("on_boundary")}}
	{
		pc := NewFDMPC(nil, "")
		err := pc.Apply(x, x)
		assert.True(t, errors.Is(err, ErrBadState))
		assert.True(t, errors.Is(pc.Update(), ErrBadState))
		var buf bytes.Buffer
		pc.View(&buf, 0)
		assert.Contains(t, buf.String(), "uninitialized")
	}
	{
		pc := NewFDMPC(nil, "")
		require.NoError(t, pc.Initialize(nil, problem, nil))
		assert.True(t, errors.Is(pc.Initialize(nil, problem, nil), ErrBadState))
		require.NoError(t, pc.Update())
		require.NoError(t, pc.SetUp())
		pc.Destroy()
		assert.True(t, errors.Is(pc.Update(), ErrBadState))
		assert.True(t, errors.Is(pc.ApplyTranspose(x, x), ErrBadState))
	}
	// Nested solver options under the fdm_ prefix
	{
		pc := NewFDMPC(nil, "outer_")
		pc.Options.Viper().Set("outer_fdm_pc_type", "ksp")
		pc.Options.Viper().Set("outer_fdm_ksp_pc_type", "jacobi")
		require.NoError(t, pc.Initialize(nil, problem, nil))
		var buf bytes.Buffer
		pc.View(&buf, 0)
		assert.Contains(t, buf.String(), "(outer_fdm_ksp_) type=cg")
		pc.Destroy()
	}
	{
		pc := NewFDMPC(nil, "")
		pc.Options.Set("pc_type", "ilu")
		assert.Error(t, pc.Initialize(nil, problem, nil))
	}
}

func TestErrors(t *testing.T) {
	{
		V := &space.FunctionSpace{Element: space.NewElement("Q", 2, 4)}
		err := NewFDMPC(nil, "").Initialize(nil, &Problem{Space: V}, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedElement))
	}
	// Interior penalty on a surface embedded in 3D
	{
		m := mesh.NewBoxMesh([]int{2, 1}, []float64{1, 1})
		m.Transform(func(x []float64) []float64 { return []float64{x[0], x[1], x[0] * x[1]} })
		V, err := space.NewFunctionSpace(m, space.NewElement("DQ", 1, 2))
		require.NoError(t, err)
		err = NewFDMPC(nil, "").Initialize(nil, &Problem{Space: V, Form: form.Diffusion(nil, nil)}, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedGeometry))
	}
	{
		F := utils.NewIdentity(2)
		_, err := pullback(space.Mapping(42), F, F, 1, 0)
		assert.True(t, errors.Is(err, ErrUnsupportedMapping))
	}
}

func TestCoefficients(t *testing.T) {
	var (
		m = mesh.NewBoxMesh([]int{2, 1}, []float64{1, 1})
	)
	V, err := space.NewFunctionSpace(m, space.NewElement("Q", 2, 2))
	require.NoError(t, err)
	{
		c, err := ExtractCoefficients(V, form.Diffusion(nil, nil), ExtractOptions{QuadDegree: 5, DiscardMixed: true, CellAverage: true})
		require.NoError(t, err)
		assert.Equal(t, []int{2}, c.Gq.Shape)
		assert.InDeltaSlice(t, []float64{2, 0.5}, c.Mu(1)[0], 1.e-12)
		assert.Nil(t, c.Bq)
		assert.Nil(t, c.GqFacet)
		assert.Nil(t, c.BqDiag(0))
	}
	// Point values and the full tensor give the same separable part
	{
		K := [][]float64{{1, 0.25}, {0.25, 3}}
		c, err := ExtractCoefficients(V, form.Anisotropic(K), ExtractOptions{QuadDegree: 5})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 1, 2}, c.Gq.Shape)
		assert.Equal(t, 9, c.Gq.NumPoints)
		assert.InDeltaSlice(t, []float64{2, 1.5}, c.Mu(0)[0], 1.e-12)
		G := c.Gq.Cell(0)
		// mixed entry K[0][1] / (hx hy) * area
		assert.InDelta(t, 0.25, G[1], 1.e-12)
	}
	{
		f := form.Diffusion(nil, func(x []float64, cell int) float64 { return 3 })
		c, err := ExtractCoefficients(V, f, ExtractOptions{QuadDegree: 5, DiscardMixed: true, CellAverage: true})
		require.NoError(t, err)
		require.NotNil(t, c.Bq)
		assert.InDeltaSlice(t, []float64{1.5}, c.BqDiag(1), 1.e-12)
	}
}

func TestBCFlags(t *testing.T) {
	var (
		base = mesh.NewBoxMesh([]int{2}, []float64{1})
		m    = mesh.Extrude(base, []int{2}, 1)
	)
	V, err := space.NewFunctionSpace(m, space.NewElement("Q", 1, 2))
	require.NoError(t, err)
	{
		bcs := []space.DirichletBC{space.NewDirichletBC("bottom")}
		flags := GetBCFlags(V, bcs, nil)
		assert.Same(t, flags, GetBCFlags(V, bcs, nil))
		assert.Equal(t, 0, flags.NumComponents)
		assert.Equal(t, []int{0, 0, 1, 0}, flags.Cell(0, 0))
		assert.Equal(t, []int{0, 0, 0, 0}, flags.Cell(1, 0))
		assert.Equal(t, []int{0, 0, 1, 0}, flags.Cell(2, 0))
	}
	{
		f := &form.Form{
			Cell:   form.Diffusion(nil, nil).Cell,
			Facets: []form.FacetIntegral{{Type: form.ExteriorFacetTop}},
		}
		flags := GetBCFlags(V, []space.DirichletBC{space.NewDirichletBC("bottom")}, f)
		assert.Equal(t, []int{0, 0, 1, 0}, flags.Cell(0, 0))
		assert.Equal(t, []int{0, 0, 0, 1}, flags.Cell(1, 0))
	}
	{
		flags := GetBCFlags(V, []space.DirichletBC{space.NewDirichletBC("on_boundary")}, nil)
		assert.Equal(t, []int{1, 0, 0, 0}, flags.Cell(0, 0))
		assert.Equal(t, []int{0, 1, 0, 0}, flags.Cell(3, 0))
	}
	// Variable layers expose the side of the taller column
	{
		mv := mesh.Extrude(base, []int{1, 2}, 1)
		Vv, err := space.NewFunctionSpace(mv, space.NewElement("Q", 1, 2))
		require.NoError(t, err)
		flags := GetBCFlags(Vv, []space.DirichletBC{space.NewDirichletBC("top")}, nil)
		assert.Equal(t, []int{0, 0, 0, 1}, flags.Cell(0, 0))
		assert.Equal(t, []int{0, 0, 0, 0}, flags.Cell(1, 0))
		assert.Equal(t, []int{0, 0, 0, 1}, flags.Cell(2, 0))
		flags = GetBCFlags(Vv, []space.DirichletBC{space.NewDirichletBC("on_boundary")}, nil)
		assert.Equal(t, []int{1, 0, 0, 0}, flags.Cell(0, 0))
		assert.Equal(t, []int{1, 1, 0, 0}, flags.Cell(2, 0))
	}
	// Component conditions and weak conditions from the form
	{
		mb := mesh.NewBoxMesh([]int{2, 2}, []float64{1, 1})
		Vb, err := space.NewFunctionSpace(mb, space.NewVectorElement("Q", 2, 2, 2))
		require.NoError(t, err)
		flags := GetBCFlags(Vb, []space.DirichletBC{space.NewComponentBC(1, 0)}, nil)
		assert.Equal(t, 2, flags.NumComponents)
		assert.Equal(t, []int{1, 0, 0, 0}, flags.Cell(0, 0))
		assert.Equal(t, []int{0, 0, 0, 0}, flags.Cell(0, 1))
		f := &form.Form{
			Cell:   form.Diffusion(nil, nil).Cell,
			Facets: []form.FacetIntegral{{Type: form.ExteriorFacet}},
		}
		flags = GetBCFlags(Vb, nil, f)
		assert.Equal(t, []int{1, 0, 1, 0}, flags.Cell(0, 0))
		assert.Equal(t, []int{0, 1, 0, 1}, flags.Cell(3, 1))
	}
}

func TestChangeOfBasis(t *testing.T) {
	var (
		m   = mesh.NewBoxMesh([]int{2, 2}, []float64{1, 1})
		rng = rand.New(rand.NewSource(1))
		bcs = []space.DirichletBC{space.NewDirichletBC(1)}
	)
	for _, e := range []space.Element{space.NewElement("Q", 3, 2), space.NewElement("RTCF", 2, 2)} {
		V, err := space.NewFunctionSpace(m, e)
		require.NoError(t, err)
		var ops []*FDM1D.OperatorSet
		for _, line := range V.Lines {
			o, err := FDM1D.Get(line.Continuous, line.Degree, 1)
			require.NoError(t, err)
			ops = append(ops, o)
		}
		P := NewChangeOfBasis(V, bcs, ops)
		n := V.NumDofs()
		x, y := make([]float64, n), make([]float64, n)
		Px, Pty := make([]float64, n), make([]float64, n)
		for i := range x {
			x[i], y[i] = rng.Float64(), rng.Float64()
		}
		for _, dof := range V.BCDofs(bcs) {
			x[dof] = 0
		}
		P.Mult(x, Px)
		P.MultTranspose(y, Pty)
		var lhs, rhs float64
		for i := range x {
			lhs += Px[i] * y[i]
			rhs += x[i] * Pty[i]
		}
		assert.InDelta(t, lhs, rhs, 1.e-10*math.Abs(lhs))
	}
	// kronMult agrees with the dense Kronecker product
	{
		M0 := utils.NewMatrix(2, 2, []float64{1, 2, 3, 4})
		M1 := utils.NewMatrix(3, 3, []float64{1, 0, 2, 0, 1, 0, -1, 0, 1})
		K := M0.Kron(M1)
		x := []float64{1, 2, 3, 4, 5, 6}
		for _, trans := range []bool{false, true} {
			y := kronMult([]utils.Matrix{M0, M1}, utils.Index{2, 3}, x, trans)
			for i := range y {
				var exp float64
				for j := range x {
					if trans {
						exp += K.At(j, i) * x[j]
					} else {
						exp += K.At(i, j) * x[j]
					}
				}
				assert.InDelta(t, exp, y[i], 1.e-13)
			}
		}
	}
}
