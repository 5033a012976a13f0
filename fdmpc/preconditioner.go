package fdmpc

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/notargets/fdmpc/FDM1D"
	"github.com/notargets/fdmpc/form"
	"github.com/notargets/fdmpc/linalg"
	"github.com/notargets/fdmpc/space"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Problem is the discrete problem whose operator is being preconditioned
type Problem struct {
	Space *space.FunctionSpace
	Form  *form.Form
	BCs   []space.DirichletBC
}

// AppContext carries optional settings of the application: "eta" for the
// interior penalty, and "form_compiler_parameters" holding a
// map[string]interface{} with the "quadrature_degree" of the coefficients.
// Numbers of any kind are accepted.
type AppContext map[string]interface{}

// settings returns the interior penalty and the coefficient quadrature degree,
// defaulting to (p+1)^2 and 2p+1 for degree p.
func (ctx AppContext) settings(degree int) (eta float64, quadDeg int, err error) {
	eta = float64((degree + 1) * (degree + 1))
	quadDeg = 2*degree + 1
	if val, ok := ctx["eta"]; ok {
		if eta, err = cast.ToFloat64E(val); err != nil {
			err = fmt.Errorf("app context eta: %w", err)
			return
		}
	}
	if val, ok := ctx["form_compiler_parameters"]; ok {
		var fcp map[string]interface{}
		if fcp, err = cast.ToStringMapE(val); err != nil {
			err = fmt.Errorf("app context form_compiler_parameters: %w", err)
			return
		}
		if val, ok = fcp["quadrature_degree"]; ok {
			if quadDeg, err = cast.ToIntE(val); err != nil {
				err = fmt.Errorf("app context quadrature_degree: %w", err)
				return
			}
		}
	}
	return
}

type pcState uint8

const (
	uninitialized pcState = iota
	initialized
	updated
	destroyed
)

func (s pcState) String() string {
	switch s {
	case uninitialized:
		return "uninitialized"
	case initialized:
		return "initialized"
	case updated:
		return "updated"
	}
	return "destroyed"
}

func (s pcState) ready() bool { return s == initialized || s == updated }

/*
FDMPC preconditions a tensor product spectral element operator by a sparse
approximation assembled in the FDM basis, where the interval operators are
diagonal in the interior. The sparse matrix is solved by the inner solver
selected with options under the "fdm_" prefix.

When the space is not in the FDM variant, the nodal residual is mapped to
the FDM basis by the transpose interpolation and the correction mapped back.
*/
type FDMPC struct {
	Options   *linalg.Options
	Verbose   bool
	Reverse   bool
	state     pcState
	V, Vfdm   *space.FunctionSpace
	Ops       []*FDM1D.OperatorSet
	Coefs     *Coefficients
	Flags     *BCFlags
	Assembler *Assembler
	Amat      linalg.Operator
	Pmat      *linalg.AIJ
	P         *ChangeOfBasis
	Eta       float64
	NNZ       int // preallocated nonzeros
	pc        linalg.PC
	bcDofs    []int
	x, y      []float64
}

// NewFDMPC reads its options from v under prefix + "fdm_"
func NewFDMPC(v *viper.Viper, prefix string) *FDMPC {
	return &FDMPC{Options: linalg.NewOptions(v, prefix+"fdm_")}
}

func (p *FDMPC) logf(format string, args ...interface{}) {
	if p.Verbose {
		log.Printf("FDMPC: "+format, args...)
	}
}

// Initialize builds the interval operators, extracts the coefficients,
// preallocates and assembles the sparse matrix and sets up the inner solver.
// op is the operator being preconditioned, in the nodal basis of the space.
func (p *FDMPC) Initialize(op linalg.Operator, problem *Problem, appctx AppContext) (err error) {
	var (
		start = time.Now()
		V     = problem.Space
	)
	if p.state != uninitialized {
		return fmt.Errorf("%w: Initialize on a %v preconditioner", ErrBadState, p.state)
	}
	if p.Options == nil {
		p.Options = linalg.NewOptions(nil, "fdm_")
	}
	if _, err = V.Element.LineElements(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedElement, err)
	}
	p.V = V
	p.Vfdm = V.Reconstruct(space.FDM)
	var quadDeg int
	if p.Eta, quadDeg, err = appctx.settings(V.Element.Degree); err != nil {
		return
	}
	p.Ops = make([]*FDM1D.OperatorSet, len(V.Lines))
	for i, line := range V.Lines {
		if p.Ops[i], err = FDM1D.Get(line.Continuous, line.Degree, p.Eta); err != nil {
			return
		}
	}
	opts := ExtractOptions{
		QuadDegree:   quadDeg,
		DiscardMixed: true,
		CellAverage:  true,
		Procs:        p.Options.GetInt("procs", 0),
	}
	if p.Coefs, err = ExtractCoefficients(p.Vfdm, problem.Form, opts); err != nil {
		return
	}
	p.Flags = GetBCFlags(p.Vfdm, problem.BCs, problem.Form)
	p.Assembler = NewAssembler(p.Vfdm, problem.BCs, p.Coefs, p.Flags, p.Ops, p.Eta)
	p.Assembler.Reverse = p.Reverse
	p.logf("setup of %v took %v", p.Vfdm, time.Since(start))

	start = time.Now()
	prealloc := linalg.NewPreallocator(p.Vfdm.NumDofs())
	if err = p.Assembler.Assemble(prealloc); err != nil {
		return
	}
	p.NNZ = prealloc.Total()
	p.Pmat = linalg.NewAIJFromPattern(p.Vfdm.BlockSize, prealloc)
	p.logf("preallocation of %d nonzeros took %v", p.NNZ, time.Since(start))

	if V == p.Vfdm {
		p.Amat = op
	} else {
		p.P = NewChangeOfBasis(p.Vfdm, problem.BCs, p.Ops)
		p.Amat = NewFDMOperator(op, p.P)
		p.bcDofs = V.BCDofs(problem.BCs)
	}
	if p.pc, err = linalg.NewPC(p.Options, p.Amat, p.Pmat); err != nil {
		return
	}
	p.x = make([]float64, V.NumDofs())
	p.y = make([]float64, V.NumDofs())
	p.state = initialized
	return p.assemble()
}

// Update reassembles the sparse matrix from the current coefficients of the
// form and sets up the inner solver again.
func (p *FDMPC) Update() (err error) {
	if !p.state.ready() {
		return fmt.Errorf("%w: Update on a %v preconditioner", ErrBadState, p.state)
	}
	if err = p.assemble(); err != nil {
		return
	}
	p.state = updated
	return
}

func (p *FDMPC) assemble() (err error) {
	start := time.Now()
	if err = p.Assembler.Assemble(p.Pmat); err != nil {
		return
	}
	p.logf("assembly of %d nonzeros took %v", p.Pmat.NNZ(), time.Since(start))
	start = time.Now()
	if err = p.pc.SetUp(); err != nil {
		return
	}
	p.logf("inner setup took %v", time.Since(start))
	return
}

// SetUp is a no-op once initialized, the matrix is refreshed by Update
func (p *FDMPC) SetUp() error {
	if !p.state.ready() {
		return fmt.Errorf("%w: SetUp on a %v preconditioner", ErrBadState, p.state)
	}
	return nil
}

func (p *FDMPC) Apply(x, y []float64) error {
	return p.apply(x, y, false)
}

func (p *FDMPC) ApplyTranspose(x, y []float64) error {
	return p.apply(x, y, true)
}

func (p *FDMPC) apply(x, y []float64, trans bool) (err error) {
	if !p.state.ready() {
		return fmt.Errorf("%w: Apply on a %v preconditioner", ErrBadState, p.state)
	}
	apply := p.pc.Apply
	if trans {
		apply = p.pc.ApplyTranspose
	}
	if p.P == nil {
		return apply(x, y)
	}
	p.P.MultTranspose(x, p.x)
	if err = apply(p.x, p.y); err != nil {
		return
	}
	p.P.Mult(p.y, y)
	for _, dof := range p.bcDofs {
		y[dof] = x[dof]
	}
	return
}

func (p *FDMPC) View(w io.Writer, level int) {
	var (
		pad = strings.Repeat("  ", level)
	)
	fmt.Fprintf(w, "%sPC Object: type=fdm\n", pad)
	if !p.state.ready() {
		fmt.Fprintf(w, "%s  %v\n", pad, p.state)
		return
	}
	fmt.Fprintf(w, "%s  space: %v\n", pad, p.Vfdm)
	for i, ops := range p.Ops {
		fmt.Fprintf(w, "%s  interval %d: %v\n", pad, i, ops)
	}
	fmt.Fprintf(w, "%s  preallocated nonzeros: %d\n", pad, p.NNZ)
	fmt.Fprintf(w, "%s  PC to apply inverse\n", pad)
	p.pc.View(w, level+1)
}

func (p *FDMPC) Destroy() {
	if p.pc != nil {
		p.pc.Destroy()
		p.pc = nil
	}
	p.state = destroyed
}
