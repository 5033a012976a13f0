package linalg

import (
	"fmt"
	"io"
	"strings"
)

// PC is a preconditioner, the approximate action of an inverse
type PC interface {
	SetUp() error
	Apply(x, y []float64) error
	ApplyTranspose(x, y []float64) error
	View(w io.Writer, level int)
	Destroy()
}

/*
NewPC builds the preconditioner selected by <prefix>pc_type:

	lu      sparse direct factorization of Pmat (default)
	jacobi  inverse diagonal of Pmat
	none    identity
	ksp     a nested Krylov solve with options under <prefix>ksp_, using Amat
	        as the operator when <prefix>pc_use_amat is set (default true)

The returned preconditioner still needs SetUp.
*/
func NewPC(opts *Options, Amat Operator, Pmat *AIJ) (pc PC, err error) {
	switch pcType := opts.GetString("pc_type", "lu"); pcType {
	case "lu":
		pc = &LUPC{P: Pmat}
	case "jacobi":
		pc = &JacobiPC{P: Pmat}
	case "none":
		pc = &NonePC{}
	case "ksp":
		var (
			op  Operator = Pmat
			ksp *KSP
		)
		if opts.GetBool("pc_use_amat", true) && Amat != nil {
			op = Amat
		}
		if ksp, err = NewKSP(opts.Sub("ksp_"), op, Pmat); err != nil {
			return
		}
		pc = &KSPPC{KSP: ksp}
	default:
		err = fmt.Errorf("unknown pc_type %q under prefix %q", pcType, opts.Prefix())
	}
	return
}

func indent(level int) string { return strings.Repeat("  ", level) }

// LUPC applies the sparse LU factors of P
type LUPC struct {
	P  *AIJ
	lu *LU
}

func (pc *LUPC) SetUp() (err error) {
	pc.Destroy()
	pc.lu, err = NewLU(pc.P)
	return
}

func (pc *LUPC) Apply(x, y []float64) error          { return pc.lu.Solve(x, y) }
func (pc *LUPC) ApplyTranspose(x, y []float64) error { return pc.lu.SolveTranspose(x, y) }

func (pc *LUPC) View(w io.Writer, level int) {
	fmt.Fprintf(w, "%sPC Object: type=lu\n", indent(level))
	fmt.Fprintf(w, "%s  matrix: rows=%d, block size=%d, nonzeros=%d\n",
		indent(level), pc.P.Size(), pc.P.BlockSize(), pc.P.NNZ())
}

func (pc *LUPC) Destroy() {
	if pc.lu != nil {
		pc.lu.Destroy()
		pc.lu = nil
	}
}

// JacobiPC scales by the inverse diagonal of P
type JacobiPC struct {
	P    *AIJ
	dinv []float64
}

func (pc *JacobiPC) SetUp() error {
	pc.dinv = pc.P.Diagonal()
	for i, d := range pc.dinv {
		if d == 0 {
			return fmt.Errorf("zero diagonal entry in row %d", i)
		}
		pc.dinv[i] = 1 / d
	}
	return nil
}

func (pc *JacobiPC) Apply(x, y []float64) error {
	for i := range y {
		y[i] = pc.dinv[i] * x[i]
	}
	return nil
}

func (pc *JacobiPC) ApplyTranspose(x, y []float64) error { return pc.Apply(x, y) }

func (pc *JacobiPC) View(w io.Writer, level int) {
	fmt.Fprintf(w, "%sPC Object: type=jacobi\n", indent(level))
}

func (pc *JacobiPC) Destroy() { pc.dinv = nil }

type NonePC struct{}

func (pc *NonePC) SetUp() error { return nil }

func (pc *NonePC) Apply(x, y []float64) error {
	copy(y, x)
	return nil
}

func (pc *NonePC) ApplyTranspose(x, y []float64) error { return pc.Apply(x, y) }

func (pc *NonePC) View(w io.Writer, level int) {
	fmt.Fprintf(w, "%sPC Object: type=none\n", indent(level))
}

func (pc *NonePC) Destroy() {}

// KSPPC applies a nested Krylov solve
type KSPPC struct {
	KSP *KSP
}

func (pc *KSPPC) SetUp() error { return pc.KSP.SetUp() }

func (pc *KSPPC) Apply(x, y []float64) error {
	zero(y)
	return pc.KSP.Solve(x, y)
}

func (pc *KSPPC) ApplyTranspose(x, y []float64) error {
	zero(y)
	return pc.KSP.SolveTranspose(x, y)
}

func (pc *KSPPC) View(w io.Writer, level int) {
	fmt.Fprintf(w, "%sPC Object: type=ksp\n", indent(level))
	fmt.Fprintf(w, "%s  KSP and PC on KSP preconditioner follow\n", indent(level))
	pc.KSP.View(w, level+1)
}

func (pc *KSPPC) Destroy() { pc.KSP.Destroy() }
