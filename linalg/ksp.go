package linalg

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrDiverged is returned when a Krylov solve breaks down or runs out of
// iterations.
var ErrDiverged = errors.New("krylov solve did not converge")

// KSP is a Krylov solver for A x = b preconditioned by PC. Type is "cg"
// (preconditioned conjugate gradients) or "preonly" (a single application
// of the preconditioner).
type KSP struct {
	Type         string
	RTol, ATol   float64
	MaxIt        int
	A            Operator
	PC           PC
	Prefix       string
	Iterations   int
	ResidualNorm float64
	work         [4][]float64
}

// NewKSP reads ksp_type, ksp_rtol, ksp_atol and ksp_max_it and builds the
// preconditioner from the same prefix.
func NewKSP(opts *Options, A Operator, P *AIJ) (ksp *KSP, err error) {
	var (
		pc PC
	)
	if pc, err = NewPC(opts, A, P); err != nil {
		return
	}
	return NewKSPWithPC(opts, A, pc)
}

func NewKSPWithPC(opts *Options, A Operator, pc PC) (ksp *KSP, err error) {
	ksp = &KSP{
		Type:   opts.GetString("ksp_type", "cg"),
		RTol:   opts.GetFloat64("ksp_rtol", 1.e-5),
		ATol:   opts.GetFloat64("ksp_atol", 1.e-50),
		MaxIt:  opts.GetInt("ksp_max_it", 10000),
		A:      A,
		PC:     pc,
		Prefix: opts.Prefix(),
	}
	switch ksp.Type {
	case "cg", "preonly":
	default:
		err = fmt.Errorf("unknown ksp_type %q under prefix %q", ksp.Type, ksp.Prefix)
	}
	return
}

func (ksp *KSP) SetUp() error { return ksp.PC.SetUp() }

func (ksp *KSP) Solve(b, x []float64) error {
	return ksp.solve(b, x, false)
}

func (ksp *KSP) SolveTranspose(b, x []float64) error {
	return ksp.solve(b, x, true)
}

func (ksp *KSP) solve(b, x []float64, trans bool) (err error) {
	var (
		n     = len(b)
		apply = ksp.PC.Apply
		mult  = ksp.A.Mult
	)
	if trans {
		apply = ksp.PC.ApplyTranspose
		mult = ksp.A.MultTranspose
	}
	if ksp.Type == "preonly" {
		ksp.Iterations = 1
		return apply(b, x)
	}
	for i := range ksp.work {
		if len(ksp.work[i]) != n {
			ksp.work[i] = make([]float64, n)
		}
	}
	var (
		r, z, p, Ap = ksp.work[0], ksp.work[1], ksp.work[2], ksp.work[3]
		bnorm       = floats.Norm(b, 2)
		tol         = math.Max(ksp.RTol*bnorm, ksp.ATol)
	)
	// r = b - A x
	mult(x, Ap)
	floats.SubTo(r, b, Ap)
	ksp.ResidualNorm = floats.Norm(r, 2)
	ksp.Iterations = 0
	if ksp.ResidualNorm <= tol {
		return
	}
	if err = apply(r, z); err != nil {
		return
	}
	copy(p, z)
	rz := floats.Dot(r, z)
	for ksp.Iterations = 1; ksp.Iterations <= ksp.MaxIt; ksp.Iterations++ {
		mult(p, Ap)
		pAp := floats.Dot(p, Ap)
		if pAp <= 0 {
			return fmt.Errorf("%w: indefinite operator, pAp = %g", ErrDiverged, pAp)
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)
		if ksp.ResidualNorm = floats.Norm(r, 2); ksp.ResidualNorm <= tol {
			return
		}
		if err = apply(r, z); err != nil {
			return
		}
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		// p = z + beta p
		floats.Scale(beta, p)
		floats.Add(p, z)
	}
	ksp.Iterations = ksp.MaxIt
	return fmt.Errorf("%w: residual %g after %d iterations", ErrDiverged, ksp.ResidualNorm, ksp.MaxIt)
}

func (ksp *KSP) View(w io.Writer, level int) {
	fmt.Fprintf(w, "%sKSP Object: (%s) type=%s\n", indent(level), ksp.Prefix, ksp.Type)
	if ksp.Type != "preonly" {
		fmt.Fprintf(w, "%s  tolerances: relative=%g, absolute=%g, maximum iterations=%d\n",
			indent(level), ksp.RTol, ksp.ATol, ksp.MaxIt)
	}
	ksp.PC.View(w, level)
}

func (ksp *KSP) Destroy() { ksp.PC.Destroy() }
