package space

import (
	"fmt"
)

const (
	Spectral = "spectral" // Lagrange basis on the Gauss-Lobatto-Legendre nodes
	FDM      = "fdm"      // fast diagonalization basis
)

// Mapping is the pull back of element values to the reference cell
type Mapping int

const (
	Identity Mapping = iota
	CovariantPiola
	ContravariantPiola
)

func (mp Mapping) String() string {
	switch mp {
	case Identity:
		return "identity"
	case CovariantPiola:
		return "covariant piola"
	case ContravariantPiola:
		return "contravariant piola"
	}
	return fmt.Sprintf("mapping(%d)", int(mp))
}

// LineElement is the interval factor of a tensor product element
type LineElement struct {
	Continuous bool
	Degree     int
}

func (le LineElement) Size() int { return le.Degree + 1 }

func (le LineElement) String() string {
	if le.Continuous {
		return fmt.Sprintf("CG(%d)", le.Degree)
	}
	return fmt.Sprintf("DG(%d)", le.Degree)
}

/*
Element is a tensor product element on an interval, quadrilateral or
hexahedron.

	Q    continuous Lagrange, vector valued when Shape is set
	DQ   discontinuous Lagrange, vector valued when Shape is set
	RTCF, NCF  H(div) elements, contravariant Piola
	RTCE, NCE  H(curl) elements, covariant Piola

Degree is the polynomial degree of the highest line factor.
*/
type Element struct {
	Family  string
	Degree  int
	Dim     int
	Variant string
	Shape   []int
}

func NewElement(family string, degree, dim int) Element {
	return Element{Family: family, Degree: degree, Dim: dim, Variant: Spectral}
}

func NewVectorElement(family string, degree, dim, ncomp int) Element {
	e := NewElement(family, degree, dim)
	e.Shape = []int{ncomp}
	return e
}

// Reconstruct returns the same element with another variant
func (e Element) Reconstruct(variant string) Element {
	r := e
	r.Variant = variant
	r.Shape = append([]int(nil), e.Shape...)
	return r
}

func (e Element) Equal(o Element) bool {
	return e.String() == o.String()
}

func (e Element) String() string {
	s := fmt.Sprintf("%s%d(%d, variant=%s)", e.Family, e.Dim, e.Degree, e.Variant)
	if len(e.Shape) != 0 {
		s = fmt.Sprintf("Vector%s%v", s, e.Shape)
	}
	return s
}

func (e Element) piola() bool {
	switch e.Family {
	case "RTCF", "NCF", "RTCE", "NCE":
		return true
	}
	return false
}

func (e Element) Mapping() Mapping {
	switch e.Family {
	case "RTCF", "NCF":
		return ContravariantPiola
	case "RTCE", "NCE":
		return CovariantPiola
	}
	return Identity
}

// LineElements returns the interval factor of every catalog slot. Vector
// component k uses slot (d + Shift*k) mod Dim along reference direction d.
func (e Element) LineElements() (lines []LineElement, err error) {
	if e.Dim < 1 || e.Dim > 3 {
		err = fmt.Errorf("no tensor product cell of dimension %d", e.Dim)
		return
	}
	if e.Variant != Spectral && e.Variant != FDM {
		err = fmt.Errorf("unknown variant %q", e.Variant)
		return
	}
	var (
		first, rest LineElement
	)
	switch e.Family {
	case "Q":
		first = LineElement{Continuous: true, Degree: e.Degree}
		rest = first
	case "DQ":
		first = LineElement{Degree: e.Degree}
		rest = first
	case "RTCF", "NCF":
		first = LineElement{Continuous: true, Degree: e.Degree}
		rest = LineElement{Degree: e.Degree - 1}
	case "RTCE", "NCE":
		first = LineElement{Degree: e.Degree - 1}
		rest = LineElement{Continuous: true, Degree: e.Degree}
	default:
		err = fmt.Errorf("%s is not a tensor product family", e.Family)
		return
	}
	if e.piola() {
		if e.Dim < 2 {
			err = fmt.Errorf("%s needs a cell of dimension 2 or 3", e.Family)
			return
		}
		if e.Degree < 2 {
			err = fmt.Errorf("%s needs degree >= 2 for interval factors of degree >= 1", e.Family)
			return
		}
		if len(e.Shape) != 0 {
			err = fmt.Errorf("%s is already vector valued", e.Family)
			return
		}
	}
	if e.Degree < 1 {
		err = fmt.Errorf("degree %d is below the minimum of 1", e.Degree)
		return
	}
	lines = make([]LineElement, e.Dim)
	lines[0] = first
	for d := 1; d < e.Dim; d++ {
		lines[d] = rest
	}
	return
}

// Shift is the cyclic rotation between the catalog slots of consecutive
// vector components.
func (e Element) Shift() int {
	if e.piola() {
		return e.Dim - 1
	}
	return 0
}

// NumComponents is the reference value size
func (e Element) NumComponents() int {
	if e.piola() {
		return e.Dim
	}
	if len(e.Shape) != 0 {
		return e.Shape[0]
	}
	return 1
}

// BlockSize is the number of values stored per node
func (e Element) BlockSize() int {
	if e.piola() {
		return 1
	}
	return e.NumComponents()
}
