package utils

type Index []int

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

func (I Index) Add(val int) (r Index) {
	r = make(Index, len(I))
	for i, v := range I {
		r[i] = v + val
	}
	return
}

func (I Index) Scale(val int) (r Index) {
	r = make(Index, len(I))
	for i, v := range I {
		r[i] = v * val
	}
	return
}

func (I Index) Apply(f func(val int) int) (r Index) {
	r = make(Index, len(I))
	for i, val := range I {
		r[i] = f(val)
	}
	return
}

func (I Index) Copy() (r Index) {
	r = make(Index, len(I))
	copy(r, I)
	return
}

// Prod is the number of entries in a tensor of shape I
func (I Index) Prod() (p int) {
	p = 1
	for _, val := range I {
		p *= val
	}
	return
}

// PullAxis reorders x, laid out as a tensor of shape pshape with axis 0
// slowest, so that axis idir becomes the slowest axis while the remaining
// axes keep their order.
func PullAxis(x Index, pshape Index, idir int) (r Index) {
	var (
		nd      = len(pshape)
		strides = make([]int, nd)
		order   = make([]int, 0, nd)
		sub     = make([]int, nd)
	)
	if pshape.Prod() != len(x) {
		panic("mismatch between tensor shape and index length")
	}
	stride := 1
	for d := nd - 1; d >= 0; d-- {
		strides[d] = stride
		stride *= pshape[d]
	}
	order = append(order, idir)
	for d := 0; d < nd; d++ {
		if d != idir {
			order = append(order, d)
		}
	}
	r = make(Index, len(x))
	for i := range r {
		rem := i
		for k := nd - 1; k >= 0; k-- {
			d := order[k]
			sub[d] = rem % pshape[d]
			rem /= pshape[d]
		}
		src := 0
		for d := 0; d < nd; d++ {
			src += sub[d] * strides[d]
		}
		r[i] = x[src]
	}
	return
}
