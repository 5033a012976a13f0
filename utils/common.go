package utils

func ConstArray(N int, val float64) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

// POW is x^p by repeated squaring
func POW(x float64, p int) (y float64) {
	if p < 0 {
		return 1 / POW(x, -p)
	}
	y = 1
	for ; p > 0; p >>= 1 {
		if p&1 == 1 {
			y *= x
		}
		x *= x
	}
	return
}
