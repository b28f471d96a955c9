package mesh

import "math"

// bspline fills out[i] with the cardinal B-spline M_p(w + i) for
// i = 0..p-1 and w in [0, 1). The values sum to one.
func bspline(w float64, p int, out []float64) {
	out[0] = 1
	for n := 2; n <= p; n++ {
		out[n-1] = 0
		inv := 1 / float64(n-1)
		for i := n - 1; i >= 0; i-- {
			x := w + float64(i)
			var lo float64
			if i > 0 {
				lo = out[i-1]
			}
			out[i] = (x*out[i] + (float64(n)-x)*lo) * inv
		}
	}
}

// stencil is the assignment footprint of one particle: the first grid index
// per axis and the weights of the order consecutive (periodic) nodes.
type stencil struct {
	base [3]int
	w    [3][maxOrder]float64
}

const maxOrder = 7

// place computes the footprint along one axis for a coordinate u measured in
// grid spacings.
func place(u float64, p, n int, w *[maxOrder]float64) int {
	t := u - 0.5*float64(p)
	fl := math.Floor(t)
	var m [maxOrder]float64
	bspline(t-fl, p, m[:])
	for k := 0; k < p; k++ {
		w[k] = m[p-1-k]
	}
	return mod(int(fl)+1, n)
}

func mod(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
