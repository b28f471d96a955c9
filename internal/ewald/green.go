package ewald

import (
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
)

// Wavenumbers returns the signed wavenumber of every FFT index along an axis
// of n points and length l, and the ik-differentiation operator. The
// operator is zeroed at the Nyquist index so a real field stays real.
func Wavenumbers(n int, l float64) (k, d []float64) {
	k = make([]float64, n)
	d = make([]float64, n)
	for i := range k {
		s := i
		if 2*i >= n {
			s = i - n
		}
		k[i] = 2 * math.Pi * float64(s) / l
		d[i] = k[i]
		if 2*i == n {
			d[i] = 0
		}
	}
	return k, d
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

// aliased holds k + 2 pi m/h and the squared assignment transform for every
// index of one axis and every alias m.
type aliased struct {
	k  [][]float64
	u2 [][]float64
}

func newAliased(k []float64, n, aliases, order int, l float64) aliased {
	h := l / float64(n)
	a := aliased{k: make([][]float64, n), u2: make([][]float64, n)}
	for i := range k {
		a.k[i] = make([]float64, 2*aliases+1)
		a.u2[i] = make([]float64, 2*aliases+1)
		for m := -aliases; m <= aliases; m++ {
			km := k[i] + 2*math.Pi*float64(m)/h
			a.k[i][m+aliases] = km
			a.u2[i][m+aliases] = math.Pow(sinc(0.5*km*h), float64(2*order))
		}
	}
	return a
}

// influence builds the optimal influence function on the mesh and returns
// the unnormalised Hockney-Eastwood error sum of it.
func influence(p Params, alpha float64, k, d [3][]float64) ([]float64, float64) {
	nx, ny, nz := p.Mesh[0], p.Mesh[1], p.Mesh[2]
	var ax [3]aliased
	for i := 0; i < 3; i++ {
		ax[i] = newAliased(k[i], p.Mesh[i], p.Aliases[i], p.Order, axis(p.Box, i))
	}

	kappa2 := p.Kappa * p.Kappa
	inv4a2 := 1 / (4 * alpha * alpha)
	pref := 4 * math.Pi * p.Coulomb
	phi := func(k2 float64) float64 {
		s := k2 + kappa2
		if s == 0 {
			return 0
		}
		return pref * math.Exp(-s*inv4a2) / s
	}

	workers := p.Workers
	if workers < 1 {
		workers = dynamo.DefaultWorkers()
	}
	green := make([]float64, nx*ny*nz)
	partial := make([]float64, workers)

	dynamo.ParallelFor(workers, nx, 1, func(w, start, end int) {
		var q float64
		for ix := start; ix < end; ix++ {
			for iy := 0; iy < ny; iy++ {
				for iz := 0; iz < nz; iz++ {
					idx := (ix*ny+iy)*nz + iz
					if ix == 0 && iy == 0 && iz == 0 {
						continue
					}
					dx, dy, dz := d[0][ix], d[1][iy], d[2][iz]
					d2 := dx*dx + dy*dy + dz*dz

					var num, usum, ref float64
					for mx, kx := range ax[0].k[ix] {
						ux := ax[0].u2[ix][mx]
						for my, ky := range ax[1].k[iy] {
							uxy := ux * ax[1].u2[iy][my]
							for mz, kz := range ax[2].k[iz] {
								u2 := uxy * ax[2].u2[iz][mz]
								k2 := kx*kx + ky*ky + kz*kz
								f := phi(k2)
								usum += u2
								num += u2 * (dx*kx + dy*ky + dz*kz) * f
								ref += k2 * f * f
							}
						}
					}

					if d2 == 0 || usum == 0 {
						q += ref
						continue
					}
					den := d2 * usum * usum
					green[idx] = num / den
					q += ref - num*num/den
				}
			}
		}
		partial[w] += q
	})

	var q float64
	for _, v := range partial {
		q += v
	}
	return green, q
}

// exactRelative turns the error sum into an rms force error relative to
// c <q^2>/a_ws^2.
func exactRelative(p Params, q float64) float64 {
	if p.N == 0 || q <= 0 {
		return 0
	}
	v := p.volume()
	return math.Sqrt(q*float64(p.N)) * p.AWS * p.AWS / (v * p.Coulomb)
}
