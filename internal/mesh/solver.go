// Package mesh solves the long-range part of a split interaction on a
// periodic grid.
//
// Charges are spread with a cardinal B-spline, transformed, filtered by the
// optimal influence function from package ewald and differentiated
// spectrally (ik-differentiation, with the Nyquist modes of the derivative
// removed). The field is read back at the particles with the same weights,
// so a lone particle feels no force from its own charge. With this scheme
// the force error falls as h^order from the assignment, which is the error
// the Hockney-Eastwood estimate in package ewald measures.
package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/compute"
	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/ewald"
	"github.com/san-kum/p3md/internal/particles"
)

const minParticles = 64

type Params struct {
	Box   r3.Vec
	Mesh  [3]int
	Order int
	// Coulomb is 1/(4 pi eps0) in the run's unit system.
	Coulomb float64
	Kappa   float64
	Backend compute.Backend
	Workers int
}

type Solver struct {
	box     r3.Vec
	n       [3]int
	order   int
	spacing r3.Vec
	volume  float64
	coulomb float64
	kappa   float64
	alpha   float64
	workers int

	green []float64
	k     [3][]float64
	d     [3][]float64
	fft   *compute.FFT3

	charge   []float64
	rho      []complex128
	field    [3][]complex128
	stencils []stencil

	energy []float64
	virial []dynamo.Tensor
}

// New sizes the grids for p. g must have been built for the same box, mesh
// and order.
func New(p Params, g *ewald.Result) (*Solver, error) {
	if p.Order < ewald.MinOrder || p.Order > ewald.MaxOrder {
		return nil, dynamo.Configf("p3m.order", p.Order, "assignment order must be in [%d, %d]", ewald.MinOrder, ewald.MaxOrder)
	}
	size := p.Mesh[0] * p.Mesh[1] * p.Mesh[2]
	if size <= 0 || len(g.Green) != size {
		return nil, dynamo.Configf("p3m.mesh", p.Mesh, "influence function has %d points, mesh needs %d", len(g.Green), size)
	}
	if p.Backend == nil {
		p.Backend = compute.AutoSelectBackend()
	}
	if p.Workers < 1 {
		p.Workers = dynamo.DefaultWorkers()
	}

	s := &Solver{
		box:     p.Box,
		n:       p.Mesh,
		order:   p.Order,
		volume:  p.Box.X * p.Box.Y * p.Box.Z,
		coulomb: p.Coulomb,
		kappa:   p.Kappa,
		alpha:   g.Alpha,
		workers: p.Workers,
		green:   g.Green,
		k:       g.K,
		d:       g.D,
		fft:     compute.NewFFT3(p.Backend, p.Mesh, p.Workers),
		charge:  make([]float64, size),
		rho:     make([]complex128, size),
		energy:  make([]float64, p.Workers),
		virial:  make([]dynamo.Tensor, p.Workers),
	}
	s.spacing = r3.Vec{
		X: p.Box.X / float64(p.Mesh[0]),
		Y: p.Box.Y / float64(p.Mesh[1]),
		Z: p.Box.Z / float64(p.Mesh[2]),
	}
	for a := range s.field {
		s.field[a] = make([]complex128, size)
	}
	return s, nil
}

func (s *Solver) Mesh() [3]int    { return s.n }
func (s *Solver) Order() int      { return s.order }
func (s *Solver) Alpha() float64  { return s.alpha }
func (s *Solver) Spacing() r3.Vec { return s.spacing }

func (s *Solver) index(x, y, z int) int { return (x*s.n[1]+y)*s.n[2] + z }

// Assign spreads every charge onto the grid and caches the weights for the
// interpolation that follows.
func (s *Solver) Assign(ps []particles.Particle) {
	if cap(s.stencils) < len(ps) {
		s.stencils = make([]stencil, len(ps))
	}
	s.stencils = s.stencils[:len(ps)]

	dynamo.ParallelFor(s.workers, len(ps), minParticles, func(_, start, end int) {
		for i := start; i < end; i++ {
			pos := ps[i].Pos
			st := &s.stencils[i]
			st.base[0] = place(pos.X/s.spacing.X, s.order, s.n[0], &st.w[0])
			st.base[1] = place(pos.Y/s.spacing.Y, s.order, s.n[1], &st.w[1])
			st.base[2] = place(pos.Z/s.spacing.Z, s.order, s.n[2], &st.w[2])
		}
	})

	for i := range s.charge {
		s.charge[i] = 0
	}
	p := s.order
	for i := range ps {
		q := ps[i].Charge
		if q == 0 {
			continue
		}
		st := &s.stencils[i]
		for a := 0; a < p; a++ {
			x := (st.base[0] + a) % s.n[0]
			qa := q * st.w[0][a]
			for b := 0; b < p; b++ {
				y := (st.base[1] + b) % s.n[1]
				qab := qa * st.w[1][b]
				row := (x*s.n[1] + y) * s.n[2]
				for c := 0; c < p; c++ {
					z := (st.base[2] + c) % s.n[2]
					s.charge[row+z] += qab * st.w[2][c]
				}
			}
		}
	}
}

// GridCharge is the total charge on the grid after the last Assign.
func (s *Solver) GridCharge() float64 {
	var sum float64
	for _, q := range s.charge {
		sum += q
	}
	return sum
}

// SelfEnergy is the interaction of every charge with its own screening
// cloud, which the mesh energy includes and the total must not.
func (s *Solver) SelfEnergy(ps []particles.Particle) float64 {
	var q2 float64
	for i := range ps {
		q2 += ps[i].Charge * ps[i].Charge
	}
	beta := 0.5 * s.kappa / s.alpha
	return -s.coulomb * q2 * (s.alpha/math.SqrtPi*math.Exp(-beta*beta) - 0.5*s.kappa*math.Erfc(beta))
}

// Compute overwrites forces with the long-range force on every particle and
// returns the reciprocal-space energy and virial tensor. The self energy is
// not included.
func (s *Solver) Compute(ps []particles.Particle, forces []r3.Vec) (float64, dynamo.Tensor) {
	s.Assign(ps)
	for i, q := range s.charge {
		s.rho[i] = complex(q, 0)
	}
	s.fft.Forward(s.rho)

	energy, virial := s.filter()

	for a := range s.field {
		s.fft.Inverse(s.field[a])
	}
	s.interpolate(ps, forces)
	return energy, virial
}

// filter applies the influence function and the derivative, and accumulates
// the energy and virial from the filtered spectrum.
func (s *Solver) filter() (float64, dynamo.Tensor) {
	nx, ny, nz := s.n[0], s.n[1], s.n[2]
	kappa2 := s.kappa * s.kappa
	inv4a2 := 1 / (4 * s.alpha * s.alpha)
	invV := 1 / s.volume
	chunks := dynamo.Chunks(s.workers, nx, 1)
	for w := 0; w < chunks; w++ {
		s.energy[w] = 0
		s.virial[w] = dynamo.Tensor{}
	}

	dynamo.ParallelFor(s.workers, nx, 1, func(w, start, end int) {
		var e float64
		var vir dynamo.Tensor
		for ix := start; ix < end; ix++ {
			for iy := 0; iy < ny; iy++ {
				for iz := 0; iz < nz; iz++ {
					idx := s.index(ix, iy, iz)
					g := s.green[idx]
					rho := s.rho[idx]
					if g == 0 {
						s.field[0][idx], s.field[1][idx], s.field[2][idx] = 0, 0, 0
						continue
					}

					r2 := real(rho)*real(rho) + imag(rho)*imag(rho)
					ek := 0.5 * invV * g * r2
					e += ek

					k := [3]float64{s.k[0][ix], s.k[1][iy], s.k[2][iz]}
					k2 := k[0]*k[0] + k[1]*k[1] + k[2]*k[2]
					f := 2 * (1/(k2+kappa2) + inv4a2)
					for a := 0; a < 3; a++ {
						vir[a][a] += ek
						for b := 0; b < 3; b++ {
							vir[a][b] -= ek * f * k[a] * k[b]
						}
					}

					// E(k) = -i D G rho / V
					phi := rho * complex(g*invV, 0)
					s.field[0][idx] = complex(0, -s.d[0][ix]) * phi
					s.field[1][idx] = complex(0, -s.d[1][iy]) * phi
					s.field[2][idx] = complex(0, -s.d[2][iz]) * phi
				}
			}
		}
		s.energy[w] = e
		s.virial[w] = vir
	})

	var energy float64
	var virial dynamo.Tensor
	for w := 0; w < chunks; w++ {
		energy += s.energy[w]
		virial.Add(s.virial[w])
	}
	return energy, virial
}

func (s *Solver) interpolate(ps []particles.Particle, forces []r3.Vec) {
	p := s.order
	dynamo.ParallelFor(s.workers, len(ps), minParticles, func(_, start, end int) {
		for i := start; i < end; i++ {
			q := ps[i].Charge
			if q == 0 {
				forces[i] = r3.Vec{}
				continue
			}
			st := &s.stencils[i]
			var ex, ey, ez float64
			for a := 0; a < p; a++ {
				x := (st.base[0] + a) % s.n[0]
				wa := st.w[0][a]
				for b := 0; b < p; b++ {
					y := (st.base[1] + b) % s.n[1]
					wab := wa * st.w[1][b]
					row := (x*s.n[1] + y) * s.n[2]
					for c := 0; c < p; c++ {
						idx := row + (st.base[2]+c)%s.n[2]
						w := wab * st.w[2][c]
						ex += w * real(s.field[0][idx])
						ey += w * real(s.field[1][idx])
						ez += w * real(s.field[2][idx])
					}
				}
			}
			forces[i] = r3.Vec{X: q * ex, Y: q * ey, Z: q * ez}
		}
	})
}
