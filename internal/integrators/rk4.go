package integrators

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/particles"
)

// RK4 is the classical fourth-order Runge-Kutta scheme on (x, v). It costs
// four force evaluations per step and is not symplectic.
type RK4 struct {
	dt  float64
	box r3.Vec

	k1x, k2x, k3x, k4x []r3.Vec
	k1v, k2v, k3v, k4v []r3.Vec
	scratch            []particles.Particle
	buf                []r3.Vec
}

func NewRK4(p Params) *RK4 {
	return &RK4{dt: p.Dt, box: p.Box}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1x) != n {
		r.k1x = make([]r3.Vec, n)
		r.k2x = make([]r3.Vec, n)
		r.k3x = make([]r3.Vec, n)
		r.k4x = make([]r3.Vec, n)
		r.k1v = make([]r3.Vec, n)
		r.k2v = make([]r3.Vec, n)
		r.k3v = make([]r3.Vec, n)
		r.k4v = make([]r3.Vec, n)
		r.scratch = make([]particles.Particle, n)
	}
}

// stage places the scratch particles at x + h*kx, v + h*kv and returns
// their acceleration and velocity as the next slopes.
func (r *RK4) stage(ps []particles.Particle, ff ForceField, h float64, kx, kv, outX, outV []r3.Vec) error {
	copy(r.scratch, ps)
	for i := range r.scratch {
		r.scratch[i].Pos = particles.WrapVec(r3.Add(ps[i].Pos, r3.Scale(h, kx[i])), r.box)
		r.scratch[i].Vel = r3.Add(ps[i].Vel, r3.Scale(h, kv[i]))
	}
	if _, err := evaluate(r.scratch, ff, &r.buf); err != nil {
		return err
	}
	for i := range r.scratch {
		outX[i] = r.scratch[i].Vel
		outV[i] = r.scratch[i].Acc
	}
	return nil
}

func (r *RK4) Step(ps []particles.Particle, ff ForceField) (forces.Result, error) {
	n := len(ps)
	r.ensureScratch(n)
	dt := r.dt

	for i := range ps {
		r.k1x[i] = ps[i].Vel
		r.k1v[i] = ps[i].Acc
	}
	if err := r.stage(ps, ff, 0.5*dt, r.k1x, r.k1v, r.k2x, r.k2v); err != nil {
		return forces.Result{}, err
	}
	if err := r.stage(ps, ff, 0.5*dt, r.k2x, r.k2v, r.k3x, r.k3v); err != nil {
		return forces.Result{}, err
	}
	if err := r.stage(ps, ff, dt, r.k3x, r.k3v, r.k4x, r.k4v); err != nil {
		return forces.Result{}, err
	}

	dt6 := dt / 6.0
	for i := range ps {
		dx := r3.Scale(dt6, r3.Add(r3.Add(r.k1x[i], r3.Scale(2, r.k2x[i])), r3.Add(r3.Scale(2, r.k3x[i]), r.k4x[i])))
		dv := r3.Scale(dt6, r3.Add(r3.Add(r.k1v[i], r3.Scale(2, r.k2v[i])), r3.Add(r3.Scale(2, r.k3v[i]), r.k4v[i])))
		if err := move(ps, i, dx, r.box); err != nil {
			return forces.Result{}, err
		}
		ps[i].Vel = r3.Add(ps[i].Vel, dv)
	}
	return evaluate(ps, ff, &r.buf)
}
