package integrators

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/particles"
)

// Verlet is velocity Verlet: half kick, drift, force, half kick.
type Verlet struct {
	dt  float64
	box r3.Vec
	buf []r3.Vec
}

func NewVerlet(p Params) *Verlet {
	return &Verlet{dt: p.Dt, box: p.Box}
}

func (v *Verlet) Name() string { return "verlet" }

func (v *Verlet) Step(ps []particles.Particle, ff ForceField) (forces.Result, error) {
	half := 0.5 * v.dt
	kick(ps, half)
	for i := range ps {
		if err := move(ps, i, r3.Scale(v.dt, ps[i].Vel), v.box); err != nil {
			return forces.Result{}, err
		}
	}
	res, err := evaluate(ps, ff, &v.buf)
	if err != nil {
		return res, err
	}
	kick(ps, half)
	return res, nil
}
