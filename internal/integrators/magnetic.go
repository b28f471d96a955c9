package integrators

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/particles"
)

// Magnetic is velocity Verlet with a Boris rotation about a uniform field
// between the first half kick and the drift. The rotation preserves |v|.
type Magnetic struct {
	dt     float64
	box    r3.Vec
	field  r3.Vec
	factor float64
	buf    []r3.Vec
}

func NewMagnetic(p Params) *Magnetic {
	return &Magnetic{dt: p.Dt, box: p.Box, field: p.BField, factor: p.MagneticFactor}
}

func (m *Magnetic) Name() string { return "magnetic" }

// Rotate applies the Boris rotation for charge q and mass m over dt.
func Rotate(v, b r3.Vec, q, mass, factor, dt float64) r3.Vec {
	t := r3.Scale(0.5*dt*q*factor/mass, b)
	s := r3.Scale(2/(1+r3.Norm2(t)), t)
	vp := r3.Add(v, r3.Cross(v, t))
	return r3.Add(v, r3.Cross(vp, s))
}

func (m *Magnetic) Step(ps []particles.Particle, ff ForceField) (forces.Result, error) {
	half := 0.5 * m.dt
	kick(ps, half)
	for i := range ps {
		ps[i].Vel = Rotate(ps[i].Vel, m.field, ps[i].Charge, ps[i].Mass, m.factor, m.dt)
		if err := move(ps, i, r3.Scale(m.dt, ps[i].Vel), m.box); err != nil {
			return forces.Result{}, err
		}
	}
	res, err := evaluate(ps, ff, &m.buf)
	if err != nil {
		return res, err
	}
	kick(ps, half)
	return res, nil
}
