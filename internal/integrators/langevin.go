package integrators

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/particles"
)

// Langevin is the BAOAB splitting of underdamped Langevin dynamics. The
// O step draws one Gaussian impulse per particle and axis; the draws of the
// last step are kept and exposed by Noise.
type Langevin struct {
	dt    float64
	box   r3.Vec
	c1    float64
	kT    float64
	rng   *rand.Rand
	noise []r3.Vec
	buf   []r3.Vec
}

func NewLangevin(p Params) *Langevin {
	return &Langevin{
		dt:  p.Dt,
		box: p.Box,
		c1:  math.Exp(-p.Gamma * p.Dt),
		kT:  p.KB * p.Temperature,
		rng: rand.New(rand.NewPCG(p.Seed, 0x1a2b3c4d)),
	}
}

func (l *Langevin) Name() string { return "langevin" }

// Noise returns the standard normal draws of the last step.
func (l *Langevin) Noise() []r3.Vec { return l.noise }

func (l *Langevin) Step(ps []particles.Particle, ff ForceField) (forces.Result, error) {
	half := 0.5 * l.dt
	if len(l.noise) != len(ps) {
		l.noise = make([]r3.Vec, len(ps))
	}
	c2 := math.Sqrt(1 - l.c1*l.c1)

	kick(ps, half)
	for i := range ps {
		p := &ps[i]
		d := r3.Scale(half, p.Vel)

		xi := r3.Vec{X: l.rng.NormFloat64(), Y: l.rng.NormFloat64(), Z: l.rng.NormFloat64()}
		l.noise[i] = xi
		p.Vel = r3.Add(r3.Scale(l.c1, p.Vel), r3.Scale(c2*math.Sqrt(l.kT/p.Mass), xi))

		d = r3.Add(d, r3.Scale(half, p.Vel))
		if err := move(ps, i, d, l.box); err != nil {
			return forces.Result{}, err
		}
	}
	res, err := evaluate(ps, ff, &l.buf)
	if err != nil {
		return res, err
	}
	kick(ps, half)
	return res, nil
}
