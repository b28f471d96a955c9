package thermostat

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
)

type Thermostat interface {
	Name() string
	// Apply rescales velocities for the given step and returns the factor
	// used, 1 when inactive.
	Apply(s *particles.Store, step int, phase dynamo.Phase) float64
}

type Params struct {
	Dt          float64
	Tau         float64
	Temperature float64
	KB          float64
	StartStep   int
	RemoveDrift bool
}

func Names() []string { return []string{"berendsen", "none"} }

func New(name string, p Params) (Thermostat, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "berendsen":
		return NewBerendsen(p)
	}
	return nil, dynamo.Configf("thermostat.type", name, "unknown thermostat (%v)", Names())
}

// Berendsen scales velocities by sqrt(1 + dt/tau (T0/T - 1)) each step of
// the equilibration phase from StartStep on.
type Berendsen struct {
	p Params
}

func NewBerendsen(p Params) (*Berendsen, error) {
	if !(p.Tau > 0) || p.Tau < p.Dt {
		return nil, dynamo.Configf("thermostat.tau", p.Tau, "relaxation time must be at least the time step (%g)", p.Dt)
	}
	if !(p.Temperature >= 0) || math.IsInf(p.Temperature, 0) {
		return nil, dynamo.Configf("thermostat.temperature", p.Temperature, "target temperature must be non-negative")
	}
	if p.KB <= 0 {
		return nil, dynamo.Configf("units", p.KB, "Boltzmann constant must be positive")
	}
	return &Berendsen{p: p}, nil
}

func (b *Berendsen) Name() string { return "berendsen" }

func (b *Berendsen) Target() float64 { return b.p.Temperature }

func (b *Berendsen) Apply(s *particles.Store, step int, phase dynamo.Phase) float64 {
	if phase != dynamo.Equilibration || step < b.p.StartStep || s.Len() == 0 {
		return 1
	}
	if b.p.RemoveDrift {
		RemoveDrift(s)
	}

	t := s.Temperature(b.p.KB)
	if t == 0 {
		return 1
	}
	factor := math.Sqrt(1 + b.p.Dt/b.p.Tau*(b.p.Temperature/t-1))
	for i := range s.Particles {
		s.Particles[i].Vel = r3.Scale(factor, s.Particles[i].Vel)
	}
	return factor
}

// RemoveDrift subtracts the centre-of-mass velocity from every particle.
func RemoveDrift(s *particles.Store) {
	vcm := s.CenterOfMassVelocity()
	for i := range s.Particles {
		s.Particles[i].Vel = r3.Sub(s.Particles[i].Vel, vcm)
	}
}

type None struct{}

func (None) Name() string { return "none" }

func (None) Apply(*particles.Store, int, dynamo.Phase) float64 { return 1 }
