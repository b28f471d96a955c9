// Package integrators advances the particle store by one time step.
//
// Every integrator expects Acc to hold the acceleration at the current
// positions on entry (see Prime) and leaves the acceleration at the new
// positions on return, so consecutive steps share force evaluations.
package integrators

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/particles"
)

// ForceField evaluates the total force on every particle.
type ForceField interface {
	Compute(ps []particles.Particle, out []r3.Vec) (forces.Result, error)
}

type Integrator interface {
	Name() string
	Step(ps []particles.Particle, ff ForceField) (forces.Result, error)
}

type Params struct {
	Dt  float64
	Box r3.Vec

	// BField is the uniform external magnetic field and MagneticFactor the
	// unit-system factor in F = factor q v x B.
	BField         r3.Vec
	MagneticFactor float64

	// Langevin friction and bath.
	Gamma       float64
	KB          float64
	Temperature float64
	Seed        uint64
}

var constructors = map[string]func(Params) Integrator{
	"verlet":   func(p Params) Integrator { return NewVerlet(p) },
	"rk4":      func(p Params) Integrator { return NewRK4(p) },
	"magnetic": func(p Params) Integrator { return NewMagnetic(p) },
	"langevin": func(p Params) Integrator { return NewLangevin(p) },
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the named integrator. verlet with a non-zero field becomes
// magnetic; rk4 and langevin do not support a field.
func New(name string, p Params) (Integrator, error) {
	if !(p.Dt > 0) || math.IsInf(p.Dt, 0) {
		return nil, dynamo.Configf("integrator.dt", p.Dt, "time step must be positive")
	}
	hasField := r3.Norm2(p.BField) > 0
	if name == "" {
		name = "verlet"
	}
	if name == "verlet" && hasField {
		name = "magnetic"
	}
	ctor, ok := constructors[name]
	if !ok {
		return nil, dynamo.Configf("integrator.type", name, "unknown integrator (%v)", Names())
	}
	switch name {
	case "rk4", "langevin":
		if hasField {
			return nil, dynamo.Configf("integrator.magnetic_field", p.BField, "%s integrator does not support a magnetic field", name)
		}
	case "magnetic":
		if p.MagneticFactor == 0 {
			p.MagneticFactor = 1
		}
	}
	if name == "langevin" {
		if !(p.Gamma > 0) {
			return nil, dynamo.Configf("integrator.langevin_gamma", p.Gamma, "friction must be positive")
		}
		if p.Temperature < 0 || p.KB <= 0 {
			return nil, dynamo.Configf("thermostat.temperature", p.Temperature, "bath temperature must be non-negative")
		}
	}
	return ctor(p), nil
}

// Prime fills Acc from the forces at the current positions.
func Prime(ps []particles.Particle, ff ForceField) (forces.Result, error) {
	var buf []r3.Vec
	return evaluate(ps, ff, &buf)
}

func evaluate(ps []particles.Particle, ff ForceField, buf *[]r3.Vec) (forces.Result, error) {
	if cap(*buf) < len(ps) {
		*buf = make([]r3.Vec, len(ps))
	}
	f := (*buf)[:len(ps)]
	res, err := ff.Compute(ps, f)
	if err != nil {
		return res, err
	}
	for i := range ps {
		ps[i].Acc = r3.Scale(1/ps[i].Mass, f[i])
	}
	return res, nil
}

// move displaces particle i by d and wraps it back into the box. A step
// longer than the box on any axis means dt is far too large.
func move(ps []particles.Particle, i int, d, box r3.Vec) error {
	if math.Abs(d.X) > box.X || math.Abs(d.Y) > box.Y || math.Abs(d.Z) > box.Z ||
		math.IsNaN(d.X+d.Y+d.Z) {
		return &dynamo.NumericalInstabilityError{
			Step:     -1,
			Particle: i,
			Reason:   fmt.Sprintf("displacement %v exceeds the box in one step", d),
		}
	}
	ps[i].Pos = particles.WrapVec(r3.Add(ps[i].Pos, d), box)
	return nil
}

func kick(ps []particles.Particle, h float64) {
	for i := range ps {
		ps[i].Vel = r3.Add(ps[i].Vel, r3.Scale(h, ps[i].Acc))
	}
}
