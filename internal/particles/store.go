// Package particles holds the particle store and the species table.
package particles

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Particle struct {
	Pos     r3.Vec
	Vel     r3.Vec
	Acc     r3.Vec
	Charge  float64
	Mass    float64
	Species int
}

// Store is an ordered collection of particles with per-species counts kept
// in step with Add and Remove.
type Store struct {
	Particles []Particle
	counts    []int
}

func NewStore(numSpecies, capacity int) *Store {
	return &Store{
		Particles: make([]Particle, 0, capacity),
		counts:    make([]int, numSpecies),
	}
}

func (s *Store) Len() int { return len(s.Particles) }

func (s *Store) Add(p Particle) error {
	if p.Species < 0 || p.Species >= len(s.counts) {
		return fmt.Errorf("particles: species id %d out of range [0,%d)", p.Species, len(s.counts))
	}
	s.Particles = append(s.Particles, p)
	s.counts[p.Species]++
	return nil
}

// Remove deletes particle i, preserving the order of the rest.
func (s *Store) Remove(i int) error {
	if i < 0 || i >= len(s.Particles) {
		return fmt.Errorf("particles: index %d out of range [0,%d)", i, len(s.Particles))
	}
	s.counts[s.Particles[i].Species]--
	s.Particles = append(s.Particles[:i], s.Particles[i+1:]...)
	return nil
}

func (s *Store) Count(species int) int { return s.counts[species] }

func (s *Store) Counts() []int { return append([]int(nil), s.counts...) }

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := &Store{
		Particles: make([]Particle, len(s.Particles)),
		counts:    append([]int(nil), s.counts...),
	}
	copy(c.Particles, s.Particles)
	return c
}

// CopyFrom overwrites s with the contents of o without reallocating when
// the sizes match.
func (s *Store) CopyFrom(o *Store) {
	if cap(s.Particles) < len(o.Particles) {
		s.Particles = make([]Particle, len(o.Particles))
	}
	s.Particles = s.Particles[:len(o.Particles)]
	copy(s.Particles, o.Particles)
	s.counts = append(s.counts[:0], o.counts...)
}

// Wrap maps every coordinate into [0, L) per axis.
func (s *Store) Wrap(box r3.Vec) {
	for i := range s.Particles {
		s.Particles[i].Pos = WrapVec(s.Particles[i].Pos, box)
	}
}

func WrapVec(p, box r3.Vec) r3.Vec {
	return r3.Vec{X: wrap(p.X, box.X), Y: wrap(p.Y, box.Y), Z: wrap(p.Z, box.Z)}
}

func wrap(x, l float64) float64 {
	x -= l * math.Floor(x/l)
	// x/l rounding can land exactly on l for tiny negative x
	if x >= l {
		x -= l
	}
	if x < 0 {
		x = 0
	}
	return x
}

func (s *Store) KineticEnergy() float64 {
	k := 0.0
	for i := range s.Particles {
		p := &s.Particles[i]
		k += 0.5 * p.Mass * r3.Norm2(p.Vel)
	}
	return k
}

func (s *Store) Momentum() r3.Vec {
	var m r3.Vec
	for i := range s.Particles {
		m = r3.Add(m, r3.Scale(s.Particles[i].Mass, s.Particles[i].Vel))
	}
	return m
}

func (s *Store) TotalMass() float64 {
	m := 0.0
	for i := range s.Particles {
		m += s.Particles[i].Mass
	}
	return m
}

func (s *Store) CenterOfMassVelocity() r3.Vec {
	m := s.TotalMass()
	if m == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/m, s.Momentum())
}

// Temperature returns 2K/(3 N kB).
func (s *Store) Temperature(kB float64) float64 {
	if len(s.Particles) == 0 {
		return 0
	}
	return 2 * s.KineticEnergy() / (3 * float64(len(s.Particles)) * kB)
}

// SpeciesTemperature returns the per-species equipartition temperatures.
func (s *Store) SpeciesTemperature(kB float64) []float64 {
	k := make([]float64, len(s.counts))
	for i := range s.Particles {
		p := &s.Particles[i]
		k[p.Species] += 0.5 * p.Mass * r3.Norm2(p.Vel)
	}
	for sp := range k {
		if s.counts[sp] > 0 {
			k[sp] = 2 * k[sp] / (3 * float64(s.counts[sp]) * kB)
		}
	}
	return k
}

func (s *Store) TotalCharge() float64 {
	q := 0.0
	for i := range s.Particles {
		q += s.Particles[i].Charge
	}
	return q
}

func (s *Store) ChargeSquaredSum() float64 {
	q2 := 0.0
	for i := range s.Particles {
		q2 += s.Particles[i].Charge * s.Particles[i].Charge
	}
	return q2
}

// MaxSpeed returns the largest particle speed.
func (s *Store) MaxSpeed() float64 {
	v := 0.0
	for i := range s.Particles {
		v = math.Max(v, r3.Norm(s.Particles[i].Vel))
	}
	return v
}
