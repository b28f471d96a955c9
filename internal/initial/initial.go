// Package initial builds the particle store a run starts from.
package initial

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
)

type Method string

const (
	// Random draws uniform positions with no further check.
	Random Method = "random_no_reject"
	// RandomReject redraws a position closer than RReject to any placed
	// particle.
	RandomReject Method = "random_reject"
	// Lattice fills a simple cubic lattice and perturbs every site by up to
	// Perturb lattice spacings.
	Lattice Method = "lattice"
	// Halton uses the low-discrepancy sequence with HaltonBases.
	Halton Method = "halton"
)

const defaultAttempts = 1000

func Methods() []Method { return []Method{Random, RandomReject, Lattice, Halton} }

type Params struct {
	Method      Method
	Box         r3.Vec
	Seed        uint64
	RReject     float64
	Perturb     float64
	HaltonBases [3]int
	// MaxAttempts bounds the redraws of one particle under RandomReject.
	MaxAttempts int
}

// Populate places every particle of every species and draws Maxwellian
// velocities at the species temperature. Particles are stored species by
// species in table order.
func Populate(species *particles.SpeciesTable, p Params, kB float64) (*particles.Store, error) {
	n := species.Total()
	pos, err := Positions(n, p)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(p.Seed, 0x9e3779b97f4a7c15))
	store := particles.NewStore(species.Len(), n)
	i := 0
	for id, sp := range species.All() {
		start := i
		for c := 0; c < sp.Count; c++ {
			if err := store.Add(particles.Particle{Pos: pos[i], Charge: sp.Charge, Mass: sp.Mass, Species: id}); err != nil {
				return nil, err
			}
			i++
		}
		Maxwell(store.Particles[start:i], kB*sp.Temperature, rng)
	}
	return store, nil
}

// Maxwell draws velocities from the Maxwell-Boltzmann distribution at
// thermal energy kT and removes the mean velocity of the group.
func Maxwell(ps []particles.Particle, kT float64, rng *rand.Rand) {
	if len(ps) == 0 {
		return
	}
	var mean r3.Vec
	for i := range ps {
		sigma := math.Sqrt(kT / ps[i].Mass)
		ps[i].Vel = r3.Vec{X: sigma * rng.NormFloat64(), Y: sigma * rng.NormFloat64(), Z: sigma * rng.NormFloat64()}
		mean = r3.Add(mean, ps[i].Vel)
	}
	if len(ps) < 2 {
		return
	}
	mean = r3.Scale(1/float64(len(ps)), mean)
	for i := range ps {
		ps[i].Vel = r3.Sub(ps[i].Vel, mean)
	}
}

// Positions returns n positions inside the box.
func Positions(n int, p Params) ([]r3.Vec, error) {
	if p.Box.X <= 0 || p.Box.Y <= 0 || p.Box.Z <= 0 {
		return nil, dynamo.Configf("box", p.Box, "every box length must be positive")
	}
	rng := rand.New(rand.NewPCG(p.Seed, 0x5851f42d4c957f2d))
	switch p.Method {
	case Random, "":
		return random(n, p.Box, rng), nil
	case RandomReject:
		return randomReject(n, p, rng)
	case Lattice:
		return lattice(n, p, rng)
	case Halton:
		return halton(n, p)
	}
	return nil, dynamo.Configf("run.placement", p.Method, "unknown placement (%v)", Methods())
}

func uniform(box r3.Vec, rng *rand.Rand) r3.Vec {
	return r3.Vec{X: rng.Float64() * box.X, Y: rng.Float64() * box.Y, Z: rng.Float64() * box.Z}
}

func random(n int, box r3.Vec, rng *rand.Rand) []r3.Vec {
	pos := make([]r3.Vec, n)
	for i := range pos {
		pos[i] = uniform(box, rng)
	}
	return pos
}

func randomReject(n int, p Params, rng *rand.Rand) ([]r3.Vec, error) {
	if !(p.RReject > 0) {
		return nil, dynamo.Configf("run.r_reject", p.RReject, "rejection radius must be positive")
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	r2 := p.RReject * p.RReject
	pos := make([]r3.Vec, 0, n)
	for len(pos) < n {
		placed := false
		for a := 0; a < attempts && !placed; a++ {
			c := uniform(p.Box, rng)
			placed = true
			for _, q := range pos {
				if r3.Norm2(minimumImage(r3.Sub(c, q), p.Box)) < r2 {
					placed = false
					break
				}
			}
			if placed {
				pos = append(pos, c)
			}
		}
		if !placed {
			return nil, dynamo.Configf("run.r_reject", p.RReject, "could not place particle %d after %d attempts", len(pos), attempts)
		}
	}
	return pos, nil
}

func minimumImage(d, box r3.Vec) r3.Vec {
	return r3.Vec{
		X: d.X - box.X*math.Round(d.X/box.X),
		Y: d.Y - box.Y*math.Round(d.Y/box.Y),
		Z: d.Z - box.Z*math.Round(d.Z/box.Z),
	}
}

// lattice needs n to be a perfect cube so that every axis holds the same
// number of sites.
func lattice(n int, p Params, rng *rand.Rand) ([]r3.Vec, error) {
	side := int(math.Round(math.Cbrt(float64(n))))
	if side*side*side != n {
		return nil, dynamo.Configf("run.placement", p.Method, "lattice placement needs a cubic number of particles, got %d", n)
	}
	if p.Perturb < 0 || p.Perturb > 1 {
		return nil, dynamo.Configf("run.perturb", p.Perturb, "must be in [0, 1]")
	}
	h := r3.Vec{X: p.Box.X / float64(side), Y: p.Box.Y / float64(side), Z: p.Box.Z / float64(side)}
	pos := make([]r3.Vec, 0, n)
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			for k := 0; k < side; k++ {
				c := r3.Vec{
					X: (float64(i) + 0.5 + p.Perturb*(rng.Float64()-0.5)) * h.X,
					Y: (float64(j) + 0.5 + p.Perturb*(rng.Float64()-0.5)) * h.Y,
					Z: (float64(k) + 0.5 + p.Perturb*(rng.Float64()-0.5)) * h.Z,
				}
				pos = append(pos, particles.WrapVec(c, p.Box))
			}
		}
	}
	return pos, nil
}

func halton(n int, p Params) ([]r3.Vec, error) {
	b := p.HaltonBases
	if b == [3]int{} {
		b = [3]int{2, 3, 5}
	}
	for _, base := range b {
		if base < 2 {
			return nil, dynamo.Configf("run.halton_bases", b, "every base must be at least 2")
		}
	}
	pos := make([]r3.Vec, n)
	for i := range pos {
		// index 0 is the origin in every base
		pos[i] = r3.Vec{
			X: radicalInverse(i+1, b[0]) * p.Box.X,
			Y: radicalInverse(i+1, b[1]) * p.Box.Y,
			Z: radicalInverse(i+1, b[2]) * p.Box.Z,
		}
	}
	return pos, nil
}

func radicalInverse(i, base int) float64 {
	inv := 1 / float64(base)
	f, r := inv, 0.0
	for i > 0 {
		r += f * float64(i%base)
		i /= base
		f *= inv
	}
	return r
}

// ThermalSpeed is the largest three-dimensional thermal speed
// sqrt(3 kB T / m) over the species.
func ThermalSpeed(species *particles.SpeciesTable, kB float64) float64 {
	v := 0.0
	for _, sp := range species.All() {
		v = math.Max(v, math.Sqrt(3*kB*sp.Temperature/sp.Mass))
	}
	return v
}
