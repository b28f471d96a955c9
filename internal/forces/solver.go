// Package forces combines the short-range kernel and the mesh solver into
// the total force on every particle.
package forces

import (
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/mesh"
	"github.com/san-kum/p3md/internal/pairwise"
	"github.com/san-kum/p3md/internal/particles"
)

// Result is one force evaluation. Energy.Kinetic is left at zero.
type Result struct {
	Energy dynamo.Energy
	Virial dynamo.Tensor
}

type Solver struct {
	pair *pairwise.Kernel
	mesh *mesh.Solver

	short []r3.Vec
	long  []r3.Vec

	evaluations atomic.Int64
	elapsed     atomic.Int64
}

// New builds a solver. m is nil for purely pairwise potentials.
func New(pair *pairwise.Kernel, m *mesh.Solver) *Solver {
	return &Solver{pair: pair, mesh: m}
}

func (s *Solver) Pairwise() *pairwise.Kernel { return s.pair }
func (s *Solver) Mesh() *mesh.Solver         { return s.mesh }

// Evaluations is the number of Compute calls so far.
func (s *Solver) Evaluations() int { return int(s.evaluations.Load()) }

// Elapsed is the wall time spent in Compute.
func (s *Solver) Elapsed() time.Duration { return time.Duration(s.elapsed.Load()) }

func (s *Solver) ensure(n int) {
	if cap(s.short) < n {
		s.short = make([]r3.Vec, n)
		s.long = make([]r3.Vec, n)
	}
	s.short = s.short[:n]
	s.long = s.long[:n]
}

// Compute overwrites forces with the total force on every particle. The
// pairwise sweep and the mesh solve run concurrently and both finish before
// it returns. A non-finite force or energy is reported as a
// NumericalInstabilityError with Step left at -1 for the caller to fill in.
func (s *Solver) Compute(ps []particles.Particle, forces []r3.Vec) (Result, error) {
	start := time.Now()
	defer func() {
		s.evaluations.Add(1)
		s.elapsed.Add(int64(time.Since(start)))
	}()

	n := len(ps)
	s.ensure(n)

	var res Result
	var g errgroup.Group
	g.Go(func() error {
		res.Energy.ShortRange, res.Virial = s.pair.Compute(ps, s.short)
		return nil
	})

	var longVirial dynamo.Tensor
	if s.mesh != nil {
		g.Go(func() error {
			res.Energy.LongRange, longVirial = s.mesh.Compute(ps, s.long)
			res.Energy.Self = s.mesh.SelfEnergy(ps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	for i := 0; i < n; i++ {
		f := s.short[i]
		if s.mesh != nil {
			f = r3.Add(f, s.long[i])
		}
		if !finite(f) {
			return Result{}, &dynamo.NumericalInstabilityError{Step: -1, Particle: i, Reason: "non-finite force"}
		}
		forces[i] = f
	}
	res.Virial.Add(longVirial)

	if !res.Energy.IsValid() || !res.Virial.IsValid() {
		return Result{}, &dynamo.NumericalInstabilityError{Step: -1, Particle: -1, Reason: "non-finite potential energy or virial"}
	}
	return res, nil
}

func finite(v r3.Vec) bool {
	for _, x := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
