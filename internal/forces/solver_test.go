package forces

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/ewald"
	"github.com/san-kum/p3md/internal/mesh"
	"github.com/san-kum/p3md/internal/pairwise"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/potentials"
	"github.com/san-kum/p3md/internal/units"
)

func ionPair(t *testing.T) *particles.SpeciesTable {
	t.Helper()
	species, err := particles.NewSpeciesTable([]particles.Species{
		{Name: "plus", Mass: 1, Charge: 1, Count: 1},
		{Name: "minus", Mass: 1, Charge: -1, Count: 1},
	})
	require.NoError(t, err)
	return species
}

func coulombSolver(t *testing.T, l float64, meshN, order int, rc, alpha float64) *Solver {
	t.Helper()
	box := r3.Vec{X: l, Y: l, Z: l}
	m, err := potentials.New(potentials.Params{Kind: potentials.Coulomb, Method: potentials.P3M, Cutoff: rc}, ionPair(t), units.Reduced)
	require.NoError(t, err)

	g, err := ewald.Optimize(context.Background(), ewald.Params{
		Box:     box,
		Mesh:    [3]int{meshN, meshN, meshN},
		Order:   order,
		Aliases: [3]int{2, 2, 2},
		Cutoff:  rc,
		AWS:     units.WignerSeitz(2 / (l * l * l)),
		Alpha:   alpha,
		Coulomb: 1,
		N:       2,
	})
	require.NoError(t, err)
	require.NoError(t, m.SetSplitting(g.Alpha))

	pair, err := pairwise.New(box, m, 2)
	require.NoError(t, err)
	ms, err := mesh.New(mesh.Params{Box: box, Mesh: [3]int{meshN, meshN, meshN}, Order: order, Coulomb: 1, Workers: 2}, g)
	require.NoError(t, err)
	return New(pair, ms)
}

// ewaldPair is a converged direct Ewald sum for a neutral pair at
// separation d in a cubic box: force on the positive charge and the total
// energy.
func ewaldPair(d r3.Vec, l float64) (r3.Vec, float64) {
	const alpha = 0.5
	const kmax = 16
	var f r3.Vec
	var e float64

	for nx := -1; nx <= 1; nx++ {
		for ny := -1; ny <= 1; ny++ {
			for nz := -1; nz <= 1; nz++ {
				r := r3.Add(d, r3.Vec{X: float64(nx) * l, Y: float64(ny) * l, Z: float64(nz) * l})
				dist := r3.Norm(r)
				e -= math.Erfc(alpha*dist) / dist
				fr := -(math.Erfc(alpha*dist)/(dist*dist) + 2*alpha/math.SqrtPi*math.Exp(-alpha*alpha*dist*dist)/dist)
				f = r3.Add(f, r3.Scale(fr/dist, r))
			}
		}
	}

	v := l * l * l
	for nx := -kmax; nx <= kmax; nx++ {
		for ny := -kmax; ny <= kmax; ny++ {
			for nz := -kmax; nz <= kmax; nz++ {
				if nx == 0 && ny == 0 && nz == 0 {
					continue
				}
				k := r3.Scale(2*math.Pi/l, r3.Vec{X: float64(nx), Y: float64(ny), Z: float64(nz)})
				k2 := r3.Norm2(k)
				a := 4 * math.Pi / v * math.Exp(-k2/(4*alpha*alpha)) / k2
				kd := r3.Dot(k, d)
				// |S|^2 = 2 - 2 cos(k.d) for charges +1 at d and -1 at 0
				e += 0.5 * a * (2 - 2*math.Cos(kd))
				f = r3.Add(f, r3.Scale(-a*math.Sin(kd), k))
			}
		}
	}
	e -= 2 * alpha / math.SqrtPi
	return f, e
}

func TestTwoChargesFollowInverseSquare(t *testing.T) {
	const l = 20.0
	s := coulombSolver(t, l, 32, 5, 5, 0.7)

	for _, sep := range []float64{2, 7} {
		ps := []particles.Particle{
			{Pos: r3.Vec{X: 5 + sep, Y: 10, Z: 10}, Charge: 1, Mass: 1, Species: 0},
			{Pos: r3.Vec{X: 5, Y: 10, Z: 10}, Charge: -1, Mass: 1, Species: 1},
		}
		forces := make([]r3.Vec, 2)
		res, err := s.Compute(ps, forces)
		require.NoError(t, err)

		wantF, wantE := ewaldPair(r3.Vec{X: sep}, l)

		// attraction along the separation
		assert.Less(t, forces[0].X, 0.0, "separation %g", sep)
		assert.Greater(t, forces[1].X, 0.0, "separation %g", sep)
		assert.InEpsilon(t, wantF.X, forces[0].X, 0.01, "separation %g", sep)
		assert.InDelta(t, 0, forces[0].Y, 1e-3*math.Abs(wantF.X))
		assert.InEpsilon(t, wantE, res.Energy.Potential(), 0.01, "separation %g", sep)

		if sep == 2 {
			// images are negligible at short range
			assert.InEpsilon(t, -1/(sep*sep), forces[0].X, 0.02)
		} else {
			assert.Zero(t, res.Energy.ShortRange, "pair is beyond the cutoff")
		}
	}
}

func TestCountsEvaluations(t *testing.T) {
	s := coulombSolver(t, 20, 16, 3, 5, 0.7)
	ps := []particles.Particle{
		{Pos: r3.Vec{X: 1, Y: 1, Z: 1}, Charge: 1, Species: 0},
		{Pos: r3.Vec{X: 3, Y: 1, Z: 1}, Charge: -1, Species: 1},
	}
	forces := make([]r3.Vec, 2)
	for i := 0; i < 3; i++ {
		_, err := s.Compute(ps, forces)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Evaluations())
	assert.Greater(t, s.Elapsed().Nanoseconds(), int64(0))
}

func TestPairwiseOnly(t *testing.T) {
	box := r3.Vec{X: 10, Y: 10, Z: 10}
	m, err := potentials.New(potentials.Params{Kind: potentials.Yukawa, Cutoff: 4, Kappa: 1}, ionPair(t), units.Reduced)
	require.NoError(t, err)
	pair, err := pairwise.New(box, m, 1)
	require.NoError(t, err)
	s := New(pair, nil)

	ps := []particles.Particle{
		{Pos: r3.Vec{X: 1, Y: 1, Z: 1}, Species: 0},
		{Pos: r3.Vec{X: 2, Y: 1, Z: 1}, Species: 0},
	}
	forces := make([]r3.Vec, 2)
	res, err := s.Compute(ps, forces)
	require.NoError(t, err)

	u, fr := potentials.YukawaForce(1, &potentials.Coeffs{1, 1})
	assert.InDelta(t, u, res.Energy.ShortRange, 1e-12)
	assert.Zero(t, res.Energy.LongRange)
	assert.InDelta(t, -fr, forces[0].X, 1e-12)
	assert.InDelta(t, fr, forces[1].X, 1e-12)
	assert.InDelta(t, fr, res.Virial[0][0], 1e-12)
}

func TestCoincidentParticlesAreUnstable(t *testing.T) {
	box := r3.Vec{X: 10, Y: 10, Z: 10}
	m, err := potentials.New(potentials.Params{Kind: potentials.Yukawa, Cutoff: 4, Kappa: 1}, ionPair(t), units.Reduced)
	require.NoError(t, err)
	pair, err := pairwise.New(box, m, 1)
	require.NoError(t, err)

	ps := []particles.Particle{
		{Pos: r3.Vec{X: 1, Y: 1, Z: 1}},
		{Pos: r3.Vec{X: 1, Y: 1, Z: 1}},
	}
	_, err = New(pair, nil).Compute(ps, make([]r3.Vec, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, dynamo.ErrInstability)

	var ie *dynamo.NumericalInstabilityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, -1, ie.Step)
}

// yukawaImages is the bare screened force on every particle summed over
// periodic images out to shells images away.
func yukawaImages(ps []particles.Particle, l, kappa float64, shells int) []r3.Vec {
	out := make([]r3.Vec, len(ps))
	for i := range ps {
		for j := range ps {
			if i == j {
				continue
			}
			d := r3.Sub(ps[i].Pos, ps[j].Pos)
			for nx := -shells; nx <= shells; nx++ {
				for ny := -shells; ny <= shells; ny++ {
					for nz := -shells; nz <= shells; nz++ {
						r := r3.Add(d, r3.Vec{X: float64(nx) * l, Y: float64(ny) * l, Z: float64(nz) * l})
						dist := r3.Norm(r)
						_, fr := potentials.YukawaForce(dist, &potentials.Coeffs{ps[i].Charge * ps[j].Charge, kappa})
						out[i] = r3.Add(out[i], r3.Scale(fr/dist, r))
					}
				}
			}
		}
	}
	return out
}

func TestScreenedForceErrorMatchesEstimate(t *testing.T) {
	const (
		n     = 64
		l     = 6.0
		kappa = 1.0
		meshN = 16
		order = 5
	)
	box := r3.Vec{X: l, Y: l, Z: l}
	aws := units.WignerSeitz(n / (l * l * l))

	species, err := particles.NewSpeciesTable([]particles.Species{{Name: "ion", Mass: 1, Charge: 1, Count: n}})
	require.NoError(t, err)
	m, err := potentials.New(potentials.Params{Kind: potentials.Yukawa, Method: potentials.P3M, Cutoff: l / 2, Kappa: kappa}, species, units.Reduced)
	require.NoError(t, err)

	g, err := ewald.Optimize(context.Background(), ewald.Params{
		Box:       box,
		Mesh:      [3]int{meshN, meshN, meshN},
		Order:     order,
		Aliases:   [3]int{2, 2, 2},
		Cutoff:    l / 2,
		Kappa:     kappa,
		AWS:       aws,
		Tolerance: 1e-3,
		Coulomb:   1,
		N:         n,
	})
	require.NoError(t, err)
	require.NoError(t, m.SetSplitting(g.Alpha))

	pair, err := pairwise.New(box, m, 2)
	require.NoError(t, err)
	ms, err := mesh.New(mesh.Params{Box: box, Mesh: [3]int{meshN, meshN, meshN}, Order: order, Coulomb: 1, Kappa: kappa, Workers: 2}, g)
	require.NoError(t, err)
	s := New(pair, ms)

	rng := rand.New(rand.NewPCG(7, 11))
	ps := make([]particles.Particle, n)
	for i := range ps {
		ps[i] = particles.Particle{
			Pos:    r3.Vec{X: rng.Float64() * l, Y: rng.Float64() * l, Z: rng.Float64() * l},
			Mass:   1,
			Charge: 1,
		}
	}
	got := make([]r3.Vec, n)
	_, err = s.Compute(ps, got)
	require.NoError(t, err)

	want := yukawaImages(ps, l, kappa, 3)
	var sum float64
	for i := range ps {
		sum += r3.Norm2(r3.Sub(got[i], want[i]))
	}
	// relative to the force between two charges a_ws apart
	actual := math.Sqrt(sum/n) * aws * aws

	assert.Less(t, actual, 2e-3)
	assert.Greater(t, actual, g.TotalError/5)
	assert.Less(t, actual, 5*g.TotalError)
}
