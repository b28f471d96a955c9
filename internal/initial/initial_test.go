package initial

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
)

var box = r3.Vec{X: 10, Y: 12, Z: 8}

func inside(t *testing.T, pos []r3.Vec) {
	t.Helper()
	for i, p := range pos {
		require.True(t, p.X >= 0 && p.X < box.X && p.Y >= 0 && p.Y < box.Y && p.Z >= 0 && p.Z < box.Z, "particle %d at %v", i, p)
	}
}

func TestPositionsStayInBox(t *testing.T) {
	for _, m := range Methods() {
		t.Run(string(m), func(t *testing.T) {
			pos, err := Positions(125, Params{Method: m, Box: box, Seed: 3, RReject: 0.5, Perturb: 0.5})
			require.NoError(t, err)
			assert.Len(t, pos, 125)
			inside(t, pos)
		})
	}
}

func TestPositionsAreSeeded(t *testing.T) {
	a, err := Positions(50, Params{Method: Random, Box: box, Seed: 1})
	require.NoError(t, err)
	b, err := Positions(50, Params{Method: Random, Box: box, Seed: 1})
	require.NoError(t, err)
	c, err := Positions(50, Params{Method: Random, Box: box, Seed: 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRandomRejectKeepsDistance(t *testing.T) {
	pos, err := Positions(100, Params{Method: RandomReject, Box: box, Seed: 9, RReject: 1})
	require.NoError(t, err)
	for i := range pos {
		for j := i + 1; j < len(pos); j++ {
			d := minimumImage(r3.Sub(pos[i], pos[j]), box)
			assert.GreaterOrEqual(t, r3.Norm(d), 1.0)
		}
	}

	// 1000 spheres of radius 5 do not fit
	_, err = Positions(1000, Params{Method: RandomReject, Box: box, RReject: 5, MaxAttempts: 10})
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
}

func TestLatticeSites(t *testing.T) {
	cube := r3.Vec{X: 4, Y: 4, Z: 4}
	pos, err := Positions(8, Params{Method: Lattice, Box: cube})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, pos[0])
	assert.Equal(t, r3.Vec{X: 3, Y: 3, Z: 3}, pos[7])

	_, err = Positions(10, Params{Method: Lattice, Box: cube})
	var ce *dynamo.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "run.placement", ce.Param)
}

func TestRadicalInverse(t *testing.T) {
	assert.Equal(t, 0.5, radicalInverse(1, 2))
	assert.Equal(t, 0.25, radicalInverse(2, 2))
	assert.Equal(t, 0.75, radicalInverse(3, 2))
	assert.InDelta(t, 1.0/9, radicalInverse(3, 3), 1e-15)
}

func TestUnknownMethod(t *testing.T) {
	_, err := Positions(1, Params{Method: "sobol", Box: box})
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
}

func TestPopulate(t *testing.T) {
	species, err := particles.NewSpeciesTable([]particles.Species{
		{Name: "ion", Mass: 4, Charge: 2, Count: 3000, Temperature: 2},
		{Name: "e", Mass: 1, Charge: -1, Count: 1000, Temperature: 0.5},
	})
	require.NoError(t, err)

	s, err := Populate(species, Params{Box: box, Seed: 11}, 1)
	require.NoError(t, err)
	assert.Equal(t, 4000, s.Len())
	assert.Equal(t, []int{3000, 1000}, s.Counts())
	assert.InDelta(t, 5000, s.TotalCharge(), 1e-9)
	pos := make([]r3.Vec, s.Len())
	for i, p := range s.Particles {
		pos[i] = p.Pos
	}
	inside(t, pos)

	temps := s.SpeciesTemperature(1)
	assert.InEpsilon(t, 2, temps[0], 0.05)
	assert.InEpsilon(t, 0.5, temps[1], 0.1)
	assert.InDelta(t, 0, r3.Norm(s.Momentum()), 1e-9)
}

func TestMaxwellSingleParticle(t *testing.T) {
	ps := []particles.Particle{{Mass: 1}}
	Maxwell(ps, 1, rand.New(rand.NewPCG(1, 1)))
	assert.NotZero(t, ps[0].Vel)
	assert.False(t, math.IsNaN(ps[0].Vel.X))
}
